package game

import (
	"errors"
	"strings"
	"testing"
)

func TestNewEngineDefaults(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	l := e.state.Ledger
	if l.Cash != 500 || l.Energy != 100 || l.Skill != 10 || l.Day != 1 || l.ActionPoints != 2 {
		t.Fatalf("unexpected starting ledger: %+v", l)
	}
	if len(e.state.Instruments) != 8 {
		t.Fatalf("expected 8 instruments, got %d", len(e.state.Instruments))
	}
	if e.SessionID() == "" {
		t.Fatalf("session id should be assigned")
	}
	if got := e.Snapshot().TotalAssets; got != 500 {
		t.Fatalf("total assets got=%v want=500", got)
	}

	bad := DefaultRules()
	bad.Variant = "nope"
	if _, err := NewEngine(bad, script(0.9), quietLogger()); err == nil {
		t.Fatalf("expected invalid rules to fail")
	}
}

func TestWorkConsumesActionPoints(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	for i := 0; i < 2; i++ {
		if err := e.Work(); err != nil {
			t.Fatalf("work %d: %v", i, err)
		}
	}
	l := e.state.Ledger
	if l.Cash != 570 || l.Energy != 40 || l.ActionPoints != 0 {
		t.Fatalf("after two shifts got %+v", l)
	}
	if err := e.Work(); !errors.Is(err, ErrNoActionPoints) {
		t.Fatalf("expected ErrNoActionPoints, got %v", err)
	}
	if e.state.Ledger != l {
		t.Fatalf("rejected work must not mutate the ledger")
	}
	if lastLog(e).Severity != SeverityWarning {
		t.Fatalf("rejection should be logged as a warning")
	}
}

func TestWorkNeedsEnergy(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	e.state.Ledger.Energy = 29
	if err := e.Work(); !errors.Is(err, ErrInsufficientEnergy) {
		t.Fatalf("expected ErrInsufficientEnergy, got %v", err)
	}
	if e.state.Ledger.ActionPoints != 2 {
		t.Fatalf("failed work must not spend action points")
	}
}

func TestStudyAndResearch(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	if err := e.Study(); err != nil {
		t.Fatalf("study: %v", err)
	}
	if l := e.state.Ledger; l.Skill != 12 || l.Energy != 60 || l.ActionPoints != 1 {
		t.Fatalf("after study got %+v", l)
	}
	if e.state.Ledger.HoldingCap() != 600 {
		t.Fatalf("holding cap should follow skill")
	}

	prices := make([]float64, 0, len(e.state.Instruments))
	for _, inst := range e.state.Instruments {
		prices = append(prices, inst.Price)
	}
	if err := e.Research(); err != nil {
		t.Fatalf("research: %v", err)
	}
	if len(e.state.Forecast) != len(e.state.Instruments) {
		t.Fatalf("forecast should cover every instrument, got %v", e.state.Forecast)
	}
	for idx, inst := range e.state.Instruments {
		if inst.Price != prices[idx] {
			t.Fatalf("research must not move prices")
		}
	}
	if l := e.state.Ledger; l.Energy != 40 || l.ActionPoints != 0 {
		t.Fatalf("after research got %+v", l)
	}
}

func TestRestDoesNotRestoreActionPoints(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	if err := e.Work(); err != nil {
		t.Fatalf("work: %v", err)
	}
	if err := e.Rest(); err != nil {
		t.Fatalf("rest: %v", err)
	}
	if l := e.state.Ledger; l.Energy != 100 || l.ActionPoints != 1 {
		t.Fatalf("rest should cap energy and keep action points: %+v", l)
	}
}

func TestBuyValidation(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	tests := []struct {
		name string
		id   int
		qty  int
		want error
	}{
		{name: "unknown", id: 99, qty: 1, want: ErrInstrumentNotFound},
		{name: "zero qty", id: 1, qty: 0, want: ErrInvalidQuantity},
		{name: "fund skill gate", id: 8, qty: 1, want: ErrSkillTooLow},
		{name: "holding cap", id: 5, qty: 501, want: ErrHoldingCap},
		{name: "cash", id: 2, qty: 11, want: ErrInsufficientFunds},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := e.State()
			if err := e.Buy(tc.id, tc.qty); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if e.state.Ledger.Cash != before.Ledger.Cash {
				t.Fatalf("rejected buy must not spend cash")
			}
			for idx := range before.Instruments {
				if e.state.Instruments[idx].Held != before.Instruments[idx].Held {
					t.Fatalf("rejected buy must not change holdings")
				}
			}
		})
	}
}

func TestBuyAndSell(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	if err := e.Buy(2, 10); err != nil {
		t.Fatalf("buy: %v", err)
	}
	gpu := mustInstrument(t, e, NameGPUGear)
	if gpu.Held != 10 || e.state.Ledger.Cash != 0 {
		t.Fatalf("buy got held=%d cash=%v", gpu.Held, e.state.Ledger.Cash)
	}
	if e.state.Ledger.ActionPoints != 2 {
		t.Fatalf("trading is free of action points")
	}
	if err := e.Sell(2, 11); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	gpu.HoldingDays = 5
	if err := e.Sell(2, 4); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if gpu.HoldingDays != 5 || e.state.Ledger.Cash != 200 {
		t.Fatalf("partial sell got days=%d cash=%v", gpu.HoldingDays, e.state.Ledger.Cash)
	}
	if err := e.Sell(2, 6); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if gpu.Held != 0 || gpu.HoldingDays != 0 || e.state.Ledger.Cash != 500 {
		t.Fatalf("closing the position resets holding days: %+v", gpu)
	}
}

func TestBuyFundAfterStudy(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	e.state.Ledger.Skill = 20
	if err := e.Buy(8, 2); err != nil {
		t.Fatalf("buy fund at skill 20: %v", err)
	}
}

func TestEndDayScenario(t *testing.T) {
	e := newTestEngine(t, script(0.99))
	if err := e.Work(); err != nil {
		t.Fatalf("work: %v", err)
	}
	if err := e.Work(); err != nil {
		t.Fatalf("work: %v", err)
	}
	if e.state.Ledger.Cash != 570 {
		t.Fatalf("cash after work got=%v want=570", e.state.Ledger.Cash)
	}

	report, err := e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if report.Paused || report.Over {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.EventID != EventInspection {
		t.Fatalf("event got=%s want=%s", report.EventID, EventInspection)
	}
	l := e.state.Ledger
	if l.Cash != 540 || l.Day != 2 || l.ActionPoints != 2 || l.Energy != 40 {
		t.Fatalf("after end day got %+v", l)
	}
	for _, inst := range e.state.Instruments {
		if inst.Price <= inst.PreviousPrice || inst.ConsecutiveUpDays != 1 || len(inst.History) != 2 {
			t.Fatalf("%s should have rallied: %+v", inst.Name, inst)
		}
	}
	if lastLog(e).Message != "=== Day 2 ===" {
		t.Fatalf("expected the day header last, got %q", lastLog(e).Message)
	}
}

func TestEndDayBankrupt(t *testing.T) {
	e := newTestEngine(t, script(0.99))
	e.state.Ledger.Cash = 10
	report, err := e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if !report.Over || report.Outcome != OutcomeBankrupt {
		t.Fatalf("expected bankruptcy, got %+v", report)
	}
	if e.state.Ledger.Cash != 0 {
		t.Fatalf("cash clamps at zero, got %v", e.state.Ledger.Cash)
	}
	if err := e.Work(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if _, err := e.EndDay(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestEndDayHoldingsPreventBankruptcy(t *testing.T) {
	e := newTestEngine(t, script(0.99))
	e.state.Ledger.Cash = 10
	mustInstrument(t, e, NameMixueTea).Held = 5
	report, err := e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if report.Over {
		t.Fatalf("holdings count towards total assets: %+v", report)
	}
}

func TestEndDayExhausted(t *testing.T) {
	e := newTestEngine(t, script(0.99))
	e.state.Ledger.Energy = 0
	report, err := e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if report.Outcome != OutcomeExhausted || !e.Over() {
		t.Fatalf("expected exhaustion, got %+v", report)
	}
}

func TestEndDayFinalOutcome(t *testing.T) {
	rules := DefaultRules()
	rules.TotalDays = 1

	e, err := NewEngine(rules, script(0.99), quietLogger())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.state.Ledger.Cash = 3000
	report, err := e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if report.Outcome != OutcomeWin {
		t.Fatalf("expected a win, got %+v", report)
	}

	e, err = NewEngine(rules, script(0.99), quietLogger())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	report, err = e.EndDay()
	if err != nil {
		t.Fatalf("end day: %v", err)
	}
	if report.Outcome != OutcomeNeutral || e.state.Ledger.Day != 2 {
		t.Fatalf("expected a neutral ending, got %+v", report)
	}
}

func TestDividendPass(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	tea := mustInstrument(t, e, NameMixueTea)
	tea.Held = 100
	tea.HoldingDays = 3
	gpu := mustInstrument(t, e, NameGPUGear)
	gpu.Held = 1
	gpu.HoldingDays = 2

	paid := e.dividendPass()
	if len(paid) != 1 || paid[0].Amount != 5 || paid[0].HoldingDays != 4 {
		t.Fatalf("expected one 0.5%% payout of 5 after 4 days, got %+v", paid)
	}
	if e.state.Ledger.Cash != 505 {
		t.Fatalf("cash got=%v want=505", e.state.Ledger.Cash)
	}
	if tea.HoldingDays != 4 || gpu.HoldingDays != 3 {
		t.Fatalf("holding days should age: tea=%d gpu=%d", tea.HoldingDays, gpu.HoldingDays)
	}
	if msg := lastLog(e).Message; !strings.Contains(msg, "held 4 days") {
		t.Fatalf("payout log should carry the aged holding days: %q", msg)
	}
	if mustInstrument(t, e, NameSparkCareers).HoldingDays != 0 {
		t.Fatalf("empty positions do not age")
	}

	e.state.Ledger.Skill = 81
	paid = e.dividendPass()
	if len(paid) != 2 || paid[0].Amount != 8 {
		t.Fatalf("expected the high rate above skill 80, got %+v", paid)
	}
}

func TestFirstDividendOnFourthEndDay(t *testing.T) {
	e := newTestEngine(t, script(0.99))
	tea := mustInstrument(t, e, NameMixueTea)
	if err := e.Buy(tea.ID, 10); err != nil {
		t.Fatalf("buy: %v", err)
	}
	for day := 1; day <= 4; day++ {
		report, err := e.EndDay()
		if err != nil {
			t.Fatalf("end day %d: %v", day, err)
		}
		if report.Paused {
			t.Fatalf("end day %d: unexpected dilemma %s", day, report.DilemmaID)
		}
		if day < 4 && len(report.Dividends) != 0 {
			t.Fatalf("end day %d: paid too early %+v", day, report.Dividends)
		}
		if day == 4 {
			if len(report.Dividends) != 1 || report.Dividends[0].InstrumentID != tea.ID || report.Dividends[0].HoldingDays != 4 {
				t.Fatalf("expected the first payout on the 4th end day, got %+v", report.Dividends)
			}
		}
	}
}

func TestCatalogIsolation(t *testing.T) {
	events := EventCatalog()
	events[0].Effects[0].Factor = 100
	if eventCatalog[0].Effects[0].Factor == 100 {
		t.Fatalf("EventCatalog shares effects with the global catalog")
	}
	dilemmas := DilemmaCatalog()
	dilemmas[0].Options[0].Effect.Cash = 1e6
	if dilemmaCatalog[0].Options[0].Effect.Cash == 1e6 {
		t.Fatalf("DilemmaCatalog shares options with the global catalog")
	}

	e := newTestEngine(t, script(0.9))
	pendDilemma(t, e, DilemmaRoommateLoan)
	st := e.State()
	st.Pending.Options[0].Effect.Cash = 1e6
	if e.state.Pending.Options[0].Effect.Cash == 1e6 {
		t.Fatalf("State shares the pending dilemma options with the engine")
	}
	if loan, _ := dilemmaByID(DilemmaRoommateLoan); loan.Options[0].Effect.Cash == 1e6 {
		t.Fatalf("pending dilemma shares options with the global catalog")
	}
	e.state.Pending.Options[0].Effect.Cash = 7
	if loan, _ := dilemmaByID(DilemmaRoommateLoan); loan.Options[0].Effect.Cash == 7 {
		t.Fatalf("engine pending dilemma shares options with the global catalog")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	snap := e.Snapshot()
	snap.Instruments[0].Price = 999
	snap.Instruments[0].History[0] = 999
	snap.Logs[0].Message = "changed"
	if e.state.Instruments[0].Price == 999 || e.state.Instruments[0].History[0] == 999 {
		t.Fatalf("snapshot shares instrument memory with the engine")
	}
	if e.state.Logs[0].Message == "changed" {
		t.Fatalf("snapshot shares log memory with the engine")
	}
}

func TestResumeCopiesState(t *testing.T) {
	e := newTestEngine(t, script(0.9))
	forked := Resume(e.State(), script(0.9), quietLogger())
	if err := forked.Work(); err != nil {
		t.Fatalf("work: %v", err)
	}
	if e.state.Ledger.Cash != 500 || forked.State().Ledger.Cash != 535 {
		t.Fatalf("resumed engine must own its state")
	}
	if forked.SessionID() != e.SessionID() {
		t.Fatalf("resume keeps the session id")
	}
}

func TestSeededSessionInvariants(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rules := DefaultRules()
		if seed%2 == 0 {
			rules.Variant = VariantTiered
		}
		e, err := NewEngine(rules, NewSource(seed), quietLogger())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		bot := NewSource(seed * 7)
		for turns := 0; !e.Over() && turns < 200; turns++ {
			if e.state.Pending != nil {
				opts := e.state.Pending.Options
				if _, err := e.ResolveDilemma(opts[pickIndex(bot, len(opts))].ID); err != nil {
					t.Fatalf("seed %d resolve: %v", seed, err)
				}
				checkInvariants(t, e)
				continue
			}
			switch pickIndex(bot, 6) {
			case 0:
				_ = e.Work()
			case 1:
				_ = e.Study()
			case 2:
				_ = e.Rest()
			case 3:
				inst := e.state.Instruments[pickIndex(bot, len(e.state.Instruments))]
				_ = e.Buy(inst.ID, 1+pickIndex(bot, 5))
			case 4:
				inst := e.state.Instruments[pickIndex(bot, len(e.state.Instruments))]
				_ = e.Sell(inst.ID, 1+pickIndex(bot, 5))
			default:
				if _, err := e.EndDay(); err != nil {
					t.Fatalf("seed %d end day: %v", seed, err)
				}
			}
			checkInvariants(t, e)
		}
	}
}

func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	l := e.state.Ledger
	if l.Cash < 0 {
		t.Fatalf("negative cash: %v", l.Cash)
	}
	if l.Energy < 0 || l.Energy > l.EnergyCap() {
		t.Fatalf("energy out of range: %d cap=%d", l.Energy, l.EnergyCap())
	}
	if l.Skill < 0 {
		t.Fatalf("negative skill: %d", l.Skill)
	}
	if l.ActionPoints < 0 || l.ActionPoints > l.MaxActionPoints {
		t.Fatalf("action points out of range: %d", l.ActionPoints)
	}
	if l.Day > e.state.Rules.TotalDays+1 {
		t.Fatalf("day ran past the end: %d", l.Day)
	}
	for _, inst := range e.state.Instruments {
		if inst.Price < PriceFloor {
			t.Fatalf("%s below floor: %v", inst.Name, inst.Price)
		}
		if len(inst.History) > HistoryLimit {
			t.Fatalf("%s history too long: %d", inst.Name, len(inst.History))
		}
		if inst.Held < 0 {
			t.Fatalf("%s negative holdings", inst.Name)
		}
	}
}
