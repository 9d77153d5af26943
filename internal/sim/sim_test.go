package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"dormtycoon/internal/game"
	"dormtycoon/internal/script"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseSnapshot() game.Snapshot {
	rules := game.DefaultRules()
	return game.Snapshot{
		Rules: rules,
		Ledger: game.Ledger{
			Cash:                rules.InitialCash,
			Energy:              100,
			Skill:               10,
			Day:                 1,
			ActionPoints:        2,
			MaxActionPoints:     2,
			StudyCostMultiplier: 1,
		},
		Instruments: game.NewCatalog(game.VariantClassic),
		HoldingCap:  game.HoldingCapForSkill(10),
	}
}

func TestGrinderDecisions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*game.Snapshot)
		want  script.Action
	}{
		{"works when rested", func(s *game.Snapshot) {}, script.Action{Type: script.TypeWork}},
		{"rests when tired", func(s *game.Snapshot) { s.Ledger.Energy = 20 }, script.Action{Type: script.TypeRest}},
		{"rests before ending a tired day", func(s *game.Snapshot) {
			s.Ledger.ActionPoints = 0
			s.Ledger.Energy = 10
		}, script.Action{Type: script.TypeRest}},
		{"ends the day without points", func(s *game.Snapshot) {
			s.Ledger.ActionPoints = 0
			s.Ledger.Energy = 50
		}, script.Action{Type: script.TypeEndDay}},
		{"answers a dilemma first", func(s *game.Snapshot) {
			s.Pending = &game.DilemmaView{ID: "x", Options: []game.OptionView{{ID: "A"}, {ID: "B"}}}
		}, script.Action{Type: script.TypeDilemma, Option: "A"}},
		{"repairs a broken computer", func(s *game.Snapshot) { s.Ledger.TradingLocked = true }, script.Action{Type: script.TypeRepair}},
		{"leaves the computer when broke", func(s *game.Snapshot) {
			s.Ledger.TradingLocked = true
			s.Ledger.Cash = 100
		}, script.Action{Type: script.TypeWork}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := baseSnapshot()
			tc.setup(&snap)
			if got := (grinder{}).Next(snap); got != tc.want {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestScholarFallsBackToWork(t *testing.T) {
	snap := baseSnapshot()
	b := scholar{target: 60}
	if got := b.Next(snap); got.Type != script.TypeStudy {
		t.Fatalf("expected study, got %+v", got)
	}

	snap.Ledger.StudyCostMultiplier = 3
	if got := b.Next(snap); got.Type != script.TypeWork {
		t.Fatalf("unaffordable study at full energy should fall back to work, got %+v", got)
	}

	snap.Ledger.StudyCostMultiplier = 1
	snap.Ledger.Skill = 60
	if got := b.Next(snap); got.Type != script.TypeWork {
		t.Fatalf("expected work at target skill, got %+v", got)
	}
}

func TestMomentumTrades(t *testing.T) {
	snap := baseSnapshot()
	snap.Instruments[0].PreviousPrice, snap.Instruments[0].Price = 10, 11
	snap.Instruments[2].PreviousPrice, snap.Instruments[2].Price = 20, 24

	b := &momentum{}
	got := b.Next(snap)
	want := script.Action{Type: script.TypeBuy, InstrumentID: snap.Instruments[2].ID, Quantity: 8}
	if got != want {
		t.Fatalf("got=%+v want=%+v", got, want)
	}
	if again := b.Next(snap); again.Type != script.TypeStudy {
		t.Fatalf("one buy per day, then labor: got %+v", again)
	}

	snap.Instruments[2].Held = 8
	snap.Instruments[2].ConsecutiveUpDays = 3
	if got := b.Next(snap); got != (script.Action{Type: script.TypeSell, InstrumentID: snap.Instruments[2].ID, Quantity: 8}) {
		t.Fatalf("expected the streaking position to be sold, got %+v", got)
	}
}

func TestScriptedThenFallback(t *testing.T) {
	actions := []script.Action{{Type: script.TypeStudy}, {Type: script.TypeBuy, InstrumentID: 1, Quantity: 2}}
	b := Scripted(actions, nil)
	snap := baseSnapshot()
	for i, want := range actions {
		if got := b.Next(snap); got != want {
			t.Fatalf("step %d: got=%+v want=%+v", i, got, want)
		}
	}
	if got := b.Next(snap); got.Type != script.TypeWork {
		t.Fatalf("expected the grinder fallback, got %+v", got)
	}
}

func TestNewStrategy(t *testing.T) {
	for _, name := range StrategyNames() {
		if _, err := NewStrategy(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := NewStrategy("yolo"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func shortRules() game.Rules {
	rules := game.DefaultRules()
	rules.TotalDays = 5
	return rules
}

func TestPlayFinishes(t *testing.T) {
	for _, name := range StrategyNames() {
		strat, _ := NewStrategy(name)
		res, err := Play(shortRules(), 42, strat, quietLogger())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if res.Outcome == game.OutcomeNone {
			t.Fatalf("%s: session did not finish: %+v", name, res)
		}
		if res.Actions == 0 || res.Days < 1 || res.Days > 5 {
			t.Fatalf("%s: unexpected result %+v", name, res)
		}
	}
}

func TestRunBatchDeterministic(t *testing.T) {
	b := Batch{
		Rules:    shortRules(),
		Runs:     6,
		Workers:  3,
		Seed:     100,
		Strategy: func() (Strategy, error) { return NewStrategy(StrategyMomentum) },
	}
	first, err := RunBatch(context.Background(), b, quietLogger())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("expected 6 results, got %d", len(first))
	}
	for i, r := range first {
		if r.Seed != 100+int64(i) {
			t.Fatalf("result %d has seed %d", i, r.Seed)
		}
	}

	b.Workers = 1
	second, err := RunBatch(context.Background(), b, quietLogger())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seeds should replay identically regardless of workers")
	}
}

func TestRunBatchZeroSeedIsConsecutive(t *testing.T) {
	results, err := RunBatch(context.Background(), Batch{
		Rules:    shortRules(),
		Runs:     4,
		Workers:  2,
		Strategy: func() (Strategy, error) { return grinder{}, nil },
	}, quietLogger())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	base := results[0].Seed
	if base == 0 {
		t.Fatalf("a zero seed should be replaced by a clock-based base")
	}
	for i, r := range results {
		if r.Seed != base+int64(i) {
			t.Fatalf("run %d has seed %d, want %d", i, r.Seed, base+int64(i))
		}
	}

	replay, err := Play(shortRules(), results[2].Seed, grinder{}, quietLogger())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !reflect.DeepEqual(replay, results[2]) {
		t.Fatalf("recorded seed should replay the run: got=%+v want=%+v", replay, results[2])
	}
}

func TestRunBatchErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := RunBatch(context.Background(), Batch{
		Rules:    shortRules(),
		Runs:     3,
		Workers:  2,
		Seed:     1,
		Strategy: func() (Strategy, error) { return nil, boom },
	}, quietLogger())
	if !errors.Is(err, boom) {
		t.Fatalf("expected strategy error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunBatch(ctx, Batch{
		Rules:    shortRules(),
		Runs:     2,
		Seed:     1,
		Strategy: func() (Strategy, error) { return grinder{}, nil },
	}, quietLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	results := []RunResult{
		{Outcome: game.OutcomeWin, FinalAssets: 500, FinalSkill: 50, Days: 20, Crashes: 1},
		{Outcome: game.OutcomeNeutral, FinalAssets: 100, FinalSkill: 10, Days: 28},
		{Outcome: game.OutcomeNeutral, FinalAssets: 300, FinalSkill: 30, Days: 28, Dilemmas: 2},
		{Outcome: game.OutcomeBankrupt, FinalAssets: 200, FinalSkill: 20, Days: 12},
		{Outcome: game.OutcomeNeutral, FinalAssets: 400, FinalSkill: 40, Days: 28, Dividends: 5},
	}
	s := Summarize(results)
	if s.Runs != 5 || s.Outcomes[game.OutcomeNeutral] != 3 || s.WinRate != 0.2 {
		t.Fatalf("bad counts: %+v", s)
	}
	if s.MeanAssets != 300 || s.MinAssets != 100 || s.MaxAssets != 500 {
		t.Fatalf("bad asset range: %+v", s)
	}
	if s.MedianAssets != 300 || s.P10Assets != 100 || s.P90Assets != 500 {
		t.Fatalf("bad quantiles: %+v", s)
	}
	if math.Abs(s.StdDevAssets-158.1139) > 1e-3 {
		t.Fatalf("stddev=%v", s.StdDevAssets)
	}
	if math.Abs(s.SkillAssetCorr-1) > 1e-9 {
		t.Fatalf("corr=%v", s.SkillAssetCorr)
	}
	if s.TotalCrashes != 1 || s.TotalDilemmas != 2 || s.MeanDividends != 1 || s.MeanDays != 23.2 {
		t.Fatalf("bad totals: %+v", s)
	}
	// results must not be reordered
	if results[0].FinalAssets != 500 {
		t.Fatalf("input mutated")
	}

	if empty := Summarize(nil); empty.Runs != 0 || empty.MeanAssets != 0 {
		t.Fatalf("empty summary: %+v", empty)
	}
}
