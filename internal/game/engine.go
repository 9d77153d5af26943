package game

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// State is the whole session aggregate. It is owned by exactly one Engine.
type State struct {
	SessionID   string       `json:"session_id"`
	Rules       Rules        `json:"rules"`
	Ledger      Ledger       `json:"ledger"`
	Instruments []Instrument `json:"instruments"`
	Pending     *Dilemma     `json:"pending,omitempty"`
	Forecast    []string     `json:"forecast"`
	Headline    string       `json:"headline"`
	Logs        []LogEntry   `json:"logs"`
	Over        bool         `json:"over"`
	Outcome     Outcome      `json:"outcome,omitempty"`
}

// NewState builds the starting state for a session.
func NewState(rules Rules) (State, error) {
	if err := rules.Validate(); err != nil {
		return State{}, err
	}
	variant, _ := ParseVariant(string(rules.Variant))
	rules.Variant = variant
	return State{
		SessionID:   uuid.NewString(),
		Rules:       rules,
		Ledger:      newLedger(rules),
		Instruments: NewCatalog(variant),
		Headline:    "Day one: the market opens calmly.",
	}, nil
}

func (s State) clone() State {
	out := s
	out.Instruments = cloneInstruments(s.Instruments)
	out.Forecast = append([]string(nil), s.Forecast...)
	out.Logs = append([]LogEntry(nil), s.Logs...)
	if s.Pending != nil {
		p := s.Pending.clone()
		out.Pending = &p
	}
	return out
}

// Engine runs a single-player session. It is not safe for concurrent use;
// callers serialise access.
type Engine struct {
	state *State
	rng   Source
	log   *slog.Logger
}

// NewEngine starts a new session with the given rules.
func NewEngine(rules Rules, rng Source, logger *slog.Logger) (*Engine, error) {
	st, err := NewState(rules)
	if err != nil {
		return nil, err
	}
	e := Resume(st, rng, logger)
	e.addLog(fmt.Sprintf("=== Day %d ===", st.Ledger.Day), SeverityInfo)
	e.log.Info("session started", "session", st.SessionID, "variant", string(st.Rules.Variant))
	return e, nil
}

// Resume wraps an existing state. The engine takes a private copy.
func Resume(st State, rng Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = NewSource(0)
	}
	cp := st.clone()
	return &Engine{state: &cp, rng: rng, log: logger}
}

// State returns a deep copy of the session aggregate.
func (e *Engine) State() State {
	return e.state.clone()
}

func (e *Engine) SessionID() string {
	return e.state.SessionID
}

func (e *Engine) Over() bool {
	return e.state.Over
}

// Snapshot returns the read-only view used by presentation layers.
func (e *Engine) Snapshot() Snapshot {
	st := e.state.clone()
	snap := Snapshot{
		SessionID:   st.SessionID,
		Rules:       st.Rules,
		Ledger:      st.Ledger,
		Instruments: st.Instruments,
		TotalAssets: round2(e.totalAssets()),
		HoldingCap:  st.Ledger.HoldingCap(),
		Forecast:    st.Forecast,
		Headline:    st.Headline,
		Logs:        st.Logs,
		Over:        st.Over,
		Outcome:     st.Outcome,
	}
	if st.Pending != nil {
		snap.Pending = st.Pending.view()
	}
	return snap
}

func (e *Engine) totalAssets() float64 {
	return e.state.Ledger.Cash + portfolioValue(e.state.Instruments)
}

func (e *Engine) addLog(msg string, sev Severity) {
	e.state.Logs = append(e.state.Logs, LogEntry{
		Seq:      len(e.state.Logs) + 1,
		Day:      e.state.Ledger.Day,
		Message:  msg,
		Severity: sev,
	})
}

// reject records a failed action in the feed and returns its error.
func (e *Engine) reject(err error, msg string, sev Severity) error {
	e.addLog(msg, sev)
	e.log.Debug("action rejected", "session", e.state.SessionID, "err", err)
	return err
}

func (e *Engine) spendActionPoint() {
	e.state.Ledger.ActionPoints--
}

func (e *Engine) Work() error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if l.ActionPoints <= 0 {
		return e.reject(ErrNoActionPoints, "No action points left today. End the day to recover them.", SeverityWarning)
	}
	if l.Energy < WorkEnergyCost {
		return e.reject(ErrInsufficientEnergy, "Not enough energy for a part-time job.", SeverityWarning)
	}
	pay := float64(WorkBasePay + l.Skill/2)
	l.addEnergy(-WorkEnergyCost)
	l.gainCash(pay)
	e.spendActionPoint()
	e.addLog(fmt.Sprintf("Finished a part-time job: earned %s, spent %d energy, %d action points left.", formatMoney(pay), WorkEnergyCost, l.ActionPoints), SeveritySuccess)
	return nil
}

func (e *Engine) Study() error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if l.ActionPoints <= 0 {
		return e.reject(ErrNoActionPoints, "No action points left today. End the day to recover them.", SeverityWarning)
	}
	cost := l.StudyCost()
	if l.Energy < cost {
		return e.reject(ErrInsufficientEnergy, "Not enough energy to study.", SeverityWarning)
	}
	l.addEnergy(-cost)
	l.addSkill(StudySkillGain)
	e.spendActionPoint()
	suffix := ""
	if l.StudyCostMultiplier > 1 {
		suffix = fmt.Sprintf(" (cost x%g)", l.StudyCostMultiplier)
	}
	e.addLog(fmt.Sprintf("Studied hard: skill +%d, spent %d energy%s, %d action points left.", StudySkillGain, cost, suffix, l.ActionPoints), SeveritySuccess)
	return nil
}

// Research spends energy on a purely cosmetic forecast. It never affects
// pricing.
func (e *Engine) Research() error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if l.ActionPoints <= 0 {
		return e.reject(ErrNoActionPoints, "No action points left today. End the day to recover them.", SeverityWarning)
	}
	if l.Energy < ResearchEnergyCost {
		return e.reject(ErrInsufficientEnergy, "Not enough energy for market research.", SeverityWarning)
	}
	l.addEnergy(-ResearchEnergyCost)
	e.spendActionPoint()
	forecast := make([]string, 0, len(e.state.Instruments))
	for _, inst := range e.state.Instruments {
		dir := "expected to fall"
		if (e.rng.Float64()-0.5)*20 > 0 {
			dir = "expected to rise"
		}
		forecast = append(forecast, inst.Name+": "+dir)
	}
	e.state.Forecast = forecast
	e.addLog(fmt.Sprintf("Market research done, tomorrow's forecast is in. Spent %d energy, %d action points left.", ResearchEnergyCost, l.ActionPoints), SeverityInfo)
	return nil
}

// Rest recovers energy. It costs no action points and never restores them.
func (e *Engine) Rest() error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	gain := RestEnergyGain
	bonus := 0
	if l.Story.GoodwillDays > 0 {
		bonus = GoodwillRestBonus
	}
	l.addEnergy(gain + bonus)
	if bonus > 0 {
		e.addLog(fmt.Sprintf("Had a good rest, energy +%d (goodwill bonus +%d).", gain+bonus, bonus), SeveritySuccess)
	} else {
		e.addLog(fmt.Sprintf("Had a good rest, energy +%d.", gain), SeveritySuccess)
	}
	return nil
}

func (e *Engine) Buy(instrumentID, qty int) error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if l.TradingLocked {
		return e.reject(ErrTradingLocked, "Your computer is broken, trading is unavailable!", SeverityError)
	}
	inst := findByID(e.state.Instruments, instrumentID)
	if inst == nil {
		return e.reject(ErrInstrumentNotFound, fmt.Sprintf("No instrument with id %d.", instrumentID), SeverityError)
	}
	if qty <= 0 {
		return e.reject(ErrInvalidQuantity, "Quantity must be positive.", SeverityError)
	}
	if inst.MinSkill > 0 && l.Skill < inst.MinSkill {
		e.addLog(fmt.Sprintf("Buying %s requires skill %d, you have %d.", inst.Name, inst.MinSkill, l.Skill), SeverityWarning)
		return e.reject(ErrSkillTooLow, "Tip: study to raise your skill and unlock fund investing.", SeverityInfo)
	}
	if limit := l.HoldingCap(); inst.Held+qty > limit {
		return e.reject(ErrHoldingCap, fmt.Sprintf("Holding cap is %d units per instrument at skill %d. Study to raise it.", limit, l.Skill), SeverityWarning)
	}
	cost := round2(inst.Price * float64(qty))
	if l.Cash < cost {
		return e.reject(ErrInsufficientFunds, fmt.Sprintf("Not enough cash to buy %s.", inst.Name), SeverityError)
	}
	l.Cash = round2(l.Cash - cost)
	inst.Held += qty
	e.addLog(fmt.Sprintf("Bought %d units of %s for %s.", qty, inst.Name, formatMoney(cost)), SeveritySuccess)
	return nil
}

func (e *Engine) Sell(instrumentID, qty int) error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if l.TradingLocked {
		return e.reject(ErrTradingLocked, "Your computer is broken, trading is unavailable!", SeverityError)
	}
	inst := findByID(e.state.Instruments, instrumentID)
	if inst == nil {
		return e.reject(ErrInstrumentNotFound, fmt.Sprintf("No instrument with id %d.", instrumentID), SeverityError)
	}
	if qty <= 0 {
		return e.reject(ErrInvalidQuantity, "Quantity must be positive.", SeverityError)
	}
	if inst.Held < qty {
		return e.reject(ErrInsufficientShares, fmt.Sprintf("Not enough %s to sell.", inst.Name), SeverityError)
	}
	revenue := round2(inst.Price * float64(qty))
	inst.removeUnits(qty)
	l.gainCash(revenue)
	e.addLog(fmt.Sprintf("Sold %d units of %s for %s.", qty, inst.Name, formatMoney(revenue)), SeveritySuccess)
	return nil
}

// Repair pays to fix a computer left broken by the blue-screen dilemma.
func (e *Engine) Repair() error {
	if e.state.Over {
		return ErrGameOver
	}
	l := &e.state.Ledger
	if !l.TradingLocked {
		return e.reject(ErrNotLocked, "Your computer works fine.", SeverityInfo)
	}
	if l.Cash < RepairCost {
		return e.reject(ErrInsufficientFunds, "Not enough cash to pay for repairs.", SeverityError)
	}
	l.spendCash(RepairCost)
	l.TradingLocked = false
	e.addLog(fmt.Sprintf("Computer repaired for %s, trading unlocked.", formatMoney(RepairCost)), SeverityWarning)
	return nil
}
