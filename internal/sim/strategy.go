package sim

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dormtycoon/internal/game"
	"dormtycoon/internal/script"
)

const (
	StrategyGrinder  = "grinder"
	StrategyScholar  = "scholar"
	StrategyMomentum = "momentum"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy decides a bot's next action from the current session snapshot.
// Implementations may keep per-run state, so each run gets its own value.
type Strategy interface {
	Next(snap game.Snapshot) script.Action
}

// NewStrategy builds a fresh bot by name.
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyGrinder:
		return grinder{}, nil
	case StrategyScholar:
		return scholar{target: 60}, nil
	case StrategyMomentum:
		return &momentum{}, nil
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownStrategy, name, strings.Join(StrategyNames(), ", "))
	}
}

func StrategyNames() []string {
	return []string{StrategyGrinder, StrategyScholar, StrategyMomentum}
}

// restFloor keeps a bot from ending the day close to exhaustion.
const restFloor = 30

// housekeeping handles what every bot does first: answer a dilemma and fix a
// broken computer when it can afford to.
func housekeeping(s game.Snapshot) (script.Action, bool) {
	if s.Pending != nil && len(s.Pending.Options) > 0 {
		return script.Action{Type: script.TypeDilemma, Option: s.Pending.Options[0].ID}, true
	}
	if s.Ledger.TradingLocked && s.Ledger.Cash >= game.RepairCost+2*s.Rules.LivingCost {
		return script.Action{Type: script.TypeRepair}, true
	}
	return script.Action{}, false
}

// labor spends the day's action points on the preferred job, resting when
// energy runs short and ending the day once points are gone.
func labor(s game.Snapshot, preferred string) script.Action {
	l := s.Ledger
	energyCap := l.EnergyCap()
	if l.ActionPoints <= 0 {
		if l.Energy < restFloor && l.Energy < energyCap {
			return script.Action{Type: script.TypeRest}
		}
		return script.Action{Type: script.TypeEndDay}
	}
	cost := game.WorkEnergyCost
	if preferred == script.TypeStudy {
		cost = l.StudyCost()
	}
	if l.Energy >= cost {
		return script.Action{Type: preferred}
	}
	if l.Energy < energyCap {
		return script.Action{Type: script.TypeRest}
	}
	if preferred != script.TypeWork && l.Energy >= game.WorkEnergyCost {
		return script.Action{Type: script.TypeWork}
	}
	return script.Action{Type: script.TypeEndDay}
}

// grinder only takes part-time jobs.
type grinder struct{}

func (grinder) Next(s game.Snapshot) script.Action {
	if a, ok := housekeeping(s); ok {
		return a
	}
	return labor(s, script.TypeWork)
}

// scholar studies until it reaches target skill, then works.
type scholar struct {
	target int
}

func (b scholar) Next(s game.Snapshot) script.Action {
	if a, ok := housekeeping(s); ok {
		return a
	}
	if s.Ledger.Skill < b.target {
		return labor(s, script.TypeStudy)
	}
	return labor(s, script.TypeWork)
}

// momentum chases instruments that rose yesterday and dumps anything on a
// long up-streak before the bubble check can crash it. It buys at most once
// per day.
type momentum struct {
	boughtDay int
}

const (
	momentumSellStreak = 3
	momentumCashShare  = 0.5
	momentumStudySkill = 30
)

func (b *momentum) Next(s game.Snapshot) script.Action {
	if a, ok := housekeeping(s); ok {
		return a
	}
	if !s.Ledger.TradingLocked {
		for _, inst := range s.Instruments {
			if inst.Held > 0 && inst.ConsecutiveUpDays >= momentumSellStreak {
				return script.Action{Type: script.TypeSell, InstrumentID: inst.ID, Quantity: inst.Held}
			}
		}
		if b.boughtDay != s.Ledger.Day {
			b.boughtDay = s.Ledger.Day
			if a, ok := b.pick(s); ok {
				return a
			}
		}
	}
	if s.Ledger.Skill < momentumStudySkill {
		return labor(s, script.TypeStudy)
	}
	return labor(s, script.TypeWork)
}

func (b *momentum) pick(s game.Snapshot) (script.Action, bool) {
	budget := (s.Ledger.Cash - 3*s.Rules.LivingCost) * momentumCashShare
	if budget <= 0 {
		return script.Action{}, false
	}
	candidates := make([]game.Instrument, 0, len(s.Instruments))
	for _, inst := range s.Instruments {
		if inst.MinSkill > s.Ledger.Skill || inst.Held >= s.HoldingCap {
			continue
		}
		if inst.ChangePercent() <= 0 || inst.ConsecutiveUpDays >= momentumSellStreak {
			continue
		}
		candidates = append(candidates, inst)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ChangePercent() > candidates[j].ChangePercent()
	})
	for _, inst := range candidates {
		qty := min(s.HoldingCap-inst.Held, int(budget/inst.Price))
		if qty > 0 {
			return script.Action{Type: script.TypeBuy, InstrumentID: inst.ID, Quantity: qty}, true
		}
	}
	return script.Action{}, false
}

// Scripted replays recorded actions in order and hands control to fallback
// once the script runs out.
func Scripted(actions []script.Action, fallback Strategy) Strategy {
	if fallback == nil {
		fallback = grinder{}
	}
	return &scripted{actions: actions, fallback: fallback}
}

type scripted struct {
	actions  []script.Action
	next     int
	fallback Strategy
}

func (b *scripted) Next(s game.Snapshot) script.Action {
	if b.next < len(b.actions) {
		a := b.actions[b.next]
		b.next++
		return a
	}
	return b.fallback.Next(s)
}
