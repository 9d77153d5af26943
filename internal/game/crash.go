package game

import (
	"fmt"
	"math"
)

const (
	crashStreakThreshold = 3
	crashStepChance      = 0.25
	crashMaxChance       = 0.95
	crashMinPercent      = 0.40
	crashMaxPercent      = 0.60
	overheatStreak       = 4
)

// CrashChance is the probability that an instrument on an up-streak of n
// days collapses today.
func CrashChance(streak int) float64 {
	if streak <= crashStreakThreshold {
		return 0
	}
	return math.Min(crashStepChance*float64(streak-crashStreakThreshold), crashMaxChance)
}

// crashPass runs the bubble check over every instrument after repricing.
func (e *Engine) crashPass() []CrashReport {
	var crashes []CrashReport
	for idx := range e.state.Instruments {
		inst := &e.state.Instruments[idx]
		if inst.ConsecutiveUpDays <= crashStreakThreshold {
			continue
		}
		if e.rng.Float64() < CrashChance(inst.ConsecutiveUpDays) {
			pct := uniform(e.rng, crashMinPercent, crashMaxPercent)
			// The crash replaces today's repriced point in history instead of
			// adding one. PreviousPrice stays at yesterday's close, so the day's
			// change reads as the full drop.
			inst.applyFactor(1 - pct)
			inst.ConsecutiveUpDays = 0
			crashes = append(crashes, CrashReport{
				InstrumentID: inst.ID,
				Name:         inst.Name,
				Percent:      pct,
				Price:        inst.Price,
			})
			e.addLog(fmt.Sprintf("[CRASH] %s bubble burst! Down %.0f%%", inst.Name, pct*100), SeverityError)
			e.log.Info("bubble burst", "session", e.state.SessionID, "instrument", inst.Name, "percent", pct)
			continue
		}
		if inst.ConsecutiveUpDays == overheatStreak {
			e.addLog(fmt.Sprintf("[WARNING] %s is overheating, crash risk rising!", inst.Name), SeverityWarning)
		}
	}
	return crashes
}
