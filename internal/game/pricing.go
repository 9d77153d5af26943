package game

import "math"

const (
	baseSkewOffset  = 0.45
	skillBaseline   = 10
	skillBonusStep  = 0.01
	skillBonusCap   = 0.10
	minLinkedVol    = 0.05
	highShockProb   = 0.05
	highShockSize   = 0.40
	mediumDayDrift  = 0.002
	mediumSkillRate = 0.0005
	mediumDriftCap  = 0.03
)

// repriceAll runs one pricing round. Independent instruments are repriced
// before derived ones because derived pricing reads their same-round changes.
func repriceAll(list []Instrument, skill, day int, rng Source) {
	for idx := range list {
		inst := &list[idx]
		if inst.Derived {
			continue
		}
		cp := independentChange(inst, skill, day, rng)
		inst.recordPrice(inst.Price * (1 + cp))
	}
	for idx := range list {
		inst := &list[idx]
		if !inst.Derived {
			continue
		}
		inst.recordPrice(inst.Price * (1 + derivedChange(list)))
	}
}

// independentChange draws the day's percentage move for a non-derived
// instrument.
func independentChange(inst *Instrument, skill, day int, rng Source) float64 {
	vol := inst.Volatility
	switch inst.FundType {
	case FundHigh:
		cp := (rng.Float64() - 0.5) * vol * 2
		if rng.Float64() < highShockProb {
			if rng.Float64() < 0.5 {
				return -highShockSize
			}
			return highShockSize
		}
		return cp
	case FundMedium:
		return (rng.Float64()-0.5)*vol*2 + mediumDrift(skill, day)
	case FundStable:
		return clamp((rng.Float64()-0.5)*vol, -vol, vol)
	}

	u := rng.Float64()
	if inst.SkillLinked {
		bonus := skillBonus(skill)
		amp := math.Max(minLinkedVol, vol-bonus*0.5)
		return (u - baseSkewOffset + vol + bonus*0.5) * amp * 2
	}
	return (u - baseSkewOffset + vol) * vol * 2
}

// skillBonus grows with skill above the baseline, capped.
func skillBonus(skill int) float64 {
	return clamp(float64(skill-skillBaseline)*skillBonusStep, 0, skillBonusCap)
}

func mediumDrift(skill, day int) float64 {
	d := mediumDayDrift*float64(day) + mediumSkillRate*float64(skill)
	return clamp(d, 0, mediumDriftCap)
}

// derivedChange is the fund-of-sectors move: a weighted average of the
// independent sectors' same-round changes, clamped to a narrow band.
func derivedChange(list []Instrument) float64 {
	cp := 0.0
	for _, w := range derivedWeights {
		cp += sectorChange(list, w.Category, true) * w.Weight
	}
	return clamp(cp, -derivedMaxChange, derivedMaxChange)
}
