package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	PriceFloor      = 1.0
	HistoryLimit    = 7
	HoldingPerSkill = 50

	WorkEnergyCost     = 30
	WorkBasePay        = 30
	StudyEnergyCost    = 40
	StudySkillGain     = 2
	ResearchEnergyCost = 20
	RestEnergyGain     = 50
	GoodwillRestBonus  = 10
	BaseEnergyCap      = 100
	RepairCost         = 150

	DividendHoldDays   = 3
	DividendSkillLevel = 80
	DividendRateHigh   = 0.008
	DividendRateLow    = 0.005
)

var (
	ErrInstrumentNotFound = errors.New("instrument not found")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInsufficientFunds  = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient holdings")
	ErrInsufficientEnergy = errors.New("insufficient energy")
	ErrNoActionPoints     = errors.New("no action points left today")
	ErrTradingLocked      = errors.New("trading locked: computer is broken")
	ErrNotLocked          = errors.New("trading is not locked")
	ErrHoldingCap         = errors.New("holding cap exceeded: skill too low for that position")
	ErrSkillTooLow        = errors.New("skill below instrument threshold")
	ErrGameOver           = errors.New("session is over")
	ErrDilemmaPending     = errors.New("a dilemma is waiting for a decision")
	ErrNoDilemma          = errors.New("no dilemma pending")
	ErrInvalidOption      = errors.New("invalid dilemma option")
)

type Variant string

const (
	VariantClassic Variant = "classic"
	VariantTiered  Variant = "tiered"
)

func ParseVariant(v string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(v))) {
	case "", VariantClassic:
		return VariantClassic, nil
	case VariantTiered:
		return VariantTiered, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want classic or tiered)", v)
	}
}

// Rules are the per-session tunables. Zero values are not valid; start from
// DefaultRules.
type Rules struct {
	Variant         Variant `json:"variant" yaml:"variant"`
	TotalDays       int     `json:"total_days" yaml:"total_days"`
	TargetAssets    float64 `json:"target_assets" yaml:"target_assets"`
	InitialCash     float64 `json:"initial_cash" yaml:"initial_cash"`
	InitialEnergy   int     `json:"initial_energy" yaml:"initial_energy"`
	InitialSkill    int     `json:"initial_skill" yaml:"initial_skill"`
	MaxActionPoints int     `json:"max_action_points" yaml:"max_action_points"`
	LivingCost      float64 `json:"living_cost" yaml:"living_cost"`
}

func DefaultRules() Rules {
	return Rules{
		Variant:         VariantClassic,
		TotalDays:       28,
		TargetAssets:    2000,
		InitialCash:     500,
		InitialEnergy:   100,
		InitialSkill:    10,
		MaxActionPoints: 2,
		LivingCost:      30,
	}
}

func (r Rules) Validate() error {
	if _, err := ParseVariant(string(r.Variant)); err != nil {
		return err
	}
	if r.TotalDays <= 0 {
		return fmt.Errorf("total days must be > 0")
	}
	if r.InitialCash <= 0 {
		return fmt.Errorf("initial cash must be > 0")
	}
	if r.InitialEnergy <= 0 || r.InitialEnergy > BaseEnergyCap {
		return fmt.Errorf("initial energy must be in (0, %d]", BaseEnergyCap)
	}
	if r.InitialSkill < 0 {
		return fmt.Errorf("initial skill must be >= 0")
	}
	if r.MaxActionPoints < 0 {
		return fmt.Errorf("max action points must be >= 0")
	}
	if r.LivingCost < 0 {
		return fmt.Errorf("living cost must be >= 0")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// floorPrice applies the hard price floor and rounds to cents.
func floorPrice(v float64) float64 {
	v = round2(v)
	if v < PriceFloor || math.IsNaN(v) {
		return PriceFloor
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func HoldingCapForSkill(skill int) int {
	if skill <= 0 {
		return 0
	}
	return skill * HoldingPerSkill
}

func DividendRate(skill int) float64 {
	if skill > DividendSkillLevel {
		return DividendRateHigh
	}
	return DividendRateLow
}

func formatMoney(v float64) string {
	return fmt.Sprintf("¥%.2f", v)
}
