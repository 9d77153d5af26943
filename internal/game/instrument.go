package game

type Category string

const (
	CategoryGrind          Category = "grind"
	CategoryConsumption    Category = "consumption"
	CategoryInfrastructure Category = "infrastructure"
	CategorySocial         Category = "social"
	CategoryFund           Category = "fund"
)

type FundType string

const (
	FundNone   FundType = ""
	FundHigh   FundType = "high"
	FundMedium FundType = "medium"
	FundStable FundType = "stable"
)

// Instrument is one tradable entry and its mutable trading state.
type Instrument struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Category          Category  `json:"category"`
	Price             float64   `json:"price"`
	PreviousPrice     float64   `json:"previous_price"`
	Held              int       `json:"held"`
	History           []float64 `json:"history"`
	Volatility        float64   `json:"volatility"`
	ConsecutiveUpDays int       `json:"consecutive_up_days"`
	Derived           bool      `json:"derived,omitempty"`
	SkillLinked       bool      `json:"skill_linked,omitempty"`
	FundType          FundType  `json:"fund_type,omitempty"`
	RiskLevel         string    `json:"risk_level,omitempty"`
	MinSkill          int       `json:"min_skill,omitempty"`
	HoldingDays       int       `json:"holding_days"`
}

// IsFundClass reports whether the instrument is a fund (derived or tiered).
func (i *Instrument) IsFundClass() bool {
	return i.Derived || i.FundType != FundNone
}

func (i *Instrument) ChangePercent() float64 {
	if i.PreviousPrice <= 0 {
		return 0
	}
	return (i.Price - i.PreviousPrice) / i.PreviousPrice
}

func (i *Instrument) Value() float64 {
	return float64(i.Held) * i.Price
}

// recordPrice sets a freshly computed price for the day and updates
// previousPrice, history and the up-streak.
func (i *Instrument) recordPrice(next float64) {
	next = floorPrice(next)
	old := i.Price
	i.PreviousPrice = old
	i.Price = next
	i.History = appendHistory(i.History, next)
	if next > old {
		i.ConsecutiveUpDays++
	} else {
		i.ConsecutiveUpDays = 0
	}
}

// applyFactor multiplies the current price in place, re-applying the floor.
// The latest history point follows the price.
func (i *Instrument) applyFactor(factor float64) {
	i.Price = floorPrice(i.Price * factor)
	if n := len(i.History); n > 0 {
		i.History[n-1] = i.Price
	}
}

func (i *Instrument) removeUnits(n int) int {
	if n > i.Held {
		n = i.Held
	}
	if n < 0 {
		n = 0
	}
	i.Held -= n
	if i.Held == 0 {
		i.HoldingDays = 0
	}
	return n
}

func appendHistory(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > HistoryLimit {
		h = append([]float64(nil), h[len(h)-HistoryLimit:]...)
	}
	return h
}

func (i Instrument) clone() Instrument {
	i.History = append([]float64(nil), i.History...)
	return i
}

func cloneInstruments(in []Instrument) []Instrument {
	out := make([]Instrument, len(in))
	for idx := range in {
		out[idx] = in[idx].clone()
	}
	return out
}

func findByID(list []Instrument, id int) *Instrument {
	for idx := range list {
		if list[idx].ID == id {
			return &list[idx]
		}
	}
	return nil
}

func findByName(list []Instrument, name string) *Instrument {
	for idx := range list {
		if list[idx].Name == name {
			return &list[idx]
		}
	}
	return nil
}

// sectorChange averages the day's percentage change over a category.
// Derived instruments are skipped when independentOnly is set.
func sectorChange(list []Instrument, cat Category, independentOnly bool) float64 {
	total := 0.0
	count := 0
	for idx := range list {
		inst := &list[idx]
		if inst.Category != cat {
			continue
		}
		if independentOnly && inst.Derived {
			continue
		}
		total += inst.ChangePercent()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func portfolioValue(list []Instrument) float64 {
	total := 0.0
	for idx := range list {
		total += list[idx].Value()
	}
	return total
}
