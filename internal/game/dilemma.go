package game

import (
	"fmt"
	"math"
	"strings"
)

const (
	DilemmaRoommateLoan     = "roommate-loan"
	DilemmaAdvisorAttention = "advisor-attention"
	DilemmaComputerCrash    = "computer-crash"
	DilemmaRoommateSmoking  = "roommate-smoking"
)

const (
	dilemmaBaseChance = 0.10
	dilemmaStepChance = 0.15
)

// OptionEffect describes what choosing an option does. Cash and the deltas
// are relative; the flag fields are only ever set, never cleared.
type OptionEffect struct {
	Cash             float64  `json:"cash,omitempty"`
	Energy           int      `json:"energy,omitempty"`
	Skill            int      `json:"skill,omitempty"`
	EnergyBonus      int      `json:"energy_bonus,omitempty"`
	GoodwillDays     int      `json:"goodwill_days,omitempty"`
	AbsenceDays      int      `json:"absence_days,omitempty"`
	Whistleblower    bool     `json:"whistleblower,omitempty"`
	Easygoing        bool     `json:"easygoing,omitempty"`
	BadReputation    bool     `json:"bad_reputation,omitempty"`
	LiquidateLargest bool     `json:"liquidate_largest,omitempty"`
	UnlockTrading    bool     `json:"unlock_trading,omitempty"`
	FundTip          bool     `json:"fund_tip,omitempty"`
	Message          string   `json:"message"`
	Severity         Severity `json:"severity"`
}

type DilemmaOption struct {
	ID     string       `json:"id"`
	Text   string       `json:"text"`
	Effect OptionEffect `json:"effect"`
}

type Dilemma struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Options      []DilemmaOption `json:"options"`
	LocksTrading bool            `json:"locks_trading,omitempty"`
}

func (d *Dilemma) view() *DilemmaView {
	v := &DilemmaView{ID: d.ID, Title: d.Title, Description: d.Description}
	for _, opt := range d.Options {
		v.Options = append(v.Options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return v
}

func (d *Dilemma) option(id string) (DilemmaOption, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	for _, opt := range d.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return DilemmaOption{}, false
}

var dilemmaCatalog = []Dilemma{
	{
		ID:          DilemmaRoommateLoan,
		Title:       "[Roommate wants a loan]",
		Description: "Your roommate saw you making money in the market and wants to borrow ¥200 for a new phone.",
		Options: []DilemmaOption{
			{ID: "A", Text: "Lend it (-¥200, earn a goodwill card)", Effect: OptionEffect{
				Cash: -200, GoodwillDays: 3,
				Message: "You lent ¥200 to your roommate and earned a goodwill card: resting gives +10 energy for 3 days.", Severity: SeveritySuccess,
			}},
			{ID: "B", Text: "Refuse (roommate blasts music all night, -20 energy)", Effect: OptionEffect{
				Energy:  -20,
				Message: "You refused. Your roommate blasted music in revenge, energy -20.", Severity: SeverityWarning,
			}},
		},
	},
	{
		ID:          DilemmaAdvisorAttention,
		Title:       "[Your advisor is watching]",
		Description: "Your advisor noticed you spend more time on the market than on your studies.",
		Options: []DilemmaOption{
			{ID: "A", Text: "Write the report (-40 energy, +5 skill)", Effect: OptionEffect{
				Energy: -40, Skill: 5,
				Message: "You wrote a solid research report. Your advisor is pleased, skill +5.", Severity: SeveritySuccess,
			}},
			{ID: "B", Text: "Skip class to trade (-20 skill, largest position confiscated)", Effect: OptionEffect{
				Skill: -20, LiquidateLargest: true,
				Message: "You got caught skipping class, skill -20.", Severity: SeverityWarning,
			}},
		},
	},
	{
		ID:           DilemmaComputerCrash,
		Title:        "[Blue screen]",
		Description:  "Your overclocked GPU burned out. Repairs cost ¥150 and you cannot trade until it is fixed.",
		LocksTrading: true,
		Options: []DilemmaOption{
			{ID: "A", Text: "Repair it (-¥150, trading unlocked)", Effect: OptionEffect{
				Cash: -RepairCost, UnlockTrading: true,
				Message: "Computer repaired for ¥150.", Severity: SeverityWarning,
			}},
			{ID: "B", Text: "Leave it (no trading until repaired)", Effect: OptionEffect{
				Message: "Computer left broken, trading is locked.", Severity: SeverityError,
			}},
		},
	},
	{
		ID:          DilemmaRoommateSmoking,
		Title:       "[Roommate smoking in secret]",
		Description: "Late at night a lighter clicks. The roommate you can't stand is smoking on the balcony and the room reeks.",
		Options: []DilemmaOption{
			{ID: "A", Text: "Report him (+20 max energy, whistleblower title)", Effect: OptionEffect{
				EnergyBonus: 20, Whistleblower: true, AbsenceDays: 3,
				Message: "You reported the smoking. He was disciplined and moved out for 3 days. Max energy +20, you earned the whistleblower title.", Severity: SeveritySuccess,
			}},
			{ID: "B", Text: "Pretend you saw nothing (-10 energy, theft more likely)", Effect: OptionEffect{
				Energy: -10, Easygoing: true,
				Message: "You kept quiet and now look like a pushover. Energy -10, petty theft is now possible.", Severity: SeverityWarning,
			}},
			{ID: "C", Text: "Blackmail him (+¥150, fund insider tip, -5 skill)", Effect: OptionEffect{
				Cash: 150, Skill: -5, BadReputation: true, FundTip: true,
				Message: "You took ¥150 hush money and an insider fund tip. You've gone bad... skill -5. A surprise inspection may now name you an accomplice.", Severity: SeveritySuccess,
			}},
		},
	},
}

// DilemmaCatalog returns a deep copy of the dilemma catalog.
func DilemmaCatalog() []Dilemma {
	out := make([]Dilemma, len(dilemmaCatalog))
	for idx, d := range dilemmaCatalog {
		out[idx] = d.clone()
	}
	return out
}

func (d Dilemma) clone() Dilemma {
	d.Options = append([]DilemmaOption(nil), d.Options...)
	return d
}

func dilemmaByID(id string) (Dilemma, bool) {
	for _, d := range dilemmaCatalog {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return Dilemma{}, false
}

// TriggerChance is the probability that a dilemma interrupts the day, given
// current total assets and the session's starting wealth.
func TriggerChance(totalAssets, initialWealth float64) float64 {
	if initialWealth <= 0 {
		return dilemmaBaseChance
	}
	ratio := totalAssets / initialWealth
	return dilemmaBaseChance + math.Floor(ratio/2)*dilemmaStepChance
}

// maybeDilemma draws whether a dilemma fires and, if so, which.
func (e *Engine) maybeDilemma() *Dilemma {
	chance := TriggerChance(e.totalAssets(), e.state.Rules.InitialCash)
	if e.rng.Float64() > chance {
		return nil
	}
	d := dilemmaCatalog[pickIndex(e.rng, len(dilemmaCatalog))].clone()
	return &d
}

func (e *Engine) applyOption(opt DilemmaOption) {
	l := &e.state.Ledger
	eff := opt.Effect
	if eff.Cash < 0 {
		l.spendCash(-eff.Cash)
	} else {
		l.gainCash(eff.Cash)
	}
	if eff.EnergyBonus > 0 {
		l.EnergyBonus = eff.EnergyBonus
	}
	l.addEnergy(eff.Energy)
	l.addSkill(eff.Skill)
	if eff.GoodwillDays > 0 {
		l.Story.GoodwillDays = eff.GoodwillDays
	}
	if eff.AbsenceDays > 0 {
		l.Story.AbsenceDays = eff.AbsenceDays
	}
	if eff.Whistleblower {
		l.Story.Whistleblower = true
	}
	if eff.Easygoing {
		l.Story.Easygoing = true
	}
	if eff.BadReputation {
		l.Story.BadReputation = true
	}
	if eff.UnlockTrading {
		l.TradingLocked = false
	}
	e.addLog(eff.Message, eff.Severity)

	if eff.LiquidateLargest {
		var target *Instrument
		for idx := range e.state.Instruments {
			inst := &e.state.Instruments[idx]
			if inst.Held > 0 && (target == nil || inst.Held > target.Held) {
				target = inst
			}
		}
		if target != nil {
			target.removeUnits(target.Held)
			e.addLog(fmt.Sprintf("Your advisor confiscated your \"trading tools\": %s was force-liquidated!", target.Name), SeverityError)
		}
	}
	if eff.FundTip {
		if name := fundTipTarget(e.state.Instruments); name != "" {
			e.state.Forecast = []string{name + ": insider tip says it will rise"}
		}
	}
	if eff.BadReputation {
		e.addLog("Warning: if a surprise inspection happens you have a 30% chance of being named an accomplice.", SeverityWarning)
	}
}
