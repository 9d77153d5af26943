package game

import (
	"fmt"
	"math"
)

const (
	EventNetworkOutage   = "network-outage"
	EventClubRecruiting  = "club-recruiting"
	EventGraduation      = "graduation-season"
	EventMarketStable    = "market-stable"
	EventCompanyTalk     = "company-talk"
	EventColdSnap        = "cold-snap"
	EventBlackout        = "blackout"
	EventEarlyInterviews = "early-interviews"
	EventRainstorm       = "rainstorm"
	EventFinalsWeek      = "finals-week"
	EventNetworkUpgrade  = "network-upgrade"
	EventDeliveryPromo   = "delivery-promo"
	EventDormRaid        = "dorm-raid"
	EventSpamGroup       = "spam-group"
	EventRoommateRevenge = "roommate-revenge"
	EventPettyTheft      = "petty-theft"
	EventInspection      = "inspection"
)

const (
	pettyTheftChance     = 0.30
	grindBoomThreshold   = 0.10
	socialChillChance    = 0.50
	socialChillFactor    = 0.90
	infraLossThreshold   = 0.90
	consumptionSwingSize = 0.30
)

type EffectKind string

const (
	EffectScaleInstrument    EffectKind = "scale_instrument"
	EffectScaleCategory      EffectKind = "scale_category"
	EffectSkillGatedCategory EffectKind = "skill_gated_category"
	EffectConfiscate         EffectKind = "confiscate"
	EffectSabotage           EffectKind = "sabotage"
	EffectResources          EffectKind = "resources"
	EffectFine               EffectKind = "fine"
)

// Effect is one typed step of an event. Only the fields relevant to Kind are
// read.
type Effect struct {
	Kind               EffectKind `json:"kind"`
	Target             string     `json:"target,omitempty"`
	Category           Category   `json:"category,omitempty"`
	Factor             float64    `json:"factor,omitempty"`
	MinSkill           int        `json:"min_skill,omitempty"`
	Fraction           float64    `json:"fraction,omitempty"`
	APPenalty          int        `json:"ap_penalty,omitempty"`
	Cash               float64    `json:"cash,omitempty"`
	Energy             int        `json:"energy,omitempty"`
	Skill              int        `json:"skill,omitempty"`
	Chance             float64    `json:"chance,omitempty"`
	RequiresReputation bool       `json:"requires_reputation,omitempty"`
}

type Event struct {
	ID                  string   `json:"id"`
	Message             string   `json:"message"`
	Effects             []Effect `json:"effects,omitempty"`
	StudyCostMultiplier float64  `json:"study_cost_multiplier,omitempty"`
}

func scaleInstrument(name string, f float64) Effect {
	return Effect{Kind: EffectScaleInstrument, Target: name, Factor: f}
}

func scaleCategory(c Category, f float64) Effect {
	return Effect{Kind: EffectScaleCategory, Category: c, Factor: f}
}

var eventCatalog = []Event{
	{ID: EventNetworkOutage, Message: "Campus network is down, GPU stocks crash!", Effects: []Effect{scaleInstrument(NameGPUGear, 0.7)}},
	{ID: EventClubRecruiting, Message: "Club recruiting season is here, milk tea is selling like crazy!", Effects: []Effect{scaleInstrument(NameMixueTea, 1.3)}},
	{ID: EventGraduation, Message: "Graduation season is near, demand for career training surges!", Effects: []Effect{scaleCategory(CategoryGrind, 1.2)}},
	{ID: EventMarketStable, Message: "The school published its employment report. The market is stable."},
	{ID: EventCompanyTalk, Message: "A big company is giving a campus talk, training stocks rise!", Effects: []Effect{scaleCategory(CategoryGrind, 1.15)}},
	{ID: EventColdSnap, Message: "The weather turns cold, milk tea sales drop.", Effects: []Effect{scaleInstrument(NameMixueTea, 0.85)}},
	{ID: EventBlackout, Message: "[Midnight blackout] The whole campus lost power, GPU demand collapses!", Effects: []Effect{scaleInstrument(NameGPUGear, 0.5)}},
	{
		ID:      EventEarlyInterviews,
		Message: "[Early-round interviews] Top companies open early recruiting!",
		Effects: []Effect{
			scaleInstrument(NameSparkCareers, 1.2),
			{Kind: EffectSkillGatedCategory, Category: CategoryGrind, Factor: 1.1, MinSkill: 21},
		},
		StudyCostMultiplier: 2,
	},
	{
		ID:      EventRainstorm,
		Message: "[Extreme rainstorm] Days of rain, shared bikes cannot operate!",
		Effects: []Effect{scaleInstrument(NameSharedBikes, 0.6), scaleInstrument(NameFoodDelivery, 1.4)},
	},
	{
		ID:      EventFinalsWeek,
		Message: "Finals week is coming, the grind sector rallies!",
		Effects: []Effect{scaleCategory(CategoryGrind, 1.25), scaleCategory(CategorySocial, 0.85)},
	},
	{ID: EventNetworkUpgrade, Message: "The campus network upgrade is done, infrastructure benefits!", Effects: []Effect{scaleCategory(CategoryInfrastructure, 1.2)}},
	{
		ID:      EventDeliveryPromo,
		Message: "Delivery platforms run a promotion, food delivery rises!",
		Effects: []Effect{scaleInstrument(NameFoodDelivery, 1.3), scaleInstrument(NameSharedBikes, 0.95)},
	},
	{
		ID:      EventDormRaid,
		Message: "[The dorm supervisor strikes] A surprise room check confiscates your high-power GPU!",
		Effects: []Effect{{Kind: EffectConfiscate, Target: NameGPUGear, Fraction: 0.5, APPenalty: 2}},
	},
	{
		ID:      EventSpamGroup,
		Message: "[Added to a 500-person \"resource sharing\" group] You hoped for referrals and found nothing but group-buy spam.",
		Effects: []Effect{{Kind: EffectResources, Energy: -20, Skill: 2}},
	},
	{
		ID:      EventRoommateRevenge,
		Message: "[Roommate's revenge] Your roommate moved back and tampered with your computer!",
		Effects: []Effect{{Kind: EffectSabotage, Fraction: 0.3}},
	},
	{
		ID:      EventPettyTheft,
		Message: "[Sticky fingers] Some of your pocket money is gone, your roommate looks innocent.",
		Effects: []Effect{{Kind: EffectResources, Cash: -50}},
	},
	{
		ID:      EventInspection,
		Message: "[Surprise inspection] The counselor is checking dorm hygiene.",
		Effects: []Effect{{Kind: EffectFine, Cash: 100, Chance: 0.3, RequiresReputation: true}},
	},
}

// EventCatalog returns a deep copy of the narrative event catalog.
func EventCatalog() []Event {
	out := make([]Event, len(eventCatalog))
	for idx, ev := range eventCatalog {
		out[idx] = ev.clone()
	}
	return out
}

func (ev Event) clone() Event {
	ev.Effects = append([]Effect(nil), ev.Effects...)
	return ev
}

func eventByID(id string) Event {
	for _, ev := range eventCatalog {
		if ev.ID == id {
			return ev.clone()
		}
	}
	return Event{ID: id}
}

// reducedCatalog is used for the re-draw when roommate revenge is not allowed.
func reducedCatalog() []Event {
	out := make([]Event, 0, len(eventCatalog)-1)
	for _, ev := range eventCatalog {
		if ev.ID != EventRoommateRevenge {
			out = append(out, ev.clone())
		}
	}
	return out
}

// selectEvent draws the day's event, applying the story gates.
func (e *Engine) selectEvent() Event {
	flags := e.state.Ledger.Story
	ev := eventCatalog[pickIndex(e.rng, len(eventCatalog))].clone()
	if ev.ID == EventRoommateRevenge && !(flags.Whistleblower && flags.AbsenceDays == 0) {
		reduced := reducedCatalog()
		ev = reduced[pickIndex(e.rng, len(reduced))]
	}
	if ev.ID == EventPettyTheft {
		if !flags.Easygoing || e.rng.Float64() >= pettyTheftChance {
			ev = eventByID(EventMarketStable)
		}
	}
	return ev
}

// eventPass selects and applies the day's event and then runs the
// cross-sector correlation pass.
func (e *Engine) eventPass() Event {
	ev := e.selectEvent()
	e.state.Headline = ev.Message
	e.addLog("["+ev.Message+"]", SeverityInfo)
	for _, eff := range ev.Effects {
		e.applyEffect(ev.ID, eff)
	}
	if ev.ID == EventRoommateRevenge {
		e.state.Ledger.Story.Whistleblower = false
	}

	if ev.StudyCostMultiplier > 0 {
		e.state.Ledger.StudyCostMultiplier = ev.StudyCostMultiplier
		e.addLog(fmt.Sprintf("Everyone is grinding! Studying costs x%g energy tomorrow.", ev.StudyCostMultiplier), SeverityWarning)
	} else {
		e.state.Ledger.StudyCostMultiplier = 1
	}

	e.correlationPass()
	return ev
}

func (e *Engine) applyEffect(eventID string, eff Effect) {
	st := e.state
	switch eff.Kind {
	case EffectScaleInstrument:
		if inst := findByName(st.Instruments, eff.Target); inst != nil {
			inst.applyFactor(eff.Factor)
		}
	case EffectScaleCategory:
		for idx := range st.Instruments {
			if st.Instruments[idx].Category == eff.Category {
				st.Instruments[idx].applyFactor(eff.Factor)
			}
		}
	case EffectSkillGatedCategory:
		if st.Ledger.Skill < eff.MinSkill {
			return
		}
		for idx := range st.Instruments {
			if st.Instruments[idx].Category == eff.Category {
				st.Instruments[idx].applyFactor(eff.Factor)
			}
		}
	case EffectConfiscate:
		inst := findByName(st.Instruments, eff.Target)
		if inst == nil || inst.Held == 0 {
			e.addLog(fmt.Sprintf("Luckily you hold no %s, nothing to confiscate.", eff.Target), SeverityInfo)
			return
		}
		lost := inst.removeUnits(int(math.Floor(float64(inst.Held) * eff.Fraction)))
		st.Ledger.PendingAPPenalty = eff.APPenalty
		e.addLog(fmt.Sprintf("The supervisor confiscated %d units of %s. Tomorrow you must write a self-criticism (-%d action points).", lost, inst.Name, eff.APPenalty), SeverityWarning)
	case EffectSabotage:
		var held []*Instrument
		for idx := range st.Instruments {
			if st.Instruments[idx].Held > 0 {
				held = append(held, &st.Instruments[idx])
			}
		}
		if len(held) == 0 {
			return
		}
		target := held[pickIndex(e.rng, len(held))]
		lost := target.removeUnits(int(math.Floor(float64(target.Held) * eff.Fraction)))
		e.addLog(fmt.Sprintf("Revenge! %s was dumped behind your back, you lost %d units (%.0f%%).", target.Name, lost, eff.Fraction*100), SeverityError)
	case EffectResources:
		if eff.Cash < 0 {
			st.Ledger.spendCash(-eff.Cash)
		} else {
			st.Ledger.gainCash(eff.Cash)
		}
		st.Ledger.addEnergy(eff.Energy)
		st.Ledger.addSkill(eff.Skill)
		switch eventID {
		case EventSpamGroup:
			e.addLog(fmt.Sprintf("Energy %+d, skill %+d (you learned to spot spam).", eff.Energy, eff.Skill), SeverityInfo)
		case EventPettyTheft:
			e.addLog(fmt.Sprintf("Lost %s because your roommate thinks you are a pushover.", formatMoney(-eff.Cash)), SeverityWarning)
		}
	case EffectFine:
		if eff.RequiresReputation && !st.Ledger.Story.BadReputation {
			e.addLog("Inspection over, everything is fine.", SeverityInfo)
			return
		}
		if e.rng.Float64() < eff.Chance {
			st.Ledger.spendCash(eff.Cash)
			e.addLog(fmt.Sprintf("You were named an accomplice and fined %s!", formatMoney(eff.Cash)), SeverityError)
			return
		}
		e.addLog("Inspection over, everything is fine.", SeverityInfo)
	}
}

// correlationPass applies the cross-sector knock-on effects of the day.
func (e *Engine) correlationPass() {
	list := e.state.Instruments
	if sectorChange(list, CategoryGrind, false) > grindBoomThreshold {
		for idx := range list {
			if list[idx].Category == CategorySocial && e.rng.Float64() < socialChillChance {
				list[idx].applyFactor(socialChillFactor)
			}
		}
		e.addLog("Everyone is busy grinding, the social sector is left out in the cold.", SeverityInfo)
	}

	infraLoss := false
	for idx := range list {
		inst := &list[idx]
		if inst.Category == CategoryInfrastructure && inst.Price < inst.PreviousPrice*infraLossThreshold {
			infraLoss = true
			break
		}
	}
	if infraLoss {
		for idx := range list {
			if list[idx].Category == CategoryConsumption {
				list[idx].applyFactor(1 + (e.rng.Float64()-0.5)*consumptionSwingSize)
			}
		}
		e.addLog("Infrastructure took a hit, consumption stocks swing wildly.", SeverityWarning)
	}
}
