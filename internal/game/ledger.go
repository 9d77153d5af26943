package game

// StoryFlags holds the narrative state that outlives a single day.
//
//   - GoodwillDays: set to 3 by lending the roommate money, decremented once per
//     ended day; rest recovers +10 energy while positive.
//   - Whistleblower: set by reporting the smoking roommate, cleared when the
//     roommate's revenge event fires.
//   - AbsenceDays: set to 3 by reporting the roommate, decremented once per
//     ended day. Revenge can only fire at zero.
//   - Easygoing: set by ignoring the smoking roommate; enables petty theft.
//   - BadReputation: set by blackmailing the roommate; a surprise inspection
//     may then fine the player.
type StoryFlags struct {
	GoodwillDays  int  `json:"goodwill_days"`
	Whistleblower bool `json:"whistleblower"`
	AbsenceDays   int  `json:"absence_days"`
	Easygoing     bool `json:"easygoing"`
	BadReputation bool `json:"bad_reputation"`
}

// Ledger is the player's resource sheet.
type Ledger struct {
	Cash                float64    `json:"cash"`
	Energy              int        `json:"energy"`
	EnergyBonus         int        `json:"energy_bonus"`
	Skill               int        `json:"skill"`
	Day                 int        `json:"day"`
	ActionPoints        int        `json:"action_points"`
	MaxActionPoints     int        `json:"max_action_points"`
	PendingAPPenalty    int        `json:"pending_ap_penalty"`
	StudyCostMultiplier float64    `json:"study_cost_multiplier"`
	TradingLocked       bool       `json:"trading_locked"`
	Story               StoryFlags `json:"story"`
}

func newLedger(r Rules) Ledger {
	return Ledger{
		Cash:                r.InitialCash,
		Energy:              r.InitialEnergy,
		Skill:               r.InitialSkill,
		Day:                 1,
		ActionPoints:        r.MaxActionPoints,
		MaxActionPoints:     r.MaxActionPoints,
		StudyCostMultiplier: 1,
	}
}

func (l *Ledger) EnergyCap() int {
	return BaseEnergyCap + l.EnergyBonus
}

func (l *Ledger) HoldingCap() int {
	return HoldingCapForSkill(l.Skill)
}

func (l *Ledger) StudyCost() int {
	mult := l.StudyCostMultiplier
	if mult <= 0 {
		mult = 1
	}
	return int(float64(StudyEnergyCost) * mult)
}

// spendCash deducts up to amount and reports whether the full amount was covered.
func (l *Ledger) spendCash(amount float64) bool {
	if amount <= 0 {
		return true
	}
	if l.Cash < amount {
		l.Cash = 0
		return false
	}
	l.Cash = round2(l.Cash - amount)
	return true
}

func (l *Ledger) gainCash(amount float64) {
	if amount <= 0 {
		return
	}
	l.Cash = round2(l.Cash + amount)
}

func (l *Ledger) addEnergy(delta int) {
	e := l.Energy + delta
	if e < 0 {
		e = 0
	}
	if limit := l.EnergyCap(); e > limit {
		e = limit
	}
	l.Energy = e
}

func (l *Ledger) addSkill(delta int) {
	s := l.Skill + delta
	if s < 0 {
		s = 0
	}
	l.Skill = s
}

// rolloverActionPoints refills the daily budget minus any pending penalty and
// returns the penalty that was consumed.
func (l *Ledger) rolloverActionPoints() int {
	penalty := l.PendingAPPenalty
	ap := l.MaxActionPoints - penalty
	if ap < 0 {
		ap = 0
	}
	l.ActionPoints = ap
	l.PendingAPPenalty = 0
	return penalty
}
