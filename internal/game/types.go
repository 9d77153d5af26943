package game

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type LogEntry struct {
	Seq      int      `json:"seq"`
	Day      int      `json:"day"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeWin       Outcome = "win"
	OutcomeNeutral   Outcome = "neutral"
	OutcomeBankrupt  Outcome = "bankrupt"
	OutcomeExhausted Outcome = "exhausted"
)

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type DilemmaView struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Options     []OptionView `json:"options"`
}

// Snapshot is an immutable copy of the session for presentation layers.
type Snapshot struct {
	SessionID   string       `json:"session_id"`
	Rules       Rules        `json:"rules"`
	Ledger      Ledger       `json:"ledger"`
	Instruments []Instrument `json:"instruments"`
	TotalAssets float64      `json:"total_assets"`
	HoldingCap  int          `json:"holding_cap"`
	Pending     *DilemmaView `json:"pending_dilemma,omitempty"`
	Forecast    []string     `json:"forecast"`
	Headline    string       `json:"headline"`
	Logs        []LogEntry   `json:"logs"`
	Over        bool         `json:"over"`
	Outcome     Outcome      `json:"outcome,omitempty"`
}

type CrashReport struct {
	InstrumentID int     `json:"instrument_id"`
	Name         string  `json:"name"`
	Percent      float64 `json:"percent"`
	Price        float64 `json:"price"`
}

type DividendReport struct {
	InstrumentID int     `json:"instrument_id"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Rate         float64 `json:"rate"`
	HoldingDays  int     `json:"holding_days"`
}

// DayReport summarises one EndDay (or the tail of one, after ResolveDilemma).
type DayReport struct {
	Day       int              `json:"day"`
	EventID   string           `json:"event_id,omitempty"`
	Headline  string           `json:"headline,omitempty"`
	Crashes   []CrashReport    `json:"crashes,omitempty"`
	Dividends []DividendReport `json:"dividends,omitempty"`
	Paused    bool             `json:"paused"`
	DilemmaID string           `json:"dilemma_id,omitempty"`
	Over      bool             `json:"over"`
	Outcome   Outcome          `json:"outcome,omitempty"`
}
