package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dormtycoon/internal/game"
)

const (
	TypeWork     = "work"
	TypeStudy    = "study"
	TypeResearch = "research"
	TypeRest     = "rest"
	TypeRepair   = "repair"
	TypeBuy      = "buy"
	TypeSell     = "sell"
	TypeEndDay   = "end-day"
	TypeDilemma  = "dilemma"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is one player command. It is the unit of recorded scripts and of the
// API's batch endpoint.
type Action struct {
	Type         string `json:"type"`
	InstrumentID int    `json:"instrument_id,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
	Option       string `json:"option,omitempty"`
}

func (a Action) String() string {
	switch a.Type {
	case TypeBuy, TypeSell:
		return fmt.Sprintf("%s %d %d", a.Type, a.InstrumentID, a.Quantity)
	case TypeDilemma:
		return a.Type + " " + a.Option
	default:
		return a.Type
	}
}

// Result records the outcome of one applied action.
type Result struct {
	Index  int             `json:"index"`
	Action Action          `json:"action"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Report *game.DayReport `json:"report,omitempty"`
}

// Parse reads the REPL form of an action, e.g. "buy 2 10", "end", "d b".
func Parse(line string) (Action, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return Action{}, fmt.Errorf("%w: empty command", ErrUnknownAction)
	}
	args := fields[1:]
	switch fields[0] {
	case "work", "w":
		return Action{Type: TypeWork}, nil
	case "study", "s":
		return Action{Type: TypeStudy}, nil
	case "research", "r":
		return Action{Type: TypeResearch}, nil
	case "rest", "sleep":
		return Action{Type: TypeRest}, nil
	case "repair":
		return Action{Type: TypeRepair}, nil
	case "end", "end-day", "next", "e":
		return Action{Type: TypeEndDay}, nil
	case "buy", "b", "sell":
		typ := TypeBuy
		if fields[0] == "sell" {
			typ = TypeSell
		}
		if len(args) != 2 {
			return Action{}, fmt.Errorf("usage: %s <instrument-id> <quantity>", typ)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return Action{}, fmt.Errorf("invalid instrument id %q", args[0])
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return Action{}, fmt.Errorf("invalid quantity %q", args[1])
		}
		return Action{Type: typ, InstrumentID: id, Quantity: qty}, nil
	case "dilemma", "choose", "d":
		if len(args) != 1 {
			return Action{}, fmt.Errorf("usage: dilemma <option>")
		}
		return Action{Type: TypeDilemma, Option: strings.ToUpper(args[0])}, nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, fields[0])
	}
}

// Apply runs a single action against the engine. Only end-day and dilemma
// actions produce a report.
func Apply(e *game.Engine, a Action) (*game.DayReport, error) {
	switch a.Type {
	case TypeWork:
		return nil, e.Work()
	case TypeStudy:
		return nil, e.Study()
	case TypeResearch:
		return nil, e.Research()
	case TypeRest:
		return nil, e.Rest()
	case TypeRepair:
		return nil, e.Repair()
	case TypeBuy:
		return nil, e.Buy(a.InstrumentID, a.Quantity)
	case TypeSell:
		return nil, e.Sell(a.InstrumentID, a.Quantity)
	case TypeEndDay:
		report, err := e.EndDay()
		if err != nil {
			return nil, err
		}
		return &report, nil
	case TypeDilemma:
		report, err := e.ResolveDilemma(a.Option)
		if err != nil {
			return nil, err
		}
		return &report, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

// Run applies actions in order and stops once the session is over.
func Run(e *game.Engine, actions []Action) []Result {
	out := make([]Result, 0, len(actions))
	for idx, a := range actions {
		if e.Over() {
			break
		}
		report, err := Apply(e, a)
		res := Result{Index: idx, Action: a, OK: err == nil, Report: report}
		if err != nil {
			res.Error = err.Error()
		}
		out = append(out, res)
	}
	return out
}

// DefaultPath is where the CLI records local play.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".dorm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "script.json"), nil
}

func Load(path string) ([]Action, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Action{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Action{}, nil
	}
	var out []Action
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	return out, nil
}

func Save(path string, actions []Action) error {
	raw, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(path string, a Action) error {
	actions, err := Load(path)
	if err != nil {
		return err
	}
	actions = append(actions, a)
	return Save(path, actions)
}
