package game

import (
	"io"
	"log/slog"
	"testing"
)

// scriptedSource replays fixed draws, then repeats fallback forever.
type scriptedSource struct {
	draws    []float64
	fallback float64
	used     int
}

func (s *scriptedSource) Float64() float64 {
	if s.used < len(s.draws) {
		v := s.draws[s.used]
		s.used++
		return v
	}
	s.used++
	return s.fallback
}

func script(fallback float64, draws ...float64) *scriptedSource {
	return &scriptedSource{draws: draws, fallback: fallback}
}

// indexDraw returns the draw that makes pickIndex choose i out of n.
func indexDraw(i, n int) float64 {
	return (float64(i) + 0.5) / float64(n)
}

func eventIndex(t *testing.T, id string) int {
	t.Helper()
	for i, ev := range eventCatalog {
		if ev.ID == id {
			return i
		}
	}
	t.Fatalf("event %q not in catalog", id)
	return -1
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, rng Source) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRules(), rng, quietLogger())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func mustInstrument(t *testing.T, e *Engine, name string) *Instrument {
	t.Helper()
	inst := findByName(e.state.Instruments, name)
	if inst == nil {
		t.Fatalf("instrument %q missing", name)
	}
	return inst
}

func lastLog(e *Engine) LogEntry {
	if len(e.state.Logs) == 0 {
		return LogEntry{}
	}
	return e.state.Logs[len(e.state.Logs)-1]
}
