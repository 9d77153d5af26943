package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dormtycoon/internal/game"
	"dormtycoon/internal/script"
)

// ErrStalled is returned when a bot keeps a session alive without finishing.
var ErrStalled = errors.New("session stalled")

// maxStepsPerDay bounds how many actions a bot may take before a run is
// declared stalled.
const maxStepsPerDay = 64

// RunResult is the outcome of one simulated session.
type RunResult struct {
	Seed        int64        `json:"seed"`
	Outcome     game.Outcome `json:"outcome"`
	FinalAssets float64      `json:"final_assets"`
	FinalSkill  int          `json:"final_skill"`
	Days        int          `json:"days"`
	Actions     int          `json:"actions"`
	Rejected    int          `json:"rejected"`
	Crashes     int          `json:"crashes"`
	Dilemmas    int          `json:"dilemmas"`
	Dividends   float64      `json:"dividends"`
}

func (r *RunResult) absorb(report *game.DayReport) {
	if report == nil {
		return
	}
	r.Crashes += len(report.Crashes)
	for _, d := range report.Dividends {
		r.Dividends += d.Amount
	}
	if report.Paused {
		r.Dilemmas++
	}
}

// Play runs one session to completion with the given bot.
//
// A rejected action is retried through the strategy once; if the bot proposes
// the same action again the day is ended instead.
func Play(rules game.Rules, seed int64, strat Strategy, logger *slog.Logger) (RunResult, error) {
	engine, err := game.NewEngine(rules, game.NewSource(seed), logger)
	if err != nil {
		return RunResult{}, err
	}
	res := RunResult{Seed: seed}
	limit := (rules.TotalDays + 1) * maxStepsPerDay

	var rejected *script.Action
	for step := 0; !engine.Over(); step++ {
		if step >= limit {
			return res, fmt.Errorf("%w: seed %d after %d steps", ErrStalled, seed, step)
		}
		snap := engine.Snapshot()
		a := strat.Next(snap)
		if rejected != nil && *rejected == a && snap.Pending == nil {
			a = script.Action{Type: script.TypeEndDay}
		}
		rejected = nil

		report, err := script.Apply(engine, a)
		res.Actions++
		if err != nil {
			res.Rejected++
			rejected = &a
			continue
		}
		res.absorb(report)
	}

	final := engine.Snapshot()
	res.Outcome = final.Outcome
	res.FinalAssets = final.TotalAssets
	res.FinalSkill = final.Ledger.Skill
	res.Days = min(final.Ledger.Day, rules.TotalDays)
	return res, nil
}

// Batch describes a set of seeded runs. Run i uses seed Seed+i. A zero Seed
// picks one clock-based base seed for the whole batch, so the runs stay
// consecutive and each result records the seed that replays it.
type Batch struct {
	Rules    game.Rules
	Runs     int
	Workers  int
	Seed     int64
	Strategy func() (Strategy, error)
}

type job struct {
	index int
	seed  int64
}

type outcome struct {
	index  int
	result RunResult
	err    error
}

// RunBatch plays every run of the batch across a worker pool. Results are in
// seed order. The first error aborts the remaining runs.
func RunBatch(ctx context.Context, b Batch, logger *slog.Logger) ([]RunResult, error) {
	if b.Runs <= 0 {
		return []RunResult{}, nil
	}
	if b.Strategy == nil {
		return nil, fmt.Errorf("%w: no strategy", ErrUnknownStrategy)
	}
	if logger == nil {
		logger = slog.Default()
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, b.Runs)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, b.Runs)
	results := make(chan outcome, b.Runs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results <- outcome{index: j.index, err: ctx.Err()}
					continue
				}
				strat, err := b.Strategy()
				if err != nil {
					results <- outcome{index: j.index, err: err}
					cancel()
					continue
				}
				res, err := Play(b.Rules, j.seed, strat, logger)
				if err != nil {
					cancel()
				}
				results <- outcome{index: j.index, result: res, err: err}
			}
		}()
	}

	base := b.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}
	for i := 0; i < b.Runs; i++ {
		jobs <- job{index: i, seed: base + int64(i)}
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]RunResult, b.Runs)
	var firstErr error
	for o := range results {
		if o.err != nil {
			if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(o.err, context.Canceled)) {
				firstErr = o.err
			}
			continue
		}
		out[o.index] = o.result
	}
	if firstErr != nil {
		return nil, firstErr
	}
	logger.Info("batch complete", "runs", b.Runs, "workers", workers, "seed", base)
	return out, nil
}
