package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"dormtycoon/internal/config"
	"dormtycoon/internal/game"
	"dormtycoon/internal/script"
	"dormtycoon/internal/sim"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
)

func main() {
	cfg, err := config.LoadSimFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	var (
		variant    string
		strategy   string
		scriptPath string
		asJSON     bool
		verbose    bool
	)
	root := &cobra.Command{
		Use:          "dorm-sim",
		Short:        "Play many seeded Dorm Tycoon sessions with a bot and summarize the outcomes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			rules := cfg.Rules
			if variant != "" {
				v, err := game.ParseVariant(variant)
				if err != nil {
					return err
				}
				rules.Variant = v
			}
			factory, label, err := strategyFactory(strategy, scriptPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			started := time.Now()
			results, err := sim.RunBatch(ctx, sim.Batch{
				Rules:    rules,
				Runs:     cfg.Runs,
				Workers:  cfg.Workers,
				Seed:     cfg.Seed,
				Strategy: factory,
			}, logger)
			if err != nil {
				return err
			}
			summary := sim.Summarize(results)
			seed := cfg.Seed
			if len(results) > 0 {
				seed = results[0].Seed
			}
			logger.Info("simulation finished", "strategy", label, "runs", cfg.Runs, "elapsed", time.Since(started).String())

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"strategy": label,
					"variant":  rules.Variant,
					"seed":     seed,
					"summary":  summary,
				})
			}
			printSummary(label, rules, seed, summary)
			return nil
		},
	}
	root.Flags().IntVar(&cfg.Runs, "runs", cfg.Runs, "number of sessions to play")
	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent sessions")
	root.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed of the first run; run i uses seed+i (0 picks one from the clock)")
	root.Flags().StringVar(&variant, "variant", "", "instrument catalog: classic or tiered")
	root.Flags().StringVar(&strategy, "strategy", sim.StrategyGrinder, "bot: "+strings.Join(sim.StrategyNames(), ", "))
	root.Flags().StringVar(&scriptPath, "script", "", "replay this action script first, then continue with --strategy")
	root.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	root.Flags().BoolVar(&verbose, "verbose", false, "log engine activity to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func strategyFactory(name, scriptPath string) (func() (sim.Strategy, error), string, error) {
	if _, err := sim.NewStrategy(name); err != nil {
		return nil, "", err
	}
	if scriptPath == "" {
		return func() (sim.Strategy, error) { return sim.NewStrategy(name) }, name, nil
	}
	actions, err := script.Load(scriptPath)
	if err != nil {
		return nil, "", err
	}
	if len(actions) == 0 {
		return nil, "", fmt.Errorf("script %s has no actions", scriptPath)
	}
	label := fmt.Sprintf("script(%d actions)+%s", len(actions), name)
	return func() (sim.Strategy, error) {
		fallback, err := sim.NewStrategy(name)
		if err != nil {
			return nil, err
		}
		return sim.Scripted(actions, fallback), nil
	}, label, nil
}

func printSummary(label string, rules game.Rules, seed int64, s sim.Summary) {
	accent.Printf("\n== %s on %s, %d runs from seed %d ==\n", label, rules.Variant, s.Runs, seed)

	outcomes := make([]string, 0, len(s.Outcomes))
	for o := range s.Outcomes {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		n := s.Outcomes[game.Outcome(o)]
		line := fmt.Sprintf("  %-10s %5d (%5.1f%%)", o, n, 100*float64(n)/float64(max(s.Runs, 1)))
		switch game.Outcome(o) {
		case game.OutcomeWin:
			success.Println(line)
		case game.OutcomeBankrupt, game.OutcomeExhausted:
			danger.Println(line)
		default:
			fmt.Println(line)
		}
	}

	fmt.Println()
	fmt.Printf("Final assets   mean %.2f  stddev %.2f\n", s.MeanAssets, s.StdDevAssets)
	fmt.Printf("               min %.2f  p10 %.2f  median %.2f  p90 %.2f  max %.2f\n",
		s.MinAssets, s.P10Assets, s.MedianAssets, s.P90Assets, s.MaxAssets)
	fmt.Printf("Target         %.2f  win rate %.1f%%\n", rules.TargetAssets, 100*s.WinRate)
	fmt.Printf("Days played    mean %.1f of %d\n", s.MeanDays, rules.TotalDays)
	fmt.Printf("Crashes        %d total\n", s.TotalCrashes)
	fmt.Printf("Dilemmas       %d total\n", s.TotalDilemmas)
	fmt.Printf("Dividends      mean %.2f per run\n", s.MeanDividends)
	fmt.Printf("Rejections     mean %.1f per run\n", s.MeanRejected)
	fmt.Printf("Skill/assets   correlation %.3f\n", s.SkillAssetCorr)
	fmt.Println()
}
