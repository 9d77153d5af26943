package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	cl "dormtycoon/internal/cli"
	"dormtycoon/internal/config"
	"dormtycoon/internal/game"
	"dormtycoon/internal/script"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "dorm",
		Short:        "Dorm Tycoon: survive a month of campus life and markets",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL for remote sessions")

	root.AddCommand(
		newPlayCmd(&cfg, &apiBase),
		newNewCmd(&cfg, &apiBase),
		newShowCmd(&apiBase),
		newActCmd(&apiBase),
		newReplayCmd(&cfg, &apiBase),
		newQuitCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

// driver is a session the REPL can play, either in-process or over HTTP.
type driver interface {
	Snapshot(ctx context.Context) (game.Snapshot, error)
	Act(ctx context.Context, a script.Action) (*game.DayReport, game.Snapshot, error)
}

type localDriver struct {
	engine *game.Engine
}

func (d *localDriver) Snapshot(context.Context) (game.Snapshot, error) {
	return d.engine.Snapshot(), nil
}

func (d *localDriver) Act(_ context.Context, a script.Action) (*game.DayReport, game.Snapshot, error) {
	report, err := script.Apply(d.engine, a)
	return report, d.engine.Snapshot(), err
}

type remoteDriver struct {
	client *cl.Client
	sess   cl.Session
}

func (d *remoteDriver) Snapshot(ctx context.Context) (game.Snapshot, error) {
	return d.client.Snapshot(ctx, d.sess)
}

func (d *remoteDriver) Act(ctx context.Context, a script.Action) (*game.DayReport, game.Snapshot, error) {
	res, err := d.client.Act(ctx, d.sess, a, uuid.NewString())
	if err != nil {
		if snap, ok := cl.RejectedSnapshot(err); ok {
			return nil, snap, err
		}
		return nil, game.Snapshot{}, err
	}
	return res.Report, res.Snapshot, nil
}

func newLocalEngine(cfg *config.CLIConfig, variant string, seed int64) (*game.Engine, error) {
	rules := cfg.Rules
	if strings.TrimSpace(variant) != "" {
		v, err := game.ParseVariant(variant)
		if err != nil {
			return nil, err
		}
		rules.Variant = v
	}
	if seed == 0 {
		seed = cfg.Seed
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("DORM_DEBUG") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return game.NewEngine(rules, game.NewSource(seed), logger)
}

func newPlayCmd(cfg *config.CLIConfig, apiBase *string) *cobra.Command {
	var (
		variant string
		seed    int64
		remote  bool
		record  string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play interactively (local engine, or the saved remote session with --remote)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d driver
			if remote {
				client, sess, err := loadRemote(apiBase)
				if err != nil {
					return err
				}
				d = &remoteDriver{client: client, sess: sess}
			} else {
				engine, err := newLocalEngine(cfg, variant, seed)
				if err != nil {
					return err
				}
				d = &localDriver{engine: engine}
			}
			if record == recordDefault {
				path, err := script.DefaultPath()
				if err != nil {
					return err
				}
				record = path
			}
			return repl(cmd.Context(), d, record)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "instrument catalog: classic or tiered")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses DORM_SEED or the clock)")
	cmd.Flags().BoolVar(&remote, "remote", false, "play the session saved by dorm new")
	cmd.Flags().StringVar(&record, "record", "", "append accepted actions to a script file: --record=path, or bare --record for ~/.dorm/script.json")
	cmd.Flags().Lookup("record").NoOptDefVal = recordDefault
	return cmd
}

const recordDefault = "-"

func repl(ctx context.Context, d driver, record string) error {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return err
	}
	seq := renderLogsSince(snap, 0)
	renderSnapshot(snap)
	printInfo("Type `help` for commands.")

	for !snap.Over {
		var line string
		if snap.Pending != nil {
			ids := make([]string, 0, len(snap.Pending.Options))
			for _, opt := range snap.Pending.Options {
				ids = append(ids, strings.ToLower(opt.ID))
			}
			choice, err := promptChoice("Your choice", ids, ids[0])
			if err != nil {
				return err
			}
			line = "dilemma " + choice
		} else {
			line, err = promptLine(fmt.Sprintf("day %d> ", snap.Ledger.Day))
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "help", "?":
			printHelp()
			continue
		case "show", "ls":
			renderSnapshot(snap)
			continue
		case "quit", "exit", "q":
			return nil
		}

		action, err := script.Parse(line)
		if err != nil {
			printWarn(err.Error())
			continue
		}
		actCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		report, next, err := d.Act(actCtx, action)
		cancel()
		if next.SessionID != "" {
			snap = next
			seq = renderLogsSince(snap, seq)
		}
		if err != nil {
			if next.SessionID == "" {
				printError(err.Error())
			}
			continue
		}
		renderReport(report)
		if record != "" {
			if err := script.Push(record, action); err != nil {
				printWarn(fmt.Sprintf("could not record action: %v", err))
			}
		}
		if action.Type == script.TypeEndDay || action.Type == script.TypeDilemma {
			renderSnapshot(snap)
		}
	}
	return nil
}

func newNewCmd(cfg *config.CLIConfig, apiBase *string) *cobra.Command {
	var (
		variant string
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a remote session on the API and remember it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if variant == "" {
				variant = string(cfg.Rules.Variant)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			created, err := client.CreateSession(ctx, variant, seed)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				SessionID: created.SessionID,
				Token:     created.Token,
				BaseURL:   client.BaseURL,
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Session %s started. Run `dorm play --remote` or `dorm act <command>`.", created.SessionID))
			renderSnapshot(created.Snapshot)
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "instrument catalog: classic or tiered")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the server default)")
	return cmd
}

func loadRemote(apiBase *string) (*cl.Client, cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return nil, cl.Session{}, err
	}
	client := newClient(apiBase)
	if sess.BaseURL != "" {
		client = cl.NewClient(sess.BaseURL)
	}
	return client, sess, nil
}

func newShowCmd(apiBase *string) *cobra.Command {
	var logs int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the remote session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := loadRemote(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			snap, err := client.Snapshot(ctx, sess)
			if err != nil {
				return err
			}
			start := len(snap.Logs) - logs
			if start < 0 {
				start = 0
			}
			for _, entry := range snap.Logs[start:] {
				printLog(entry)
			}
			renderSnapshot(snap)
			return nil
		},
	}
	cmd.Flags().IntVar(&logs, "logs", 10, "number of recent log lines to print")
	return cmd
}

func newActCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "act <command> [args...]",
		Short: "Send one action to the remote session, e.g. `dorm act buy 2 5`",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := script.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			client, sess, err := loadRemote(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			before, err := client.Snapshot(ctx, sess)
			if err != nil {
				return err
			}
			d := &remoteDriver{client: client, sess: sess}
			report, snap, err := d.Act(ctx, action)
			if snap.SessionID != "" {
				renderLogsSince(snap, len(before.Logs))
			}
			if err != nil {
				return err
			}
			renderReport(report)
			if action.Type == script.TypeEndDay || action.Type == script.TypeDilemma || snap.Pending != nil {
				renderSnapshot(snap)
			}
			return nil
		},
	}
}

func newReplayCmd(cfg *config.CLIConfig, apiBase *string) *cobra.Command {
	var (
		variant string
		seed    int64
		remote  bool
	)
	cmd := &cobra.Command{
		Use:   "replay [script.json]",
		Short: "Run a recorded action script (default ~/.dorm/script.json) and print the final state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := script.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			actions, err := script.Load(path)
			if err != nil {
				return err
			}
			if len(actions) == 0 {
				printInfo("Script is empty.")
				return nil
			}

			var (
				results []script.Result
				snap    game.Snapshot
			)
			if remote {
				client, sess, err := loadRemote(apiBase)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
				defer cancel()
				out, err := client.RunScript(ctx, sess, actions)
				if err != nil {
					return err
				}
				results, snap = out.Results, out.Snapshot
			} else {
				engine, err := newLocalEngine(cfg, variant, seed)
				if err != nil {
					return err
				}
				results = script.Run(engine, actions)
				snap = engine.Snapshot()
			}

			failed := 0
			for _, res := range results {
				if !res.OK {
					failed++
					printWarn(fmt.Sprintf("#%d %s: %s", res.Index, res.Action, res.Error))
				}
			}
			renderSnapshot(snap)
			printSuccess(fmt.Sprintf("Replayed %d actions (%d rejected) of %d.", len(results), failed, len(actions)))
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "instrument catalog: classic or tiered")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses DORM_SEED or the clock)")
	cmd.Flags().BoolVar(&remote, "remote", false, "replay against the saved remote session")
	return cmd
}

func newQuitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "End the remote session and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, sess, err := loadRemote(apiBase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := client.DeleteSession(ctx, sess); err != nil {
				printWarn(fmt.Sprintf("server did not delete the session: %v", err))
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session closed.")
			return nil
		},
	}
}
