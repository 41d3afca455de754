package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bilancio/internal/buckets"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/scenario"
	"bilancio/internal/services"
)

var (
	flagScenario string
	flagStrategy string
	flagBudget   string
	flagWindow   int
	flagNow      string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "bilancioctl",
	Short: "Household budget planning from a scenario file",
	Long:  "Run payoff simulations, goal projections, bucket detection and snapshots over a TOML scenario without a server.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		log.SetDefault(log.New(log.Config{
			Level:     level,
			Format:    "text",
			Component: log.ComponentCLI,
			Output:    os.Stderr,
		}))
	},
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagScenario, "scenario", "f", "scenario.toml", "Scenario file")
	rootCmd.PersistentFlags().StringVarP(&flagStrategy, "strategy", "s", "", "Payoff strategy (snowball, avalanche, balanced, custom); overrides the file")
	rootCmd.PersistentFlags().StringVarP(&flagBudget, "budget", "b", "", "Monthly budget; overrides the file")
	rootCmd.PersistentFlags().IntVarP(&flagWindow, "window", "w", 0, "Bucket window in months; overrides the file")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Reference date (YYYY-MM-DD); overrides the file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log engine activity to stderr")
}

// session is a loaded scenario with the engine wired over it.
type session struct {
	scenario *scenario.Scenario
	store    *scenario.Store
	planner  *services.Planner
	now      time.Time
	labels   map[string]string
}

// loadSession is the shared loading path used by all commands.
func loadSession() (*session, error) {
	sc, err := scenario.Load(flagScenario)
	if err != nil {
		return nil, err
	}

	now := sc.NowOr(time.Now().UTC())
	if flagNow != "" {
		if now, err = core.ParseDate(flagNow); err != nil {
			return nil, fmt.Errorf("--now %q: %w", flagNow, err)
		}
	}

	store := scenario.NewStore(sc)
	s := &session{
		scenario: sc,
		store:    store,
		planner:  services.NewPlanner(store, services.WithBucketOptions(bucketOptions(sc, now))),
		now:      now,
		labels:   make(map[string]string),
	}
	for _, d := range sc.DebtRecords() {
		s.labels[d.ID] = d.Label
	}
	return s, nil
}

func bucketOptions(sc *scenario.Scenario, now time.Time) buckets.Options {
	opts := sc.BucketOptions(now)
	if flagWindow > 0 {
		opts.WindowMonths = flagWindow
	}
	return opts
}

// request builds a simulation request from the file and the flag overrides.
func (s *session) request() (services.SimulationRequest, error) {
	req := services.SimulationRequest{
		Strategy:      s.scenario.Strategy,
		MonthlyBudget: s.scenario.MonthlyBudget,
		CustomPlan:    s.scenario.CustomPlan(),
	}
	if flagStrategy != "" {
		req.Strategy = core.Strategy(flagStrategy)
		if !req.Strategy.Valid() {
			return req, fmt.Errorf("--strategy %q: %w", flagStrategy, core.ErrInvalidStrategy)
		}
	}
	if flagBudget != "" {
		budget, err := core.ParseAmount(flagBudget)
		if err != nil {
			return req, fmt.Errorf("--budget %q: %w", flagBudget, err)
		}
		req.MonthlyBudget = budget
	}
	if req.MonthlyBudget.LessThan(decimal.Zero) {
		return req, errors.New("monthly budget must not be negative")
	}
	return req, nil
}

// refresh writes detected fixed costs and variable spending into the store.
func (s *session) refresh(cmd *cobra.Command) error {
	processor := services.NewRefreshProcessor(s.store, services.RefreshProcessorConfig{
		Buckets: bucketOptions(s.scenario, s.now),
	})
	_, err := processor.Refresh(cmd.Context(), s.now)
	return err
}
