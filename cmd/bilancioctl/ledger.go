package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/cli"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project when each goal will be reached",
	RunE:  runProject,
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Group transactions into recurring and variable buckets",
	RunE:  runBuckets,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the monthly financial snapshot",
	Long:  "Show income, costs, debts, assets and goals. Detected fixed costs are refreshed from the transactions first.",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(projectCmd, bucketsCmd, snapshotCmd)
}

func runProject(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	projs, err := s.planner.Projections(cmd.Context(), s.now)
	if err != nil {
		return err
	}
	goals, err := s.store.ListGoals(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderProjections(goals, projs))
	return nil
}

func runBuckets(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	bs, err := s.planner.Buckets(cmd.Context(), s.now, flagWindow)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBuckets(bs))
	return nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	if err := s.refresh(cmd); err != nil {
		return fmt.Errorf("refresh buckets: %w", err)
	}
	snap, err := s.planner.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSnapshot(snap))
	return nil
}
