package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/cli"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate the payoff plan month by month",
	RunE:  runSimulate,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare snowball, avalanche and balanced on the same debts",
	RunE:  runCompare,
}

func init() {
	rootCmd.AddCommand(simulateCmd, compareCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	req, err := s.request()
	if err != nil {
		return err
	}
	res, err := s.planner.Simulate(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSimulation(res, s.labels))
	return nil
}

func runCompare(cmd *cobra.Command, _ []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	req, err := s.request()
	if err != nil {
		return err
	}
	cmp, err := s.planner.Compare(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderComparison(cmp))
	return nil
}
