package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns <run-id>",
	Short: "Show the failure patterns of a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStorage(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(context.Background(), args[0])
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s\n", cyan(fmt.Sprintf("=== Run %s ===", run.ID)))
		fmt.Printf("%s %s, %d failed of %d\n\n", gray("source:"), run.Source, run.FailedRecords, run.TotalRecords)

		for _, p := range run.Patterns {
			if p.FailureCount == 0 {
				continue
			}
			title := p.Name
			if title == "" {
				title = p.Slug
			}
			fmt.Printf("%s %s\n", yellow(fmt.Sprintf("[%d]", p.ID)), title)
			fmt.Printf("    %d failures (%.1f%%)", p.FailureCount, p.Percentage)
			if p.ExemplarID != "" {
				fmt.Printf(", exemplar %s", p.ExemplarID)
			}
			fmt.Println()
			if p.RootCause != "" {
				fmt.Printf("    %s %s\n", gray("root cause:"), p.RootCause)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}
