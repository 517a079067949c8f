package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/siftlabs/sift/internal/analyzer"
	"github.com/siftlabs/sift/internal/ingest"
	"github.com/siftlabs/sift/internal/report"
)

var (
	analyzeFormat string
	analyzeOut    string
	analyzeHTML   string
	analyzeJSON   string
	analyzeNoSave bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <results-file>",
	Short: "Analyze a test results file",
	Long: `Ingest a results file (JSON, CSV, or JUnit XML), cluster the failures
into patterns, and produce a ranked recommendation report.

The Markdown report goes to stdout unless --out is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format, err := ingest.ParseFormat(analyzeFormat)
		if err != nil {
			return err
		}

		var an *analyzer.Analyzer
		if analyzeNoSave {
			an = analyzer.New(cfg, newCollaborator(), nil)
		} else {
			db, err := openStorage(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			an = analyzer.New(cfg, newCollaborator(), db)
		}

		result, err := an.Analyze(ctx, args[0], format)
		if err != nil {
			return err
		}

		if err := writeReports(result.Report); err != nil {
			return err
		}

		if !analyzeNoSave {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(os.Stderr, "%s run %s saved (%d patterns, %d recommendations)\n",
				green("✓"), result.Run.ID, result.Run.PatternCount, len(result.Run.Plan.Ranked))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "auto", "input format: json, csv, junit, or auto")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write the Markdown report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeHTML, "html", "", "also write an HTML report to this path")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "also write the full report data as JSON to this path")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not persist the run to the database")
	rootCmd.AddCommand(analyzeCmd)
}

func writeReports(data *report.Data) error {
	md := report.Markdown(data)
	if analyzeOut == "" {
		fmt.Print(md)
	} else if err := os.WriteFile(analyzeOut, []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write Markdown report: %w", err)
	}

	if analyzeHTML != "" {
		html, err := report.HTML(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(analyzeHTML, html, 0644); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
	}

	if analyzeJSON != "" {
		out, err := report.JSON(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(analyzeJSON, out, 0644); err != nil {
			return fmt.Errorf("failed to write JSON report: %w", err)
		}
	}
	return nil
}
