package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"OracleEngine/internal/domain/models"
)

func newScanCmd() *cobra.Command {
	var assets string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score the asset universe and save actionable signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := signalContext()
			defer cancel()

			list := engine.Universe.Sorted()
			if assets != "" {
				list = strings.Split(strings.ToUpper(assets), ",")
			}

			bar := progressbar.NewOptions(len(list),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("Scanning"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]█[reset]",
					SaucerHead:    "[green]█[reset]",
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
			summary, err := engine.Scanner.Scan(ctx, models.TriggerManual, list, func(models.AssetResult) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("scanning: %w", err)
			}

			if format == "json" {
				return printJSON(summary)
			}
			return outputSummary(summary)
		},
	}
	cmd.Flags().StringVar(&assets, "assets", "", "comma-separated assets to scan (default: whole universe)")
	return cmd
}

func outputSummary(s *models.ScanSummary) error {
	rows := append([]models.AssetResult(nil), s.Results...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Outcome != rows[j].Outcome {
			return rows[i].Outcome > rows[j].Outcome
		}
		return rows[i].Score > rows[j].Score
	})

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Asset", "Outcome", "Score", "Type", "Signal", "Fidelity", "Time", "Error"}),
	)
	for _, r := range rows {
		id := ""
		if r.SignalID > 0 {
			id = fmt.Sprintf("#%d", r.SignalID)
		}
		score := ""
		if r.Outcome != models.OutcomeError {
			score = fmt.Sprintf("%d", r.Score)
		}
		msg := r.Error
		if len(msg) > 50 {
			msg = msg[:50] + "..."
		}
		_ = table.Append([]string{
			r.Asset,
			string(r.Outcome),
			score,
			string(r.Type),
			id,
			string(r.Fidelity),
			fmt.Sprintf("%.0fms", r.Duration),
			msg,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	took := s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)
	fmt.Printf("\nscan %s: %d scanned, %d saved, %d skipped, %d errors in %s\n",
		s.ID, s.Scanned, s.Saved, s.Skipped, s.Errors, took)
	return nil
}
