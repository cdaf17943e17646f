package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"OracleEngine/internal/domain/models"
)

func newSignalCmd() *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "signal SYMBOL",
		Short: "Score one asset and print the factor and model breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := signalContext()
			defer cancel()

			ev, err := engine.Generator.Generate(ctx, args[0], persist)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(ev)
			}
			return outputEvaluation(ev)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "save the signal when the score is actionable")
	return cmd
}

func outputEvaluation(ev *models.Evaluation) error {
	s := ev.Score
	fmt.Printf("%s  score %d  %s  confidence %s  weights %s\n",
		ev.Asset, s.Score, s.Type, s.Confidence, s.WeightsVersion)
	fmt.Printf("price %.6g  fidelity %s\n\n", ev.Observation.Price, ev.Observation.Fidelity)

	factors := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Factor", "Category", "Score", "Label"}),
	)
	for _, f := range ev.Factors {
		label := f.Label
		if !f.Available {
			label += " (n/a)"
		}
		_ = factors.Append([]string{f.Name, string(f.Category), fmt.Sprintf("%.0f", f.Score), label})
	}
	if err := factors.Render(); err != nil {
		return err
	}
	fmt.Println()

	quant := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Model", "Status", "Score", "Direction", "Signal"}),
	)
	for _, q := range ev.Quant {
		_ = quant.Append([]string{q.Model, string(q.Status), fmt.Sprintf("%.0f", q.Score), string(q.Direction), q.Signal})
	}
	if err := quant.Render(); err != nil {
		return err
	}

	l := ev.Levels
	fmt.Printf("\nentry %.6g  target %.6g (%+.2f%%)  stop %.6g\n", l.Entry, l.Target, l.TargetPct, l.Stop)
	switch {
	case ev.Signal != nil:
		fmt.Printf("saved signal #%d, expires %s\n", ev.Signal.ID, ev.Signal.ExpiresAt.Format("2006-01-02 15:04 MST"))
	case !ev.Actionable:
		fmt.Println("not actionable")
	}
	return nil
}
