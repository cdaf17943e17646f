package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close active signals past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, cancel := signalContext()
			defer cancel()

			n, err := engine.Lifecycle.CloseExpired(ctx)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(map[string]int{"closed": n})
			}
			fmt.Printf("closed %d expired signal(s)\n", n)
			return nil
		},
	}
}
