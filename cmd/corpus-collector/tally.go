// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-collector/internal/ledger"
)

var tallyCmd = &cobra.Command{
	Use:   "tally",
	Short: "Report run outcomes recorded in the ledger",
	Long: `Tally aggregates the run ledger: for each stage it prints how many units
(months harvested, files annotated) succeeded, were skipped, or failed, and
the total record count across successful runs.`,
	RunE: runTally,
}

func init() {
	rootCmd.AddCommand(tallyCmd)
}

func runTally(cmd *cobra.Command, args []string) error {
	store, err := ledger.Open(ledgerPath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	for _, stage := range []string{ledger.StageHarvest, ledger.StageAnnotate} {
		t, err := store.Tally(ctx, stage)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-9s ok %d, skipped %d, failed %d (%d records)\n",
			stage+":", t.OK, t.Skipped, t.Failed, t.Records)
	}
	return nil
}
