package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconcileRepair bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored files with catalog rows",
	Long: `Report files with no catalog row (orphans) and rows whose file is missing.

With --repair, orphan files are deleted. Rows with a missing file are only
reported; re-upload or delete them through the admin API.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileRepair, "repair", false, "delete orphan files")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.assets.Reconcile(cmd.Context(), reconcileRepair)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.Consistent() {
		fmt.Fprintln(out, "catalog and blob store agree")
		return nil
	}
	for _, name := range report.OrphanBlobs {
		fmt.Fprintf(out, "orphan file:   %s\n", name)
	}
	for _, slug := range report.DanglingAssets {
		fmt.Fprintf(out, "missing file:  %s\n", slug)
	}
	for _, name := range report.Removed {
		fmt.Fprintf(out, "removed:       %s\n", name)
	}
	return nil
}
