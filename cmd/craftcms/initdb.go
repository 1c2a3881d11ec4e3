package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the catalog tables and the image directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// newApp migrates the schema and creates the storage root.
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "catalog ready (%s), images in %s\n", a.cfg.Database.Driver, a.cfg.Storage.LocalPath)
		return nil
	},
}
