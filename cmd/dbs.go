// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"
)

var dbsCmd = &cobra.Command{
	Use:   "dbs",
	Short: "List the databases of a server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cfg, connName)
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), t, t.Database, "")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		_, err = a.listDatabases(cmd.Context())
		return err
	},
}

func init() {
	rootCmd.AddCommand(dbsCmd)
}
