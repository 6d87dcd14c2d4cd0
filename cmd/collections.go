// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	stderrors "errors"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:     "collections [database]",
	Aliases: []string{"tables"},
	Short:   "List the collections of a database",
	Long: `The collections command lists the collections of a database, or the tables
when the connection is a PostgreSQL one. Without an argument the default
database of the connection is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cfg, connName)
		if err != nil {
			return err
		}
		database := t.Database
		if len(args) == 1 {
			database = args[0]
		}
		if database == "" {
			return stderrors.New("no database given and the connection has no default database")
		}
		a, err := openApp(cmd.Context(), t, database, "")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		_, err = a.listCollections(cmd.Context(), database)
		return err
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
