// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"seedfast/docshell/internal/explorer"
	"seedfast/docshell/internal/render"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var dbinfoCheck bool

// dbinfoCmd shows saved connections with their passwords masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo [name]",
	Short: "Show saved database connections",
	Long: `The dbinfo command lists saved connections, or shows one in detail with the
password masked. With --check it also connects and reports the server state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := render.New(os.Stdout)
		name := connName
		if len(args) == 1 {
			name = args[0]
		}

		if name == "" && !dbinfoCheck {
			if len(cfg.Connections) == 0 {
				pterm.Println("⚠️  No database connection configured")
				pterm.Println("   Please run: docshell connect <name>")
				return nil
			}
			items := make([]string, 0, len(cfg.Connections))
			for _, c := range cfg.Connections {
				items = append(items, fmt.Sprintf("%s (%s) %s", c.Name, c.Backend, c.URI))
			}
			pterm.Print(render.List(items))
			return nil
		}

		t, err := resolveTarget(cfg, name)
		if err != nil {
			return err
		}
		if t.Name == "env" {
			pterm.Println("Using DSN from " + envDSN + " environment variable")
			pterm.Println()
		}
		state := explorer.ServerState{State: explorer.Idle}
		if dbinfoCheck {
			a, err := openApp(cmd.Context(), t, t.Database, "")
			switch {
			case err == nil:
				state, _ = a.view.Server(a.server.ID)
				a.Close(cmd.Context())
			case stderrors.Is(err, errReported):
				state = explorer.ServerState{State: explorer.Failed}
			default:
				return err
			}
		}
		out.Server(t.Name, t.Info.Redacted(), state)
		pterm.Println()
		pterm.Println("To update this connection, run: docshell connect " + t.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
	dbinfoCmd.Flags().BoolVar(&dbinfoCheck, "check", false, "Connect and report the server state")
}
