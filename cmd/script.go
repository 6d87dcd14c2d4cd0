// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"seedfast/docshell/internal/events"

	"github.com/spf13/cobra"
)

var (
	scriptDatabase string
	scriptEval     string
	scriptTake     int
	scriptSkip     int
)

// scriptCmd runs a script file, stdin or an --eval string.
var scriptCmd = &cobra.Command{
	Use:   "script [file|-]",
	Short: "Run a script against a database",
	Long: `The script command runs backend text against a database: SQL statements on
PostgreSQL, Extended JSON database commands on MongoDB. The script comes from a
file, from stdin when the file is "-", or from --eval.

Examples:
  docshell script --db app migrate.sql
  docshell script --db app -e '{"count": "users"}'
  cat commands.json | docshell script -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := scriptText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		t, err := resolveTarget(cfg, connName)
		if err != nil {
			return err
		}
		database := scriptDatabase
		if database == "" {
			database = t.Database
		}

		a, err := openApp(cmd.Context(), t, database, text)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		_, err = a.runScript(cmd.Context(), text, database, events.Page{Take: scriptTake, Skip: scriptSkip})
		return err
	},
}

func scriptText(stdin io.Reader, args []string) (string, error) {
	var text string
	switch {
	case scriptEval != "" && len(args) > 0:
		return "", stderrors.New("pass either a script file or --eval, not both")
	case scriptEval != "":
		text = scriptEval
	case len(args) == 1 && args[0] == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	case len(args) == 1:
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		text = string(b)
	default:
		return "", stderrors.New("no script given: pass a file, - for stdin, or --eval")
	}
	if strings.TrimSpace(text) == "" {
		return "", stderrors.New("script is empty")
	}
	return text, nil
}

func init() {
	rootCmd.AddCommand(scriptCmd)
	scriptCmd.Flags().StringVar(&scriptDatabase, "db", "", "Database to run against (default: the connection's)")
	scriptCmd.Flags().StringVarP(&scriptEval, "eval", "e", "", "Script text to run")
	scriptCmd.Flags().IntVar(&scriptTake, "take", 0, "Rows or documents to keep per result (0 means all)")
	scriptCmd.Flags().IntVar(&scriptSkip, "skip", 0, "Rows or documents to skip per result")
}
