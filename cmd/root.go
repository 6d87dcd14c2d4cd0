// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of docshell. Every command
// talks to the database through the dispatch core in internal/console: it
// opens a session, sends requests and renders the responses and notifications
// delivered on the foreground loop.
package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"seedfast/docshell/internal/config"
	"seedfast/docshell/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	logLevel    string
	connName    string

	// cfg and logger are set in PersistentPreRunE before any command runs.
	cfg    = config.Defaults()
	logger = logging.Discard()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docshell",
	Short: "Browse and script document databases from the terminal",
	Long: `docshell connects to MongoDB and PostgreSQL servers, lists databases and
collections, pages through documents and runs scripts. Connection strings are
kept in the OS keychain; everything else lives in the config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			c.LogLevel = logLevel
		}
		cfg = c
		logger = logging.New(c.LogLevel, os.Stderr)
		logger.Debug("config loaded", slog.String("call_timeout", c.Timeout().String()), slog.Int("page_size", c.PageSize))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("docshell %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. An interrupt cancels the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !stderrors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVarP(&connName, "conn", "c", "", "Saved connection to use (default: the only one saved)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (trace, debug, info, warn, error, off)")
}
