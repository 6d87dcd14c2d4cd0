// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	stderrors "errors"
	"fmt"

	"seedfast/docshell/internal/config"
	"seedfast/docshell/internal/keychain"

	"github.com/spf13/cobra"
)

var forgetAll bool

// forgetCmd removes saved connections from the keychain and the config file.
var forgetCmd = &cobra.Command{
	Use:   "forget [name...]",
	Short: "Remove saved connections",
	Long: `The forget command removes the named connections. With --all every saved
connection is removed. Secrets are deleted from the OS keychain even when the
config file no longer lists them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if forgetAll {
			names = nil
			for _, c := range cfg.Connections {
				names = append(names, c.Name)
			}
			if km, err := keychain.GetManager(); err == nil {
				if stored, err := km.Connections(); err == nil {
					names = append(names, stored...)
				}
			}
		}
		if len(names) == 0 {
			return stderrors.New("name a connection to forget, or pass --all")
		}

		km, kerr := keychain.GetManager()
		var errs []error
		for _, name := range names {
			known := cfg.RemoveConnection(name)
			if kerr == nil {
				if err := km.DeleteConnection(name); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
			}
			if known {
				fmt.Printf("✅ Connection %q removed\n", name)
			}
		}
		if err := config.Save(cfg); err != nil {
			errs = append(errs, fmt.Errorf("save config: %w", err))
		}
		if kerr != nil {
			fmt.Println("⚠️  Secure storage is not available; only the config file was updated.")
		}
		return stderrors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
	forgetCmd.Flags().BoolVar(&forgetAll, "all", false, "Remove every saved connection")
}
