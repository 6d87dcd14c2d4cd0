// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strings"

	"seedfast/docshell/internal/events"

	"github.com/spf13/cobra"
)

var (
	queryTake int
	querySkip int
	queryPage bool
)

// queryCmd pages through the documents of one collection.
var queryCmd = &cobra.Command{
	Use:   "query <database.collection>",
	Short: "Show documents of a collection",
	Long: `The query command prints one page of documents from a collection as relaxed
Extended JSON. The page size defaults to page_size from the config file. With
--page the command stays open and asks for the next page on an interactive
terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cfg, connName)
		if err != nil {
			return err
		}
		namespace := args[0]
		if !strings.Contains(namespace, ".") && t.Database != "" {
			namespace = t.Database + "." + namespace
		}
		take := queryTake
		if !cmd.Flags().Changed("take") {
			take = cfg.PageSize
		}

		a, err := openApp(cmd.Context(), t, t.Database, "")
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())
		return a.pageThrough(cmd, namespace, events.Page{Take: take, Skip: querySkip}, queryPage)
	},
}

// pageThrough shows page and, when interactive is set, keeps prompting for
// the next or previous page until the user quits.
func (a *app) pageThrough(cmd *cobra.Command, namespace string, page events.Page, interactive bool) error {
	ctx := cmd.Context()
	for {
		docs, err := a.query(ctx, namespace, page)
		if err != nil {
			return err
		}
		if !interactive || !a.term.Interactive() || page.Take == 0 {
			return nil
		}
		more := len(docs) == page.Take
		answer, err := a.term.Prompt(pagePrompt(page, more))
		if err != nil {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "n", "":
			if !more {
				return nil
			}
			page = page.Next()
		case "p":
			page = page.Prev()
		default:
			return nil
		}
	}
}

func pagePrompt(page events.Page, more bool) string {
	var opts []string
	if more {
		opts = append(opts, "[n]ext")
	}
	if !page.First() {
		opts = append(opts, "[p]rev")
	}
	opts = append(opts, "[q]uit")
	return strings.Join(opts, " ") + ": "
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryTake, "take", 0, "Documents per page (0 means all; default page_size)")
	queryCmd.Flags().IntVar(&querySkip, "skip", 0, "Documents to skip")
	queryCmd.Flags().BoolVar(&queryPage, "page", false, "Prompt for further pages")
}
