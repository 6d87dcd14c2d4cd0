// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"seedfast/docshell/internal/events"
	"seedfast/docshell/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	shellDatabase string
	shellInit     string
)

const shellHelp = `Lines are run as scripts against the current database. End a line with \ to continue it.
  :dbs                 list databases
  :use <db>            switch the current database
  :collections [db]    list collections
  :find <ns> [take]    show documents of database.collection (or collection)
  :next / :prev        page through the last :find
  :activity            show connection events and failures
  :quit                leave the shell`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive shell on a connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget(cfg, connName)
		if err != nil {
			return err
		}
		database := shellDatabase
		if database == "" {
			database = t.Database
		}
		a, err := openApp(cmd.Context(), t, database, shellInit)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		sh := &shellState{app: a, database: database, page: events.Page{Take: cfg.PageSize}}
		if shellInit != "" {
			if _, err := a.runScript(cmd.Context(), shellInit, database, events.Page{}); err != nil && !stderrors.Is(err, errReported) {
				return err
			}
		}
		return sh.run(cmd.Context())
	},
}

// shellState is what the interactive shell remembers between lines.
type shellState struct {
	app       *app
	database  string
	namespace string
	page      events.Page
	history   io.WriteCloser
}

func (s *shellState) run(ctx context.Context) error {
	s.history = openHistory()
	if s.history != nil {
		defer s.history.Close()
	}
	pterm.Println(dimStyle(fmt.Sprintf("Connected to %s. Type :help for commands.", s.app.server.Name)))

	for ctx.Err() == nil {
		text, err := s.readStatement()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		s.record(text)

		quit, err := s.exec(ctx, text)
		if quit {
			return nil
		}
		if err != nil && !stderrors.Is(err, errReported) {
			pterm.Error.Println(err.Error())
		}
	}
	return nil
}

// readStatement reads one line, following trailing backslashes.
func (s *shellState) readStatement() (string, error) {
	var parts []string
	label := s.prompt()
	for {
		line, err := s.app.term.Prompt(label)
		if err != nil {
			if len(parts) > 0 && stderrors.Is(err, io.EOF) {
				return strings.Join(parts, "\n"), nil
			}
			return "", err
		}
		if rest, ok := strings.CutSuffix(line, `\`); ok {
			parts = append(parts, rest)
			label = "... "
			continue
		}
		parts = append(parts, line)
		return strings.Join(parts, "\n"), nil
	}
}

func (s *shellState) prompt() string {
	if s.database == "" {
		return s.app.server.Name + "> "
	}
	return s.app.server.Name + ":" + s.database + "> "
}

// exec runs one statement and reports whether the shell should end.
func (s *shellState) exec(ctx context.Context, text string) (bool, error) {
	name, arg, meta := parseShellLine(text)
	if !meta {
		_, err := s.app.runScript(ctx, text, s.database, events.Page{})
		return false, err
	}

	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "h", "?":
		pterm.Println(shellHelp)
	case "dbs":
		_, err := s.app.listDatabases(ctx)
		return false, err
	case "use":
		if arg == "" {
			return false, stderrors.New("usage: :use <database>")
		}
		s.database = arg
	case "collections", "tables":
		db := arg
		if db == "" {
			db = s.database
		}
		if db == "" {
			return false, stderrors.New("no current database, run :use <database> first")
		}
		_, err := s.app.listCollections(ctx, db)
		return false, err
	case "find":
		ns, take, err := s.findArgs(arg)
		if err != nil {
			return false, err
		}
		s.namespace, s.page = ns, events.Page{Take: take}
		_, err = s.app.query(ctx, s.namespace, s.page)
		return false, err
	case "next", "prev":
		if s.namespace == "" {
			return false, stderrors.New("nothing to page through, run :find first")
		}
		if name == "next" {
			s.page = s.page.Next()
		} else {
			s.page = s.page.Prev()
		}
		_, err := s.app.query(ctx, s.namespace, s.page)
		return false, err
	case "activity":
		s.app.out.Activity(s.app.view.Activity())
	default:
		return false, fmt.Errorf("unknown command :%s, type :help", name)
	}
	return false, nil
}

func (s *shellState) findArgs(arg string) (string, int, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return "", 0, stderrors.New("usage: :find <database.collection> [take]")
	}
	ns := fields[0]
	if !strings.Contains(ns, ".") && s.database != "" {
		ns = s.database + "." + ns
	}
	take := s.page.Take
	if take == 0 {
		take = cfg.PageSize
	}
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			return "", 0, fmt.Errorf("invalid take %q", fields[1])
		}
		take = n
	}
	return ns, take, nil
}

// parseShellLine splits a ":name arg" meta command. meta is false for script text.
func parseShellLine(line string) (name, arg string, meta bool) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, ":")
	if !ok || rest == "" {
		return "", "", false
	}
	name, arg, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

func (s *shellState) record(text string) {
	if s.history == nil {
		return
	}
	if _, err := fmt.Fprintln(s.history, strings.ReplaceAll(text, "\n", `\n`)); err != nil {
		logger.Debug("history write", slog.String("error", err.Error()))
	}
}

// openHistory opens the shell history file in the state directory.
// Without one the shell simply keeps no history.
func openHistory() io.WriteCloser {
	dir, err := xdg.StateDir()
	if err != nil {
		logger.Debug("no state dir", slog.String("error", err.Error()))
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "history"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger.Debug("open history", slog.String("error", err.Error()))
		return nil
	}
	return f
}

func dimStyle(s string) string { return pterm.FgGray.Sprint(s) }

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVar(&shellDatabase, "db", "", "Database to start in (default: the connection's)")
	shellCmd.Flags().StringVar(&shellInit, "init", "", "Script to run once the shell is connected")
}
