// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"seedfast/docshell/internal/errors"
)

// faultHint refines a kind using the reason text.
type faultHint int

const (
	hintNone faultHint = iota
	hintAuth
	hintRefused
	hintDNS
	hintTLS
)

func hintFor(reason string) faultHint {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "auth"), strings.Contains(lower, "password"), strings.Contains(lower, "28p01"):
		return hintAuth
	case strings.Contains(lower, "connection refused"):
		return hintRefused
	case strings.Contains(lower, "no such host"), strings.Contains(lower, "lookup "):
		return hintDNS
	case strings.Contains(lower, "tls"), strings.Contains(lower, "x509"), strings.Contains(lower, "certificate"):
		return hintTLS
	}
	return hintNone
}

// FormatError renders e for the terminal. action describes what was being
// done ("connecting to prod"). The reason is masked.
func FormatError(e errors.E, action string) string {
	var b strings.Builder
	reason := Mask(e.Reason)

	switch e.Kind {
	case errors.Timeout:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("Timed out while %s", action))
		b.WriteString("\n\nThe database took too long to respond. This could mean:\n")
		b.WriteString("  • The server is under heavy load\n")
		b.WriteString("  • The query scans a large collection without an index\n")
		b.WriteString("  • The call timeout is too short (DOCSHELL_CALL_TIMEOUT)\n")

	case errors.ConnectionFailed:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("Connection failed while %s", action))
		b.WriteString("\n\n")
		switch hintFor(reason) {
		case hintAuth:
			b.WriteString("The server rejected the credentials.\n")
			b.WriteString("  • Check the user name and password\n")
			b.WriteString("  • Check the authentication database (authSource)\n")
		case hintRefused:
			b.WriteString("The server is not accepting connections. Please check:\n")
			b.WriteString("  • The database is running\n")
			b.WriteString("  • Host and port are correct\n")
			b.WriteString("  • No firewall is blocking the port\n")
		case hintDNS:
			b.WriteString("Cannot resolve the server address. Please check:\n")
			b.WriteString("  • The host name is spelled correctly\n")
			b.WriteString("  • Your DNS settings and network connection\n")
		case hintTLS:
			b.WriteString("Cannot establish a secure connection. Please check:\n")
			b.WriteString("  • The server certificate is trusted\n")
			b.WriteString("  • tls/ssl options in the connection string\n")
			b.WriteString("  • Your system date and time\n")
		default:
			b.WriteString("The connection to the database could not be established or was lost.\n")
		}

	case errors.InvalidArgument:
		b.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprintf("Invalid input while %s", action))
		b.WriteString("\n")

	case errors.Cancelled:
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprintf("Cancelled while %s", action))
		b.WriteString("\n")

	default:
		b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("Database error while %s", action))
		b.WriteString("\n")
	}

	if strings.TrimSpace(reason) != "" {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Details: " + reason))
	}
	return b.String()
}

// PresentError prints e to the terminal.
func PresentError(e errors.E, action string) {
	fmt.Println()
	fmt.Println(FormatError(e, action))
	fmt.Println()
}

// PresentCause formats a plain Go error for user display with masking.
func PresentCause(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}
