// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point of docshell, a terminal client for
// browsing and scripting MongoDB and PostgreSQL databases.
package main

import (
	"seedfast/docshell/cmd"
)

func main() {
	cmd.Execute()
}
