// Package cmd implements the trellis command line interface.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/edforge/trellis/internal/version"
)

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	name := filepath.Base(args[0])

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}
	log := hclog.New(&hclog.LoggerOptions{Name: name})
	initCommands(log, ui)

	runner := &cli.CLI{
		Name:     name,
		Args:     normalizeArgs(args[1:]),
		Version:  version.Version,
		Commands: Commands,
	}

	exitCode, err := runner.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("error running command: %v", err))
		return 1
	}
	return exitCode
}

// normalizeArgs routes version-flag spellings to the version subcommand
// and defaults a bare invocation to the server.
func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"server"}
	}
	if len(args) == 1 {
		switch args[0] {
		case "-v", "-version", "--version":
			return []string{"version"}
		}
	}
	return args
}
