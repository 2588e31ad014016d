// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/msl/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one subcommand. Output goes to stdout; diagnostics and
// logs go to stderr.
type command func(args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"keygen":          runKeygen,
	"age-keygen":      runAgeKeygen,
	"psk-keygen":      runPSKKeygen,
	"derive-wrap-key": runDeriveWrapKey,
	"issue":           runIssue,
	"service-token":   runServiceToken,
	"inspect":         runInspect,
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return fmt.Errorf("subcommand required")
	}

	subcommand := args[0]
	switch subcommand {
	case "version":
		version.Print(stdout, "msl-token")
		return nil
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	}
	handler, ok := commands[subcommand]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
	return handler(args[1:], stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: msl-token <subcommand> [flags]

Subcommands:
  keygen           Load or generate the issuer keys in the state directory
  age-keygen       Generate an age identity for sealing the key store
  psk-keygen       Generate pre-shared keys for an entity (key store YAML)
  derive-wrap-key  Derive the wrapping key from base64 encryption and HMAC keys
  issue            Mint a master token (and optionally a user ID token)
  service-token    Mint a service token bound to a master token
  inspect          Parse and print an encoded master token
  version          Print version information

Run 'msl-token <subcommand> --help' for subcommand flags.
`)
}

// parseFlags parses args into flags. Help requests print the flag
// defaults and return errHelp so the caller exits cleanly.
func parseFlags(flags *pflag.FlagSet, args []string, stderr io.Writer) error {
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

var errHelp = errors.New("help requested")

// helpOK converts errHelp into success.
func helpOK(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}
