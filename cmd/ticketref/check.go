// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/ticketref/lib/trackerdef"
)

func checkCommand() *Command {
	return &Command{
		Name:    "check",
		Summary: "validate a tracker definition file",
		Description: "Parse and validate a tracker definition file, then construct every\n" +
			"provider from it to catch problems validation alone cannot see.\n" +
			"On success, print the provider and binding tables the bot would\n" +
			"load.",
		Usage: "ticketref check <tables-file>",
		Examples: []Example{
			{
				Description: "validate the deployed tables before restarting the bot",
				Command:     "ticketref check /etc/ticketref/trackers.jsonc",
			},
		},
		Run: runCheck,
	}
}

func runCheck(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one tables file argument")
	}
	path := args[0]

	def, err := trackerdef.ReadFile(path)
	if err != nil {
		return err
	}

	if issues := trackerdef.Validate(def); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  %s\n", issue)
		}
		return fmt.Errorf("%d issue(s) in %s", len(issues), path)
	}

	built, err := trackerdef.Build(def, trackerdef.BuildOptions{})
	if err != nil {
		return fmt.Errorf("building providers: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "PROVIDER\tKIND\tPATTERN\n")
	for i, providerDef := range def.Providers {
		pattern := "(none)"
		if compiled := built[i].Provider.Pattern(); compiled != nil {
			pattern = compiled.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", providerDef.Name, providerDef.Kind, pattern)
	}
	tw.Flush()

	fmt.Println()

	tw = tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "CHANNELS\tPROVIDER\tPATTERN\tDEFAULT\n")
	for _, binding := range def.Bindings {
		pattern := "(provider)"
		if binding.Pattern != "" {
			pattern = binding.Pattern
		}
		isDefault := "-"
		if binding.Default {
			isDefault = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			strings.Join(binding.Channels, ", "), binding.Provider, pattern, isDefault)
	}
	tw.Flush()

	fmt.Fprintf(os.Stderr, "%s: %d providers, %d bindings\n",
		path, len(def.Providers), len(def.Bindings))
	return nil
}
