// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command querylens audits fluent query-builder chains in TypeScript and
// JavaScript sources: it reconstructs each chain into SQL for inspection
// and flags writes of unvalidated external input against the schema.
//
// Usage:
//
//	querylens queries --schema db/schema.ts ./src
//	querylens check --schema db/schema.ts ./src
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/querylens/pkg/logging"
	"github.com/AleutianAI/querylens/services/querylens/config"
)

var (
	schemaPath string
	configPath string
	verbose    bool
	logDir     string

	logCloser *logging.Closer

	// exitCode lets subcommands signal a non-zero exit without
	// bypassing the deferred log cleanup.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:          "querylens",
	Short:        "Static analysis for fluent query-builder chains",
	Long:         "querylens reconstructs fluent query-builder chains (db.select().from(...), db.insert(...).values(...)) into SQL for audit, and cross-checks write operations against the declared schema.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		closer, err := logging.Setup(logging.Config{Level: level, LogDir: logDir})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		logCloser = closer
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "Path to the schema declaration file (required)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an analysis config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write JSON logs to files in this directory")

	rootCmd.AddCommand(queriesCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig resolves the analysis configuration for a command run.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFile(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
