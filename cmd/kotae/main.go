// Package main is the kotae CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/config"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence if it exists, so "kotae server" from
// a project dir picks up the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kotae",
		Short:         "Semantic-cached answers over per-application knowledge bases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", defaultConfigPath, "config file path")

	root.AddCommand(
		newServerCmd(),
		newAskCmd(),
		newAppsCmd(),
		newKBCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "kotae %s\n", version)
			},
		},
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
