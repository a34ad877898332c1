// Package main provides the entry point for the KnowledgeMesh CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for KnowledgeMesh.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledgemesh",
		Short: "Grow a knowledge graph from individual web pages",
		Long: `KnowledgeMesh fetches single web pages, extracts named entities from
their visible text, and incrementally builds a directed knowledge graph
of pages, entities, and outbound links.

Each crawl processes exactly one page per target URL; KnowledgeMesh
never follows links on its own. Run results can be stored and compared
across runs with the history command.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
