package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/knowledgemesh/internal/config"
	"github.com/nao1215/knowledgemesh/internal/database"
	"github.com/nao1215/knowledgemesh/internal/model"
	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// NewHistoryCmd creates the history command.
// It reads run results stored by previous crawls and compares them.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Inspect and compare stored crawl runs",
		Long: `History reads the run results stored by previous crawls and shows how
a page's entity landscape changed between runs.

Without flags it compares the latest two runs of the given URL: which
entities appeared, which disappeared, and whose mention counts moved.

Examples:
  # Compare the latest two runs of a page
  knowledgemesh history https://example.com

  # List stored runs for a page
  knowledgemesh history --list https://example.com

  # List every target with stored runs
  knowledgemesh history --list-targets

  # Output the comparison as JSON
  knowledgemesh history --json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs for the specified URL")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all targets with stored runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listTargets, err := cmd.Flags().GetBool("list-targets")
	if err != nil {
		return err
	}
	listRuns, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Validate the URL before opening the database so bad input fails
	// without touching the lock.
	var target string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("URL is required (use --list-targets to see stored targets)")
		}
		target, err = urlnorm.Normalize(args[0])
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", args[0], err)
		}
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run a crawl first?): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case listTargets:
		return printTargets(ctx, cmd, db, jsonOutput)
	case listRuns:
		return printRuns(ctx, cmd, db, target, jsonOutput)
	default:
		return printDiff(ctx, cmd, db, target, jsonOutput)
	}
}

// printTargets lists every target URL with stored runs.
func printTargets(ctx context.Context, cmd *cobra.Command, db *database.RunDB, jsonOutput bool) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(targets)
	}

	if len(targets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored runs.")
		return nil
	}
	for _, target := range targets {
		fmt.Fprintln(cmd.OutOrStdout(), target)
	}
	return nil
}

// printRuns lists stored run metadata for one target.
func printRuns(ctx context.Context, cmd *cobra.Command, db *database.RunDB, target string, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, target, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No stored runs for %s\n", target)
		return nil
	}
	for _, run := range runs {
		mode := "model"
		if run.HeuristicMode {
			mode = "heuristic"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%d  %s  %-9s %-9s graph: %d nodes / %d edges\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Stage,
			mode,
			run.NodeCount,
			run.EdgeCount,
		)
	}
	return nil
}

// entityDiff describes how the entity landscape moved between two runs.
type entityDiff struct {
	// URL is the compared target.
	URL string `json:"url"`

	// Appeared are entities present in the latest run only.
	Appeared []model.EntityRank `json:"appeared"`

	// Disappeared are entities present in the previous run only.
	Disappeared []model.EntityRank `json:"disappeared"`

	// Changed are entities whose mention count moved, with the latest
	// count.
	Changed []model.EntityRank `json:"changed"`
}

// printDiff compares the latest two runs of one target.
func printDiff(ctx context.Context, cmd *cobra.Command, db *database.RunDB, target string, jsonOutput bool) error {
	results, err := db.LatestRuns(ctx, target, 2)
	if err != nil {
		return err
	}
	if len(results) < 2 {
		return fmt.Errorf("need at least two stored runs for %s, have %d", target, len(results))
	}

	diff := diffTopEntities(target, results[1], results[0])

	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(diff)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Entity changes for %s (previous run -> latest run)\n\n", target)

	if len(diff.Appeared) == 0 && len(diff.Disappeared) == 0 && len(diff.Changed) == 0 {
		fmt.Fprintln(out, "No changes.")
		return nil
	}
	for _, rank := range diff.Appeared {
		fmt.Fprintf(out, "  + %s (%s) - %d mention(s)\n", rank.Text, rank.Label, rank.Mentions)
	}
	for _, rank := range diff.Disappeared {
		fmt.Fprintf(out, "  - %s (%s)\n", rank.Text, rank.Label)
	}
	for _, rank := range diff.Changed {
		fmt.Fprintf(out, "  ~ %s (%s) - now %d mention(s)\n", rank.Text, rank.Label, rank.Mentions)
	}
	return nil
}

// diffTopEntities compares the top-entity sets of two runs. Identity is
// the (text, label) pair, matching graph node identity.
func diffTopEntities(target string, previous, latest *model.PipelineResult) *entityDiff {
	type key struct{ text, label string }

	prev := make(map[key]int, len(previous.TopEntities))
	for _, rank := range previous.TopEntities {
		prev[key{rank.Text, rank.Label}] = rank.Mentions
	}

	diff := &entityDiff{
		URL:         target,
		Appeared:    []model.EntityRank{},
		Disappeared: []model.EntityRank{},
		Changed:     []model.EntityRank{},
	}
	seen := make(map[key]bool, len(latest.TopEntities))

	for _, rank := range latest.TopEntities {
		k := key{rank.Text, rank.Label}
		seen[k] = true
		mentions, ok := prev[k]
		switch {
		case !ok:
			diff.Appeared = append(diff.Appeared, rank)
		case mentions != rank.Mentions:
			diff.Changed = append(diff.Changed, rank)
		}
	}
	for _, rank := range previous.TopEntities {
		if !seen[key{rank.Text, rank.Label}] {
			diff.Disappeared = append(diff.Disappeared, rank)
		}
	}
	return diff
}
