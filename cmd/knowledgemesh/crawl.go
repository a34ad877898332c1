package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/knowledgemesh/internal/config"
	"github.com/nao1215/knowledgemesh/internal/database"
	"github.com/nao1215/knowledgemesh/internal/extractor"
	"github.com/nao1215/knowledgemesh/internal/fetcher"
	"github.com/nao1215/knowledgemesh/internal/graph"
	"github.com/nao1215/knowledgemesh/internal/log"
	"github.com/nao1215/knowledgemesh/internal/model"
	"github.com/nao1215/knowledgemesh/internal/pipeline"
	"github.com/nao1215/knowledgemesh/internal/report"
	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [<url>...]",
		Short: "Crawl pages and grow the knowledge graph",
		Long: `Crawl fetches each target page exactly once, extracts named entities
from its visible text, and inserts the page, its entities, and its
outbound links into the session knowledge graph.

Links found on a page become placeholder nodes; they are never fetched.
Multiple targets share one graph, so entities mentioned on several pages
accumulate mentions across the whole run.

Examples:
  # Crawl a single page
  knowledgemesh crawl https://en.wikipedia.org/wiki/Ada_Lovelace

  # Crawl several pages concurrently into one graph
  knowledgemesh crawl https://example.com/a https://example.com/b

  # Keep only links on the same host, skip the rest
  knowledgemesh crawl --same-domain-only https://example.com

  # Output a JSON report to a file
  knowledgemesh crawl --json -o report.json https://example.com

Configuration file (.knowledgemesh) example:
  sites:
    en.wikipedia.org:
      headers:
        Accept-Language: "en"
    intranet.example.com:
      cookie: "session=abc123"
      maxBytes: 5000000`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-attempt deadline for each HTTP request")
	cmd.Flags().IntP("max-retries", "r", config.DefaultMaxRetries,
		"Retries on transient fetch failures (timeout, reset, 429/5xx)")
	cmd.Flags().Int64P("max-bytes", "B", config.DefaultMaxBytes,
		"Response body cap in bytes; larger bodies are truncated")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().BoolP("same-domain-only", "s", false,
		"Keep only outbound links whose host equals the page host")

	// Extraction flags
	cmd.Flags().IntP("max-entities", "E", config.DefaultMaxEntities,
		"Maximum distinct entities kept per page")
	cmd.Flags().Bool("heuristic-only", false,
		"Skip the NER model and use the capitalization heuristic")

	// Graph flags
	cmd.Flags().Bool("skip-links", false,
		"Do not insert link edges; only the page and its entities")
	cmd.Flags().Int("top-entities", config.DefaultTopEntities,
		"Number of top entities shown in the summary")
	cmd.Flags().Int("top-domains", config.DefaultTopDomains,
		"Number of top linked domains shown in the summary")

	// Batch flags
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of concurrent runs for multiple targets")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: search current dir, XDG config dir, then home)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not store run results in the history database")
	cmd.Flags().Bool("log-json", false,
		"Emit log records as JSON lines for structured aggregation")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Secure logger redacts cookies and auth material from records.
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	if cfg.LogJSON {
		logger = log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries")
	if err != nil {
		return nil, err
	}
	cfg.MaxBytes, err = cmd.Flags().GetInt64("max-bytes")
	if err != nil {
		return nil, err
	}
	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	cfg.SameDomainOnly, err = cmd.Flags().GetBool("same-domain-only")
	if err != nil {
		return nil, err
	}
	cfg.MaxEntities, err = cmd.Flags().GetInt("max-entities")
	if err != nil {
		return nil, err
	}
	cfg.HeuristicOnly, err = cmd.Flags().GetBool("heuristic-only")
	if err != nil {
		return nil, err
	}
	cfg.SkipLinks, err = cmd.Flags().GetBool("skip-links")
	if err != nil {
		return nil, err
	}
	cfg.TopEntities, err = cmd.Flags().GetInt("top-entities")
	if err != nil {
		return nil, err
	}
	cfg.TopDomains, err = cmd.Flags().GetInt("top-domains")
	if err != nil {
		return nil, err
	}
	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.LogJSON, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the target URLs.
	cfg.Targets = args

	return cfg, nil
}

// runCrawl executes the crawl across all targets.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	provider := extractor.NewProvider(
		extractor.WithForceHeuristic(cfg.HeuristicOnly),
		extractor.WithLogger(logger),
	)
	sharedGraph := graph.NewBuilder()

	orchestrator := pipeline.New(
		pipeline.WithFetcherResolver(fetcherResolver(cfg, logger)),
		pipeline.WithProvider(provider),
		pipeline.WithGraph(sharedGraph),
		pipeline.WithLogger(logger),
		pipeline.WithOptions(pipeline.Options{
			MaxEntities: cfg.MaxEntities,
			SkipLinks:   cfg.SkipLinks,
			TopEntities: cfg.TopEntities,
			TopDomains:  cfg.TopDomains,
		}),
	)

	var results []*model.PipelineResult
	if len(cfg.Targets) > 1 && cfg.Concurrency > 1 {
		fmt.Printf("Crawling %d targets (concurrency: %d)...\n",
			len(cfg.Targets), cfg.Concurrency)
		results = orchestrator.RunBatch(ctx, cfg.Targets, cfg.Concurrency)
	} else {
		for _, target := range cfg.Targets {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			fmt.Printf("Crawling %s...\n", target)
			results = append(results, orchestrator.Run(ctx, target))
		}
	}

	failures := 0
	for _, result := range results {
		if result.Failed() {
			failures++
		}

		if err := outputReport(cfg, result); err != nil {
			logger.Error("report failed", "target", result.URL, "error", err)
		}

		if db != nil {
			if _, err := db.SaveRun(ctx, result,
				sharedGraph.NodeCount(), sharedGraph.EdgeCount()); err != nil {
				logger.Error("failed to save run", "target", result.URL, "error", err)
			}
		}
	}

	if failures == len(results) && len(results) > 0 {
		return fmt.Errorf("all %d run(s) failed", len(results))
	}
	return nil
}

// fetcherResolver builds a per-target fetcher resolver that applies
// per-host settings from the config file.
func fetcherResolver(cfg *config.Config, logger *slog.Logger) pipeline.FetcherResolver {
	return func(normalizedURL string) *fetcher.Fetcher {
		siteConfig := cfg.SiteConfigs.GetSiteConfig(urlnorm.MustHost(normalizedURL))

		sameDomainOnly := cfg.SameDomainOnly
		if siteConfig.SameDomainOnly != nil {
			sameDomainOnly = *siteConfig.SameDomainOnly
		}
		maxBytes := cfg.MaxBytes
		if siteConfig.MaxBytes > 0 {
			maxBytes = siteConfig.MaxBytes
		}

		opts := []fetcher.Option{
			fetcher.WithTimeout(cfg.Timeout),
			fetcher.WithMaxRetries(cfg.MaxRetries),
			fetcher.WithMaxBytes(maxBytes),
			fetcher.WithSameDomainOnly(sameDomainOnly),
			fetcher.WithUserAgent(cfg.UserAgent),
			fetcher.WithLogger(logger),
		}
		if siteConfig.Cookie != "" {
			opts = append(opts, fetcher.WithCookie(siteConfig.Cookie))
		}
		if len(siteConfig.Headers) > 0 {
			opts = append(opts, fetcher.WithHeaders(siteConfig.Headers))
		}
		return fetcher.New(opts...)
	}
}

// outputReport writes one run result in the requested format.
func outputReport(cfg *config.Config, result *model.PipelineResult) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// 0600: reports can carry URLs and titles from private hosts.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(result)
	return err
}
