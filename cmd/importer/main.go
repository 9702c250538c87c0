package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/ThreeSixtyGiving/grantnav/internal/config"
	"github.com/ThreeSixtyGiving/grantnav/internal/enrich"
	"github.com/ThreeSixtyGiving/grantnav/internal/importer"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/indexing"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/mapping"
	"github.com/ThreeSixtyGiving/grantnav/internal/orgs"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
)

func main() {
	app := &cli.Command{
		Name:      "grantnav-importer",
		Usage:     "Load 360Giving grant files into the search index",
		ArgsUsage: "GRANT_FILES...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: os.Getenv("GRANTNAV_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: "Drop and recreate the index before importing",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "funders",
				Usage: "NDJSON file with canonical funder records",
			},
			&cli.StringFlag{
				Name:  "recipients",
				Usage: "NDJSON file with canonical recipient records",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			opts := importer.Options{
				Clean:      c.Bool("clean"),
				Funders:    c.String("funders"),
				Recipients: c.String("recipients"),
				GrantFiles: c.Args().Slice(),
			}
			return runImport(ctx, c.String("config"), opts)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, configPath string, opts importer.Options) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	osClient, err := client.New(cfg.OpenSearch, log)
	if err != nil {
		return fmt.Errorf("creating opensearch client: %w", err)
	}

	checker := client.NewHealthChecker(osClient)
	if err := checker.WaitForHealthy(ctx, 10, 3*time.Second); err != nil {
		return fmt.Errorf("opensearch is not available: %w", err)
	}

	store := orgs.NewReferenceStore(osClient, log, cfg.OrgCache.MaxEntries)
	pipeline := enrich.NewPipeline(store, log)
	indexer := indexing.NewManager(osClient, log,
		cfg.Import.BatchSize, cfg.Import.MaxRetries, cfg.Import.Backoff)
	mappings := mapping.NewManager(osClient, log)

	imp := importer.New(mappings, indexer, pipeline, log)
	return imp.Run(ctx, opts)
}
