package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	infraBQ "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
	"github.com/dvloznov/ledgerchat/internal/logger"
	"github.com/dvloznov/ledgerchat/internal/notionsync"
)

func main() {
	log := logger.New()

	userID := flag.String("user", "", "User ID whose ledger to sync (required)")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (required)")
	projectID := flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT env)")
	datasetID := flag.String("dataset", "ledgerchat", "BigQuery dataset ID")
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to Notion")
	flag.Parse()

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required (or set NOTION_TOKEN)")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required (or set GCP_PROJECT)")
	}

	// Bound the run so the CLI doesn't hang on a stuck API call.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("user_id", *userID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	store, err := infraBQ.NewStore(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	notionClient := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncLedger(ctx, store, notionClient, *notionDBID, *userID, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
