package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/extract"
	"github.com/dvloznov/ledgerchat/internal/health"
	infraBQ "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
	"github.com/dvloznov/ledgerchat/internal/logger"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "score":
		runScore(log)
	case "cleanup-sessions":
		runCleanupSessions(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("LedgerChat CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse             Parse a transaction message into a structured entry")
	fmt.Println("  score             Compute a financial health report from a transactions file")
	fmt.Println("  cleanup-sessions  Delete expired login sessions from BigQuery")
	fmt.Println("  help              Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Transaction message to parse")
	useModel := fs.Bool("model", false, "Fall back to the Gemini extractor (requires GEMINI_API_KEY)")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	extractors := []extract.Extractor{extract.NewLexical()}
	if *useModel {
		// No archive writer on the CLI path; raw responses go to the log only.
		gemini, err := extract.NewGemini(log, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create model extractor")
		}
		extractors = append(extractors, gemini)
	}

	result := extract.NewInterpreter(log, extractors...).Interpret(ctx, *text)

	printJSON(log, result)
	if !result.Success {
		os.Exit(1)
	}
}

func runScore(log zerolog.Logger) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	file := fs.String("file", "", "Path to a JSON array of transactions")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions file")
	}

	var transactions []domain.Transaction
	if err := json.Unmarshal(content, &transactions); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse transactions file")
	}
	if len(transactions) == 0 {
		log.Fatal().Msg("Transactions file is empty; nothing to score")
	}

	report := health.Score(transactions)

	printJSON(log, report)
}

func runCleanupSessions(log zerolog.Logger) {
	fs := flag.NewFlagSet("cleanup-sessions", flag.ExitOnError)
	projectID := fs.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT env)")
	datasetID := fs.String("dataset", "ledgerchat", "BigQuery dataset ID")
	fs.Parse(os.Args[2:])

	if *projectID == "" {
		log.Fatal().Msg("Error: --project is required (or set GCP_PROJECT)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := infraBQ.NewStore(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	deleted, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to delete expired sessions")
	}

	fmt.Printf("Deleted %d expired session(s).\n", deleted)
}

func printJSON(log zerolog.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
	fmt.Println(string(out))
}
