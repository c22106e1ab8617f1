package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/ledgerchat/internal/api/handlers"
	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/archive"
	"github.com/dvloznov/ledgerchat/internal/auth"
	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/extract"
	infraBQ "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
	"github.com/dvloznov/ledgerchat/internal/insights"
	"github.com/dvloznov/ledgerchat/internal/jobs"
	"github.com/dvloznov/ledgerchat/internal/jobs/inmemory"
	"github.com/dvloznov/ledgerchat/internal/logger"
)

func main() {
	var (
		port          = flag.String("port", "8080", "HTTP server port")
		projectID     = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT env)")
		datasetID     = flag.String("dataset", envOr("BQ_DATASET", "ledgerchat"), "BigQuery dataset ID (or set BQ_DATASET env)")
		bucket        = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for model response archiving (or set GCS_BUCKET env)")
		secureCookies = flag.Bool("secure-cookies", false, "Mark session cookies Secure (enable behind HTTPS)")
	)
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("-project flag is required (or set GCP_PROJECT)")
	}
	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - model response archiving is disabled")
	}

	ctx := context.Background()

	store, err := infraBQ.NewStore(ctx, *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer store.Close()

	sessions := auth.NewService(store)
	archiveWriter := archive.NewWriter(*bucket)

	// The deterministic extractor always runs; the model fallback only when
	// an API key is configured.
	extractors := []extract.Extractor{extract.NewLexical()}
	gemini, err := extract.NewGemini(log, archiveWriter)
	switch {
	case err == nil:
		extractors = append(extractors, gemini)
	case errors.Is(err, extract.ErrNotConfigured):
		log.Warn().Msg("GEMINI_API_KEY not set - model extraction fallback is disabled")
	default:
		log.Fatal().Err(err).Msg("Failed to create model extractor")
	}
	interpreter := extract.NewInterpreter(log, extractors...)

	insightsGen, err := insights.NewGenerator()
	switch {
	case err == nil:
	case errors.Is(err, extract.ErrNotConfigured):
		log.Warn().Msg("GEMINI_API_KEY not set - insight generation is disabled")
	default:
		log.Fatal().Err(err).Msg("Failed to create insights generator")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 5, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		insightJob, ok := job.(*jobs.InsightJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		if insightsGen == nil {
			return extract.ErrNotConfigured
		}

		log.Info().
			Str("job_id", insightJob.JobID).
			Str("user_id", insightJob.UserID).
			Msg("Processing insight job")

		rows, err := store.ListTransactionsByUser(ctx, insightJob.UserID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		transactions := make([]domain.Transaction, len(rows))
		for i, row := range rows {
			transactions[i] = row.Domain()
		}

		text, err := insightsGen.Generate(ctx, transactions)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", insightJob.JobID).
				Msg("Insight generation failed")
			return err
		}

		insightJob.Result = text

		log.Info().
			Str("job_id", insightJob.JobID).
			Msg("Insight job completed")
		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, sessions, *secureCookies, log)
	assistantHandler := handlers.NewAssistantHandler(interpreter, log)
	transactionsHandler := handlers.NewTransactionsHandler(store, log)
	healthScoreHandler := handlers.NewHealthScoreHandler(store, log)
	insightsHandler := handlers.NewInsightsHandler(jobQueue, jobStore, log)

	requireSession := middleware.RequireSession(sessions)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireSession(h)
	}

	mux := http.NewServeMux()

	// Auth endpoints (public)
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Register(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Logout(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Assistant endpoint
	mux.Handle("/api/assistant/parse", protected(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assistantHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}))

	// Transactions endpoints
	mux.Handle("/api/transactions", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}))

	mux.Handle("/api/transactions/", protected(func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}))

	// Health score endpoint
	mux.Handle("/api/health-score", protected(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			healthScoreHandler.GetHealthScore(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}))

	// Insights endpoints
	mux.Handle("/api/insights", protected(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if insightsGen == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Insight generation is not configured")
			return
		}
		insightsHandler.RequestInsights(w, r)
	}))

	mux.Handle("/api/insights/", protected(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/insights/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			insightsHandler.GetInsightJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
