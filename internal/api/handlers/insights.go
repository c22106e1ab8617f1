package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/jobs"
)

// InsightsHandler enqueues insight-generation jobs and serves their
// status. Generation runs through the job queue because a model call can
// take several seconds; the client polls the job until it completes.
type InsightsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

func NewInsightsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{publisher: publisher, store: store, log: log}
}

// RequestInsights handles POST /api/insights
func (h *InsightsHandler) RequestInsights(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	job := &jobs.InsightJob{UserID: user.ID}
	if err := h.publisher.PublishInsight(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to enqueue insight job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to request insights")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("user_id", user.ID).
		Msg("Insight job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetInsightJob handles GET /api/insights/{job_id}
func (h *InsightsHandler) GetInsightJob(w http.ResponseWriter, r *http.Request, jobID string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	// Jobs belonging to other users are indistinguishable from missing
	// jobs, so job IDs leak nothing.
	if job.UserID != user.ID {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}
