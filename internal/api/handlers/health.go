package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/health"
)

// HealthScoreHandler computes the financial health report for the
// session user's ledger.
type HealthScoreHandler struct {
	store TransactionStore
	log   zerolog.Logger
}

func NewHealthScoreHandler(store TransactionStore, log zerolog.Logger) *HealthScoreHandler {
	return &HealthScoreHandler{store: store, log: log}
}

// GetHealthScore handles GET /api/health-score
func (h *HealthScoreHandler) GetHealthScore(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rows, err := h.store.ListTransactionsByUser(r.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute health score")
		return
	}

	// The scoring engine is never run on an empty ledger; every indicator
	// would bottom out and the report would read as alarming rather than
	// empty.
	if len(rows) == 0 {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "no_data",
			"message": "Add transactions to calculate your financial health score.",
		})
		return
	}

	transactions := make([]domain.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = row.Domain()
	}

	report := health.Score(transactions)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"report": report,
	})
}
