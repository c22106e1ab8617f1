package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/api/middleware"
	"github.com/dvloznov/ledgerchat/internal/domain"
	bq "github.com/dvloznov/ledgerchat/internal/infra/bigquery"
)

// TransactionStore is the slice of the persistence layer the transaction
// handlers need.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, row *bq.TransactionRow) error
	ListTransactionsByUser(ctx context.Context, userID string) ([]*bq.TransactionRow, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, entry domain.ParsedEntry) error
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// TransactionsHandler handles ledger CRUD. Every operation is scoped to
// the session user; rows owned by other users behave as if they do not
// exist.
type TransactionsHandler struct {
	store TransactionStore
	log   zerolog.Logger
}

func NewTransactionsHandler(store TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: store, log: log}
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var entry domain.ParsedEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := entry.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := bq.NewTransactionRow(uuid.NewString(), user.ID, entry, time.Now().UTC())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.InsertTransaction(r.Context(), row); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to insert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save transaction")
		return
	}

	h.log.Info().
		Str("transaction_id", row.TransactionID).
		Str("user_id", user.ID).
		Str("type", row.Type).
		Str("category", row.Category).
		Msg("Transaction created")

	middleware.WriteJSON(w, http.StatusCreated, row)
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rows, err := h.store.ListTransactionsByUser(r.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// An empty ledger serializes as [] rather than null.
	if rows == nil {
		rows = []*bq.TransactionRow{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
	})
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var entry domain.ParsedEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := entry.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.UpdateTransaction(r.Context(), user.ID, transactionID, entry); err != nil {
		if errors.Is(err, bq.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).
			Str("transaction_id", transactionID).
			Str("user_id", user.ID).
			Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	h.log.Info().
		Str("transaction_id", transactionID).
		Str("user_id", user.ID).
		Msg("Transaction updated")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.store.DeleteTransaction(r.Context(), user.ID, transactionID); err != nil {
		if errors.Is(err, bq.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).
			Str("transaction_id", transactionID).
			Str("user_id", user.ID).
			Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	h.log.Info().
		Str("transaction_id", transactionID).
		Str("user_id", user.ID).
		Msg("Transaction deleted")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
