package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

type UserRow struct {
	UserID       string    `bigquery:"user_id"`       // REQUIRED
	Name         string    `bigquery:"name"`          // REQUIRED
	Email        string    `bigquery:"email"`         // REQUIRED, unique by convention
	PasswordHash string    `bigquery:"password_hash"` // REQUIRED
	CreatedTS    time.Time `bigquery:"created_ts"`    // REQUIRED
}

// Domain converts the row to the domain user. The password hash never
// crosses this boundary.
func (r *UserRow) Domain() *domain.User {
	return &domain.User{
		ID:        r.UserID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: r.CreatedTS,
	}
}

type SessionRow struct {
	SessionID string    `bigquery:"session_id"` // REQUIRED, 64 hex chars
	UserID    string    `bigquery:"user_id"`    // REQUIRED
	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
	ExpiresTS time.Time `bigquery:"expires_ts"` // REQUIRED
}

type TransactionRow struct {
	TransactionID   string                 `bigquery:"transaction_id"`   // REQUIRED
	UserID          string                 `bigquery:"user_id"`          // REQUIRED
	TransactionDate civil.Date             `bigquery:"transaction_date"` // REQUIRED
	Description     string                 `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat               `bigquery:"amount"`           // REQUIRED NUMERIC, always >= 0
	Type            string                 `bigquery:"type"`             // REQUIRED, income|expense
	Category        string                 `bigquery:"category"`         // REQUIRED
	CreatedTS       time.Time              `bigquery:"created_ts"`       // REQUIRED
	UpdatedTS       bigquery.NullTimestamp `bigquery:"updated_ts"`       // NULLABLE
}

// MarshalJSON renders the NUMERIC amount as a 2-decimal string so API
// responses are stable regardless of the stored precision.
func (r *TransactionRow) MarshalJSON() ([]byte, error) {
	amount := ""
	if r.Amount != nil {
		amount = r.Amount.FloatString(2)
	}

	var updated *time.Time
	if r.UpdatedTS.Valid {
		updated = &r.UpdatedTS.Timestamp
	}

	return json.Marshal(struct {
		TransactionID string     `json:"id"`
		UserID        string     `json:"user_id"`
		Date          string     `json:"date"`
		Description   string     `json:"description"`
		Amount        string     `json:"amount"`
		Type          string     `json:"type"`
		Category      string     `json:"category"`
		CreatedTS     time.Time  `json:"created_at"`
		UpdatedTS     *time.Time `json:"updated_at,omitempty"`
	}{
		TransactionID: r.TransactionID,
		UserID:        r.UserID,
		Date:          r.TransactionDate.String(),
		Description:   r.Description,
		Amount:        amount,
		Type:          r.Type,
		Category:      r.Category,
		CreatedTS:     r.CreatedTS,
		UpdatedTS:     updated,
	})
}

// NewTransactionRow builds a row from a validated entry.
func NewTransactionRow(id, userID string, entry domain.ParsedEntry, now time.Time) (*TransactionRow, error) {
	date, err := civil.ParseDate(entry.Date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", entry.Date, err)
	}
	return &TransactionRow{
		TransactionID:   id,
		UserID:          userID,
		TransactionDate: date,
		Description:     entry.Description,
		Amount:          ratFromFloat(entry.Amount),
		Type:            string(entry.Type),
		Category:        string(entry.Category),
		CreatedTS:       now,
	}, nil
}

// Domain converts the row to a domain transaction.
func (r *TransactionRow) Domain() domain.Transaction {
	amount := 0.0
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Date:        r.TransactionDate.String(),
		Description: r.Description,
		Amount:      amount,
		Type:        domain.TransactionType(r.Type),
		Category:    domain.Category(r.Category),
		CreatedAt:   r.CreatedTS,
	}
}

func ratFromFloat(v float64) *big.Rat {
	r := new(big.Rat)
	r.SetFloat64(v)
	return r
}
