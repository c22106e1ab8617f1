package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// InsertTransaction writes one confirmed ledger entry.
func (s *Store) InsertTransaction(ctx context.Context, row *TransactionRow) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s
			(transaction_id, user_id, transaction_date, description, amount, type, category, created_ts)
		VALUES
			(@transaction_id, @user_id, @transaction_date, @description, @amount, @type, @category, @created_ts)
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "type", Value: row.Type},
		{Name: "category", Value: row.Category},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// ListTransactionsByUser returns the user's ledger, newest first with
// insertion order breaking date ties.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]*TransactionRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id, user_id, transaction_date, description,
			amount, type, category, created_ts, updated_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, created_ts DESC
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByUser: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// UpdateTransaction rewrites the editable fields of the user's own row.
// A row that is missing or owned by someone else yields ErrNotFound.
func (s *Store) UpdateTransaction(ctx context.Context, userID, transactionID string, entry domain.ParsedEntry) error {
	date, err := civil.ParseDate(entry.Date)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: parse date %q: %w", entry.Date, err)
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET transaction_date = @transaction_date,
			description = @description,
			amount = @amount,
			type = @type,
			category = @category,
			updated_ts = CURRENT_TIMESTAMP()
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_date", Value: date},
		{Name: "description", Value: entry.Description},
		{Name: "amount", Value: ratFromFloat(entry.Amount)},
		{Name: "type", Value: string(entry.Type)},
		{Name: "category", Value: string(entry.Category)},
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes the user's own row, or reports ErrNotFound.
func (s *Store) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id
	`, s.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
