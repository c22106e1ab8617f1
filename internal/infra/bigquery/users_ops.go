package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertUser writes a new user row. Email uniqueness is enforced by callers
// via FindUserByEmail before insert.
func (s *Store) InsertUser(ctx context.Context, row *UserRow) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (user_id, name, email, password_hash, created_ts)
		VALUES (@user_id, @name, @email, @password_hash, @created_ts)
	`, s.table(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: row.UserID},
		{Name: "name", Value: row.Name},
		{Name: "email", Value: row.Email},
		{Name: "password_hash", Value: row.PasswordHash},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertUser: %w", err)
	}
	return nil
}

// FindUserByEmail returns the full row, password hash included, for login
// checks. Missing users return ErrNotFound.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*UserRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT user_id, name, email, password_hash, created_ts
		FROM %s
		WHERE email = @email
		LIMIT 1
	`, s.table(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "email", Value: email},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindUserByEmail: query read: %w", err)
	}

	var row UserRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("FindUserByEmail: iter next: %w", err)
	}
	return &row, nil
}

// GetUser returns the row for a user ID, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, userID string) (*UserRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT user_id, name, email, password_hash, created_ts
		FROM %s
		WHERE user_id = @user_id
		LIMIT 1
	`, s.table(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUser: query read: %w", err)
	}

	var row UserRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetUser: iter next: %w", err)
	}
	return &row, nil
}
