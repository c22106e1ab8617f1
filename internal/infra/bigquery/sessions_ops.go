package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// InsertSession writes a new session row.
func (s *Store) InsertSession(ctx context.Context, session *domain.Session) error {
	q := s.client.Query(fmt.Sprintf(`
		INSERT INTO %s (session_id, user_id, created_ts, expires_ts)
		VALUES (@session_id, @user_id, @created_ts, @expires_ts)
	`, s.table(sessionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "session_id", Value: session.ID},
		{Name: "user_id", Value: session.UserID},
		{Name: "created_ts", Value: session.CreatedAt},
		{Name: "expires_ts", Value: session.ExpiresAt},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertSession: %w", err)
	}
	return nil
}

// ResolveSession joins the session to its user. Expired sessions behave
// exactly like missing ones.
func (s *Store) ResolveSession(ctx context.Context, sessionID string) (*domain.User, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT u.user_id, u.name, u.email, u.password_hash, u.created_ts
		FROM %s s
		INNER JOIN %s u ON s.user_id = u.user_id
		WHERE s.session_id = @session_id
		  AND s.expires_ts > CURRENT_TIMESTAMP()
		LIMIT 1
	`, s.table(sessionsTable), s.table(usersTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "session_id", Value: sessionID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ResolveSession: query read: %w", err)
	}

	var row UserRow
	if err := it.Next(&row); err != nil {
		if err == iterator.Done {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ResolveSession: iter next: %w", err)
	}
	return row.Domain(), nil
}

// DeleteSession removes a session row. Deleting a missing session is a
// no-op.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE session_id = @session_id
	`, s.table(sessionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "session_id", Value: sessionID},
	}

	if _, err := s.runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears stale rows and returns how many were removed.
// Run from cmd/cli as periodic maintenance.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE expires_ts <= CURRENT_TIMESTAMP()
	`, s.table(sessionsTable)))

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteExpiredSessions: %w", err)
	}
	return affected, nil
}
