// Package bigquery persists users, sessions and transactions in BigQuery.
// All mutations go through parameterized DML so rows stay editable right
// after insert, and every per-user operation carries an ownership predicate.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	usersTable        = "users"
	sessionsTable     = "sessions"
	transactionsTable = "transactions"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user; the two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("row not found")

// Store owns one shared BigQuery client.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// table returns the fully qualified, backtick-quoted table reference.
func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// runDML executes a DML statement and returns the number of affected rows.
func (s *Store) runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}
