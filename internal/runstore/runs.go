package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// Create inserts a pending run. An empty ID is replaced with a new UUID.
func (s *Store) Create(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.OrderID) == "" {
		return nil, errors.New("run requires an order id")
	}
	if strings.TrimSpace(run.ProductID) == "" {
		return nil, errors.New("run requires a product id")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	timestamp := formatTime(now())

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            id, order_id, product_id, title, language, status, stage,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.OrderID,
		run.ProductID,
		nullableString(run.Title),
		nullableString(run.Language),
		run.Status,
		nullableString(run.Stage),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.Get(ctx, run.ID)
}

// SetStage records the stage a run is currently executing and marks it running.
func (s *Store) SetStage(ctx context.Context, id, stage string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, stage = ?, updated_at = ? WHERE id = ?`,
		StatusRunning,
		nullableString(stage),
		formatTime(now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run stage: %w", err)
	}
	return requireRow(res, id)
}

// Fail marks a run failed with the error message and classification. The stage
// column keeps the stage the run stopped in.
func (s *Store) Fail(ctx context.Context, id, message, kind string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, error_kind = ?, updated_at = ? WHERE id = ?`,
		StatusFailed,
		nullableString(message),
		nullableString(kind),
		formatTime(now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return requireRow(res, id)
}

// Complete marks a run succeeded and records its archive.
func (s *Store) Complete(ctx context.Context, id string, archive Archive) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = NULL, error_kind = NULL,
            archive_path = ?, archive_sha256 = ?, archive_bytes = ?, remote_key = ?,
            updated_at = ?
        WHERE id = ?`,
		StatusSucceeded,
		nullableString(archive.Path),
		nullableString(archive.SHA256),
		nullableInt(archive.Bytes),
		nullableString(archive.RemoteKey),
		formatTime(now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return requireRow(res, id)
}

// Get fetches a run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Run, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if filter.OrderID != "" {
		clauses = append(clauses, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Remove deletes a run and its logs.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return requireRow(res, id)
}
