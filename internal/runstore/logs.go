package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bookforge/internal/book"
)

// AppendLog stores a workflow log entry after the run's existing entries.
func (s *Store) AppendLog(ctx context.Context, runID string, entry book.WorkflowLog) error {
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = now()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO workflow_logs (
            run_id, seq, stage, spread, attempt, status, error_message, error_kind,
            duration_ms, input_json, output_json, logged_at
        ) VALUES (
            ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM workflow_logs WHERE run_id = ?),
            ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
        )`,
		runID,
		runID,
		entry.Stage,
		entry.Spread,
		entry.Attempt,
		string(entry.Status),
		nullableString(entry.Error),
		nullableString(entry.ErrorKind),
		entry.Duration.Milliseconds(),
		nullableString(string(entry.Input)),
		nullableString(string(entry.Output)),
		formatTime(timestamp),
	)
	if err != nil {
		return fmt.Errorf("append workflow log: %w", err)
	}
	return nil
}

// Logs returns the run's workflow log in append order.
func (s *Store) Logs(ctx context.Context, runID string) ([]book.WorkflowLog, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, spread, attempt, status, error_message, error_kind,
            duration_ms, input_json, output_json, logged_at
        FROM workflow_logs WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query workflow logs: %w", err)
	}
	defer rows.Close()

	var logs []book.WorkflowLog
	for rows.Next() {
		var (
			entry                   book.WorkflowLog
			status                  string
			errorMessage, errorKind sql.NullString
			durationMS              int64
			input, output           sql.NullString
			loggedAt                string
		)
		if err := rows.Scan(
			&entry.Stage,
			&entry.Spread,
			&entry.Attempt,
			&status,
			&errorMessage,
			&errorKind,
			&durationMS,
			&input,
			&output,
			&loggedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow log: %w", err)
		}
		entry.Status = book.LogStatus(status)
		entry.Error = errorMessage.String
		entry.ErrorKind = errorKind.String
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if input.Valid {
			entry.Input = json.RawMessage(input.String)
		}
		if output.Valid {
			entry.Output = json.RawMessage(output.String)
		}
		if ts, err := parseTimeString(loggedAt); err == nil {
			entry.Timestamp = ts
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow logs: %w", err)
	}
	return logs, nil
}
