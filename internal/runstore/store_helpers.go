package runstore

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = `id, order_id, product_id, title, language, status, stage,
    error_message, error_kind, archive_path, archive_sha256, archive_bytes,
    remote_key, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                                Run
		status                             string
		title, language, stage             sql.NullString
		errorMessage, errorKind            sql.NullString
		archivePath, archiveSHA, remoteKey sql.NullString
		archiveBytes                       sql.NullInt64
		createdRaw, updatedRaw             sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.OrderID,
		&run.ProductID,
		&title,
		&language,
		&status,
		&stage,
		&errorMessage,
		&errorKind,
		&archivePath,
		&archiveSHA,
		&archiveBytes,
		&remoteKey,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Title = title.String
	run.Language = language.String
	run.Stage = stage.String
	run.ErrorMessage = errorMessage.String
	run.ErrorKind = errorKind.String
	run.ArchivePath = archivePath.String
	run.ArchiveSHA256 = archiveSHA.String
	run.ArchiveBytes = archiveBytes.Int64
	run.RemoteKey = remoteKey.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
