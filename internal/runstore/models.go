package runstore

import (
	"errors"
	"strings"
	"time"
)

// Status is the lifecycle of a production run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("run not found")

// ParseStatus maps a user-supplied status name onto a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusRunning:
		return StatusRunning, true
	case StatusSucceeded:
		return StatusSucceeded, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Run is one persisted production run.
type Run struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	ProductID     string    `json:"productId"`
	Title         string    `json:"title,omitempty"`
	Language      string    `json:"language,omitempty"`
	Status        Status    `json:"status"`
	Stage         string    `json:"stage,omitempty"`
	ErrorMessage  string    `json:"error,omitempty"`
	ErrorKind     string    `json:"errorKind,omitempty"`
	ArchivePath   string    `json:"archivePath,omitempty"`
	ArchiveSHA256 string    `json:"archiveSha256,omitempty"`
	ArchiveBytes  int64     `json:"archiveBytes,omitempty"`
	RemoteKey     string    `json:"remoteKey,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Archive describes the packaged output of a successful run.
type Archive struct {
	Path      string
	SHA256    string
	Bytes     int64
	RemoteKey string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	OrderID  string
	Statuses []Status
	Limit    int
}
