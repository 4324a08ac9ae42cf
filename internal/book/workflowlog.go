package book

import (
	"encoding/json"
	"time"
)

// LogStatus is the outcome recorded for one stage execution or attempt.
type LogStatus string

const (
	LogSucceeded LogStatus = "Succeeded"
	LogFailed    LogStatus = "Failed"
)

// WorkflowLog is one append-only record of a stage execution. Spread is zero for
// whole-stage entries and the 1-based spread number for render attempts
// (CoverSpread for the cover).
type WorkflowLog struct {
	Stage     string          `json:"stage"`
	Spread    int             `json:"spread,omitempty"`
	Attempt   int             `json:"attempt"`
	Timestamp time.Time       `json:"timestamp"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"errorKind,omitempty"`
	Status    LogStatus       `json:"status"`
	Duration  time.Duration   `json:"duration"`
}

// CoverSpread marks render log entries that belong to the cover call.
const CoverSpread = -1

// Snapshot marshals v for a log input/output field. Unencodable values are
// recorded as a JSON string describing the failure rather than dropped.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal("unencodable snapshot: " + err.Error())
	}
	return data
}
