package pipeline

import (
	"time"

	"bookforge/internal/book"
)

// StageSummary folds the workflow log entries of one stage.
type StageSummary struct {
	Stage    string         `json:"stage"`
	Attempts int            `json:"attempts"`
	Failures int            `json:"failures"`
	Status   book.LogStatus `json:"status"`
	Duration time.Duration  `json:"duration"`
	LastErr  string         `json:"lastError,omitempty"`
}

// SummarizeLogs groups entries by stage in first-seen order. Status is the
// status of the stage's last entry.
func SummarizeLogs(logs []book.WorkflowLog) []StageSummary {
	index := make(map[string]int)
	var out []StageSummary
	for _, entry := range logs {
		i, ok := index[entry.Stage]
		if !ok {
			i = len(out)
			index[entry.Stage] = i
			out = append(out, StageSummary{Stage: entry.Stage})
		}
		s := &out[i]
		s.Attempts++
		s.Duration += entry.Duration
		s.Status = entry.Status
		if entry.Status == book.LogFailed {
			s.Failures++
			s.LastErr = entry.Error
		}
	}
	return out
}
