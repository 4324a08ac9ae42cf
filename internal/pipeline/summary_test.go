package pipeline

import (
	"testing"
	"time"

	"bookforge/internal/book"
)

func TestSummarizeLogsGroupsByStage(t *testing.T) {
	logs := []book.WorkflowLog{
		{Stage: "skeleton", Status: book.LogSucceeded, Duration: time.Second},
		{Stage: "raster", Spread: 2, Status: book.LogFailed, Error: "quota", Duration: time.Second},
		{Stage: "raster", Spread: 2, Status: book.LogSucceeded, Duration: 2 * time.Second},
		{Stage: "layout", Status: book.LogFailed, Error: "decode cover"},
	}
	got := SummarizeLogs(logs)
	if len(got) != 3 {
		t.Fatalf("expected 3 stages, got %+v", got)
	}
	if got[0].Stage != "skeleton" || got[1].Stage != "raster" || got[2].Stage != "layout" {
		t.Fatalf("unexpected order %+v", got)
	}
	raster := got[1]
	if raster.Attempts != 2 || raster.Failures != 1 || raster.Status != book.LogSucceeded || raster.Duration != 3*time.Second {
		t.Fatalf("unexpected raster summary %+v", raster)
	}
	if got[2].Status != book.LogFailed || got[2].LastErr != "decode cover" {
		t.Fatalf("unexpected layout summary %+v", got[2])
	}
	if SummarizeLogs(nil) != nil {
		t.Fatal("expected nil summary for no logs")
	}
}
