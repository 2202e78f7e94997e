package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// BatchReport records the outcome of one batch: its terminal state plus
// per-record counts and the ids needed to target a rerun or manual fix.
type BatchReport struct {
	File         string
	Index        int
	State        BatchState
	Loaded       int
	Succeeded    int
	Skipped      int
	Failed       int
	Inserted     int
	Updated      int
	DroppedIDs   []string
	FailedItems  map[string]string
	EmbeddedIDs  []string
	TextChanged  int
	Deduplicated int
}

// NewBatchReport creates a BatchReport for the given file and batch index.
func NewBatchReport(file string, index int) *BatchReport {
	return &BatchReport{
		File:        file,
		Index:       index,
		State:       NewBatchState(),
		FailedItems: make(map[string]string),
	}
}

// RecordItemFailure notes a record-level failure (id → reason) without
// failing the batch.
func (b *BatchReport) RecordItemFailure(id, reason string) {
	b.FailedItems[id] = reason
	b.Failed++
}

// FileReport aggregates the batches of one input file.
type FileReport struct {
	File    string
	Fatal   error
	Batches []*BatchReport
}

// Succeeded returns the file-level succeeded record count.
func (f FileReport) Succeeded() int {
	n := 0
	for _, b := range f.Batches {
		n += b.Succeeded
	}
	return n
}

// Skipped returns the file-level skipped record count.
func (f FileReport) Skipped() int {
	n := 0
	for _, b := range f.Batches {
		n += b.Skipped
	}
	return n
}

// Failed returns the file-level failed record count.
func (f FileReport) Failed() int {
	n := 0
	for _, b := range f.Batches {
		n += b.Failed
	}
	return n
}

// RunReport aggregates a whole pipeline run. Record-level issues never fail
// the run; a non-nil Fatal means the run aborted on a structural failure.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Files      []*FileReport
	Fatal      error
}

// NewRunReport creates a RunReport.
func NewRunReport(runID string, startedAt time.Time) *RunReport {
	return &RunReport{RunID: runID, StartedAt: startedAt}
}

// FileReport returns (creating if needed) the report for the given file.
func (r *RunReport) FileReport(file string) *FileReport {
	for _, f := range r.Files {
		if f.File == file {
			return f
		}
	}
	f := &FileReport{File: file}
	r.Files = append(r.Files, f)
	return f
}

// FailedBatches returns every batch that terminated in failure, with the
// stage it failed at.
func (r *RunReport) FailedBatches() []*BatchReport {
	var failed []*BatchReport
	for _, f := range r.Files {
		for _, b := range f.Batches {
			if b.State.Failed() {
				failed = append(failed, b)
			}
		}
	}
	return failed
}

// Summary renders a per-file, per-batch human-readable summary.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d file(s)\n", r.RunID, len(r.Files))
	for _, f := range r.Files {
		if f.Fatal != nil {
			fmt.Fprintf(&b, "  %s: failed to load: %v\n", f.File, f.Fatal)
			continue
		}
		fmt.Fprintf(&b, "  %s: %d succeeded, %d skipped, %d failed\n",
			f.File, f.Succeeded(), f.Skipped(), f.Failed())
		for _, batch := range f.Batches {
			if batch.State.Failed() {
				fmt.Fprintf(&b, "    batch %d failed at %s: %v\n",
					batch.Index, batch.State.Stage(), batch.State.Err())
			}
		}
	}
	if r.Fatal != nil {
		fmt.Fprintf(&b, "  run aborted: %v\n", r.Fatal)
	}
	return b.String()
}
