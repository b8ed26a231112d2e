package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmvega/xlsx-loader/internal/domain"
	"github.com/jmvega/xlsx-loader/internal/repository"
)

// ErrRunFinalized is returned when a caller tries to transition a run that
// already reached a terminal state. Finalization happens exactly once.
var ErrRunFinalized = errors.New("load run already finalized")

// Tracker owns the lifecycle of load run records: it creates them when
// processing starts and is the only writer of their finalization.
type Tracker struct {
	runs repository.LoadRunRepository
}

func NewTracker(runs repository.LoadRunRepository) *Tracker {
	return &Tracker{runs: runs}
}

// Start creates the run record with zeroed counts. Synchronous runs begin in
// PROCESSING; background runs begin in PENDING until the worker picks them up.
func (t *Tracker) Start(ctx context.Context, fileName string, totalRows int, async bool, taskID string) (domain.LoadRun, error) {
	status := domain.RunProcessing
	if async {
		status = domain.RunPending
	}

	run, err := t.runs.Create(ctx, domain.LoadRun{
		FileName:  fileName,
		TotalRows: totalRows,
		Async:     async,
		TaskID:    taskID,
		Status:    status,
	})
	if err != nil {
		return domain.LoadRun{}, fmt.Errorf("failed to start load run: %w", err)
	}
	return run, nil
}

// MarkProcessing moves a pending background run to PROCESSING. This is a
// status-only update, distinct from finalization.
func (t *Tracker) MarkProcessing(ctx context.Context, runID int64) error {
	run, err := t.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return fmt.Errorf("%w: run %d is %s", ErrRunFinalized, runID, run.Status)
	}

	status := domain.RunProcessing
	_, err = t.runs.Update(ctx, runID, domain.LoadRunUpdate{Status: &status})
	return err
}

// FinalizeSuccess transitions the run to COMPLETED with its final counts and
// detail lists. Legal only from PENDING or PROCESSING; re-finalizing a
// terminal run is reported as ErrRunFinalized, never silently overwritten.
func (t *Tracker) FinalizeSuccess(ctx context.Context, runID int64, accepted int, duplicates []domain.Duplicate, invalids []domain.Invalid) (domain.LoadRun, error) {
	run, err := t.runs.GetByID(ctx, runID)
	if err != nil {
		return domain.LoadRun{}, err
	}
	if run.Status.Terminal() {
		return domain.LoadRun{}, fmt.Errorf("%w: run %d is %s", ErrRunFinalized, runID, run.Status)
	}

	if duplicates == nil {
		duplicates = []domain.Duplicate{}
	}
	if invalids == nil {
		invalids = []domain.Invalid{}
	}

	status := domain.RunCompleted
	duplicateCount := len(duplicates)
	invalidCount := len(invalids)
	completedAt := time.Now().UTC()

	return t.runs.Update(ctx, runID, domain.LoadRunUpdate{
		Status:           &status,
		AcceptedCount:    &accepted,
		DuplicateCount:   &duplicateCount,
		InvalidCount:     &invalidCount,
		DuplicateDetails: duplicates,
		InvalidDetails:   invalids,
		CompletedAt:      &completedAt,
	})
}

// FinalizeFailure transitions the run to FAILED, recording the cause and
// leaving counts at their last known value. Legal from any non-terminal state.
func (t *Tracker) FinalizeFailure(ctx context.Context, runID int64, cause error) (domain.LoadRun, error) {
	run, err := t.runs.GetByID(ctx, runID)
	if err != nil {
		return domain.LoadRun{}, err
	}
	if run.Status.Terminal() {
		return domain.LoadRun{}, fmt.Errorf("%w: run %d is %s", ErrRunFinalized, runID, run.Status)
	}

	status := domain.RunFailed
	completedAt := time.Now().UTC()

	return t.runs.Update(ctx, runID, domain.LoadRunUpdate{
		Status:         &status,
		InvalidDetails: []domain.Invalid{{Violations: []string{cause.Error()}}},
		CompletedAt:    &completedAt,
	})
}

// ByTaskID resolves a run from its background task identifier.
func (t *Tracker) ByTaskID(ctx context.Context, taskID string) (domain.LoadRun, error) {
	return t.runs.GetByTaskID(ctx, taskID)
}

// History lists past runs, newest first.
func (t *Tracker) History(ctx context.Context, limit, offset int) ([]domain.LoadRun, error) {
	return t.runs.List(ctx, limit, offset)
}
