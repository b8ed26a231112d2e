package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmvega/xlsx-loader/internal/domain"
	"github.com/jmvega/xlsx-loader/internal/notify"
	"github.com/jmvega/xlsx-loader/internal/repository"
	"github.com/jmvega/xlsx-loader/internal/tasks"

	"github.com/google/uuid"
)

// Duplicate reasons surfaced to users, matching the messages the frontend
// already displays.
const (
	ReasonAlreadyRegistered = "Correo ya registrado en la base de datos"
	ReasonDuplicateInFile   = "Correo duplicado en el archivo"
)

// Service runs the bulk load pipeline: decode, validate row by row, resolve
// duplicates in file order, commit new records as one batch, finalize the run
// record, and broadcast lifecycle events along the way.
type Service struct {
	personas  repository.PersonaRepository
	tracker   *Tracker
	hub       *notify.Hub
	runner    *tasks.Runner
	threshold int
}

// NewService wires the pipeline. Files with at least asyncThreshold decoded
// rows are handed to the runner; smaller files run inline.
func NewService(
	personas repository.PersonaRepository,
	tracker *Tracker,
	hub *notify.Hub,
	runner *tasks.Runner,
	asyncThreshold int,
) *Service {
	return &Service{
		personas:  personas,
		tracker:   tracker,
		hub:       hub,
		runner:    runner,
		threshold: asyncThreshold,
	}
}

// Report is the structured outcome of one completed run. The three counts
// always sum to TotalRows; blank rows were never counted.
type Report struct {
	FileName         string             `json:"nombre_archivo"`
	TotalRows        int                `json:"total_registros"`
	Accepted         int                `json:"registros_exitosos"`
	Duplicates       int                `json:"registros_duplicados"`
	Invalid          int                `json:"registros_error"`
	DuplicateDetails []domain.Duplicate `json:"detalles_duplicados"`
	InvalidDetails   []domain.Invalid   `json:"detalles_errores"`
}

// SubmitResult is what the upload endpoint returns: either the finished
// report (inline run) or the tracking identifiers of a dispatched task.
type SubmitResult struct {
	Async  bool
	RunID  int64
	TaskID string
	Report *Report
}

// Submit decodes the upload, picks the execution mode by row count, and either
// processes the file inline or dispatches it to the background runner. A
// structure error aborts before any run record is created.
func (s *Service) Submit(ctx context.Context, fileName string, payload []byte) (SubmitResult, error) {
	rows, err := Decode(fileName, payload)
	if err != nil {
		s.hub.Broadcast(domain.NewUploadError(fileName, err.Error()))
		return SubmitResult{}, err
	}

	if s.runner != nil && len(rows) >= s.threshold {
		return s.submitAsync(ctx, fileName, rows)
	}

	run, err := s.tracker.Start(ctx, fileName, len(rows), false, "")
	if err != nil {
		return SubmitResult{}, err
	}

	report, err := s.process(ctx, run, "", rows)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{RunID: run.ID, Report: report}, nil
}

func (s *Service) submitAsync(ctx context.Context, fileName string, rows []RawRow) (SubmitResult, error) {
	taskID := uuid.NewString()

	run, err := s.tracker.Start(ctx, fileName, len(rows), true, taskID)
	if err != nil {
		return SubmitResult{}, err
	}

	err = s.runner.Dispatch(taskID, func(taskCtx context.Context) {
		if err := s.tracker.MarkProcessing(taskCtx, run.ID); err != nil {
			slog.Error("failed to mark run processing", "run_id", run.ID, "error", err)
		}
		if _, err := s.process(taskCtx, run, taskID, rows); err != nil {
			slog.Error("background load failed", "run_id", run.ID, "task_id", taskID, "error", err)
		}
	})
	if err != nil {
		// The run was created but can never be picked up; close it out.
		if _, finErr := s.tracker.FinalizeFailure(ctx, run.ID, err); finErr != nil {
			slog.Error("failed to finalize undispatched run", "run_id", run.ID, "error", finErr)
		}
		return SubmitResult{}, fmt.Errorf("failed to dispatch load task: %w", err)
	}

	return SubmitResult{Async: true, RunID: run.ID, TaskID: taskID}, nil
}

// process drives one run to a terminal state. Row-level problems become
// outcomes and the pipeline continues; store failures abort and finalize the
// run FAILED.
func (s *Service) process(ctx context.Context, run domain.LoadRun, taskID string, rows []RawRow) (*Report, error) {
	s.hub.Broadcast(domain.NewUploadStart(run.FileName, len(rows)))

	var (
		candidates []domain.Persona
		duplicates []domain.Duplicate
		invalids   []domain.Invalid
	)

	// Duplicate resolution is first-writer-wins in file order: the seen set
	// holds emails claimed by earlier rows of this same batch, which the
	// store cannot know about yet.
	seen := make(map[string]struct{})
	progress := newProgressMeter(len(rows))

	for _, row := range rows {
		switch outcome := ValidateRow(row).(type) {
		case domain.Accepted:
			record := outcome.Record
			if _, claimed := seen[record.Email]; claimed {
				duplicates = append(duplicates, domain.Duplicate{
					Row:      row.Number,
					Email:    record.Email,
					FullName: record.FullName(),
					Reason:   ReasonDuplicateInFile,
				})
				break
			}

			existing, err := s.personas.GetByEmail(ctx, record.Email)
			if err != nil {
				return nil, s.fail(ctx, run, fmt.Errorf("failed to check for existing persona: %w", err))
			}
			if existing != nil {
				duplicates = append(duplicates, domain.Duplicate{
					Row:      row.Number,
					Email:    record.Email,
					FullName: record.FullName(),
					Reason:   ReasonAlreadyRegistered,
				})
				break
			}

			seen[record.Email] = struct{}{}
			candidates = append(candidates, record)
		case domain.Invalid:
			invalids = append(invalids, outcome)
		}

		if taskID != "" && progress.step() {
			s.hub.Broadcast(domain.NewUploadProgress(taskID, progress.processed, progress.total))
		}
	}

	created, err := s.personas.CreateBatch(ctx, candidates)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("failed to commit batch: %w", err))
	}

	if _, err := s.tracker.FinalizeSuccess(ctx, run.ID, len(created), duplicates, invalids); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	if len(duplicates) > 0 {
		s.hub.Broadcast(domain.NewDuplicatesDetected(duplicates))
	}
	s.hub.Broadcast(domain.NewUploadComplete(run.FileName, len(created), len(duplicates), len(invalids), duplicates))

	if duplicates == nil {
		duplicates = []domain.Duplicate{}
	}
	if invalids == nil {
		invalids = []domain.Invalid{}
	}
	return &Report{
		FileName:         run.FileName,
		TotalRows:        len(rows),
		Accepted:         len(created),
		Duplicates:       len(duplicates),
		Invalid:          len(invalids),
		DuplicateDetails: duplicates,
		InvalidDetails:   invalids,
	}, nil
}

// fail finalizes the run FAILED and reports the cause. The finalization uses
// a detached context so an expired task deadline still ends up recorded as a
// FAILED run instead of a silent drop.
func (s *Service) fail(ctx context.Context, run domain.LoadRun, cause error) error {
	finalizeCtx := context.WithoutCancel(ctx)
	if _, err := s.tracker.FinalizeFailure(finalizeCtx, run.ID, cause); err != nil && !errors.Is(err, ErrRunFinalized) {
		slog.Error("failed to finalize failed run", "run_id", run.ID, "error", err)
	}
	s.hub.Broadcast(domain.NewUploadError(run.FileName, cause.Error()))
	return cause
}

// progressMeter emits at most one tick per 10% of processed rows.
type progressMeter struct {
	total     int
	processed int
	lastTick  int
}

func newProgressMeter(total int) *progressMeter {
	return &progressMeter{total: total, lastTick: -1}
}

func (p *progressMeter) step() bool {
	p.processed++
	if p.total == 0 {
		return false
	}
	tick := p.processed * 10 / p.total
	if tick != p.lastTick {
		p.lastTick = tick
		return true
	}
	return false
}
