package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmvega/xlsx-loader/internal/domain"
	"github.com/jmvega/xlsx-loader/internal/notify"
	"github.com/jmvega/xlsx-loader/internal/tasks"
)

func newTestService(personas *stubPersonaRepo, runs *stubRunRepo, runner *tasks.Runner, threshold int) (*Service, *captureListener) {
	hub := notify.NewHub()
	listener := &captureListener{}
	hub.Subscribe(listener)

	tracker := NewTracker(runs)
	service := NewService(personas, tracker, hub, runner, threshold)
	return service, listener
}

const csvHeader = "nombre,apellido,edad,correo,tipo_sangre\n"

func TestSubmitAcceptsFreshFile(t *testing.T) {
	personas := newStubPersonaRepo()
	runs := newStubRunRepo()
	service, listener := newTestService(personas, runs, nil, 1000)

	data := csvHeader +
		"Ana,Lopez,30,ana@x.com,A+\n" +
		"Luis,Diaz,40,luis@x.com,O-\n"

	result, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if result.Async {
		t.Fatalf("small file must run inline")
	}

	report := result.Report
	if report.TotalRows != 2 || report.Accepted != 2 || report.Duplicates != 0 || report.Invalid != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Accepted+report.Duplicates+report.Invalid != report.TotalRows {
		t.Fatalf("outcome counts must sum to total: %+v", report)
	}

	if len(personas.batches) != 1 || len(personas.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %+v", personas.batches)
	}
	if personas.batches[0][0].ID == 0 {
		t.Fatalf("committed records must carry store-assigned ids")
	}

	run, err := runs.GetByID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("run lookup failed: %v", err)
	}
	if run.Status != domain.RunCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	if run.AcceptedCount != 2 || run.CompletedAt == nil {
		t.Fatalf("finalization did not record counts: %+v", run)
	}

	if len(listener.byType(domain.EventUploadStart)) != 1 {
		t.Fatalf("expected upload_start event")
	}
	if len(listener.byType(domain.EventUploadComplete)) != 1 {
		t.Fatalf("expected upload_complete event")
	}
	if len(listener.byType(domain.EventDuplicatesDetected)) != 0 {
		t.Fatalf("no duplicates expected")
	}
}

func TestSubmitResubmissionIsAllDuplicates(t *testing.T) {
	personas := newStubPersonaRepo()
	runs := newStubRunRepo()
	service, _ := newTestService(personas, runs, nil, 1000)

	data := csvHeader +
		"Ana,Lopez,30,ana@x.com,A+\n" +
		"Luis,Diaz,40,luis@x.com,O-\n"

	first, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if first.Report.Accepted != 2 || first.Report.Duplicates != 0 {
		t.Fatalf("unexpected first report: %+v", first.Report)
	}

	second, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if second.Report.Accepted != 0 || second.Report.Duplicates != 2 {
		t.Fatalf("unexpected second report: %+v", second.Report)
	}
	for _, dup := range second.Report.DuplicateDetails {
		if dup.Reason != ReasonAlreadyRegistered {
			t.Fatalf("expected store-duplicate reason, got %q", dup.Reason)
		}
	}
}

func TestSubmitCatchesInFileDuplicatesCaseInsensitive(t *testing.T) {
	personas := newStubPersonaRepo()
	runs := newStubRunRepo()
	service, listener := newTestService(personas, runs, nil, 1000)

	data := csvHeader +
		"Ana,Lopez,30,ana@x.com,A+\n" +
		"Ana,Lopez,30,ANA@X.COM,A+\n"

	result, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	report := result.Report
	if report.Accepted != 1 || report.Duplicates != 1 || report.Invalid != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	dup := report.DuplicateDetails[0]
	if dup.Row != 3 {
		t.Fatalf("the later row is the duplicate, got row %d", dup.Row)
	}
	if dup.Email != "ana@x.com" {
		t.Fatalf("duplicate email must be normalized, got %q", dup.Email)
	}
	if dup.Reason != ReasonDuplicateInFile {
		t.Fatalf("expected in-file reason, got %q", dup.Reason)
	}

	if len(listener.byType(domain.EventDuplicatesDetected)) != 1 {
		t.Fatalf("expected duplicates_detected event")
	}
}

func TestSubmitMixedOutcomesSumToTotal(t *testing.T) {
	personas := newStubPersonaRepo()
	personas.existing["previo@x.com"] = domain.Persona{ID: 9, Email: "previo@x.com"}
	runs := newStubRunRepo()
	service, _ := newTestService(personas, runs, nil, 1000)

	data := csvHeader +
		"Ana,Lopez,30,ana@x.com,A+\n" +
		"Mal,Dato,151,mal@x.com,A+\n" +
		"Otra,Vez,20,previo@x.com,B-\n" +
		",,,,\n" +
		"Luis,Diaz,40,luis@x.com,O-\n"

	result, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}

	report := result.Report
	if report.TotalRows != 4 {
		t.Fatalf("blank row must not count, got total %d", report.TotalRows)
	}
	if report.Accepted != 2 || report.Duplicates != 1 || report.Invalid != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Accepted+report.Duplicates+report.Invalid != report.TotalRows {
		t.Fatalf("outcome counts must sum to total: %+v", report)
	}
	if report.InvalidDetails[0].Row != 3 {
		t.Fatalf("invalid detail should reference file row 3, got %d", report.InvalidDetails[0].Row)
	}
}

func TestSubmitStructureErrorCreatesNoRun(t *testing.T) {
	personas := newStubPersonaRepo()
	runs := newStubRunRepo()
	service, listener := newTestService(personas, runs, nil, 1000)

	data := "nombre,apellido,edad,tipo_sangre\nAna,Lopez,30,A+\n"

	_, err := service.Submit(context.Background(), "people.csv", []byte(data))
	var structureErr *StructureError
	if !errors.As(err, &structureErr) {
		t.Fatalf("expected StructureError, got %v", err)
	}

	if len(runs.runs) != 0 {
		t.Fatalf("no run must be created on structure error")
	}
	if len(personas.batches) != 0 {
		t.Fatalf("nothing must be persisted on structure error")
	}
	if len(listener.byType(domain.EventUploadError)) != 1 {
		t.Fatalf("expected upload_error event")
	}
}

func TestSubmitStoreFailureFinalizesFailed(t *testing.T) {
	personas := newStubPersonaRepo()
	personas.createErr = errors.New("connection lost")
	runs := newStubRunRepo()
	service, listener := newTestService(personas, runs, nil, 1000)

	data := csvHeader + "Ana,Lopez,30,ana@x.com,A+\n"

	result, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err == nil {
		t.Fatalf("expected store failure to propagate, got %+v", result)
	}

	if len(runs.runs) != 1 {
		t.Fatalf("expected one run record, got %d", len(runs.runs))
	}
	run, _ := runs.GetByID(context.Background(), 1)
	if run.Status != domain.RunFailed {
		t.Fatalf("run must be finalized FAILED, got %s", run.Status)
	}
	if run.CompletedAt == nil {
		t.Fatalf("failed run must carry a completion timestamp")
	}
	if len(run.InvalidDetails) == 0 || !strings.Contains(run.InvalidDetails[0].Violations[0], "connection lost") {
		t.Fatalf("failure cause must be recorded, got %+v", run.InvalidDetails)
	}
	if len(listener.byType(domain.EventUploadError)) != 1 {
		t.Fatalf("expected upload_error event")
	}
}

func TestSubmitDispatchesLargeFileToRunner(t *testing.T) {
	personas := newStubPersonaRepo()
	runs := newStubRunRepo()

	runner := tasks.NewRunner(4, time.Minute)
	runner.Start()
	defer runner.Stop()

	service, listener := newTestService(personas, runs, runner, 2)

	data := csvHeader +
		"Ana,Lopez,30,ana@x.com,A+\n" +
		"Luis,Diaz,40,luis@x.com,O-\n" +
		"Eva,Gil,25,eva@x.com,B+\n"

	result, err := service.Submit(context.Background(), "people.csv", []byte(data))
	if err != nil {
		t.Fatalf("submit returned error: %v", err)
	}
	if !result.Async || result.TaskID == "" {
		t.Fatalf("file above threshold must dispatch, got %+v", result)
	}
	if result.Report != nil {
		t.Fatalf("async submission must not return a report")
	}

	// The background worker owns completion; poll until it finalizes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := runs.GetByTaskID(context.Background(), result.TaskID)
		if err == nil && run.Status.Terminal() {
			if run.Status != domain.RunCompleted {
				t.Fatalf("expected completed run, got %s", run.Status)
			}
			if run.AcceptedCount != 3 {
				t.Fatalf("expected 3 accepted, got %d", run.AcceptedCount)
			}
			if !run.Async || run.TaskID != result.TaskID {
				t.Fatalf("run must record its task id: %+v", run)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("background run never finalized")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(listener.byType(domain.EventUploadProgress)) == 0 {
		t.Fatalf("expected progress events for a background run")
	}
}
