package domain

import "time"

// EventType names the live notification kinds pushed to subscribers.
type EventType string

const (
	EventUploadStart        EventType = "upload_start"
	EventUploadProgress     EventType = "upload_progress"
	EventUploadComplete     EventType = "upload_complete"
	EventUploadError        EventType = "upload_error"
	EventDuplicatesDetected EventType = "duplicates_detected"
)

// Event is the wire envelope for one notification. Events are ephemeral and
// never persisted.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// UploadStartPayload announces that a file began processing.
type UploadStartPayload struct {
	Filename     string    `json:"filename"`
	TotalRecords int       `json:"total_records"`
	Timestamp    time.Time `json:"timestamp"`
}

// UploadProgressPayload reports background task progress as a 0-100 percentage.
type UploadProgressPayload struct {
	TaskID    string    `json:"task_id"`
	Progress  int       `json:"progress"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// UploadCompletePayload carries the final counts of a finished run.
type UploadCompletePayload struct {
	Filename         string      `json:"filename"`
	Accepted         int         `json:"exitosos"`
	Duplicates       int         `json:"duplicados"`
	Invalid          int         `json:"errores"`
	DuplicateDetails []Duplicate `json:"detalles_duplicados"`
	Timestamp        time.Time   `json:"timestamp"`
}

// UploadErrorPayload reports a run that aborted before completing.
type UploadErrorPayload struct {
	Filename  string    `json:"filename"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// DuplicatesDetectedPayload lists the duplicates found during one run.
type DuplicatesDetectedPayload struct {
	Duplicates []Duplicate `json:"duplicados"`
	Total      int         `json:"total"`
	Timestamp  time.Time   `json:"timestamp"`
}

func NewUploadStart(filename string, totalRecords int) Event {
	return Event{Type: EventUploadStart, Data: UploadStartPayload{
		Filename:     filename,
		TotalRecords: totalRecords,
		Timestamp:    time.Now().UTC(),
	}}
}

func NewUploadProgress(taskID string, processed, total int) Event {
	progress := 0
	if total > 0 {
		progress = processed * 100 / total
	}
	return Event{Type: EventUploadProgress, Data: UploadProgressPayload{
		TaskID:    taskID,
		Progress:  progress,
		Processed: processed,
		Total:     total,
		Timestamp: time.Now().UTC(),
	}}
}

func NewUploadComplete(filename string, accepted, duplicates, invalid int, duplicateDetails []Duplicate) Event {
	if duplicateDetails == nil {
		duplicateDetails = []Duplicate{}
	}
	return Event{Type: EventUploadComplete, Data: UploadCompletePayload{
		Filename:         filename,
		Accepted:         accepted,
		Duplicates:       duplicates,
		Invalid:          invalid,
		DuplicateDetails: duplicateDetails,
		Timestamp:        time.Now().UTC(),
	}}
}

func NewUploadError(filename, message string) Event {
	return Event{Type: EventUploadError, Data: UploadErrorPayload{
		Filename:  filename,
		Error:     message,
		Timestamp: time.Now().UTC(),
	}}
}

func NewDuplicatesDetected(duplicates []Duplicate) Event {
	return Event{Type: EventDuplicatesDetected, Data: DuplicatesDetectedPayload{
		Duplicates: duplicates,
		Total:      len(duplicates),
		Timestamp:  time.Now().UTC(),
	}}
}
