package domain

import "time"

// RunStatus tracks the lifecycle of one load run. Pending and Processing are
// transient; Completed and Failed are terminal.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// LoadRun is the persistent history record of one file ingestion attempt.
// Counts and detail lists stay zero until finalization, which happens exactly
// once.
type LoadRun struct {
	ID               int64       `json:"id"`
	FileName         string      `json:"nombre_archivo"`
	TotalRows        int         `json:"total_registros"`
	AcceptedCount    int         `json:"registros_exitosos"`
	DuplicateCount   int         `json:"registros_duplicados"`
	InvalidCount     int         `json:"registros_error"`
	Async            bool        `json:"fue_asincrono"`
	TaskID           string      `json:"task_id,omitempty"`
	Status           RunStatus   `json:"estado"`
	DuplicateDetails []Duplicate `json:"detalles_duplicados,omitempty"`
	InvalidDetails   []Invalid   `json:"detalles_errores,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
}

// LoadRunUpdate carries a partial update for a load run. Nil fields are left
// untouched by the repository.
type LoadRunUpdate struct {
	Status           *RunStatus
	AcceptedCount    *int
	DuplicateCount   *int
	InvalidCount     *int
	DuplicateDetails []Duplicate
	InvalidDetails   []Invalid
	CompletedAt      *time.Time
}
