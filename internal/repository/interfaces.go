package repository

import (
	"context"

	"github.com/jmvega/xlsx-loader/internal/domain"
)

// PersonaRepository defines the persistent store for person records. The
// unique constraint on correo is the authority for email uniqueness; the
// pipeline's in-memory duplicate checks are an optimization on top of it.
type PersonaRepository interface {
	// GetByEmail looks up a persona by normalized email. A missing record
	// returns (nil, nil).
	GetByEmail(ctx context.Context, email string) (*domain.Persona, error)
	// CreateBatch persists the whole batch in one transaction and returns
	// the records with store-assigned identifiers. An empty batch is a
	// no-op.
	CreateBatch(ctx context.Context, personas []domain.Persona) ([]domain.Persona, error)
	List(ctx context.Context, limit, offset int) ([]domain.Persona, error)
	Count(ctx context.Context) (int64, error)
	CountByBloodType(ctx context.Context) (map[domain.BloodType]int64, error)
	AverageAge(ctx context.Context) (float64, error)
}

// LoadRunRepository persists the history record of each ingestion run.
type LoadRunRepository interface {
	Create(ctx context.Context, run domain.LoadRun) (domain.LoadRun, error)
	GetByID(ctx context.Context, id int64) (domain.LoadRun, error)
	// GetByTaskID resolves a run from the background task identifier that
	// dispatched it.
	GetByTaskID(ctx context.Context, taskID string) (domain.LoadRun, error)
	List(ctx context.Context, limit, offset int) ([]domain.LoadRun, error)
	Update(ctx context.Context, id int64, update domain.LoadRunUpdate) (domain.LoadRun, error)
}
