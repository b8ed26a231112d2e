package ingestion

import (
	"context"
	"sync"

	"github.com/jmvega/xlsx-loader/internal/domain"
	"github.com/jmvega/xlsx-loader/internal/repository"
)

type stubPersonaRepo struct {
	mu       sync.Mutex
	existing map[string]domain.Persona
	batches  [][]domain.Persona
	nextID   int64

	lookupErr error
	createErr error
}

func newStubPersonaRepo() *stubPersonaRepo {
	return &stubPersonaRepo{existing: map[string]domain.Persona{}}
}

func (s *stubPersonaRepo) GetByEmail(_ context.Context, email string) (*domain.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if persona, ok := s.existing[email]; ok {
		return &persona, nil
	}
	return nil, nil
}

func (s *stubPersonaRepo) CreateBatch(_ context.Context, personas []domain.Persona) ([]domain.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}

	created := make([]domain.Persona, 0, len(personas))
	for _, persona := range personas {
		s.nextID++
		persona.ID = s.nextID
		s.existing[persona.Email] = persona
		created = append(created, persona)
	}
	s.batches = append(s.batches, created)
	return created, nil
}

func (s *stubPersonaRepo) List(_ context.Context, _, _ int) ([]domain.Persona, error) {
	return nil, nil
}

func (s *stubPersonaRepo) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.existing)), nil
}

func (s *stubPersonaRepo) CountByBloodType(_ context.Context) (map[domain.BloodType]int64, error) {
	return map[domain.BloodType]int64{}, nil
}

func (s *stubPersonaRepo) AverageAge(_ context.Context) (float64, error) {
	return 0, nil
}

type stubRunRepo struct {
	mu     sync.Mutex
	runs   map[int64]domain.LoadRun
	nextID int64
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: map[int64]domain.LoadRun{}}
}

func (s *stubRunRepo) Create(_ context.Context, run domain.LoadRun) (domain.LoadRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	run.ID = s.nextID
	s.runs[run.ID] = run
	return run, nil
}

func (s *stubRunRepo) GetByID(_ context.Context, id int64) (domain.LoadRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.LoadRun{}, repository.ErrRunNotFound
	}
	return run, nil
}

func (s *stubRunRepo) GetByTaskID(_ context.Context, taskID string) (domain.LoadRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		if run.TaskID == taskID && taskID != "" {
			return run, nil
		}
	}
	return domain.LoadRun{}, repository.ErrRunNotFound
}

func (s *stubRunRepo) List(_ context.Context, _, _ int) ([]domain.LoadRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]domain.LoadRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *stubRunRepo) Update(_ context.Context, id int64, update domain.LoadRunUpdate) (domain.LoadRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.LoadRun{}, repository.ErrRunNotFound
	}

	if update.Status != nil {
		run.Status = *update.Status
	}
	if update.AcceptedCount != nil {
		run.AcceptedCount = *update.AcceptedCount
	}
	if update.DuplicateCount != nil {
		run.DuplicateCount = *update.DuplicateCount
	}
	if update.InvalidCount != nil {
		run.InvalidCount = *update.InvalidCount
	}
	if update.DuplicateDetails != nil {
		run.DuplicateDetails = update.DuplicateDetails
	}
	if update.InvalidDetails != nil {
		run.InvalidDetails = update.InvalidDetails
	}
	if update.CompletedAt != nil {
		run.CompletedAt = update.CompletedAt
	}

	s.runs[id] = run
	return run, nil
}

// captureListener records broadcast events for assertions.
type captureListener struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *captureListener) Send(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureListener) byType(kind domain.EventType) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, event := range c.events {
		if event.Type == kind {
			out = append(out, event)
		}
	}
	return out
}
