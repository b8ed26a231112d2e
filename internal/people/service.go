package people

import (
	"context"
	"fmt"
	"math"

	"github.com/jmvega/xlsx-loader/internal/domain"
	"github.com/jmvega/xlsx-loader/internal/repository"
)

// Service is the read side of the persona collection: listings and the
// aggregate statistics the dashboard shows.
type Service struct {
	personas repository.PersonaRepository
}

func NewService(personas repository.PersonaRepository) *Service {
	return &Service{personas: personas}
}

// Statistics aggregates the stored personas.
type Statistics struct {
	Total       int64                      `json:"total_personas"`
	ByBloodType map[domain.BloodType]int64 `json:"distribucion_tipo_sangre"`
	AverageAge  float64                    `json:"edad_promedio"`
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Persona, error) {
	return s.personas.List(ctx, limit, offset)
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	total, err := s.personas.Count(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to count personas: %w", err)
	}

	byBloodType, err := s.personas.CountByBloodType(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to group personas: %w", err)
	}

	average, err := s.personas.AverageAge(ctx)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to average ages: %w", err)
	}

	return Statistics{
		Total:       total,
		ByBloodType: byBloodType,
		AverageAge:  math.Round(average*100) / 100,
	}, nil
}
