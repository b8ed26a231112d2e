package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmvega/xlsx-loader/internal/db"
	"github.com/jmvega/xlsx-loader/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type personaRepository struct {
	conn *db.Connection
}

// NewPersonaRepository wires a repository backed by pgxpool.
func NewPersonaRepository(conn *db.Connection) PersonaRepository {
	return &personaRepository{conn: conn}
}

func (r *personaRepository) GetByEmail(ctx context.Context, email string) (*domain.Persona, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT id, nombre, apellido, edad, correo, tipo_sangre, created_at
		 FROM personas
		 WHERE correo = $1`,
		email,
	)

	persona, err := scanPersona(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get persona by email: %w", err)
	}
	return &persona, nil
}

// CreateBatch inserts every record inside a single transaction: either the
// whole batch lands or none of it does.
func (r *personaRepository) CreateBatch(ctx context.Context, personas []domain.Persona) ([]domain.Persona, error) {
	if len(personas) == 0 {
		return []domain.Persona{}, nil
	}

	created := make([]domain.Persona, 0, len(personas))
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, persona := range personas {
			row := tx.QueryRow(
				ctx,
				`INSERT INTO personas (nombre, apellido, edad, correo, tipo_sangre)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id, created_at`,
				persona.FirstName,
				persona.LastName,
				persona.Age,
				persona.Email,
				string(persona.BloodType),
			)

			var createdAt pgtype.Timestamptz
			if err := row.Scan(&persona.ID, &createdAt); err != nil {
				return fmt.Errorf("failed to insert persona %s: %w", persona.Email, err)
			}
			if createdAt.Valid {
				persona.CreatedAt = createdAt.Time
			}
			created = append(created, persona)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *personaRepository) List(ctx context.Context, limit, offset int) ([]domain.Persona, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, nombre, apellido, edad, correo, tipo_sangre, created_at
		 FROM personas
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	personas := []domain.Persona{}
	for rows.Next() {
		persona, scanErr := scanPersona(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", scanErr)
		}
		personas = append(personas, persona)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", rowsErr)
	}

	return personas, nil
}

func (r *personaRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.conn.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM personas`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count personas: %w", err)
	}
	return total, nil
}

func (r *personaRepository) CountByBloodType(ctx context.Context) (map[domain.BloodType]int64, error) {
	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT tipo_sangre, COUNT(*) FROM personas GROUP BY tipo_sangre`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count personas by blood type: %w", err)
	}
	defer rows.Close()

	counts := map[domain.BloodType]int64{}
	for rows.Next() {
		var (
			bloodType string
			count     int64
		)
		if scanErr := rows.Scan(&bloodType, &count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan blood type count: %w", scanErr)
		}
		counts[domain.BloodType(bloodType)] = count
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate blood type counts: %w", rowsErr)
	}

	return counts, nil
}

func (r *personaRepository) AverageAge(ctx context.Context) (float64, error) {
	var average float64
	err := r.conn.Pool.QueryRow(ctx, `SELECT COALESCE(AVG(edad), 0) FROM personas`).Scan(&average)
	if err != nil {
		return 0, fmt.Errorf("failed to average persona ages: %w", err)
	}
	return average, nil
}

func scanPersona(row pgx.Row) (domain.Persona, error) {
	var (
		persona   domain.Persona
		bloodType string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&persona.ID,
		&persona.FirstName,
		&persona.LastName,
		&persona.Age,
		&persona.Email,
		&bloodType,
		&createdAt,
	); err != nil {
		return domain.Persona{}, err
	}

	persona.BloodType = domain.BloodType(bloodType)
	if createdAt.Valid {
		persona.CreatedAt = createdAt.Time
	}
	return persona, nil
}
