package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmvega/xlsx-loader/internal/db"
	"github.com/jmvega/xlsx-loader/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrRunNotFound is returned when no load run matches the given identifier.
var ErrRunNotFound = errors.New("load run not found")

type loadRunRepository struct {
	conn *db.Connection
}

// NewLoadRunRepository wires a repository backed by pgxpool.
func NewLoadRunRepository(conn *db.Connection) LoadRunRepository {
	return &loadRunRepository{conn: conn}
}

func (r *loadRunRepository) Create(ctx context.Context, run domain.LoadRun) (domain.LoadRun, error) {
	var taskID any
	if run.TaskID != "" {
		taskID = run.TaskID
	}

	row := r.conn.Pool.QueryRow(
		ctx,
		`INSERT INTO historial_cargas
		 (nombre_archivo, total_registros, registros_exitosos, registros_duplicados,
		  registros_error, fue_asincrono, task_id, estado)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		run.FileName,
		run.TotalRows,
		run.AcceptedCount,
		run.DuplicateCount,
		run.InvalidCount,
		run.Async,
		taskID,
		string(run.Status),
	)

	var createdAt pgtype.Timestamptz
	if err := row.Scan(&run.ID, &createdAt); err != nil {
		return domain.LoadRun{}, fmt.Errorf("failed to create load run: %w", err)
	}
	if createdAt.Valid {
		run.CreatedAt = createdAt.Time
	}
	return run, nil
}

func (r *loadRunRepository) GetByID(ctx context.Context, id int64) (domain.LoadRun, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *loadRunRepository) GetByTaskID(ctx context.Context, taskID string) (domain.LoadRun, error) {
	return r.getOne(ctx, `WHERE task_id = $1`, taskID)
}

func (r *loadRunRepository) getOne(ctx context.Context, where string, arg any) (domain.LoadRun, error) {
	row := r.conn.Pool.QueryRow(
		ctx,
		`SELECT id, nombre_archivo, total_registros, registros_exitosos, registros_duplicados,
		        registros_error, fue_asincrono, task_id, estado, detalles_duplicados,
		        detalles_errores, created_at, completed_at
		 FROM historial_cargas `+where,
		arg,
	)

	run, err := scanLoadRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LoadRun{}, ErrRunNotFound
		}
		return domain.LoadRun{}, fmt.Errorf("failed to get load run: %w", err)
	}
	return run, nil
}

func (r *loadRunRepository) List(ctx context.Context, limit, offset int) ([]domain.LoadRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.Pool.Query(
		ctx,
		`SELECT id, nombre_archivo, total_registros, registros_exitosos, registros_duplicados,
		        registros_error, fue_asincrono, task_id, estado, detalles_duplicados,
		        detalles_errores, created_at, completed_at
		 FROM historial_cargas
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list load runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.LoadRun{}
	for rows.Next() {
		run, scanErr := scanLoadRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan load run: %w", scanErr)
		}
		runs = append(runs, run)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate load runs: %w", rowsErr)
	}

	return runs, nil
}

// Update writes only the fields set on the partial update, mirroring the
// single-shot finalization contract: the caller decides what changes, the
// repository never fills in defaults.
func (r *loadRunRepository) Update(ctx context.Context, id int64, update domain.LoadRunUpdate) (domain.LoadRun, error) {
	sets := []string{}
	args := []any{}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Status != nil {
		addSet("estado", string(*update.Status))
	}
	if update.AcceptedCount != nil {
		addSet("registros_exitosos", *update.AcceptedCount)
	}
	if update.DuplicateCount != nil {
		addSet("registros_duplicados", *update.DuplicateCount)
	}
	if update.InvalidCount != nil {
		addSet("registros_error", *update.InvalidCount)
	}
	if update.DuplicateDetails != nil {
		payload, err := json.Marshal(update.DuplicateDetails)
		if err != nil {
			return domain.LoadRun{}, fmt.Errorf("failed to encode duplicate details: %w", err)
		}
		addSet("detalles_duplicados", payload)
	}
	if update.InvalidDetails != nil {
		payload, err := json.Marshal(update.InvalidDetails)
		if err != nil {
			return domain.LoadRun{}, fmt.Errorf("failed to encode error details: %w", err)
		}
		addSet("detalles_errores", payload)
	}
	if update.CompletedAt != nil {
		addSet("completed_at", *update.CompletedAt)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE historial_cargas SET %s WHERE id = $%d
		 RETURNING id, nombre_archivo, total_registros, registros_exitosos, registros_duplicados,
		           registros_error, fue_asincrono, task_id, estado, detalles_duplicados,
		           detalles_errores, created_at, completed_at`,
		strings.Join(sets, ", "),
		len(args),
	)

	run, err := scanLoadRun(r.conn.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LoadRun{}, ErrRunNotFound
		}
		return domain.LoadRun{}, fmt.Errorf("failed to update load run: %w", err)
	}
	return run, nil
}

func scanLoadRun(row pgx.Row) (domain.LoadRun, error) {
	var (
		run              domain.LoadRun
		taskID           pgtype.Text
		status           string
		duplicateDetails []byte
		invalidDetails   []byte
		createdAt        pgtype.Timestamptz
		completedAt      pgtype.Timestamptz
	)
	if err := row.Scan(
		&run.ID,
		&run.FileName,
		&run.TotalRows,
		&run.AcceptedCount,
		&run.DuplicateCount,
		&run.InvalidCount,
		&run.Async,
		&taskID,
		&status,
		&duplicateDetails,
		&invalidDetails,
		&createdAt,
		&completedAt,
	); err != nil {
		return domain.LoadRun{}, err
	}

	if taskID.Valid {
		run.TaskID = taskID.String
	}
	run.Status = domain.RunStatus(status)
	if len(duplicateDetails) > 0 {
		if err := json.Unmarshal(duplicateDetails, &run.DuplicateDetails); err != nil {
			return domain.LoadRun{}, fmt.Errorf("failed to decode duplicate details: %w", err)
		}
	}
	if len(invalidDetails) > 0 {
		if err := json.Unmarshal(invalidDetails, &run.InvalidDetails); err != nil {
			return domain.LoadRun{}, fmt.Errorf("failed to decode error details: %w", err)
		}
	}
	if createdAt.Valid {
		run.CreatedAt = createdAt.Time
	}
	if completedAt.Valid {
		completed := completedAt.Time
		run.CompletedAt = &completed
	}
	return run, nil
}
