package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	Pool *pgxpool.Pool
}

type ImportCounts struct {
	Equipment int `json:"equipment"`
	Jobs      int `json:"jobs"`
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaSQL)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const equipmentColumns = `id, name, type, status, capacity, current_load, setup_time, min_quantity, max_quantity, heads, max_colors, screens, is_automatic, updated_at`

func (s *Store) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Equipment
	for rows.Next() {
		var (
			eq        models.Equipment
			kind      string
			heads     *int
			maxColors *int
			screens   *int
			automatic *bool
		)
		if err := rows.Scan(&eq.ID, &eq.Name, &kind, &eq.Status, &eq.Capacity, &eq.CurrentLoad, &eq.SetupTime, &eq.MinQuantity, &eq.MaxQuantity, &heads, &maxColors, &screens, &automatic, &eq.UpdatedAt); err != nil {
			return nil, err
		}
		eq.Kind, err = models.NewEquipmentKind(kind, derefInt(heads), derefInt(maxColors), derefInt(screens), automatic != nil && *automatic)
		if err != nil {
			return nil, fmt.Errorf("equipment %s: %w", eq.ID, err)
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}

// UpdateEquipment writes the mutable equipment fields: status and current load.
func (s *Store) UpdateEquipment(ctx context.Context, eq models.Equipment) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE equipment SET status = $1, current_load = $2, updated_at = $3 WHERE id = $4`, eq.Status, eq.CurrentLoad, eq.UpdatedAt, eq.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: equipment %s", service.ErrNotFound, eq.ID)
	}
	return nil
}

const jobColumns = `id, item_name, customer_name, quantity, due_date, priority, decoration_method, estimated_minutes, status, assigned_equipment_id, scheduled_start, scheduled_end, updated_at`

func (s *Store) LoadAllJobs(ctx context.Context) ([]models.ProductionJob, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+jobColumns+` FROM production_jobs ORDER BY sort_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProductionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) GetJob(ctx context.Context, id string) (models.ProductionJob, error) {
	j, err := scanJob(s.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM production_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", service.ErrNotFound, id)
	}
	return j, err
}

func scanJob(row pgx.Row) (models.ProductionJob, error) {
	var j models.ProductionJob
	err := row.Scan(&j.ID, &j.ItemName, &j.CustomerName, &j.Quantity, &j.DueDate, &j.Priority, &j.DecorationMethod, &j.EstimatedMinutes, &j.Status, &j.AssignedEquipmentID, &j.ScheduledStart, &j.ScheduledEnd, &j.UpdatedAt)
	return j, err
}

// PersistJob upserts the full job record, assignment fields included.
func (s *Store) PersistJob(ctx context.Context, j models.ProductionJob) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO production_jobs (id, item_name, customer_name, quantity, due_date, priority, decoration_method, estimated_minutes, status, assigned_equipment_id, scheduled_start, scheduled_end, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			item_name = EXCLUDED.item_name,
			customer_name = EXCLUDED.customer_name,
			quantity = EXCLUDED.quantity,
			due_date = EXCLUDED.due_date,
			priority = EXCLUDED.priority,
			decoration_method = EXCLUDED.decoration_method,
			estimated_minutes = EXCLUDED.estimated_minutes,
			status = EXCLUDED.status,
			assigned_equipment_id = EXCLUDED.assigned_equipment_id,
			scheduled_start = EXCLUDED.scheduled_start,
			scheduled_end = EXCLUDED.scheduled_end,
			updated_at = EXCLUDED.updated_at
	`, j.ID, j.ItemName, j.CustomerName, j.Quantity, j.DueDate, j.Priority, j.DecorationMethod, j.EstimatedMinutes, j.Status, j.AssignedEquipmentID, j.ScheduledStart, j.ScheduledEnd, j.UpdatedAt)
	return err
}

// ImportCatalog replaces equipment, jobs and stage progress in one transaction.
func (s *Store) ImportCatalog(ctx context.Context, equipment []models.Equipment, jobs []models.ProductionJob) (ImportCounts, error) {
	var counts ImportCounts
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE job_stages, production_jobs, equipment`); err != nil {
			return err
		}

		eqRows := make([][]any, 0, len(equipment))
		for i, eq := range equipment {
			var heads, maxColors, screens *int
			var automatic *bool
			switch k := eq.Kind.(type) {
			case models.Embroidery:
				heads, maxColors = &k.Heads, &k.MaxColors
			case models.ScreenPrinting:
				screens, automatic = &k.Screens, &k.IsAutomatic
			}
			eqRows = append(eqRows, []any{eq.ID, eq.Name, string(eq.Method()), string(eq.Status), eq.Capacity, eq.CurrentLoad, eq.SetupTime, eq.MinQuantity, eq.MaxQuantity, heads, maxColors, screens, automatic, i, eq.UpdatedAt})
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"equipment"}, []string{"id", "name", "type", "status", "capacity", "current_load", "setup_time", "min_quantity", "max_quantity", "heads", "max_colors", "screens", "is_automatic", "sort_order", "updated_at"}, pgx.CopyFromRows(eqRows))
		if err != nil {
			return err
		}
		counts.Equipment = int(n)

		jobRows := make([][]any, 0, len(jobs))
		for _, j := range jobs {
			jobRows = append(jobRows, []any{j.ID, j.ItemName, j.CustomerName, j.Quantity, j.DueDate, string(j.Priority), string(j.DecorationMethod), j.EstimatedMinutes, string(j.Status), j.AssignedEquipmentID, j.ScheduledStart, j.ScheduledEnd, j.UpdatedAt})
		}
		n, err = tx.CopyFrom(ctx, pgx.Identifier{"production_jobs"}, []string{"id", "item_name", "customer_name", "quantity", "due_date", "priority", "decoration_method", "estimated_minutes", "status", "assigned_equipment_id", "scheduled_start", "scheduled_end", "updated_at"}, pgx.CopyFromRows(jobRows))
		if err != nil {
			return err
		}
		counts.Jobs = int(n)
		return nil
	})
	return counts, err
}

func (s *Store) LoadStageProgress(ctx context.Context) (map[string][]service.StageState, error) {
	rows, err := s.Pool.Query(ctx, `SELECT job_id, stage_id, status, updated_at FROM job_stages ORDER BY job_id, stage_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]service.StageState{}
	for rows.Next() {
		var jobID string
		var st service.StageState
		if err := rows.Scan(&jobID, &st.StageID, &st.Status, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out[jobID] = append(out[jobID], st)
	}
	return out, rows.Err()
}

func (s *Store) PersistStageStatus(ctx context.Context, jobID string, st service.StageState) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO job_stages (job_id, stage_id, status, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (job_id, stage_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, jobID, st.StageID, st.Status, st.UpdatedAt)
	return err
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
