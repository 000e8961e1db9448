package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/mmynk/churchboard/internal/dbx"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

const titheTaskColumns = `id, treasurer_id, treasurer_name, finance_staff_id, finance_staff_name,
	status, calculated_at, created_at, updated_at`

const titheEntryColumns = `id, task_id, donor_name, category, method, amount_cents, created_by, created_at`

// CreateTitheTask persists a new tithe task.
func (s *Store) CreateTitheTask(ctx context.Context, task *models.TitheTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO tithe_tasks (`+titheTaskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		task.ID,
		task.TreasurerID,
		task.TreasurerName,
		task.FinanceStaffID,
		task.FinanceStaffName,
		string(task.Status),
		nullMillis(task),
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert tithe task: %w", err)
	}
	return nil
}

// GetTitheTask retrieves a task with its entries, oldest entry first.
func (s *Store) GetTitheTask(ctx context.Context, id string) (*models.TitheTask, error) {
	task, err := s.getTitheTask(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+titheEntryColumns+` FROM tithe_entries WHERE task_id = ? ORDER BY created_at, id`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tithe entries: %w", err)
	}
	defer rows.Close()

	task.Entries = []models.TitheEntry{}
	for rows.Next() {
		var (
			e                    models.TitheEntry
			category, method     string
			cents, createdAtMill int64
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.DonorName, &category, &method, &cents, &e.CreatedBy, &createdAtMill); err != nil {
			return nil, fmt.Errorf("failed to scan tithe entry: %w", err)
		}
		e.Category = models.TitheCategory(category)
		e.Method = models.PaymentMethod(method)
		e.Amount = float64(cents) / 100
		e.CreatedAt = fromMillis(createdAtMill)
		task.Entries = append(task.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tithe entries: %w", err)
	}
	return task, nil
}

func (s *Store) getTitheTask(ctx context.Context, db dbx.DBTX, id string, lock bool) (*models.TitheTask, error) {
	query := `SELECT ` + titheTaskColumns + ` FROM tithe_tasks WHERE id = ?`
	if lock {
		query += s.forUpdate()
	}
	task, err := scanTitheTask(db.QueryRowContext(ctx, s.q(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tithe task: %w", err)
	}
	return task, nil
}

// ListTitheTasks returns tasks newest first, without entries.
func (s *Store) ListTitheTasks(ctx context.Context, filter storage.TitheTaskFilter) ([]*models.TitheTask, error) {
	query := `SELECT ` + titheTaskColumns + ` FROM tithe_tasks`
	var args []any
	if filter.ParticipantID != "" {
		query += ` WHERE treasurer_id = ? OR finance_staff_id = ?`
		args = append(args, filter.ParticipantID, filter.ParticipantID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tithe tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.TitheTask{}
	for rows.Next() {
		task, err := scanTitheTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tithe task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tithe tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTitheTask applies fn to the task inside a transaction.
func (s *Store) UpdateTitheTask(ctx context.Context, id string, fn storage.TitheTaskMutation) (*models.TitheTask, error) {
	var updated *models.TitheTask
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		task, err := s.getTitheTask(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(ctx, task); err != nil {
			return err
		}

		task.UpdatedAt = s.now()
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE tithe_tasks
			SET treasurer_id = ?, treasurer_name = ?, finance_staff_id = ?, finance_staff_name = ?,
				status = ?, calculated_at = ?, updated_at = ?
			WHERE id = ?`),
			task.TreasurerID,
			task.TreasurerName,
			task.FinanceStaffID,
			task.FinanceStaffName,
			string(task.Status),
			nullMillis(task),
			toMillis(task.UpdatedAt),
			task.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update tithe task: %w", err)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTitheTask removes a task and its entries.
func (s *Store) DeleteTitheTask(ctx context.Context, id string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM tithe_entries WHERE task_id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete tithe entries: %w", err)
		}
		err := checkAffected(tx.ExecContext(ctx, s.q(`DELETE FROM tithe_tasks WHERE id = ?`), id))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete tithe task: %w", err)
		}
		return err
	})
}

// AddTitheEntry inserts an entry into an in-progress task.
func (s *Store) AddTitheEntry(ctx context.Context, entry *models.TitheEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.requireInProgress(ctx, tx, entry.TaskID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO tithe_entries (`+titheEntryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			entry.ID,
			entry.TaskID,
			entry.DonorName,
			string(entry.Category),
			string(entry.Method),
			int64(math.Round(entry.Amount*100)),
			entry.CreatedBy,
			toMillis(entry.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert tithe entry: %w", err)
		}
		return nil
	})
}

// DeleteTitheEntry removes an entry from an in-progress task.
func (s *Store) DeleteTitheEntry(ctx context.Context, taskID, entryID string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.requireInProgress(ctx, tx, taskID); err != nil {
			return err
		}
		err := checkAffected(tx.ExecContext(ctx,
			s.q(`DELETE FROM tithe_entries WHERE id = ? AND task_id = ?`), entryID, taskID))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete tithe entry: %w", err)
		}
		return err
	})
}

func (s *Store) requireInProgress(ctx context.Context, tx dbx.DBTX, taskID string) error {
	task, err := s.getTitheTask(ctx, tx, taskID, true)
	if err != nil {
		return err
	}
	if task.IsCompleted() {
		return storage.ErrTaskCompleted
	}
	return nil
}

func nullMillis(task *models.TitheTask) sql.NullInt64 {
	if task.CalculatedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*task.CalculatedAt), Valid: true}
}

func scanTitheTask(row scanner) (*models.TitheTask, error) {
	var (
		task                 models.TitheTask
		status               string
		calculatedAt         sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&task.ID,
		&task.TreasurerID,
		&task.TreasurerName,
		&task.FinanceStaffID,
		&task.FinanceStaffName,
		&status,
		&calculatedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Status = models.TitheTaskStatus(status)
	if calculatedAt.Valid {
		t := fromMillis(calculatedAt.Int64)
		task.CalculatedAt = &t
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return &task, nil
}
