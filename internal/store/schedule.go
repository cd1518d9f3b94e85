package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelarr/internal/apperr"
	"reelarr/internal/models"
)

// ScheduleStore is C2: the durable task table the scheduler's due-task
// processor drains (spec §4.2, §4.8). Grounded on the same
// database/sql + slog shape as MediaItemStore.
type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const taskColumns = `id, item_id, task_type, scheduled_for, status, created_at, executed_at, offset_seconds, reason`

func scanTask(s interface{ Scan(...any) error }) (*models.ScheduledTask, error) {
	var t models.ScheduledTask
	var executedAt sql.NullTime
	var offsetSeconds sql.NullInt64
	var reason sql.NullString
	err := s.Scan(&t.ID, &t.ItemID, &t.TaskType, &t.ScheduledFor, &t.Status, &t.CreatedAt, &executedAt, &offsetSeconds, &reason)
	if err != nil {
		return nil, err
	}
	if executedAt.Valid {
		t.ExecutedAt = &executedAt.Time
	}
	if offsetSeconds.Valid {
		n := int(offsetSeconds.Int64)
		t.OffsetSeconds = &n
	}
	if reason.Valid {
		t.Reason = &reason.String
	}
	return &t, nil
}

// Schedule inserts a pending task for itemID at when. It rejects
// when <= now (spec §4.2 "cannot schedule into the past") and returns
// (false, nil) rather than an error when the unique (item_id, task_type,
// scheduled_for) constraint already holds the slot — the caller treats
// that as "already scheduled", not a failure.
func (s *ScheduleStore) Schedule(ctx context.Context, now time.Time, itemID int64, taskType models.TaskType, when time.Time, offsetSeconds *int, reason string) (bool, error) {
	if !when.After(now) {
		return false, fmt.Errorf("schedule %s for item %d at %s: %w", taskType, itemID, when, apperr.LogicGate)
	}

	var reasonArg sql.NullString
	if reason != "" {
		reasonArg = sql.NullString{String: reason, Valid: true}
	}
	var offsetArg sql.NullInt64
	if offsetSeconds != nil {
		offsetArg = sql.NullInt64{Int64: int64(*offsetSeconds), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (item_id, task_type, scheduled_for, status, offset_seconds, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		itemID, string(taskType), when, string(models.TaskPending), offsetArg, reasonArg)
	if isUniqueViolation(err) {
		slog.Debug("task already scheduled", "item_id", itemID, "task_type", taskType, "scheduled_for", when)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("schedule %s for item %d: %w", taskType, itemID, err)
	}
	slog.Info("scheduled task", "item_id", itemID, "task_type", taskType, "scheduled_for", when)
	return true, nil
}

// DueTasks returns pending tasks whose scheduled_for has passed, ordered
// by scheduled_for, for the due-task processor (spec §4.8).
func (s *ScheduleStore) DueTasks(ctx context.Context, now time.Time) ([]*models.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM scheduled_tasks
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for`, string(models.TaskPending), now)
	if err != nil {
		return nil, fmt.Errorf("due tasks query: %w", err)
	}
	defer rows.Close()

	var out []*models.ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HasFutureTask reports whether a pending task of taskType already
// exists for itemID at or after now, used to avoid double-scheduling a
// release or reindex task (spec §4.2 "has_future_task").
func (s *ScheduleStore) HasFutureTask(ctx context.Context, itemID int64, taskType models.TaskType, now time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scheduled_tasks
		WHERE item_id = $1 AND task_type = $2 AND status = $3 AND scheduled_for >= $4`,
		itemID, string(taskType), string(models.TaskPending), now).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has future task for item %d: %w", itemID, err)
	}
	return count > 0, nil
}

// Mark sets a task's terminal status and executed_at timestamp (spec
// §4.2 "mark").
func (s *ScheduleStore) Mark(ctx context.Context, taskID int64, status models.TaskStatus, executedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks SET status = $1, executed_at = $2 WHERE id = $3`,
		string(status), executedAt, taskID)
	if err != nil {
		return fmt.Errorf("mark task %d %s: %w", taskID, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", taskID, apperr.NotFound)
	}
	return nil
}

// CancelPending marks every still-pending task for itemID cancelled
// (spec §4.7 cancel_job) and returns how many rows it changed. No other
// code in this module calls it.
func (s *ScheduleStore) CancelPending(ctx context.Context, itemID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks SET status = $1 WHERE item_id = $2 AND status = $3`,
		string(models.TaskCancelled), itemID, string(models.TaskPending))
	if err != nil {
		return 0, fmt.Errorf("cancel pending tasks for item %d: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID looks up a single scheduled task.
func (s *ScheduleStore) GetByID(ctx context.Context, id int64) (*models.ScheduledTask, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scheduled task %d: %w", id, apperr.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled task %d: %w", id, err)
	}
	return t, nil
}
