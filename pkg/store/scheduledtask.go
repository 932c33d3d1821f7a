package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/scheduledtask"
	"github.com/google/uuid"
)

// WakeupChannel is the Postgres NOTIFY channel pkg/wakeup listens on to
// nudge the Scheduler the moment a near-future task is inserted or
// rescheduled, rather than waiting for its next poll tick.
const WakeupChannel = "scheduled_task_changes"

// ScheduledTaskRepo is the repository over the ScheduledTask entity.
type ScheduledTaskRepo struct {
	client *ent.Client
	db     *sql.DB // underlying connection, for the pg_notify wakeup nudge
}

// notify emits a best-effort NOTIFY on WakeupChannel. Failure just means
// pkg/wakeup's listener misses this nudge — the Scheduler's poll loop still
// picks the task up on its next tick, so this never fails the caller.
func (r *ScheduledTaskRepo) notify(ctx context.Context) {
	if r.db == nil {
		return
	}
	if _, err := r.db.ExecContext(ctx, "SELECT pg_notify($1, '')", WakeupChannel); err != nil {
		slog.Warn("scheduled task wakeup notify failed", "err", err)
	}
}

// CreateOpts carries a new scheduled task's fields.
type CreateOpts struct {
	AgentID        string
	TaskType       scheduledtask.TaskType
	Payload        map[string]any
	NextRunAt      time.Time
	CronExpression *string // nil = one-shot
	Timezone       string
	Description    string
}

// Insert persists a new scheduled task.
func (r *ScheduledTaskRepo) Insert(ctx context.Context, o CreateOpts) (*ent.ScheduledTask, error) {
	create := r.client.ScheduledTask.Create().
		SetID(uuid.NewString()).
		SetAgentID(o.AgentID).
		SetTaskType(o.TaskType).
		SetPayload(o.Payload).
		SetNextRunAt(o.NextRunAt).
		SetDescription(o.Description)
	if o.Timezone != "" {
		create.SetTimezone(o.Timezone)
	}
	if o.CronExpression != nil {
		create.SetCronExpression(*o.CronExpression)
	}
	t, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled task: %w", err)
	}
	r.notify(ctx)
	return t, nil
}

// GetDue returns every Pending task whose next_run_at has passed, ordered
// by next_run_at ascending — the Scheduler's claim-candidate set.
func (r *ScheduledTaskRepo) GetDue(ctx context.Context, now time.Time) ([]*ent.ScheduledTask, error) {
	tasks, err := r.client.ScheduledTask.Query().
		Where(
			scheduledtask.StatusEQ(scheduledtask.StatusPending),
			scheduledtask.NextRunAtLTE(now),
		).
		Order(ent.Asc(scheduledtask.FieldNextRunAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get due scheduled tasks: %w", err)
	}
	return tasks, nil
}

// GetByAgent lists an agent's tasks, optionally filtered by status
// ("" = unfiltered, matching the tool's "all" contract at the caller).
func (r *ScheduledTaskRepo) GetByAgent(ctx context.Context, agentID string, status scheduledtask.Status) ([]*ent.ScheduledTask, error) {
	q := r.client.ScheduledTask.Query().Where(scheduledtask.AgentID(agentID))
	if status != "" {
		q = q.Where(scheduledtask.StatusEQ(status))
	}
	tasks, err := q.Order(ent.Asc(scheduledtask.FieldNextRunAt)).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get scheduled tasks for agent %s: %w", agentID, err)
	}
	return tasks, nil
}

// Get returns one scheduled task by id, nil if not found.
func (r *ScheduledTaskRepo) Get(ctx context.Context, id string) (*ent.ScheduledTask, error) {
	t, err := r.client.ScheduledTask.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get scheduled task %s: %w", id, err)
	}
	return t, nil
}

// MarkRunning claims a task by transitioning it from Pending to Running; it
// fails if the task is no longer Pending. run_count and
// last_run_at are bumped on completion (MarkCompleted/UpdateNextRun), not
// here — a claimed task that goes on to fail must not look like it ran.
func (r *ScheduledTaskRepo) MarkRunning(ctx context.Context, id string) error {
	n, err := r.client.ScheduledTask.Update().
		Where(scheduledtask.ID(id), scheduledtask.StatusEQ(scheduledtask.StatusPending)).
		SetStatus(scheduledtask.StatusRunning).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark task %s running: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark task %s running: task is no longer pending", id)
	}
	return nil
}

// MarkCompleted transitions a one-shot task to Completed, recording that
// this run happened.
func (r *ScheduledTaskRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.client.ScheduledTask.UpdateOneID(id).
		SetStatus(scheduledtask.StatusCompleted).
		SetLastRunAt(time.Now().UTC()).
		AddRunCount(1).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark task %s completed: %w", id, err)
	}
	return nil
}

// MarkFailed transitions a task to Failed, recording the error.
func (r *ScheduledTaskRepo) MarkFailed(ctx context.Context, id string, taskErr error) error {
	_, err := r.client.ScheduledTask.UpdateOneID(id).
		SetStatus(scheduledtask.StatusFailed).
		SetLastError(taskErr.Error()).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("mark task %s failed: %w", id, err)
	}
	return nil
}

// UpdateNextRun reschedules a recurring task's next_run_at and flips it
// back to Pending so the Scheduler can claim it again, recording that this
// run happened (last_run_at/run_count) the same as the one-shot completion
// path does.
func (r *ScheduledTaskRepo) UpdateNextRun(ctx context.Context, id string, next time.Time) error {
	_, err := r.client.ScheduledTask.UpdateOneID(id).
		SetNextRunAt(next).
		SetStatus(scheduledtask.StatusPending).
		SetLastRunAt(time.Now().UTC()).
		AddRunCount(1).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("update next run for task %s: %w", id, err)
	}
	r.notify(ctx)
	return nil
}

// Cancel marks a task Cancelled, but only if it is still Pending.
func (r *ScheduledTaskRepo) Cancel(ctx context.Context, id string) (bool, error) {
	n, err := r.client.ScheduledTask.Update().
		Where(scheduledtask.ID(id), scheduledtask.StatusEQ(scheduledtask.StatusPending)).
		SetStatus(scheduledtask.StatusCancelled).
		Save(ctx)
	if err != nil {
		return false, fmt.Errorf("cancel task %s: %w", id, err)
	}
	return n > 0, nil
}
