package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/sage/ent/scheduledtask"
	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/scheduler"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// Waker is nudged after a new task is scheduled so a near-future one-shot
// doesn't sit idle until the Scheduler's next poll tick (spec §4.11,
// supplemental). Nil is a legal no-op waker.
type Waker interface{ Wake() }

// ScheduleTaskTool implements the schedule_task tool (spec §4.4, §4.7
// Creation): run_at is either an ISO-8601 datetime (one-shot, must be
// future) or a cron expression (recurring, 5 or 6 fields; a 7-field
// expression with a year field is rejected).
type ScheduleTaskTool struct {
	Tasks   *store.ScheduledTaskRepo
	Prefs   *memory.PreferenceManager
	AgentID string
	Waker   Waker // optional
}

func (t *ScheduleTaskTool) Name() string { return "schedule_task" }

func (t *ScheduleTaskTool) Description() string {
	return "Schedule a one-shot or recurring future task. run_at is either an ISO-8601 datetime " +
		"(one-shot, must be in the future) or a cron expression (recurring)."
}

func (t *ScheduleTaskTool) ArgsSchema() string {
	return `{"task_type": "Message|ToolCall", "description": "string", "run_at": "ISO-8601 datetime or cron expression", ` +
		`"payload": "JSON object ({\"message\":string} or {\"tool\":string,\"args\":object})", "timezone": "IANA zone (optional)"}`
}

func (t *ScheduleTaskTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	taskType, err := parseTaskType(args["task_type"])
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	payload, err := parsePayload(taskType, args["payload"])
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	loc, tz, err := t.resolveTimezone(ctx, args["timezone"])
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	runAt := strings.TrimSpace(args["run_at"])
	nextRunAt, cronExpr, err := resolveSchedule(runAt, loc)
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	task, err := t.Tasks.Insert(ctx, store.CreateOpts{
		AgentID:        t.AgentID,
		TaskType:       taskType,
		Payload:        payload,
		NextRunAt:      nextRunAt,
		CronExpression: cronExpr,
		Timezone:       tz,
		Description:    args["description"],
	})
	if err != nil {
		return Result{}, fmt.Errorf("schedule_task: %w", err)
	}

	if t.Waker != nil {
		t.Waker.Wake()
	}

	kind := "one-shot"
	if cronExpr != nil {
		kind = "recurring"
	}
	return Result{Success: true, Output: fmt.Sprintf("scheduled %s task %s, next run %s", kind, task.ID, nextRunAt.Format(time.RFC3339))}, nil
}

func (t *ScheduleTaskTool) resolveTimezone(ctx context.Context, explicit string) (*time.Location, string, error) {
	if explicit != "" {
		loc, err := time.LoadLocation(explicit)
		if err != nil {
			return nil, "", fmt.Errorf("invalid timezone %q: %w", explicit, err)
		}
		return loc, explicit, nil
	}
	if loc, err := t.Prefs.Timezone(ctx); err == nil && loc != nil {
		return loc, loc.String(), nil
	}
	return time.UTC, "UTC", nil
}

// resolveSchedule decides whether runAt is a one-shot ISO-8601 datetime or a
// recurring cron expression, and computes next_run_at accordingly.
func resolveSchedule(runAt string, loc *time.Location) (time.Time, *string, error) {
	if ts, err := time.Parse(time.RFC3339, runAt); err == nil {
		if !ts.After(time.Now()) {
			return time.Time{}, nil, fmt.Errorf("run_at %s must be in the future", runAt)
		}
		return ts.UTC(), nil, nil
	}

	if err := scheduler.ValidateCron(runAt); err != nil {
		return time.Time{}, nil, fmt.Errorf("run_at is neither a valid ISO-8601 datetime nor a valid cron expression: %w", err)
	}
	next, err := scheduler.NextCronTime(runAt, loc, time.Now())
	if err != nil {
		return time.Time{}, nil, err
	}
	expr := runAt
	return next, &expr, nil
}

func parseTaskType(raw string) (scheduledtask.TaskType, error) {
	switch raw {
	case string(scheduledtask.TaskTypeMessage):
		return scheduledtask.TaskTypeMessage, nil
	case string(scheduledtask.TaskTypeToolCall):
		return scheduledtask.TaskTypeToolCall, nil
	default:
		return "", fmt.Errorf("task_type must be %q or %q", scheduledtask.TaskTypeMessage, scheduledtask.TaskTypeToolCall)
	}
}

func parsePayload(taskType scheduledtask.TaskType, raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("payload is required")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}

	switch taskType {
	case scheduledtask.TaskTypeMessage:
		if _, ok := payload["message"].(string); !ok {
			return nil, fmt.Errorf(`Message payload must carry a string "message" field`)
		}
	case scheduledtask.TaskTypeToolCall:
		if _, ok := payload["tool"].(string); !ok {
			return nil, fmt.Errorf(`ToolCall payload must carry a string "tool" field`)
		}
	}
	return payload, nil
}

// ListSchedulesTool implements the list_schedules tool (spec §4.4): lists
// an agent's scheduled tasks, optionally filtered by status ("all" =
// unfiltered).
type ListSchedulesTool struct {
	Tasks   *store.ScheduledTaskRepo
	AgentID string
}

func (t *ListSchedulesTool) Name() string { return "list_schedules" }

func (t *ListSchedulesTool) Description() string {
	return `List this agent's scheduled tasks, optionally filtered by status ("all" for every status).`
}

func (t *ListSchedulesTool) ArgsSchema() string {
	return `{"status": "Pending|Running|Completed|Failed|Cancelled|all (optional, default all)"}`
}

func (t *ListSchedulesTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	status := scheduledtask.Status("")
	if raw := args["status"]; raw != "" && raw != "all" {
		status = scheduledtask.Status(raw)
		if !validStatus(status) {
			return Result{Success: false, Error: fmt.Sprintf("unknown status %q", raw)}, nil
		}
	}

	tasks, err := t.Tasks.GetByAgent(ctx, t.AgentID, status)
	if err != nil {
		return Result{}, fmt.Errorf("list_schedules: %w", err)
	}
	if len(tasks) == 0 {
		return Result{Success: true, Output: "(no scheduled tasks)"}, nil
	}

	var sb strings.Builder
	for _, task := range tasks {
		recurrence := "one-shot"
		if task.CronExpression != nil {
			recurrence = "cron:" + *task.CronExpression
		}
		fmt.Fprintf(&sb, "%s [%s] %s next_run=%s (%s) runs=%d\n",
			task.ID, task.Status, task.Description, task.NextRunAt.Format(time.RFC3339), recurrence, task.RunCount)
	}
	return Result{Success: true, Output: sb.String()}, nil
}

func validStatus(s scheduledtask.Status) bool {
	switch s {
	case scheduledtask.StatusPending, scheduledtask.StatusRunning, scheduledtask.StatusCompleted,
		scheduledtask.StatusFailed, scheduledtask.StatusCancelled:
		return true
	}
	return false
}

// CancelScheduleTool implements the cancel_schedule tool (spec §4.4):
// cancels a task only if it is still Pending.
type CancelScheduleTool struct {
	Tasks *store.ScheduledTaskRepo
}

func (t *CancelScheduleTool) Name() string { return "cancel_schedule" }

func (t *CancelScheduleTool) Description() string {
	return "Cancel a scheduled task by id. Only tasks still Pending can be cancelled."
}

func (t *CancelScheduleTool) ArgsSchema() string { return `{"id": "string"}` }

func (t *CancelScheduleTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	id := args["id"]
	if id == "" {
		return Result{Success: false, Error: "id is required"}, nil
	}
	cancelled, err := t.Tasks.Cancel(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("cancel_schedule: %w", err)
	}
	if !cancelled {
		return Result{Success: false, Error: fmt.Sprintf("task %s is not Pending (already running, completed, or unknown)", id)}, nil
	}
	return Result{Success: true, Output: fmt.Sprintf("cancelled task %s", id)}, nil
}
