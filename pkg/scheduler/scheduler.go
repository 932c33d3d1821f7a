// Package scheduler implements the Scheduler (spec §4.7): a durable timer
// wheel over the ScheduledTasks table driven by periodic polling, grounded
// on the teacher's pkg/queue/{pool,worker}.go poll/claim/dispatch shape,
// re-themed from "claim one AlertSession and run an investigation" to
// "claim due ScheduledTasks and emit TaskEvents".
package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/ent/scheduledtask"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// TaskEvent is emitted once per dispatched task — a ScheduledTask that just
// transitioned Pending -> Running and is ready for delivery (spec §4.7
// Dispatch loop).
type TaskEvent struct {
	Task *ent.ScheduledTask
}

// Scheduler polls the ScheduledTasks table and emits TaskEvents for due
// tasks. It does not deliver tasks itself — pkg/eventloop consumes Events()
// and routes delivery through the Agent Manager's reverse lookup and the
// Transport Adapter, then calls Complete/Fail to close the loop.
type Scheduler struct {
	tasks *store.ScheduledTaskRepo
	cfg   config.SchedulerConfig

	events chan TaskEvent
	wake   chan struct{} // optional external nudge (pkg/wakeup), never blocks

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Scheduler bound to the ScheduledTask repository.
func New(tasks *store.ScheduledTaskRepo, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		cfg:    cfg,
		events: make(chan TaskEvent, cfg.WorkerCount*4),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Events returns the channel pkg/eventloop consumes TaskEvents from.
func (s *Scheduler) Events() <-chan TaskEvent { return s.events }

// Wake nudges the poll loop to check for due tasks immediately, rather than
// waiting for the next tick — used by pkg/wakeup when a near-future one-shot
// task is inserted. Non-blocking: a pending wake coalesces with one already
// queued.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the poll-and-dispatch loop in a goroutine until ctx is done or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the poll loop to exit and waits for it to finish. Safe to
// call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		close(s.events)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.jitteredInterval())
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-s.wake:
			s.dispatchDue(ctx)
		case <-timer.C:
			s.dispatchDue(ctx)
			timer.Reset(s.jitteredInterval())
		}
	}
}

func (s *Scheduler) jitteredInterval() time.Duration {
	if s.cfg.PollIntervalJitter <= 0 {
		return s.cfg.PollInterval
	}
	return s.cfg.PollInterval + time.Duration(rand.Int64N(int64(s.cfg.PollIntervalJitter)))
}

// dispatchDue claims every currently-due Pending task (spec §8 property 6:
// dispatched at most once before leaving Pending) and emits one TaskEvent
// per task. MarkRunning is what actually performs the claim — a task that
// fails to transition (e.g. another replica claimed it first) is logged and
// skipped rather than double-dispatched.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	due, err := s.tasks.GetDue(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("scheduler: list due tasks failed", "err", err)
		return
	}

	for _, t := range due {
		if err := s.tasks.MarkRunning(ctx, t.ID); err != nil {
			slog.Error("scheduler: claim task failed", "task_id", t.ID, "err", err)
			continue
		}
		select {
		case s.events <- TaskEvent{Task: t}:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// Complete closes out a successfully-delivered task (spec §4.7 Dispatch
// loop): a recurring task (cron_expression present) is rescheduled back to
// Pending at its next fire time; a one-shot task transitions to Completed.
func (s *Scheduler) Complete(ctx context.Context, t *ent.ScheduledTask) error {
	if t.CronExpression == nil {
		return s.tasks.MarkCompleted(ctx, t.ID)
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		loc = time.UTC
	}
	next, err := NextCronTime(*t.CronExpression, loc, time.Now())
	if err != nil {
		return s.tasks.MarkFailed(ctx, t.ID, err)
	}
	return s.tasks.UpdateNextRun(ctx, t.ID, next)
}

// Fail marks a dispatched task Failed, recording taskErr (spec §4.7:
// "fail_task(err) on failure").
func (s *Scheduler) Fail(ctx context.Context, t *ent.ScheduledTask, taskErr error) error {
	return s.tasks.MarkFailed(ctx, t.ID, taskErr)
}

// IsOneShot reports whether t has no cron expression.
func IsOneShot(t *ent.ScheduledTask) bool { return t.CronExpression == nil }

// TaskTypeMessage and TaskTypeToolCall re-export the generated enum values
// so callers outside pkg/store (pkg/tools, pkg/eventloop) don't need to
// import the generated ent/scheduledtask package directly for the common
// case of branching on task_type.
const (
	TaskTypeMessage  = scheduledtask.TaskTypeMessage
	TaskTypeToolCall = scheduledtask.TaskTypeToolCall
)
