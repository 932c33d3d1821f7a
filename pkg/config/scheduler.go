package config

import "time"

// SchedulerConfig controls the Scheduler's dispatch loop (spec §4.7).
// Grounded on the teacher's QueueConfig/DefaultQueueConfig shape, re-themed
// from session dispatch to scheduled-task dispatch.
type SchedulerConfig struct {
	// WorkerCount is the number of dispatch goroutines per replica.
	WorkerCount int

	// PollInterval is the base interval for checking due tasks (spec default 30s).
	PollInterval time.Duration

	// PollIntervalJitter is random jitter added to PollInterval so replicas
	// don't all poll in lockstep.
	PollIntervalJitter time.Duration

	// TaskTimeout bounds how long a single dispatched task may run.
	TaskTimeout time.Duration

	// GracefulShutdownTimeout bounds how long Stop waits for in-flight tasks.
	GracefulShutdownTimeout time.Duration
}

// DefaultSchedulerConfig returns the built-in scheduler defaults, overridable
// via SCHEDULER_* environment variables.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WorkerCount:             getEnvInt("SCHEDULER_WORKER_COUNT", 2),
		PollInterval:            getEnvDuration("SCHEDULER_POLL_INTERVAL", 30*time.Second),
		PollIntervalJitter:      getEnvDuration("SCHEDULER_POLL_JITTER", 5*time.Second),
		TaskTimeout:             getEnvDuration("SCHEDULER_TASK_TIMEOUT", 2*time.Minute),
		GracefulShutdownTimeout: getEnvDuration("SCHEDULER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}
