// Package wakeup implements a Postgres LISTEN/NOTIFY nudge from
// ScheduledTasks inserts/reschedules to the Scheduler's poll loop, so a
// near-future one-shot task doesn't sit idle until the next poll tick.
//
// Adapted from pkg/events/listener.go's dedicated-connection receive loop,
// dropping that package's multi-channel subscribe/unsubscribe machinery and
// its ConnectionManager fan-out: this listener owns exactly one fixed
// channel (store.WakeupChannel) and has exactly one thing to do when a
// notification arrives — call Scheduler.Wake().
package wakeup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/codeready-toolchain/sage/pkg/store"
)

// initialBackoff and maxBackoff bound the reconnect loop after the
// dedicated LISTEN connection drops.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Waker is the subset of *scheduler.Scheduler this package nudges. Defined
// here rather than imported to avoid a dependency from pkg/wakeup onto
// pkg/scheduler's full surface.
type Waker interface {
	Wake()
}

// Listener holds a dedicated LISTEN connection on store.WakeupChannel and
// calls Waker.Wake() on every notification.
type Listener struct {
	connString string
	waker      Waker

	connMu sync.Mutex
	conn   *pgx.Conn

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New constructs a Listener. Call Start to connect and begin listening.
func New(connString string, waker Waker) *Listener {
	return &Listener{connString: connString, waker: waker}
}

// Start establishes the LISTEN connection and begins receiving
// notifications in a goroutine. Returns an error only if the initial
// connection fails — transient drops after that are handled by the
// internal reconnect loop.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{store.WakeupChannel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return err
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		l.receiveLoop(loopCtx)
	}()

	slog.Info("wakeup listener started", "channel", store.WakeupChannel)
	return nil
}

// Stop signals the receive loop to exit, waits for it, then closes the
// connection. Safe to call multiple times.
func (l *Listener) Stop(ctx context.Context) {
	l.stopOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
		}
		if l.done != nil {
			<-l.done
		}
		l.connMu.Lock()
		defer l.connMu.Unlock()
		if l.conn != nil {
			_ = l.conn.Close(ctx)
			l.conn = nil
		}
	})
}

func (l *Listener) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()
		if conn == nil {
			l.reconnect(ctx)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		_, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				continue // timeout — just loop back
			}
			slog.Warn("wakeup listener notify receive error", "err", err)
			l.reconnect(ctx)
			continue
		}

		l.waker.Wake()
	}
}

func (l *Listener) reconnect(ctx context.Context) {
	l.connMu.Lock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
	l.connMu.Unlock()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		conn, err := pgx.Connect(ctx, l.connString)
		if err != nil {
			slog.Warn("wakeup listener reconnect failed", "err", err, "backoff", backoff)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{store.WakeupChannel}.Sanitize()); err != nil {
			slog.Warn("wakeup listener re-LISTEN failed", "err", err)
			_ = conn.Close(ctx)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		l.connMu.Lock()
		l.conn = conn
		l.connMu.Unlock()
		slog.Info("wakeup listener reconnected")
		return
	}
}
