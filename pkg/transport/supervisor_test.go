package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyAdapter struct {
	runs atomic.Int32
}

func (f *flakyAdapter) SendMessage(context.Context, string, string) error { return nil }
func (f *flakyAdapter) SendTyping(context.Context, string, bool) error    { return nil }
func (f *flakyAdapter) Refresh(context.Context) error                    { return nil }
func (f *flakyAdapter) Inbound() <-chan IncomingMessage                  { return nil }
func (f *flakyAdapter) FetchAttachment(context.Context, string) ([]byte, error) {
	return nil, nil
}

func (f *flakyAdapter) Run(ctx context.Context) error {
	f.runs.Add(1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return errors.New("connection dropped")
	}
}

func TestSupervisor_RestartsOnFailure(t *testing.T) {
	adapter := &flakyAdapter{}
	sup := NewSupervisor(adapter)

	// Long enough for the first run, the 250ms initial backoff, and a second run.
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	sup.Start(ctx)
	<-ctx.Done()
	sup.Stop()

	assert.GreaterOrEqual(t, adapter.runs.Load(), int32(2))
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	adapter := &flakyAdapter{}
	sup := NewSupervisor(adapter)
	sup.Start(context.Background())
	sup.Stop()
	assert.NotPanics(t, func() { sup.Stop() })
}
