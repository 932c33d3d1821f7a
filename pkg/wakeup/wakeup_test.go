package wakeup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

func TestStop_IdempotentWithoutStart(t *testing.T) {
	l := New("postgres://unused", &countingWaker{})
	assert.NotPanics(t, func() {
		l.Stop(context.Background())
		l.Stop(context.Background())
	})
}
