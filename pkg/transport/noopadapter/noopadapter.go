// Package noopadapter implements transport.Adapter with no real transport,
// for local development and tests run without a live messaging platform
// (config.MessengerNoop).
package noopadapter

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/sage/pkg/transport"
)

// Adapter never produces inbound messages and logs outbound ones instead of
// sending them.
type Adapter struct {
	inbound chan transport.IncomingMessage
	logger  *slog.Logger
}

var _ transport.Adapter = (*Adapter)(nil)

// New constructs a no-op Adapter.
func New() *Adapter {
	return &Adapter{
		inbound: make(chan transport.IncomingMessage),
		logger:  slog.Default().With("component", "noopadapter"),
	}
}

func (a *Adapter) Inbound() <-chan transport.IncomingMessage { return a.inbound }

// Run blocks until ctx is cancelled — there is no transport to connect to.
func (a *Adapter) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (a *Adapter) SendMessage(ctx context.Context, identity, text string) error {
	a.logger.Info("noop send_message", "identity", identity, "text", text)
	return nil
}

func (a *Adapter) SendTyping(ctx context.Context, identity string, stop bool) error {
	return nil
}

func (a *Adapter) Refresh(ctx context.Context) error { return nil }

func (a *Adapter) FetchAttachment(ctx context.Context, url string) ([]byte, error) {
	return nil, nil
}
