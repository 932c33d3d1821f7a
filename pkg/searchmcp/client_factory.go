package searchmcp

import (
	"context"

	"github.com/codeready-toolchain/sage/pkg/config"
)

// ClientFactory creates Client instances bound to the configured
// web-search server. One Client is created at startup and shared for the
// life of the process (pkg/tools.Registry holds it); tests construct their
// own via NewTestClientFactory.
type ClientFactory struct {
	registry *config.MCPServerRegistry

	// createClientFn, when set, replaces the normal Initialize() transport
	// path. Used by NewTestClientFactory to inject in-memory sessions.
	createClientFn func(ctx context.Context, serverIDs []string) (*Client, error)
}

// NewClientFactory creates a factory wired to the given web-search transport.
func NewClientFactory(transport config.TransportConfig) *ClientFactory {
	registry := config.NewMCPServerRegistry(map[string]*config.MCPServerConfig{
		ServerID: {Transport: transport},
	})
	return &ClientFactory{registry: registry}
}

// CreateClient connects to the web-search server. The caller must Close it.
func (f *ClientFactory) CreateClient(ctx context.Context) (*Client, error) {
	if f.createClientFn != nil {
		return f.createClientFn(ctx, []string{ServerID})
	}
	client := newClient(f.registry)
	if err := client.Initialize(ctx, []string{ServerID}); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
