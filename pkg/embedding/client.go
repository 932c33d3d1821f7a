// Package embedding provides the vector-embedding client the Memory
// Hierarchy uses to embed messages, passages, and summaries for pgvector
// similarity search.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	modelv1 "github.com/codeready-toolchain/sage/proto"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/pgvec"

	"google.golang.org/grpc"
)

// MaxRetries bounds transient retry attempts before falling back to a zero
// vector, mirroring pkg/agent's MaxLLMRetries shape.
const MaxRetries = 3

// RetryBackoff is the fixed delay between retry attempts.
const RetryBackoff = 1 * time.Second

// Client embeds text for vector storage and similarity search.
type Client interface {
	// Embed returns a single vector for text.
	Embed(ctx context.Context, text string) (pgvec.Vector, error)
	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([]pgvec.Vector, error)
}

// grpcClient implements Client over the model-serving sidecar's
// EmbeddingService, generalized from pkg/agent/llm_grpc.go's dial/stub
// pattern.
type grpcClient struct {
	conn   *grpc.ClientConn
	client modelv1.EmbeddingServiceClient
	cfg    config.EmbeddingConfig
}

// NewGRPCClient dials addr and returns a Client bound to cfg's model.
func NewGRPCClient(addr string, cfg config.EmbeddingConfig) (Client, error) {
	conn, err := modelv1.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("create embedding client for %s: %w", addr, err)
	}
	return &grpcClient{
		conn:   conn,
		client: modelv1.NewEmbeddingServiceClient(conn),
		cfg:    cfg,
	}, nil
}

// Close releases the gRPC connection.
func (c *grpcClient) Close() error {
	return c.conn.Close()
}

func (c *grpcClient) Embed(ctx context.Context, text string) (pgvec.Vector, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *grpcClient) EmbedBatch(ctx context.Context, texts []string) ([]pgvec.Vector, error) {
	req := &modelv1.EmbedRequest{Model: c.cfg.Model, Texts: texts}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		resp, err := c.client.EmbedBatch(ctx, req)
		if err == nil {
			return toVectors(resp.Vectors), nil
		}
		lastErr = err
		slog.Warn("embedding call failed, retrying", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return zeroVectors(len(texts)), ctx.Err()
		case <-time.After(RetryBackoff):
		}
	}

	// Per spec: embedding failures never propagate as errors — the caller
	// gets a zero vector of the configured dimension and moves on.
	slog.Error("embedding provider exhausted retries, returning zero vectors", "err", lastErr, "count", len(texts))
	return zeroVectors(len(texts)), nil
}

func toVectors(raw [][]float32) []pgvec.Vector {
	out := make([]pgvec.Vector, len(raw))
	for i, v := range raw {
		out[i] = pgvec.Vector(v)
	}
	return out
}

func zeroVectors(n int) []pgvec.Vector {
	out := make([]pgvec.Vector, n)
	for i := range out {
		out[i] = make(pgvec.Vector, pgvec.Dim)
	}
	return out
}
