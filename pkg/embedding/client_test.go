package embedding

import (
	"context"
	"errors"
	"testing"

	modelv1 "github.com/codeready-toolchain/sage/proto"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/pgvec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc"
)

type stubEmbeddingService struct {
	resp *modelv1.EmbedResponse
	err  error
	n    int
}

func (s *stubEmbeddingService) EmbedBatch(ctx context.Context, in *modelv1.EmbedRequest, opts ...grpc.CallOption) (*modelv1.EmbedResponse, error) {
	s.n++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func newTestClient(stub modelv1.EmbeddingServiceClient) *grpcClient {
	return &grpcClient{client: stub, cfg: config.EmbeddingConfig{Model: "test-model"}}
}

func TestEmbedBatch_Success(t *testing.T) {
	stub := &stubEmbeddingService{resp: &modelv1.EmbedResponse{Vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}}}}
	c := newTestClient(stub)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, pgvec.Vector{0.1, 0.2}, vecs[0])
	assert.Equal(t, 1, stub.n)
}

func TestEmbed_SingleText(t *testing.T) {
	stub := &stubEmbeddingService{resp: &modelv1.EmbedResponse{Vectors: [][]float32{{0.5}}}}
	c := newTestClient(stub)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, pgvec.Vector{0.5}, vec)
}

func TestEmbedBatch_FailureReturnsZeroVectorNoError(t *testing.T) {
	stub := &stubEmbeddingService{err: errors.New("provider unavailable")}
	c := newTestClient(stub)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, pgvec.Dim)
		for _, f := range v {
			assert.Zero(t, f)
		}
	}
	assert.Equal(t, MaxRetries, stub.n)
}
