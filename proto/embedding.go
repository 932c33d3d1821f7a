package modelv1

import (
	"context"

	"google.golang.org/grpc"
)

const embeddingServiceName = "sage.model.v1.EmbeddingService"

// EmbedRequest is the EmbedBatch RPC's request message.
type EmbedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// EmbedResponse carries one vector per input text, in order.
type EmbedResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// EmbeddingServiceClient is the client API for EmbeddingService.
type EmbeddingServiceClient interface {
	EmbedBatch(ctx context.Context, in *EmbedRequest, opts ...grpc.CallOption) (*EmbedResponse, error)
}

type embeddingServiceClient struct {
	cc *grpc.ClientConn
}

// NewEmbeddingServiceClient constructs a client bound to an existing connection.
func NewEmbeddingServiceClient(cc *grpc.ClientConn) EmbeddingServiceClient {
	return &embeddingServiceClient{cc: cc}
}

func (c *embeddingServiceClient) EmbedBatch(ctx context.Context, in *EmbedRequest, opts ...grpc.CallOption) (*EmbedResponse, error) {
	out := new(EmbedResponse)
	if err := c.cc.Invoke(ctx, "/"+embeddingServiceName+"/EmbedBatch", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
