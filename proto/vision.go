package modelv1

import (
	"context"

	"google.golang.org/grpc"
)

const visionServiceName = "sage.model.v1.VisionService"

// DescribeRequest is the Describe RPC's request message: a fixed system
// prompt, a base64-encoded image, and the last N turns of conversation
// for context.
type DescribeRequest struct {
	Model        string                 `json:"model"`
	SystemPrompt string                 `json:"system_prompt"`
	ImageBase64  string                 `json:"image_base64"`
	ContextTail  []*ConversationMessage `json:"context_tail,omitempty"`
}

// DescribeResponse carries the model's plain-text image description.
type DescribeResponse struct {
	Description string `json:"description"`
}

// VisionServiceClient is the client API for VisionService.
type VisionServiceClient interface {
	Describe(ctx context.Context, in *DescribeRequest, opts ...grpc.CallOption) (*DescribeResponse, error)
}

type visionServiceClient struct {
	cc *grpc.ClientConn
}

// NewVisionServiceClient constructs a client bound to an existing connection.
func NewVisionServiceClient(cc *grpc.ClientConn) VisionServiceClient {
	return &visionServiceClient{cc: cc}
}

func (c *visionServiceClient) Describe(ctx context.Context, in *DescribeRequest, opts ...grpc.CallOption) (*DescribeResponse, error) {
	out := new(DescribeResponse)
	if err := c.cc.Invoke(ctx, "/"+visionServiceName+"/Describe", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
