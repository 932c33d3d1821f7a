package modelv1

import (
	"context"

	"google.golang.org/grpc"
)

const llmServiceName = "sage.model.v1.LLMService"

// GenerateRequest is the Generate RPC's request message.
type GenerateRequest struct {
	Messages  []*ConversationMessage `json:"messages"`
	Tools     []*ToolDefinition      `json:"tools,omitempty"`
	LLMConfig *LLMConfig             `json:"llm_config,omitempty"`
}

// GenerateResponse is one streamed chunk of the Generate RPC's response.
// Exactly one of the payload fields is set per message, mirroring a
// protobuf oneof.
type GenerateResponse struct {
	IsFinal  bool           `json:"is_final,omitempty"`
	Text     *TextContent   `json:"text,omitempty"`
	ToolCall *ToolCallEvent `json:"tool_call,omitempty"`
	Usage    *UsageContent  `json:"usage,omitempty"`
	Error    *ErrorContent  `json:"error,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

type ToolCallEvent struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type UsageContent struct {
	InputTokens    int32 `json:"input_tokens"`
	OutputTokens   int32 `json:"output_tokens"`
	TotalTokens    int32 `json:"total_tokens"`
	ThinkingTokens int32 `json:"thinking_tokens"`
}

type ErrorContent struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// LLMServiceClient is the client API for LLMService.
type LLMServiceClient interface {
	Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (LLMService_GenerateClient, error)
}

// LLMService_GenerateClient streams GenerateResponse chunks.
type LLMService_GenerateClient interface {
	Recv() (*GenerateResponse, error)
}

type llmServiceClient struct {
	cc *grpc.ClientConn
}

// NewLLMServiceClient constructs a client bound to an existing connection.
func NewLLMServiceClient(cc *grpc.ClientConn) LLMServiceClient {
	return &llmServiceClient{cc: cc}
}

func (c *llmServiceClient) Generate(ctx context.Context, in *GenerateRequest, opts ...grpc.CallOption) (LLMService_GenerateClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "Generate", ServerStreams: true},
		"/"+llmServiceName+"/Generate", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &llmServiceGenerateClient{stream}, nil
}

type llmServiceGenerateClient struct {
	grpc.ClientStream
}

func (x *llmServiceGenerateClient) Recv() (*GenerateResponse, error) {
	m := new(GenerateResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
