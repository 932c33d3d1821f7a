package agent

import (
	"context"
	"fmt"
	"io"

	modelv1 "github.com/codeready-toolchain/sage/proto"
	"google.golang.org/grpc"
)

// GRPCLLMClient implements LLMClient by calling the model-serving sidecar
// over gRPC.
type GRPCLLMClient struct {
	conn    *grpc.ClientConn
	client  modelv1.LLMServiceClient
	fallback *modelv1.LLMConfig // used when GenerateInput.Config is nil
}

// NewGRPCLLMClient dials addr and returns a client that falls back to cfg
// when a call doesn't supply its own LLMConfig.
func NewGRPCLLMClient(addr string, cfg *modelv1.LLMConfig) (*GRPCLLMClient, error) {
	conn, err := modelv1.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("create LLM client for %s: %w", addr, err)
	}
	return &GRPCLLMClient{
		conn:     conn,
		client:   modelv1.NewLLMServiceClient(conn),
		fallback: cfg,
	}, nil
}

// Generate sends a conversation to the LLM and returns a channel of chunks.
func (c *GRPCLLMClient) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	req := toProtoRequest(input, c.fallback)

	stream, err := c.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gRPC Generate call failed: %w", err)
	}

	ch := make(chan Chunk, 32)
	go func() {
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- &ErrorChunk{Message: err.Error(), Retryable: false}:
				case <-ctx.Done():
				}
				return
			}
			chunk := fromProtoResponse(resp)
			if chunk != nil {
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close releases the gRPC connection.
func (c *GRPCLLMClient) Close() error {
	return c.conn.Close()
}

func toProtoRequest(input *GenerateInput, fallback *modelv1.LLMConfig) *modelv1.GenerateRequest {
	req := &modelv1.GenerateRequest{
		Messages: toProtoMessages(input.Messages),
		Tools:    toProtoTools(input.Tools),
	}
	switch {
	case input.Config != nil:
		req.LLMConfig = &modelv1.LLMConfig{APIURL: input.Config.APIURL, APIKey: input.Config.APIKey, Model: input.Config.Model}
	case fallback != nil:
		req.LLMConfig = fallback
	}
	return req
}

func toProtoMessages(msgs []ConversationMessage) []*modelv1.ConversationMessage {
	out := make([]*modelv1.ConversationMessage, len(msgs))
	for i, m := range msgs {
		pm := &modelv1.ConversationMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			pm.ToolCalls = append(pm.ToolCalls, modelv1.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out[i] = pm
	}
	return out
}

func toProtoTools(tools []ToolDefinition) []*modelv1.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]*modelv1.ToolDefinition, len(tools))
	for i, t := range tools {
		out[i] = &modelv1.ToolDefinition{Name: t.Name, Description: t.Description, ParametersSchema: t.ParametersSchema}
	}
	return out
}

func fromProtoResponse(resp *modelv1.GenerateResponse) Chunk {
	switch {
	case resp.Text != nil:
		return &TextChunk{Content: resp.Text.Content}
	case resp.ToolCall != nil:
		return &ToolCallChunk{CallID: resp.ToolCall.CallID, Name: resp.ToolCall.Name, Arguments: resp.ToolCall.Arguments}
	case resp.Usage != nil:
		return &UsageChunk{
			InputTokens:    int(resp.Usage.InputTokens),
			OutputTokens:   int(resp.Usage.OutputTokens),
			TotalTokens:    int(resp.Usage.TotalTokens),
			ThinkingTokens: int(resp.Usage.ThinkingTokens),
		}
	case resp.Error != nil:
		return &ErrorChunk{Message: resp.Error.Message, Code: resp.Error.Code, Retryable: resp.Error.Retryable}
	case resp.IsFinal:
		return nil
	default:
		return nil
	}
}
