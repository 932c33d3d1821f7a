// Package vision implements the Vision Pre-processor (spec §4.9): an
// optional image-to-description step that runs before a message with an
// image attachment reaches the Agent Step Loop.
//
// Generalizes pkg/embedding's grpc dial/stub pattern for a vision-capable
// model, grounded on the original implementation's describe_image contract
// (fixed system prompt, base64 image, formatted conversation tail).
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/sage/pkg/agent"
	"github.com/codeready-toolchain/sage/pkg/config"
	modelv1 "github.com/codeready-toolchain/sage/proto"

	"google.golang.org/grpc"
)

// MaxContextTailTurns bounds how many prior conversation turns accompany
// the image (spec §4.9: "up to 6 turns").
const MaxContextTailTurns = 6

// systemPrompt is fixed per spec §4.9 ("describe in detail").
const systemPrompt = "You are an image description agent. Describe the image in extreme detail and accuracy: " +
	"objects, people, text, colors, layout, setting, and any other relevant details. " +
	"If there is text in the image, transcribe it exactly. Output only the description, nothing else."

// SupportedMIMETypes is the vision pre-processor's MIME allowlist (spec
// §4.9).
var SupportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Supported reports whether mimeType is one the pre-processor handles.
func Supported(mimeType string) bool { return SupportedMIMETypes[mimeType] }

// Preprocessor describes an image and folds the result into the user's
// message text.
type Preprocessor struct {
	conn   *grpc.ClientConn
	client modelv1.VisionServiceClient
	cfg    config.VisionConfig
}

// NewGRPCPreprocessor dials addr and returns a Preprocessor bound to cfg's
// model. A zero-value VisionConfig (no model configured) means vision
// pre-processing is disabled; callers should skip constructing one.
func NewGRPCPreprocessor(addr string, cfg config.VisionConfig) (*Preprocessor, error) {
	conn, err := modelv1.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("create vision client for %s: %w", addr, err)
	}
	return &Preprocessor{conn: conn, client: modelv1.NewVisionServiceClient(conn), cfg: cfg}, nil
}

// Close releases the gRPC connection.
func (p *Preprocessor) Close() error { return p.conn.Close() }

// Describe calls the vision model on imageData and returns its description.
// tail is the last few turns of conversation for context (spec §4.9);
// callers should pass at most MaxContextTailTurns.
func (p *Preprocessor) Describe(ctx context.Context, imageData []byte, mimeType, userMessage string, tail []agent.ConversationMessage) (string, error) {
	if !Supported(mimeType) {
		return "", fmt.Errorf("vision: unsupported MIME type %q", mimeType)
	}

	contextTail := make([]*modelv1.ConversationMessage, 0, len(tail))
	for _, m := range tail {
		contextTail = append(contextTail, &modelv1.ConversationMessage{Role: m.Role, Content: m.Content})
	}

	req := &modelv1.DescribeRequest{
		Model:        p.cfg.Model,
		SystemPrompt: buildPrompt(userMessage),
		ImageBase64:  base64.StdEncoding.EncodeToString(imageData),
		ContextTail:  contextTail,
	}

	resp, err := p.client.Describe(ctx, req)
	if err != nil {
		slog.Error("vision: describe call failed", "err", err)
		return "", fmt.Errorf("vision: describe image: %w", err)
	}
	return resp.Description, nil
}

func buildPrompt(userMessage string) string {
	if userMessage == "" {
		return systemPrompt
	}
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nThe user sent this message alongside the image: \"")
	sb.WriteString(userMessage)
	sb.WriteString("\"")
	return sb.String()
}

// FormatAnnotation renders a completed description as the inline
// annotation appended to the user message (spec §4.9): "[Uploaded Image:
// <description>]".
func FormatAnnotation(description string) string {
	return fmt.Sprintf("[Uploaded Image: %s]", description)
}

// Tail trims msgs to at most MaxContextTailTurns, keeping the most recent.
func Tail(msgs []agent.ConversationMessage) []agent.ConversationMessage {
	if len(msgs) <= MaxContextTailTurns {
		return msgs
	}
	return msgs[len(msgs)-MaxContextTailTurns:]
}
