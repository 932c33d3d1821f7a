package modelv1

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a connection to the model-serving sidecar, shared by the
// LLM, embedding, and vision stub constructors. Plaintext transport —
// the sidecar is expected to run alongside the process (localhost or a
// pod sidecar), matching the teacher's llm_grpc.go assumption.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial model service at %s: %w", addr, err)
	}
	return conn, nil
}
