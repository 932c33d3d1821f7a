// Package modelv1 is the Go client stub for the model-serving sidecar:
// one gRPC connection, three services (LLM generation, embedding,
// vision description) sharing a JSON wire codec.
//
// The teacher generates its single reasoning-service stub from a .proto
// file with protoc; this package plays the same role for three services
// but is hand-maintained rather than protoc-generated, since a full
// protobuf toolchain is not available in this build environment. It uses
// gRPC's pluggable-codec hook (encoding.RegisterCodec) to marshal request
// and response structs as JSON instead of wire-format protobuf, so the
// types below are plain Go structs rather than generated protoreflect
// messages. Transport (HTTP/2 framing, streaming, connection reuse,
// deadlines) is genuine gRPC throughout.
package modelv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype these stubs negotiate.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }
