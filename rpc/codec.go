package rpc

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// gobCodec implements google.golang.org/grpc/encoding.Codec, standing
// in for a protobuf-generated codec since protoc cannot run in this
// environment. Registered on both client and server via
// grpc.ForceCodec/grpc.ForceServerCodec (see Dial/NewServer in dial.go) so
// every call on this surface uses it consistently.
type gobCodec struct{}

func (gobCodec) Name() string { return "gob" }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("rpc: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("rpc: gob unmarshal: %w", err)
	}
	return nil
}
