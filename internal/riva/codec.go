package riva

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// rawMessage carries pre-encoded protobuf bytes through gRPC.
type rawMessage struct {
	data []byte
}

// rawCodec passes rawMessage bytes through untouched and delegates real
// protobuf messages (health checks) to the proto runtime.
type rawCodec struct{}

var _ encoding.Codec = rawCodec{}

func (rawCodec) Name() string { return "proto" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *rawMessage:
		return msg.data, nil
	case proto.Message:
		return proto.Marshal(msg)
	default:
		return nil, fmt.Errorf("riva codec: unexpected message type %T", v)
	}
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	switch msg := v.(type) {
	case *rawMessage:
		msg.data = append(msg.data[:0], data...)
		return nil
	case proto.Message:
		return proto.Unmarshal(data, msg)
	default:
		return fmt.Errorf("riva codec: unexpected message type %T", v)
	}
}
