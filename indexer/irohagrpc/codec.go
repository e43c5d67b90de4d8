package irohagrpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// rawCodec passes serialized protobuf messages through untouched. Requests are
// encoded and responses decoded by the iroha package.
type rawCodec struct{}

var _ encoding.Codec = rawCodec{}

func (rawCodec) Name() string {
	return "proto"
}

func (rawCodec) Marshal(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *[]byte:
		return *msg, nil
	case []byte:
		return msg, nil
	default:
		return nil, fmt.Errorf("raw codec cannot marshal %T", v)
	}
}

// Unmarshal copies data, the transport reuses its buffers.
func (rawCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec cannot unmarshal into %T", v)
	}

	*msg = append([]byte(nil), data...)

	return nil
}
