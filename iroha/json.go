package iroha

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CommandsJSON renders serialized command records (the Commands range of a
// Transaction) as a JSON array using the protobuf JSON mapping.
func CommandsJSON(commands []byte) (string, error) {
	msg := dynamicpb.NewMessage(commandsDescriptor)
	if err := proto.Unmarshal(commands, msg); err != nil {
		return "", fmt.Errorf("failed to unmarshal commands: %w", err)
	}

	list := msg.Get(commandsDescriptor.Fields().ByNumber(fieldReducedCommands)).List()

	var buf bytes.Buffer

	buf.WriteByte('[')

	for i := 0; i < list.Len(); i++ {
		raw, err := protojson.Marshal(list.Get(i).Message().Interface())
		if err != nil {
			return "", fmt.Errorf("failed to marshal command %d: %w", i, err)
		}

		if i > 0 {
			buf.WriteByte(',')
		}

		// protojson output is deliberately unstable in whitespace
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
	}

	buf.WriteByte(']')

	return buf.String(), nil
}
