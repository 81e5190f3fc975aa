package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// Encoder serializes an event into a message payload.
type Encoder func(dto.DetectionEvent) ([]byte, error)

// NewEncoder returns the encoder for name (json or msgpack).
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case EncodingJSON, "":
		return encodeJSON, nil
	case EncodingMsgpack:
		return encodeMsgpack, nil
	default:
		return nil, fmt.Errorf("unknown event encoding %q", name)
	}
}

func encodeJSON(e dto.DetectionEvent) ([]byte, error) {
	return json.Marshal(e)
}

// encodeMsgpack reuses the json field names so both payloads share keys.
func encodeMsgpack(e dto.DetectionEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
