package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName selects the JSON codec on calls and connections.
const CodecName = "json"

// DefaultMaxMessageSize bounds a single transport message. Results such as
// serialized conversation histories can run large; 32 MB matches the
// reference deployment default and is operator-configurable on the worker.
const DefaultMaxMessageSize = 32 << 20

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec carries arbitrary constructor arguments and results across the
// wire. Everything the runtime transports must be JSON-serializable; a value
// that is not fails its own call and nothing else.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
