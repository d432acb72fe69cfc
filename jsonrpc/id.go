package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

var null = []byte("null")

// ID represents a JSON-RPC ID, which is a string, a number or null.
//
// The ID keeps the exact JSON token it was decoded from so that a response
// echoes the request's identifier byte-for-byte: 1, 1.0 and "1" stay distinct.
// The zero value is the null ID.
type ID struct {
	raw json.RawMessage
}

// NewID creates a JSON-RPC ID from a string, number, raw JSON token or nil
func NewID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case nil:
		return ID{}, nil
	case json.RawMessage:
		var parsed ID
		if err := parsed.UnmarshalJSON(v); err != nil {
			return ID{}, err
		}
		return parsed, nil
	case string, int, int32, int64, uint, uint32, uint64, float32, float64:
		raw, err := json.Marshal(v)
		if err != nil {
			return ID{}, fmt.Errorf("invalid id %v: %w", v, err)
		}
		return ID{raw: raw}, nil
	default:
		return ID{}, fmt.Errorf("id must be string or number, got %T", id)
	}
}

// Value returns the ID as a Go value: string, int, float64 or nil
func (id ID) Value() interface{} {
	if id.IsNil() {
		return nil
	}

	if id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(id.raw, &s); err != nil {
			return nil
		}
		return s
	}

	if n, err := strconv.ParseInt(string(id.raw), 10, 0); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(string(id.raw), 64); err == nil {
		return f
	}
	return nil
}

// IsNil reports whether the ID is null or absent
func (id ID) IsNil() bool {
	return len(id.raw) == 0 || bytes.Equal(id.raw, null)
}

// Raw returns the JSON token of the ID
func (id ID) Raw() json.RawMessage {
	if len(id.raw) == 0 {
		return json.RawMessage(null)
	}
	return id.raw
}

// Equal compares two IDs by their JSON tokens.
// other may be an ID or any value accepted by NewID.
func (id ID) Equal(other interface{}) bool {
	o, err := NewID(other)
	if err != nil {
		return false
	}
	return bytes.Equal(id.Raw(), o.Raw())
}

var _ fmt.GoStringer = ID{}

// GoString implements fmt.GoStringer
func (id ID) GoString() string {
	if id.IsNil() {
		return "nil"
	}
	return string(id.raw)
}

var _ fmt.Stringer = ID{}

func (id ID) String() string {
	return string(id.Raw())
}

var _ json.Marshaler = ID{}

func (id ID) MarshalJSON() ([]byte, error) {
	return id.Raw(), nil
}

var _ json.Unmarshaler = &ID{}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return fmt.Errorf("id is not valid JSON: %q", data)
	}

	switch c := data[0]; {
	case bytes.Equal(data, null):
		id.raw = nil
		return nil
	case c == '"', c == '-', c >= '0' && c <= '9':
		id.raw = append(json.RawMessage(nil), data...)
		return nil
	default:
		return fmt.Errorf("id must be string, number or null, got %s", data)
	}
}
