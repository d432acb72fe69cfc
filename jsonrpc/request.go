package jsonrpc

import "encoding/json"

// Version is the JSON-RPC protocol version tag
const Version = "2.0"

// Request represents a JSON-RPC request object
type Request struct {
	Version string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest creates a new Request object.
// An id that is not a string, number, ID or nil is replaced with null.
func NewRequest(method string, params json.RawMessage, id interface{}) Request {
	reqID, _ := NewID(id)

	return Request{
		Version: Version,
		ID:      reqID,
		Method:  method,
		Params:  params,
	}
}
