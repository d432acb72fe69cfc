package jsonrpc

// Result represents the payload of a successful response
type Result interface{}

// Response represents a JSON-RPC response object
type Response struct {
	Version string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Result  Result `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// NewResponse creates a new Response object.
//
// Exactly one of result and error is set on the returned response: an error
// wins over a result, and a missing result becomes the empty object.
func NewResponse(id interface{}, result Result, err *Error) Response {
	respID, _ := NewID(id)

	if err != nil {
		result = nil
	} else if result == nil {
		result = struct{}{}
	}

	return Response{
		Version: Version,
		ID:      respID,
		Result:  result,
		Error:   err,
	}
}
