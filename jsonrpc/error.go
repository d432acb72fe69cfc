package jsonrpc

import (
	"fmt"
)

// ErrorCode represents a JSON-RPC error code
type ErrorCode int

// JSON-RPC 2.0 error codes as defined in https://www.jsonrpc.org/specification
const (
	// Parse error (-32700)
	// Invalid JSON was received by the server.
	ErrParse ErrorCode = -32700

	// Invalid Request (-32600)
	// The JSON sent is not a valid Request object.
	ErrInvalidRequest ErrorCode = -32600

	// Method not found (-32601)
	// The method does not exist / is not available.
	ErrMethodNotFound ErrorCode = -32601

	// Invalid params (-32602)
	// Invalid method parameter(s).
	ErrInvalidParams ErrorCode = -32602

	// Internal error (-32603)
	// Internal JSON-RPC error.
	ErrInternal ErrorCode = -32603

	// Server error (-32000 to -32099)
	// Reserved for implementation-defined server-errors.
	ErrServer ErrorCode = -32000
)

// errorDetails maps error codes to their standard messages
var errorDetails = map[ErrorCode]string{
	ErrParse:          "Parse error",
	ErrInvalidRequest: "Invalid Request",
	ErrMethodNotFound: "Method not found",
	ErrInvalidParams:  "Invalid params",
	ErrInternal:       "Internal error",
	ErrServer:         "Server error",
}

// Message returns the standard message for the code.
func (c ErrorCode) Message() string {
	if msg, ok := errorDetails[c]; ok {
		return msg
	}
	if c >= -32099 && c <= -32000 {
		return "Server error"
	}
	return "Unknown error"
}

// Error represents a JSON-RPC error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

var _ error = &Error{}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError creates a new JSON-RPC error with the standard message for code.
// An error passed as data is reduced to its message so it survives encoding.
func NewError(code ErrorCode, data interface{}) *Error {
	return NewErrorWithMessage(code, code.Message(), data)
}

// NewErrorWithMessage creates a new JSON-RPC error with a custom message
func NewErrorWithMessage(code ErrorCode, message string, data interface{}) *Error {
	if err, ok := data.(error); ok {
		data = err.Error()
	}

	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
