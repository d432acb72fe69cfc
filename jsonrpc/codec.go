package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNullRequest is returned by DecodeRequest when the line is the JSON literal null.
// Such a line carries no request and is skipped without a response.
var ErrNullRequest = errors.New("request is null")

// DecodeRequest parses one line of input into a Request.
// The line must hold a single JSON object; batches are not supported.
func DecodeRequest(line []byte) (Request, error) {
	line = bytes.TrimSpace(line)
	if bytes.Equal(line, null) {
		return Request{}, ErrNullRequest
	}
	if len(line) == 0 || line[0] != '{' {
		return Request{}, fmt.Errorf("request must be a JSON object")
	}

	var request Request
	if err := json.Unmarshal(line, &request); err != nil {
		return Request{}, fmt.Errorf("error decoding request: %w", err)
	}
	if request.Version == "" {
		request.Version = Version
	}
	if bytes.Equal(request.Params, null) {
		request.Params = nil
	}

	return request, nil
}

// EncodeResponse serializes a Response into a single line of JSON.
// The returned line has no trailing newline.
func EncodeResponse(response Response) ([]byte, error) {
	if response.Version == "" {
		response.Version = Version
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(response); err != nil {
		return nil, fmt.Errorf("error encoding response: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
