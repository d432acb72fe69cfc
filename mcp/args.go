package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Arguments holds the untyped arguments of a tool call
type Arguments map[string]any

// String returns the argument as text.
// A missing or null argument yields the empty string; other non-string
// values yield their JSON text.
func (a Arguments) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}

	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// QueryArgs are the arguments of execute_query
type QueryArgs struct {
	Query    string
	Database string
}

// QueryArgs projects the arguments onto QueryArgs
func (a Arguments) QueryArgs() QueryArgs {
	return QueryArgs{
		Query:    a.String("query"),
		Database: a.String("database"),
	}
}

// SchemaArgs are the arguments of get_table_schema
type SchemaArgs struct {
	Database string
	Table    string
}

// SchemaArgs projects the arguments onto SchemaArgs
func (a Arguments) SchemaArgs() SchemaArgs {
	return SchemaArgs{
		Database: a.String("database"),
		Table:    a.String("table"),
	}
}

var errMissingParams = errors.New("params are required")

// decodeToolCallParams decodes a tools/call params payload into a generic
// map and then projects it onto ToolCallParams.
func decodeToolCallParams(raw json.RawMessage) (ToolCallParams, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ToolCallParams{}, errMissingParams
	}

	var generic map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return ToolCallParams{}, fmt.Errorf("params must be an object: %w", err)
	}
	if generic == nil {
		return ToolCallParams{}, errMissingParams
	}

	var params ToolCallParams
	switch name := generic["name"].(type) {
	case string:
		params.Name = name
	case nil:
	default:
		return ToolCallParams{}, fmt.Errorf("name must be a string, got %T", name)
	}

	switch args := generic["arguments"].(type) {
	case map[string]any:
		params.Arguments = Arguments(args)
	case nil:
		params.Arguments = Arguments{}
	default:
		return ToolCallParams{}, fmt.Errorf("arguments must be an object, got %T", args)
	}

	return params, nil
}
