package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the Model Context Protocol version
const Version = "2024-11-05"

// Method names
const (
	MethodInitialize              = "initialize"
	MethodInitialized             = "initialized"
	MethodInitializedNotification = "notifications/initialized"
	MethodPing                    = "ping"
	MethodToolsList               = "tools/list"
	MethodToolsCall               = "tools/call"
)

// Content types
type (
	// Content represents a block of tool output
	Content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
)

// NewTextContent creates a text content block
func NewTextContent(text string) Content {
	return Content{
		Type: "text",
		Text: text,
	}
}

// Initialize
type (
	// ToolsCapability advertises tool support
	ToolsCapability struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}

	// ServerCapabilities represents the server's supported capabilities
	ServerCapabilities struct {
		Tools *ToolsCapability `json:"tools,omitempty"`
	}

	// ServerInfo represents information about an MCP implementation
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeRequest represents a request to initialize the server
	InitializeRequest struct {
		ProtocolVersion string      `json:"protocolVersion,omitempty"`
		ClientInfo      *ServerInfo `json:"clientInfo,omitempty"`
	}

	// InitializeResponse represents the server's response to an initialize request
	InitializeResponse struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      ServerInfo         `json:"serverInfo"`
	}
)

// Tools
type (
	// Tool represents a single tool in the tools/list response
	Tool struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}

	// ToolsListResponse represents the response for the tools/list method
	ToolsListResponse struct {
		Tools []Tool `json:"tools"`
	}

	// ToolCallParams represents the parameters for the tools/call method
	ToolCallParams struct {
		Name      string    `json:"name"`
		Arguments Arguments `json:"arguments,omitempty"`
	}

	// ToolCallResponse represents the response from a tool call
	ToolCallResponse struct {
		Content []Content `json:"content"`
	}
)

// MarshalJSON encodes the tool with an object input schema that always
// carries properties and required, even when the tool takes no arguments.
func (t Tool) MarshalJSON() ([]byte, error) {
	var schema map[string]json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, err
		}
		if t.InputSchema.Type == "object" {
			if _, ok := schema["properties"]; !ok {
				schema["properties"] = json.RawMessage(`{}`)
			}
			if _, ok := schema["required"]; !ok {
				schema["required"] = json.RawMessage(`[]`)
			}
		}
	}

	return json.Marshal(struct {
		Name        string                     `json:"name"`
		Description string                     `json:"description"`
		InputSchema map[string]json.RawMessage `json:"inputSchema"`
	}{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	})
}
