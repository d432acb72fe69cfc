package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/loopwork-ai/infinity-mcp/jsonrpc"
)

// Gateway performs the remote operations behind the tools.
// Implementations report ordinary transport failures as text and reserve
// the error return for failures that should surface as protocol errors.
type Gateway interface {
	ExecuteQuery(ctx context.Context, query, database string) (string, error)
	ListDatabases(ctx context.Context) (string, error)
	GetTableSchema(ctx context.Context, database, table string) (string, error)
}

// State is the lifecycle state of a session
type State int

const (
	StateAwaitingInitialize State = iota
	StateReady
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInitialize:
		return "awaiting-initialize"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type methodHandler func(ctx context.Context, request jsonrpc.Request) jsonrpc.Response

type toolHandler func(ctx context.Context, args Arguments) (string, error)

// Server dispatches JSON-RPC requests to MCP method handlers.
//
// Requests are served regardless of state: initialize only moves the session
// to Ready, it does not gate the other methods.
type Server struct {
	registry *Registry
	gateway  Gateway
	info     ServerInfo
	logger   *slog.Logger
	state    State

	methods map[string]methodHandler
	tools   map[string]toolHandler
}

var _ jsonrpc.Handler = (*Server)(nil)

// ServerOption configures how we set up the server
type ServerOption func(*Server) error

// WithGateway sets the gateway the tools delegate to
func WithGateway(gateway Gateway) ServerOption {
	return func(s *Server) error {
		s.gateway = gateway
		return nil
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithServerInfo sets the identity reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		if name == "" {
			return fmt.Errorf("server name is required")
		}
		s.info = ServerInfo{Name: name, Version: version}
		return nil
	}
}

// WithRegistry replaces the default tool registry
func WithRegistry(registry *Registry) ServerOption {
	return func(s *Server) error {
		s.registry = registry
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:   ServerInfo{Name: "sql-query-server", Version: "1.0.0"},
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if s.registry == nil {
		registry, err := NewRegistry()
		if err != nil {
			return nil, err
		}
		s.registry = registry
	}

	s.methods = map[string]methodHandler{
		MethodInitialize:              s.handleInitialize,
		MethodInitialized:             s.handleInitialized,
		MethodInitializedNotification: s.handleInitialized,
		MethodPing:                    s.handlePing,
		MethodToolsList:               s.handleToolsList,
		MethodToolsCall:               s.handleToolsCall,
	}

	s.tools = map[string]toolHandler{
		ToolExecuteQuery: func(ctx context.Context, args Arguments) (string, error) {
			a := args.QueryArgs()
			return s.gateway.ExecuteQuery(ctx, a.Query, a.Database)
		},
		ToolListDatabases: func(ctx context.Context, _ Arguments) (string, error) {
			return s.gateway.ListDatabases(ctx)
		},
		ToolGetTableSchema: func(ctx context.Context, args Arguments) (string, error) {
			a := args.SchemaArgs()
			return s.gateway.GetTableSchema(ctx, a.Database, a.Table)
		},
	}

	return s, nil
}

// State returns the current session state
func (s *Server) State() State {
	return s.state
}

// Terminate marks the session as ended
func (s *Server) Terminate() {
	if s.state != StateTerminated {
		s.logger.Info("session terminated", "previous_state", s.state)
	}
	s.state = StateTerminated
}

// Handle processes a single JSON-RPC request and returns a response
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) (response jsonrpc.Response) {
	s.logger.Info("method received", "method", request.Method, "id", request.ID)

	handler, ok := s.methods[request.Method]
	if !ok {
		s.logger.Warn("method not found", "method", request.Method)
		msg := fmt.Sprintf("Method not found: %s", request.Method)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorWithMessage(jsonrpc.ErrMethodNotFound, msg, nil))
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handling request", "method", request.Method, "panic", r)
			response = jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInternal, fmt.Sprint(r)))
		}
	}()

	return handler(ctx, request)
}

func (s *Server) handleInitialize(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params InitializeRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			s.logger.Debug("ignoring malformed initialize params", "error", err)
		}
	}
	if params.ClientInfo != nil {
		s.logger.Info("client connected",
			"client", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
			"protocol_version", params.ProtocolVersion)
	}

	if s.state != StateTerminated {
		s.state = StateReady
	}

	return jsonrpc.NewResponse(request.ID, InitializeResponse{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: s.info,
	}, nil)
}

func (s *Server) handleInitialized(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	s.logger.Info("client initialized")
	if s.state != StateTerminated {
		s.state = StateReady
	}
	return jsonrpc.NewResponse(request.ID, struct{}{}, nil)
}

func (s *Server) handlePing(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.ID, struct{}{}, nil)
}

func (s *Server) handleToolsList(_ context.Context, request jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.NewResponse(request.ID, ToolsListResponse{Tools: s.registry.Tools()}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	params, err := decodeToolCallParams(request.Params)
	if err != nil {
		s.logger.Warn("invalid tool call params", "error", err)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
	}

	if err := s.registry.Validate(params.Name, params.Arguments); err != nil {
		s.logger.Debug("arguments do not match input schema", "tool", params.Name, "error", err)
	}

	text, err := s.callTool(ctx, params)
	if err != nil {
		s.logger.Error("error executing tool", "tool", params.Name, "error", err)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewErrorWithMessage(jsonrpc.ErrInternal, "Error ejecutando tool", err))
	}

	return jsonrpc.NewResponse(request.ID, ToolCallResponse{
		Content: []Content{NewTextContent(text)},
	}, nil)
}

func (s *Server) callTool(ctx context.Context, params ToolCallParams) (text string, err error) {
	handler, ok := s.tools[params.Name]
	if !ok {
		s.logger.Warn("unknown tool", "tool", params.Name)
		return fmt.Sprintf("Tool desconocida: %s", params.Name), nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", params.Name, r)
		}
	}()

	s.logger.Debug("calling tool", "tool", params.Name)
	return handler(ctx, params.Arguments)
}
