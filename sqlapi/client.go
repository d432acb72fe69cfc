// Package sqlapi is a client for the SQL query HTTP API.
//
// The client renders every answer as human-readable text. Transport failures
// and error statuses are reported as text too, so a caller can hand the result
// straight back to a peer.
package sqlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:7000"

// API endpoints
const (
	ExecuteQueryPath   = "/api/query/execute"
	ListDatabasesPath  = "/api/databases"
	TableSchemaPathFmt = "/api/schema/%s/%s"
)

// maxBodySize bounds how much of a response body is read
const maxBodySize = 32 * 1024 * 1024

// NoResults is returned when a listing is empty
const NoResults = "No se encontraron elementos."

// Client calls the SQL API
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		client:  http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

type queryRequest struct {
	Query    string `json:"query"`
	Database string `json:"database"`
}

// ExecuteQuery runs query against database and returns the result as indented JSON
func (c *Client) ExecuteQuery(ctx context.Context, query, database string) (string, error) {
	payload, err := json.Marshal(queryRequest{Query: query, Database: database})
	if err != nil {
		return "", fmt.Errorf("error encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExecuteQueryPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	body, err := c.do(req)
	if err != nil {
		c.logger.Warn("query failed", "database", database, "error", err)
		return fmt.Sprintf("Error ejecutando query: %v", err), nil
	}

	return formatQueryResult(body), nil
}

// ListDatabases returns a bulleted listing of the available databases
func (c *Client) ListDatabases(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ListDatabasesPath, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		c.logger.Warn("listing databases failed", "error", err)
		return fmt.Sprintf("Error listando bases de datos: %v", err), nil
	}

	return formatListResult(body, "Bases de datos disponibles:"), nil
}

// GetTableSchema returns the schema of database.table as indented JSON
func (c *Client) GetTableSchema(ctx context.Context, database, table string) (string, error) {
	path := fmt.Sprintf(TableSchemaPathFmt, url.PathEscape(database), url.PathEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		c.logger.Warn("fetching schema failed", "database", database, "table", table, "error", err)
		return fmt.Sprintf("Error obteniendo esquema: %v", err), nil
	}

	return formatSchemaResult(body, database, table), nil
}

// StatusError reports a response with a non-success status code
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("response status code does not indicate success: %s", e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "method", req.Method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	c.logger.Debug("received response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(strings.TrimSpace(string(body)), 512),
		}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "…"
}
