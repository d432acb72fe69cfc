package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/infinity-mcp/jsonrpc"
)

type gatewayCall struct {
	op   string
	args []string
}

// fakeGateway records every call and answers with canned text
type fakeGateway struct {
	calls []gatewayCall
	text  string
	err   error
	panic string
}

var _ Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) answer(op string, args ...string) (string, error) {
	g.calls = append(g.calls, gatewayCall{op: op, args: args})
	if g.panic != "" {
		panic(g.panic)
	}
	return g.text, g.err
}

func (g *fakeGateway) ExecuteQuery(_ context.Context, query, database string) (string, error) {
	return g.answer("execute", query, database)
}

func (g *fakeGateway) ListDatabases(_ context.Context) (string, error) {
	return g.answer("list")
}

func (g *fakeGateway) GetTableSchema(_ context.Context, database, table string) (string, error) {
	return g.answer("schema", database, table)
}

func newTestServer(t *testing.T, gateway *fakeGateway) *Server {
	t.Helper()

	server, err := NewServer(WithGateway(gateway))
	require.NoError(t, err)
	return server
}

// decodeResult re-encodes a response result into v
func decodeResult(t *testing.T, response jsonrpc.Response, v interface{}) {
	t.Helper()

	require.Nil(t, response.Error)
	data, err := json.Marshal(response.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
