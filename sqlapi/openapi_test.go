package sqlapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `{
	"openapi": "3.0.1",
	"info": {"title": "SqlApi", "version": "v1"},
	"paths": {
		"/api/query/execute": {
			"post": {"responses": {"200": {"description": "OK"}}}
		},
		"/api/databases": {
			"get": {"responses": {"200": {"description": "OK"}}}
		},
		"/api/Schema/{db}/{name}": {
			"get": {
				"parameters": [
					{"name": "db", "in": "path", "required": true, "schema": {"type": "string"}},
					{"name": "name", "in": "path", "required": true, "schema": {"type": "string"}}
				],
				"responses": {"200": {"description": "OK"}}
			}
		}
	}
}`

const partialSpec = `{
	"openapi": "3.0.1",
	"info": {"title": "SqlApi", "version": "v2"},
	"paths": {
		"/api/query/execute": {
			"get": {"responses": {"200": {"description": "OK"}}}
		},
		"/api/databases": {
			"get": {"responses": {"200": {"description": "OK"}}}
		}
	}
}`

func TestClient_CheckEndpoints(t *testing.T) {
	client := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swagger/v1/swagger.json":
			w.Write([]byte(testSpec))
		case "/openapi/partial.json":
			w.Write([]byte(partialSpec))
		default:
			http.NotFound(w, r)
		}
	})

	report, err := client.CheckEndpoints(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, "SqlApi", report.Title)
	assert.Equal(t, "v1", report.Version)
	assert.Equal(t, Endpoints, report.Found)

	report, err = client.CheckEndpoints(context.Background(), "openapi/partial.json")
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []Endpoint{
		{Method: http.MethodPost, Path: "/api/query/execute"},
		{Method: http.MethodGet, Path: "/api/schema/{database}/{table}"},
	}, report.Missing)
	assert.Equal(t, "POST /api/query/execute", report.Missing[0].String())

	_, err = client.CheckEndpoints(context.Background(), client.BaseURL()+"/nowhere.json")
	assert.Error(t, err)
}

func TestCheckDocument_Invalid(t *testing.T) {
	_, err := checkDocument([]byte(`not an openapi document`))
	assert.Error(t, err)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/schema/{}/{}", normalizePath("/api/Schema/{database}/{table}/"))
	assert.Equal(t, "/api/databases", normalizePath("/api/databases"))
}
