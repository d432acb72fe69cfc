package sqlapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// DefaultSpecPath is where ASP.NET APIs publish their OpenAPI document
const DefaultSpecPath = "/swagger/v1/swagger.json"

// Endpoint is an operation the client depends on
type Endpoint struct {
	Method string
	Path   string
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

// Endpoints lists the operations used by the client
var Endpoints = []Endpoint{
	{Method: http.MethodPost, Path: ExecuteQueryPath},
	{Method: http.MethodGet, Path: ListDatabasesPath},
	{Method: http.MethodGet, Path: fmt.Sprintf(TableSchemaPathFmt, "{database}", "{table}")},
}

// EndpointReport is the outcome of CheckEndpoints
type EndpointReport struct {
	Title   string
	Version string
	Found   []Endpoint
	Missing []Endpoint
}

// OK reports whether every endpoint was found
func (r EndpointReport) OK() bool {
	return len(r.Missing) == 0
}

// CheckEndpoints fetches the API's OpenAPI document and reports which of
// the endpoints used by the client it declares.
// specPath is either a path relative to the base URL or an absolute URL.
func (c *Client) CheckEndpoints(ctx context.Context, specPath string) (EndpointReport, error) {
	if specPath == "" {
		specPath = DefaultSpecPath
	}
	specURL := specPath
	if !strings.HasPrefix(specPath, "http://") && !strings.HasPrefix(specPath, "https://") {
		specURL = c.baseURL + "/" + strings.TrimPrefix(specPath, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specURL, nil)
	if err != nil {
		return EndpointReport{}, fmt.Errorf("error creating request: %w", err)
	}

	data, err := c.do(req)
	if err != nil {
		return EndpointReport{}, fmt.Errorf("error downloading OpenAPI document: %w", err)
	}

	return checkDocument(data)
}

func checkDocument(data []byte) (EndpointReport, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return EndpointReport{}, fmt.Errorf("error parsing OpenAPI document: %w", err)
	}

	model, errs := doc.BuildV3Model()
	if errs != nil {
		return EndpointReport{}, fmt.Errorf("error building OpenAPI model: %v", errs)
	}
	if model == nil {
		return EndpointReport{}, fmt.Errorf("error building OpenAPI model: unsupported document")
	}

	declared := make(map[string]bool)
	if model.Model.Paths != nil {
		for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
			path := normalizePath(pair.Key())
			for _, method := range operations(pair.Value()) {
				declared[method+" "+path] = true
			}
		}
	}

	var report EndpointReport
	if model.Model.Info != nil {
		report.Title = model.Model.Info.Title
		report.Version = model.Model.Info.Version
	}
	for _, endpoint := range Endpoints {
		if declared[endpoint.Method+" "+normalizePath(endpoint.Path)] {
			report.Found = append(report.Found, endpoint)
		} else {
			report.Missing = append(report.Missing, endpoint)
		}
	}

	return report, nil
}

func operations(item *v3.PathItem) []string {
	var methods []string
	if item == nil {
		return methods
	}
	if item.Get != nil {
		methods = append(methods, http.MethodGet)
	}
	if item.Post != nil {
		methods = append(methods, http.MethodPost)
	}
	if item.Put != nil {
		methods = append(methods, http.MethodPut)
	}
	if item.Delete != nil {
		methods = append(methods, http.MethodDelete)
	}
	if item.Patch != nil {
		methods = append(methods, http.MethodPatch)
	}
	return methods
}

var templateParam = regexp.MustCompile(`\{[^}/]*\}`)

// normalizePath makes template parameter names and letter case irrelevant,
// so /api/schema/{db}/{name} matches /api/schema/{database}/{table}
func normalizePath(path string) string {
	path = templateParam.ReplaceAllString(path, "{}")
	return strings.ToLower(strings.TrimSuffix(path, "/"))
}
