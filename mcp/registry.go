package mcp

import (
	"fmt"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names
const (
	ToolExecuteQuery   = "execute_query"
	ToolListDatabases  = "list_databases"
	ToolGetTableSchema = "get_table_schema"
)

// Registry is the static catalog of tools offered to the peer.
// It is built once and never mutated.
type Registry struct {
	tools    []Tool
	resolved map[string]*jsonschema.Resolved
}

// NewRegistry builds the tool catalog and resolves each input schema
func NewRegistry() (*Registry, error) {
	tools := []Tool{
		{
			Name:        ToolExecuteQuery,
			Description: "Ejecuta una consulta SQL a través de la API",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"query":    stringProperty("La consulta SQL a ejecutar"),
				"database": stringProperty("Nombre de la base de datos"),
			}, "query", "database"),
		},
		{
			Name:        ToolListDatabases,
			Description: "Lista todas las bases de datos disponibles",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        ToolGetTableSchema,
			Description: "Obtiene el esquema de una tabla específica",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"database": stringProperty("Nombre de la base de datos"),
				"table":    stringProperty("Nombre de la tabla"),
			}, "database", "table"),
		},
	}

	r := &Registry{
		tools:    tools,
		resolved: make(map[string]*jsonschema.Resolved, len(tools)),
	}
	for _, tool := range tools {
		if _, ok := r.resolved[tool.Name]; ok {
			return nil, fmt.Errorf("duplicate tool %q", tool.Name)
		}
		resolved, err := tool.InputSchema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("error resolving input schema for %s: %w", tool.Name, err)
		}
		r.resolved[tool.Name] = resolved
	}

	return r, nil
}

// Tools returns the catalog in its fixed order
func (r *Registry) Tools() []Tool {
	return slices.Clone(r.tools)
}

// Lookup returns the descriptor for name
func (r *Registry) Lookup(name string) (Tool, bool) {
	for _, tool := range r.tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

// Validate checks args against the advertised input schema of the named tool.
// Unknown tools validate trivially; the result is advisory and never blocks a call.
func (r *Registry) Validate(name string, args Arguments) (err error) {
	resolved, ok := r.resolved[name]
	if !ok {
		return nil
	}
	instance := map[string]any(args)
	if instance == nil {
		instance = map[string]any{}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validating %s arguments: %v", name, r)
		}
	}()
	return resolved.Validate(instance)
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if properties == nil {
		properties = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
	}
}
