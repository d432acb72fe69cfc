package sqlapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// indentJSON pretty-prints data, returning ok=false when data is not JSON
func indentJSON(data []byte) (string, bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}

func formatQueryResult(data []byte) string {
	if formatted, ok := indentJSON(data); ok {
		return formatted
	}
	return string(data)
}

func formatListResult(data []byte, title string) string {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return string(data)
	}
	if len(items) == 0 {
		return NoResults
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "  - %s\n", item)
	}
	return sb.String()
}

func formatSchemaResult(data []byte, database, table string) string {
	formatted, ok := indentJSON(data)
	if !ok {
		return string(data)
	}
	return fmt.Sprintf("Esquema de %s.%s:\n%s", database, table, formatted)
}
