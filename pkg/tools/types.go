// Package tools defines the tool contract the session layer hands to the
// turn framework, plus the integrations manager that fetches
// integration-provided tools on demand.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// FileReadName is the file-read capability the skills system depends on:
// prompt injection is skipped without it, and manifest reads are intercepted
// through it.
const FileReadName = "file_read"

// Tool is a capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	ValidateInput(parameters string) error
	Execute(ctx context.Context, parameters string) Result
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// Result is a tool execution outcome fed back to the model. A denial is an
// ordinary Result with Error set, not a Go error.
type Result struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// IsError reports whether the result carries an error.
func (r Result) IsError() bool {
	return r.Error != ""
}

func (r Result) String() string {
	out := ""
	if r.Error != "" {
		out = fmt.Sprintf("<error>\n%s\n</error>\n", r.Error)
	}
	if r.Result != "" {
		out += fmt.Sprintf("<result>\n%s\n</result>\n", r.Result)
	}
	return out
}

// GenerateSchema reflects a JSON schema from a tool input struct.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Names returns the names of the given tools in order.
func Names(ts []Tool) []string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name())
	}
	return names
}

// ContainsName reports whether any tool in ts has the given name.
func ContainsName(ts []Tool, name string) bool {
	for _, t := range ts {
		if t.Name() == name {
			return true
		}
	}
	return false
}
