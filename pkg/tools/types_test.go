package tools

import (
	"context"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

type stubTool struct {
	name string
}

func (t stubTool) Name() string                      { return t.name }
func (t stubTool) Description() string               { return "stub" }
func (t stubTool) GenerateSchema() *jsonschema.Schema { return &jsonschema.Schema{} }
func (t stubTool) ValidateInput(string) error        { return nil }
func (t stubTool) Execute(context.Context, string) Result {
	return Result{Result: "ok"}
}
func (t stubTool) TracingKVs(string) ([]attribute.KeyValue, error) { return nil, nil }

func TestResult(t *testing.T) {
	ok := Result{Result: "done"}
	assert.False(t, ok.IsError())
	assert.Equal(t, "<result>\ndone\n</result>\n", ok.String())

	failed := Result{Error: "boom"}
	assert.True(t, failed.IsError())
	assert.Equal(t, "<error>\nboom\n</error>\n", failed.String())

	empty := Result{}
	assert.False(t, empty.IsError())
	assert.Empty(t, empty.String())
}

type sampleInput struct {
	FilePath string `json:"file_path" jsonschema:"description=Path of the file to read"`
	Offset   int    `json:"offset,omitempty"`
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[sampleInput]()
	require.NotNil(t, schema)
	require.NotNil(t, schema.Properties)

	prop, ok := schema.Properties.Get("file_path")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)
	assert.Contains(t, schema.Required, "file_path")
	assert.NotContains(t, schema.Required, "offset")
}

func TestNamesAndContainsName(t *testing.T) {
	ts := []Tool{stubTool{name: "bash"}, stubTool{name: FileReadName}}

	assert.Equal(t, []string{"bash", FileReadName}, Names(ts))
	assert.True(t, ContainsName(ts, FileReadName))
	assert.False(t, ContainsName(ts, "deploy"))
	assert.False(t, ContainsName(nil, FileReadName))
}

func TestNewIntegrationClientValidation(t *testing.T) {
	_, err := newIntegrationClient(IntegrationConfig{})
	assert.Error(t, err)

	_, err = newIntegrationClient(IntegrationConfig{Type: IntegrationTypeStdio})
	assert.Error(t, err)

	_, err = newIntegrationClient(IntegrationConfig{Type: IntegrationTypeSSE})
	assert.Error(t, err)

	_, err = newIntegrationClient(IntegrationConfig{Type: "websocket"})
	assert.Error(t, err)

	c, err := newIntegrationClient(IntegrationConfig{Command: "echo"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestToolsForUnknownIntegration(t *testing.T) {
	m, err := NewIntegrationManager(IntegrationsConfig{})
	require.NoError(t, err)

	assert.Empty(t, m.ToolsFor(context.Background(), []string{"jira"}))
}

func TestToolsForUninitializedIntegration(t *testing.T) {
	m, err := NewIntegrationManager(IntegrationsConfig{
		Integrations: map[string]IntegrationConfig{
			"jira": {Command: "false"},
		},
	})
	require.NoError(t, err)

	// never initialized, so its tools are skipped rather than fetched
	assert.Empty(t, m.ToolsFor(context.Background(), []string{"jira"}))
}
