package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillforge/skillforge/pkg/logger"
)

// IntegrationType selects the MCP transport for an integration.
type IntegrationType string

const (
	IntegrationTypeStdio IntegrationType = "stdio"
	IntegrationTypeSSE   IntegrationType = "sse"
)

// IntegrationConfig describes one named external integration backed by an
// MCP server.
type IntegrationConfig struct {
	Type          IntegrationType   `json:"type" yaml:"type"`
	Command       string            `json:"command" yaml:"command"`
	Args          []string          `json:"args" yaml:"args"`
	Envs          map[string]string `json:"envs" yaml:"envs"`
	BaseURL       string            `json:"base_url" yaml:"base_url"`
	Headers       map[string]string `json:"headers" yaml:"headers"`
	ToolAllowList []string          `json:"tool_allow_list" yaml:"tool_allow_list"`
}

// IntegrationsConfig maps integration names, as declared in skill manifests,
// to their server configuration.
type IntegrationsConfig struct {
	Integrations map[string]IntegrationConfig `json:"integrations" yaml:"integrations"`
}

func newIntegrationClient(config IntegrationConfig) (*client.Client, error) {
	serverType := config.Type
	if serverType == "" {
		switch {
		case config.BaseURL != "":
			serverType = IntegrationTypeSSE
		case config.Command != "":
			serverType = IntegrationTypeStdio
		default:
			return nil, errors.New("integration type is required")
		}
	}

	switch serverType {
	case IntegrationTypeStdio:
		if config.Command == "" {
			return nil, errors.New("command is required for a stdio integration")
		}
		envArgs := make([]string, 0, len(config.Envs))
		for k, v := range config.Envs {
			envArgs = append(envArgs, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewClient(transport.NewStdio(config.Command, envArgs, config.Args...)), nil
	case IntegrationTypeSSE:
		if config.BaseURL == "" {
			return nil, errors.New("base_url is required for an sse integration")
		}
		tp, err := transport.NewSSE(config.BaseURL, transport.WithHeaders(config.Headers))
		if err != nil {
			return nil, err
		}
		return client.NewClient(tp), nil
	default:
		return nil, errors.Errorf("invalid integration type: %s", serverType)
	}
}

// IntegrationManager owns the MCP clients for all configured integrations
// and fetches their tools per integration name on demand.
type IntegrationManager struct {
	clients   map[string]*client.Client
	allowList map[string][]string
	ready     map[string]bool
}

// NewIntegrationManager constructs clients for every configured integration.
func NewIntegrationManager(config IntegrationsConfig) (*IntegrationManager, error) {
	m := &IntegrationManager{
		clients:   make(map[string]*client.Client),
		allowList: make(map[string][]string),
		ready:     make(map[string]bool),
	}
	for name, cfg := range config.Integrations {
		c, err := newIntegrationClient(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integration %q", name)
		}
		m.clients[name] = c
		m.allowList[name] = cfg.ToolAllowList
	}
	return m, nil
}

// Initialize starts every integration client. One integration failing to
// start must not block the others, so failures are collected and returned
// aggregated; successfully started integrations stay usable.
func (m *IntegrationManager) Initialize(ctx context.Context) error {
	var merr *multierror.Error
	for name, c := range m.clients {
		if err := m.initializeOne(ctx, name, c); err != nil {
			logger.G(ctx).WithError(err).WithField("integration", name).Warn("failed to initialize integration")
			merr = multierror.Append(merr, errors.Wrapf(err, "integration %q", name))
			continue
		}
		m.ready[name] = true
	}
	return merr.ErrorOrNil()
}

func (m *IntegrationManager) initializeOne(ctx context.Context, name string, c *client.Client) error {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "skillforge",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION

	if err := c.Start(ctx); err != nil {
		return err
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return err
	}
	logger.G(ctx).WithField("integration", name).Debug("initialized integration")
	return nil
}

// Close shuts down all integration clients.
func (m *IntegrationManager) Close(ctx context.Context) {
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			logger.G(ctx).WithError(err).WithField("integration", name).Warn("failed to close integration")
		}
	}
}

// ToolsFor fetches the tools provided by the named integrations. A fetch
// failure for one integration is logged and skipped so that it never blocks
// the others from loading.
func (m *IntegrationManager) ToolsFor(ctx context.Context, names []string) []Tool {
	var out []Tool
	for _, name := range names {
		c, ok := m.clients[name]
		if !ok {
			logger.G(ctx).WithField("integration", name).Warn("skill requires an unconfigured integration")
			continue
		}
		if !m.ready[name] {
			logger.G(ctx).WithField("integration", name).Warn("integration is not initialized, skipping its tools")
			continue
		}

		listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			logger.G(ctx).WithError(err).WithField("integration", name).Warn("failed to list integration tools")
			continue
		}
		for _, tool := range listed.Tools {
			if !toolAllowed(tool, m.allowList[name]) {
				continue
			}
			out = append(out, newIntegrationTool(name, c, tool))
		}
	}
	return out
}

func toolAllowed(tool mcp.Tool, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, name := range allowList {
		if name == tool.GetName() {
			return true
		}
	}
	return false
}

// IntegrationTool adapts one MCP server tool to the Tool contract.
type IntegrationTool struct {
	integration string
	client      *client.Client
	toolName    string
	description string
	inputSchema mcp.ToolInputSchema
}

var _ Tool = (*IntegrationTool)(nil)

func newIntegrationTool(integration string, c *client.Client, tool mcp.Tool) *IntegrationTool {
	return &IntegrationTool{
		integration: integration,
		client:      c,
		toolName:    tool.GetName(),
		description: tool.Description,
		inputSchema: tool.InputSchema,
	}
}

// Name namespaces the tool under its integration to avoid collisions across
// integrations.
func (t *IntegrationTool) Name() string {
	return fmt.Sprintf("%s_%s", t.integration, t.toolName)
}

func (t *IntegrationTool) Description() string {
	return t.description
}

func (t *IntegrationTool) GenerateSchema() *jsonschema.Schema {
	b, err := t.inputSchema.MarshalJSON()
	if err != nil {
		return GenerateSchema[map[string]any]()
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(b, &schema); err != nil {
		return GenerateSchema[map[string]any]()
	}
	return &schema
}

func (t *IntegrationTool) ValidateInput(parameters string) error {
	var input map[string]any
	return errors.Wrap(json.Unmarshal([]byte(parameters), &input), "invalid input")
}

func (t *IntegrationTool) TracingKVs(_ string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{
		attribute.String("integration", t.integration),
		attribute.String("tool", t.toolName),
	}, nil
}

func (t *IntegrationTool) Execute(ctx context.Context, parameters string) Result {
	var input map[string]any
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return Result{Error: err.Error()}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.toolName
	req.Params.Arguments = input

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return Result{Error: err.Error()}
	}

	content := ""
	for _, c := range result.Content {
		if v, ok := c.(mcp.TextContent); ok {
			content += v.Text
		} else {
			content += fmt.Sprintf("%v", c)
		}
	}
	return Result{Result: content}
}
