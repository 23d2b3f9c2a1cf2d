package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPLoader loads tools from an MCP server over the streamable HTTP
// transport. The session is opened on first load and reused.
type MCPLoader struct {
	endpoint   string
	httpClient *http.Client
	client     *mcp.Client

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewMCPLoader creates a loader for the MCP endpoint
func NewMCPLoader(endpoint, version string, timeout time.Duration) *MCPLoader {
	return &MCPLoader{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		client: mcp.NewClient(&mcp.Implementation{
			Name:    "hdbsearch",
			Version: version,
		}, nil),
	}
}

func (l *MCPLoader) connect(ctx context.Context) (*mcp.ClientSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session != nil {
		return l.session, nil
	}
	transport := &mcp.StreamableClientTransport{
		Endpoint:   l.endpoint,
		HTTPClient: l.httpClient,
	}
	session, err := l.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", l.endpoint, err)
	}
	l.session = session
	return session, nil
}

// LoadToolset lists the server's tools
func (l *MCPLoader) LoadToolset(ctx context.Context) ([]Tool, error) {
	session, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, &mcpTool{session: session, name: t.Name})
	}
	return tools, nil
}

// Close ends the session if one is open
func (l *MCPLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return nil
	}
	err := l.session.Close()
	l.session = nil
	return err
}

type mcpTool struct {
	session *mcp.ClientSession
	name    string
}

func (t *mcpTool) Name() string { return t.name }

// Invoke returns the concatenated text content as JSON text, falling back
// to structured content when the server sent no text.
func (t *mcpTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return nil, fmt.Errorf("tool error: %s", text.String())
	}
	if text.Len() == 0 {
		return res.StructuredContent, nil
	}
	return text.String(), nil
}
