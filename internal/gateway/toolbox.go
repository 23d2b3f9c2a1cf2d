package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ToolboxLoader loads tools from a toolbox server over its REST API:
//
//	GET  {base}/api/toolset/{toolset}      manifest
//	POST {base}/api/tool/{name}/invoke     {"result": "<json text>"}
type ToolboxLoader struct {
	baseURL    string
	toolset    string
	httpClient *http.Client
}

// NewToolboxLoader creates a loader for the toolbox at baseURL. An empty
// toolset selects the server's default toolset.
func NewToolboxLoader(baseURL, toolset string, timeout time.Duration) *ToolboxLoader {
	return &ToolboxLoader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		toolset:    toolset,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type toolboxManifest struct {
	ServerVersion string                         `json:"serverVersion"`
	Tools         map[string]toolboxToolManifest `json:"tools"`
}

type toolboxToolManifest struct {
	Description string `json:"description"`
}

type toolboxInvokeResponse struct {
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// LoadToolset fetches the manifest and returns one Tool per entry
func (l *ToolboxLoader) LoadToolset(ctx context.Context) ([]Tool, error) {
	url := l.baseURL + "/api/toolset/" + l.toolset
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var manifest toolboxManifest
	if err := l.do(req, &manifest); err != nil {
		return nil, fmt.Errorf("fetch toolset from %s: %w", l.baseURL, err)
	}

	tools := make([]Tool, 0, len(manifest.Tools))
	for name, m := range manifest.Tools {
		tools = append(tools, &toolboxTool{loader: l, name: name, description: m.Description})
	}
	return tools, nil
}

func (l *ToolboxLoader) do(req *http.Request, out any) error {
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("toolbox returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type toolboxTool struct {
	loader      *ToolboxLoader
	name        string
	description string
}

func (t *toolboxTool) Name() string { return t.name }

// Invoke posts args and returns the result field unchanged; the toolbox
// usually encodes rows as JSON text.
func (t *toolboxTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	url := t.loader.baseURL + "/api/tool/" + t.name + "/invoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out toolboxInvokeResponse
	if err := t.loader.do(req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("toolbox error: %s", out.Error)
	}
	return out.Result, nil
}
