package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Caller invokes one memory tool and decodes its JSON result into out.
type Caller interface {
	Call(ctx context.Context, tool string, args map[string]any, out any) error
}

// ToolError is a tool result flagged IsError by the server.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// Client calls the memory server over streamable HTTP. Each call opens a
// short-lived MCP session, which matches the server's stateless mode.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient targets serverURL/mcp. A non-empty token is sent as a bearer
// credential on every request.
func NewClient(serverURL, token string) *Client {
	hc := &http.Client{}
	if token != "" {
		hc.Transport = &bearerTransport{token: token, base: http.DefaultTransport}
	}
	return &Client{
		endpoint: strings.TrimRight(serverURL, "/") + "/mcp",
		http:     hc,
	}
}

func (c *Client) Call(ctx context.Context, tool string, args map[string]any, out any) error {
	client := mcp.NewClient(&mcp.Implementation{Name: "memory-hook", Version: "0.2.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   c.endpoint,
		HTTPClient: c.http,
	}, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.endpoint, err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("call %s: %w", tool, err)
	}

	text, ok := firstText(res)
	if res.IsError {
		return &ToolError{Tool: tool, Message: text}
	}
	if out == nil {
		return nil
	}
	if !ok {
		return errors.New(tool + ": no text content in result")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", tool, err)
	}
	return nil
}

func firstText(res *mcp.CallToolResult) (string, bool) {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text, true
		}
	}
	return "", false
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}
