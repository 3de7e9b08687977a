package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/crack-kitty/claudememkeep/internal/metrics"
	"github.com/crack-kitty/claudememkeep/internal/models"
)

// addTool registers fn as an MCP tool. Successful results are rendered as
// indented JSON; failures become IsError results carrying {"error": msg}.
// Every call is logged and counted by outcome.
func addTool[In, Out any](srv *mcp.Server, tool *mcp.Tool, timeout time.Duration, fn func(context.Context, In) (Out, error)) {
	name := tool.Name
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		out, err := fn(ctx, in)
		elapsed := time.Since(start)

		status := callStatus(err)
		metrics.RecordToolCall(name, status, elapsed.Seconds())

		switch status {
		case metrics.StatusOK:
			log.Debug().Str("tool", name).Dur("duration", elapsed).Msg("tool call")
			return toolJSON(out)
		case metrics.StatusValidationError:
			log.Info().Str("tool", name).Err(err).Msg("tool call rejected")
			return toolError("%v", err), nil, nil
		default:
			log.Error().Str("tool", name).Err(err).Dur("duration", elapsed).Msg("tool call failed")
			return toolError("%s failed: %v", name, err), nil, nil
		}
	})
}

func callStatus(err error) string {
	if err == nil {
		return metrics.StatusOK
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return metrics.StatusValidationError
	}
	return metrics.StatusStoreError
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	data, err := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	if err != nil {
		data = []byte(`{"error":"internal error"}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
