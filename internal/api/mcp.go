package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/platewise/platewise/internal/analysis"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *analysis.Service
}

// mcpUserKey returns the rate-limit/cache identity for an MCP tool call. MCP
// clients are local single-user processes, so the key defaults to one bucket
// unless the client names itself.
func mcpUserKey(req mcp.CallToolRequest) string {
	return "mcp:" + req.GetString("user", "local")
}

// NewMCPServer creates an MCP server with the platewise analysis tools
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"platewise",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("platewise — meal analysis with verified nutrition numbers and provider fallback."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_text_meal",
			mcp.WithDescription("Analyze a meal description and return foods with verified calorie and macro estimates."),
			mcp.WithString("description", mcp.Description("Free-form meal description, e.g. \"grilled chicken with rice and a side salad\""), mcp.Required()),
		),
		mcpAnalyzeTextMeal(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_meal_photo",
			mcp.WithDescription("Identify foods in a meal photo and enrich them with nutrition data."),
			mcp.WithString("image", mcp.Description("Base64-encoded image bytes"), mcp.Required()),
			mcp.WithString("mime_type", mcp.Description("Image MIME type (default image/jpeg)")),
			mcp.WithString("note", mcp.Description("Optional hint about the meal")),
		),
		mcpAnalyzeMealPhoto(deps),
	)

	s.AddTool(
		mcp.NewTool("recent_meals",
			mcp.WithDescription("List recent analyses for this client, most recent first."),
			mcp.WithString("operation", mcp.Description("Filter by operation name, e.g. analyze_text_meal")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpRecentMeals(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"platewise://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("Last 10 analyses for the local MCP client"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAnalyzeTextMeal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		description, err := req.RequireString("description")
		if err != nil {
			return mcpError("description is required"), nil
		}

		resp := deps.Service.AnalyzeTextMeal(ctx, mcpUserKey(req), description)
		return mcpEnvelope(resp), nil
	}
}

func mcpAnalyzeMealPhoto(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		image, err := req.RequireString("image")
		if err != nil {
			return mcpError("image is required"), nil
		}
		if _, err := base64.StdEncoding.DecodeString(image); err != nil {
			return mcpError(fmt.Sprintf("image must be valid base64: %v", err)), nil
		}

		mimeType := req.GetString("mime_type", "image/jpeg")
		note := req.GetString("note", "")

		resp := deps.Service.AnalyzeMealPhoto(ctx, mcpUserKey(req), image, mimeType, note)
		return mcpEnvelope(resp), nil
	}
}

func mcpRecentMeals(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}
		operation := req.GetString("operation", "")

		records, err := deps.Service.History(mcpUserKey(req), operation, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing analyses failed: %v", err)), nil
		}
		if len(records) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(records)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Service.History("mcp:local", "", 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list analyses: %w", err)
		}

		type recordSummary struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Operation  string `json:"operation"`
			ProviderID string `json:"provider_id"`
		}
		summaries := make([]recordSummary, len(records))
		for i, rec := range records {
			summaries[i] = recordSummary{
				ID:         rec.ID,
				CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
				Operation:  rec.Operation,
				ProviderID: rec.ProviderID,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpEnvelope renders an analysis envelope as a tool result, flagging failed
// analyses as tool errors so the client can react.
func mcpEnvelope(resp analysis.Response) *mcp.CallToolResult {
	b, err := json.Marshal(resp)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal response: %v", err))
	}
	if !resp.Success {
		return mcpError(string(b))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
