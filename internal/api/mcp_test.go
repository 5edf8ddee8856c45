package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/platewise/platewise/internal/analysis"
	"github.com/platewise/platewise/internal/provider"
	"github.com/platewise/platewise/internal/storage"
)

const testMealJSON = `{"foods":[{"name":"chicken","quantity":"6oz","calories":252,"protein":40,"carbs":5,"fats":8}],"totals":{"calories":252}}`

func newTestMCPDeps(t *testing.T, p provider.Provider) MCPDeps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	service := analysis.NewService(analysis.Deps{
		Providers: []provider.Provider{p},
		Primary:   p.ID(),
		Store:     store,
	})
	return MCPDeps{Service: service}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_AnalyzeTextMeal(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeProvider{id: "openrouter", reply: testMealJSON})
	handler := mcpAnalyzeTextMeal(deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_text_meal", map[string]interface{}{
		"description": "chicken and rice",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var resp analysis.Response
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if !resp.Success || resp.ProviderID != "openrouter" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCPTool_AnalyzeTextMeal_MissingDescription(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeProvider{id: "openrouter", reply: testMealJSON})
	handler := mcpAnalyzeTextMeal(deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_text_meal", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("missing description should be a tool error")
	}
}

func TestMCPTool_AnalyzeTextMeal_AllProvidersFail(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeProvider{id: "openrouter", err: &provider.Error{
		Kind: provider.KindServerError, Message: "down", ProviderID: "openrouter",
	}})
	handler := mcpAnalyzeTextMeal(deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_text_meal", map[string]interface{}{
		"description": "chicken",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("failed analysis should surface as a tool error")
	}
	// The envelope still carries the structured error.
	var resp analysis.Response
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing envelope: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != string(provider.KindServerError) {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMCPTool_AnalyzeMealPhoto_BadBase64(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeProvider{id: "openrouter", reply: "{}"})
	handler := mcpAnalyzeMealPhoto(deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_meal_photo", map[string]interface{}{
		"image": "not base64!!!",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("invalid base64 should be a tool error")
	}
}

func TestMCPTool_RecentMeals(t *testing.T) {
	p := &fakeProvider{id: "openrouter", reply: testMealJSON}
	deps := newTestMCPDeps(t, p)

	// Record one analysis under the MCP identity.
	analyze := mcpAnalyzeTextMeal(deps)
	if _, err := analyze(context.Background(), makeCallToolRequest("analyze_text_meal", map[string]interface{}{
		"description": "chicken",
	})); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	handler := mcpRecentMeals(deps)
	result, err := handler(context.Background(), makeCallToolRequest("recent_meals", map[string]interface{}{
		"limit": 5,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var records []storage.AnalysisRecord
	if err := json.Unmarshal([]byte(toolText(t, result)), &records); err != nil {
		t.Fatalf("parsing records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Operation != "analyze_text_meal" {
		t.Errorf("operation = %q", records[0].Operation)
	}
}

func TestMCPTool_RecentMeals_Empty(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeProvider{id: "openrouter", reply: testMealJSON})
	handler := mcpRecentMeals(deps)

	result, err := handler(context.Background(), makeCallToolRequest("recent_meals", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("empty history = %q, want []", got)
	}
}
