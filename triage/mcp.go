package triage

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nnamdiodozi/gitdigest/kit"
)

// RegisterMCP registers triage tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerTriageTool(srv)
	e.registerClassifyTool(srv)
	e.registerEstimateTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- triage ---

type triageReq struct {
	Digest string `json:"digest"`
}

type triageResp struct {
	Text   string `json:"text"`
	Report Report `json:"report"`
}

func (e *Engine) registerTriageTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "digest_triage",
		Description: "Trim a repository digest to the configured token budget, dropping lowest-signal files first.",
		InputSchema: inputSchema(map[string]any{
			"digest": map[string]any{"type": "string", "description": "Raw digest text"},
		}, []string{"digest"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*triageReq)
		text, report, err := e.Run(r.Digest)
		if err != nil {
			return nil, err
		}
		return &triageResp{Text: text, Report: *report}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r triageReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- classify ---

type classifyReq struct {
	Path string `json:"path"`
}

func (e *Engine) registerClassifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "digest_classify",
		Description: "Return the signal tier a file path classifies into.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Repository-relative file path"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*classifyReq)
		return map[string]any{"path": r.Path, "tier": e.Classify(r.Path).String()}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r classifyReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- estimate ---

type estimateReq struct {
	Text string `json:"text"`
}

func (e *Engine) registerEstimateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "digest_estimate",
		Description: "Estimate the LLM token cost of a block of text.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Text to estimate"},
		}, []string{"text"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*estimateReq)
		return map[string]any{"estimated_tokens": EstimateTokens(r.Text)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r estimateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
