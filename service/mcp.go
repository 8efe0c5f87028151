package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the engine's operations as MCP tools.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerApplyTool(srv)
	s.registerCheckTool(srv)
}

type endpoint func(ctx context.Context, req any) (any, error)

// registerTool adapts an endpoint plus a decode function to an MCP tool
// handler. Decode and endpoint errors are reported through the tool
// result, never as transport errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, ep endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := ep(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
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

func (s *Service) registerApplyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "redline_apply_edits",
		Description: "Apply find/replace edits to an HTML document without corrupting markup. Returns applied and failed edits with explanations.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "The HTML document to edit"},
			"edits": map[string]any{
				"type":        "array",
				"description": "Proposed edits: objects with find, replace and optional before_context/after_context",
			},
			"strategy": map[string]any{
				"type":        "string",
				"description": "Matching strategy: keyed (default) or context",
			},
		}, []string{"html", "edits"}),
	}

	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*applyRequest)
		res, runID, err := s.ApplyEdits(ctx, r.HTML, r.Edits, r.Strategy)
		if err != nil {
			return nil, err
		}
		return resultResponse{RunID: runID, ApplicationResult: res}, nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r applyRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	registerTool(srv, tool, ep, decode)
}

func (s *Service) registerCheckTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "redline_check_grammar",
		Description: "Run grammar and spelling review over an HTML document and apply the unambiguous corrections.",
		InputSchema: inputSchema(map[string]any{
			"html": map[string]any{"type": "string", "description": "The HTML document to review"},
		}, []string{"html"}),
	}

	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*checkRequest)
		res, runID, err := s.CheckGrammar(ctx, r.HTML)
		if err != nil {
			return nil, err
		}
		return resultResponse{RunID: runID, ApplicationResult: res}, nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r checkRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	registerTool(srv, tool, ep, decode)
}
