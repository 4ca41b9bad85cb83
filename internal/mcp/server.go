package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

// Server is the MCP server of the page builder. It exposes the open page
// to AI agents as tools, resources and prompts.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	placer   *Placer
	pages    *service.PageService
}

// Deps holds what the app layer hands to the MCP server.
type Deps struct {
	Emitter service.EventEmitter
	Pages   *service.PageService
	// Approvals switches destructive tools to the cross-process approval
	// table (standalone mode).
	Approvals   ApprovalStore
	AutoApprove bool
}

// New creates and configures the MCP server with all tools, resources
// and prompts.
func New(deps Deps) *Server {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NoopEmitter{}
	}
	s := &Server{
		emitter:  emitter,
		approval: NewApprovalQueue(emitter, deps.Approvals, deps.AutoApprove),
		placer:   NewPlacer(),
		pages:    deps.Pages,
	}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerSectionTools()
	s.registerNodeTools()
	s.registerLocaleTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) bool {
	return s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) bool {
	return s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(b bool) *bool { return &b }

// locate finds the section holding nodeID on the open page.
func (s *Server) locate(nodeID string) (*domain.Section, *domain.Node, error) {
	if nodeID == "" {
		return nil, nil, fmt.Errorf("nodeId is required")
	}
	sec, n := s.pages.Editor().Page().FindNode(nodeID)
	if n == nil {
		return nil, nil, domain.Errorf(domain.KindUnknownNode, "locate", "node %s", nodeID)
	}
	return sec, n, nil
}
