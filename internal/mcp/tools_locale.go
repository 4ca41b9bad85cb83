package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLocaleTools() {
	// ── add_locale ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_locale",
		mcp.WithDescription("Enable a language on the page. Existing copy is machine-translated into it when a translator is configured."),
		mcp.WithString("code",
			mcp.Description("Locale code, e.g. es or pt-BR"),
			mcp.Required(),
		),
	), s.handleAddLocale)

	// ── set_active_locale ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_locale",
		mcp.WithDescription("Switch the locale props are read and written in. Empty means the page default."),
		mcp.WithString("code",
			mcp.Description("Locale code"),
		),
	), s.handleSetActiveLocale)
}

func (s *Server) handleAddLocale(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := req.GetString("code", "")
	if err := s.pages.AddLocale(ctx, code); err != nil {
		// the locale is still added when only the translation failed
		if s.pages.Editor().Page().HasLocale(code) {
			return textResult(fmt.Sprintf("Added %s without translations: %v", code, err)), nil
		}
		return nil, fmt.Errorf("add locale: %w", err)
	}
	return jsonResult(s.pages.Editor().Page().Locales)
}

func (s *Server) handleSetActiveLocale(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.pages.Editor().SetActiveLocale(req.GetString("code", "")); err != nil {
		return nil, fmt.Errorf("set active locale: %w", err)
	}
	return textResult("Active locale: " + s.pages.Editor().State().ActiveLocale), nil
}
