package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a landing page from presets and elements"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("translate_page",
		mcp.WithPromptDescription("Add a language and review or write its copy"),
		mcp.WithArgument("locale",
			mcp.ArgumentDescription("Locale code to add, e.g. es"),
			mcp.RequiredArgument(),
		),
	), s.handleTranslatePrompt)
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a landing page for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a landing page about "%s" on the open page. Follow these steps:

1. Call get_page and list_presets to see what is already there
2. Set a title with set_page_title
3. Add a hero section with add_section (use a preset when one fits)
4. Fill the copy with set_prop: text elements take "html", buttons take "label" and "href"
5. Add more sections for features and a call to action; use add_element for extra text, buttons and images
6. Check positions with list_nodes and fix overlaps with move_node, resize_node or center_node

Element positions are grid units (xu, yu, wu, hu) inside the section grid. Do not publish; the user reviews first.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleTranslatePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	locale := req.Params.Arguments["locale"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Translate the page into %s", locale),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Translate the open page into "%s". Follow these steps:

1. Call add_locale with code "%s"; existing copy may be machine-translated
2. Call list_nodes, then get_page to read each text and button element
3. For every element whose copy is missing or reads poorly, call set_prop with locale "%s"
4. Leave layout alone: locales only override props, never positions

Finish with sync_status and report which elements you changed.`, locale, locale, locale),
				},
			},
		},
	}, nil
}
