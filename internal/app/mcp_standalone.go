package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no
// GUI. Destructive tools wait for the desktop app to approve them through
// the shared app database unless autoApprove is set.
func ServeMCP(cfg *config.Config, slug string, autoApprove bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := Open(ctx, cfg, slug, service.NoopEmitter{})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			log.Printf("mcp: %v", err)
		}
	}()

	srv := mcpserver.New(mcpserver.Deps{
		Emitter:     service.NoopEmitter{},
		Pages:       rt.Pages,
		Approvals:   rt.Local,
		AutoApprove: autoApprove,
	})

	log.Printf("mcp: serving %s on stdio", rt.Pages.Slug())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}
