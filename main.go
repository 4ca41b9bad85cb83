package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	builderApp "pagebuilder/internal/app"
	"pagebuilder/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	configPath  string
	autoApprove bool
)

var rootCmd = &cobra.Command{
	Use:   "pagebuilder",
	Short: "Grid-based landing page builder",
	Long: `Pagebuilder edits landing pages on a virtual grid, saves drafts to a
staging backend and publishes them to live.

Run without a command to open the editor window.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runGUI(cfg)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp [slug]",
	Short: "Serve the page over MCP on stdin/stdout",
	Long: `Runs a Model Context Protocol server for agents. Deletes and publishes
wait for approval in the open editor window unless --yes is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return builderApp.ServeMCP(cfg, slugArg(cfg, args), autoApprove)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [slug]",
	Short: "Publish the staging copy of a page",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		slug := slugArg(cfg, args)
		if err := builderApp.PublishPage(cmd.Context(), cfg, slug); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", slug)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [slug]",
	Short: "Show whether a page has unpublished changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		st, err := builderApp.Status(cmd.Context(), cfg, slugArg(cfg, args))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [slug] [file]",
	Short: "Write the staging copy of a page as JSON",
	Long:  `Writes to file, or to stdout when no file is given.`,
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		var out io.Writer = cmd.OutOrStdout()
		if len(args) == 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[1], err)
			}
			defer f.Close()
			out = f
		}
		return builderApp.Export(cmd.Context(), cfg, slugArg(cfg, args), out)
	},
}

func slugArg(cfg *config.Config, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Slug
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "config file")
	mcpCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "approve destructive tools without asking")

	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
}

func runGUI(cfg *config.Config) error {
	app := builderApp.New(cfg)
	size := builderApp.WindowSize(context.Background(), cfg)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	return wails.Run(&options.App{
		Title:     "Page Builder",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnBeforeClose:    app.BeforeClose,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "Page Builder",
				Message: "Grid-based landing page builder with staging and publish",
			},
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
