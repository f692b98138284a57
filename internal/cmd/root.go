package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/noot-app/macroplan-mcp-server/internal/dataset"
	"github.com/noot-app/macroplan-mcp-server/internal/version"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree; tests call it to get a fresh copy
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "macroplan-mcp-server",
		Short:   "Macro-targeting diet plan MCP server",
		Version: version.String(),
		Long: `Macroplan MCP Server builds daily meal plans that hit calorie and macro targets.

A language model proposes meals, every food is resolved to a nutrient profile
(local Open Food Facts dataset, the Open Food Facts search API, then a built-in
table) and the plan is validated against the targets. Plans that miss are
corrected locally or sent back for adjustment, up to 10 attempts.

The server operates in three modes:

1. STDIO Mode (--stdio): For local Claude Desktop integration
   - Uses stdio pipes for communication
   - No authentication required

2. HTTP Mode (default): For remote deployment
   - Streamable HTTP MCP endpoint at /mcp
   - Requires Bearer token authentication (except /health)

3. Fetch Database Mode (--fetch-db): Download dataset and exit
   - Downloads/updates the Open Food Facts Parquet dataset
   - Exits after download completion (does not start server)

Available MCP Tools:
- plan_diet: Generate a validated meal plan for a calorie target and macro split
- compute_targets: Convert a calorie target and split into gram targets
- lookup_food: Resolve a food name to its per-100g nutrient profile

Authentication (HTTP Mode Only):
Use the AUTH_TOKEN environment variable to set the bearer token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetchDB, _ := cmd.Flags().GetBool("fetch-db")
			if fetchDB {
				return runFetchDBMode(cmd.Context())
			}

			stdio, _ := cmd.Flags().GetBool("stdio")
			if stdio {
				return runStdioMode(cmd.Context())
			}
			return runHTTPMode(cmd.Context())
		},
	}

	root.Flags().Bool("stdio", false, "Run in stdio mode for local Claude Desktop integration (default: HTTP mode for remote deployment)")
	root.Flags().Bool("fetch-db", false, "Fetch the food dataset and exit")
	root.AddCommand(newPlanCmd())
	return root
}

// runFetchDBMode downloads the dataset and exits
func runFetchDBMode(ctx context.Context) error {
	logger := config.NewTextLogger(os.Stdout)
	cfg := config.Load()

	logger.Info("🗄️  Starting database fetch",
		"mode", "fetch-db",
		"target_dir", filepath.Dir(cfg.ParquetPath))

	logger.Info("⚠️  Large dataset warning",
		"message", "The Open Food Facts dataset is approximately 4+ GB in size",
		"note", "Initial download may take several minutes depending on your internet connection")

	if err := dataset.NewManager(cfg, logger).EnsureDataset(ctx); err != nil {
		logger.Error("Failed to fetch dataset", "error", err)
		return err
	}

	logger.Info("✅ Database fetch completed successfully",
		"parquet_path", cfg.ParquetPath,
		"metadata_path", cfg.MetadataPath)
	return nil
}

// runStdioMode serves MCP over stdio; logs go to stderr
func runStdioMode(ctx context.Context) error {
	logger := config.NewLogger(true)
	cfg := config.Load()

	logger.Info("🔌 Starting Macroplan MCP Server in STDIO mode",
		"mode", "stdio",
		"auth", "not required for stdio mode",
		"version", version.Get().Tag)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	return a.server().ServeStdio()
}

// runHTTPMode serves MCP over streamable HTTP behind bearer auth
func runHTTPMode(ctx context.Context) error {
	logger := config.NewLogger(false)
	cfg := config.Load()

	logger.Info("🌐 Starting Macroplan MCP Server in HTTP mode",
		"mode", "http",
		"auth", "Bearer token required (except /health endpoint)",
		"port", cfg.Port,
		"version", version.Get().Tag)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	return a.server().ServeHTTP(ctx, ":"+cfg.Port)
}

// Execute runs the command tree. It is called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// Run is the main entry point for the CLI application
func Run() error {
	return Execute()
}
