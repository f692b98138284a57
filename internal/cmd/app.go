package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/noot-app/macroplan-mcp-server/internal/auth"
	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/noot-app/macroplan-mcp-server/internal/dataset"
	"github.com/noot-app/macroplan-mcp-server/internal/foods"
	"github.com/noot-app/macroplan-mcp-server/internal/mcpgo"
	"github.com/noot-app/macroplan-mcp-server/internal/nutrients"
	"github.com/noot-app/macroplan-mcp-server/internal/planner"
	"github.com/noot-app/macroplan-mcp-server/internal/proposer"
	"github.com/noot-app/macroplan-mcp-server/internal/ratelimit"
)

// connectionTester is implemented by providers that can check their backing store
type connectionTester interface {
	TestConnection(ctx context.Context) error
}

// app holds everything a running server or one-shot plan needs
type app struct {
	cfg       *config.Config
	providers []foods.Provider
	resolver  *nutrients.Resolver
	planner   *planner.Planner
	closer    func() error
	log       *slog.Logger
}

// newApp wires the lookup chain, the proposer and the planner from configuration
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.IsDevelopment() {
		logger.Warn("🚧 DEVELOPMENT MODE ENABLED 🚧",
			"environment", cfg.Environment,
			"note", "Detailed error messages will be returned to clients")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	if cfg.FoodDBEnabled {
		if err := dataset.NewManager(cfg, logger).EnsureDataset(ctx); err != nil {
			// the OFF search API and the built-in table still work without the dataset
			logger.Warn("Food dataset unavailable, continuing without it", "error", err)
		}
	}

	providers, closer, err := foods.NewProviders(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create food providers: %w", err)
	}

	resolver := nutrients.NewResolver(providers, nil, logger)
	gemini := proposer.NewGeminiClient(
		cfg.GeminiAPIKey,
		cfg.GeminiBaseURL,
		cfg.GeminiModel,
		cfg.ProposerTimeout(),
		cfg.RateLimitDefault(),
		logger,
	)

	return &app{
		cfg:       cfg,
		providers: providers,
		resolver:  resolver,
		planner:   planner.New(gemini, resolver, ratelimit.Shared(), planner.OptionsFromConfig(cfg), logger),
		closer:    closer,
		log:       logger,
	}, nil
}

// health checks every provider that has a backing store to test
func (a *app) health(ctx context.Context) error {
	for _, p := range a.providers {
		if tester, ok := p.(connectionTester); ok {
			if err := tester.TestConnection(ctx); err != nil {
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
		}
	}
	return nil
}

func (a *app) server() *mcpgo.Server {
	return mcpgo.NewServer(a.planner, a.resolver, a.health, auth.NewBearerTokenAuth(a.cfg.AuthToken), a.log)
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
