package foods

import (
	"context"
	"log/slog"
	"os"

	"github.com/noot-app/macroplan-mcp-server/internal/config"
	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// Provider looks up foods by name in one nutrition database
type Provider interface {
	Name() string
	Search(ctx context.Context, name string, limit int) ([]Candidate, error)
}

// Candidate is one food record returned by a provider, already converted to per-100g values
type Candidate struct {
	Name    string                `json:"name"`
	Profile types.NutrientProfile `json:"profile"`
	Source  string                `json:"source"`
}

// NewProviders builds the lookup chain from configuration, in priority order.
// Uses the mock engine if FOOD_LOOKUP_MOCK environment variable is set.
func NewProviders(cfg *config.Config, logger *slog.Logger) ([]Provider, func() error, error) {
	if os.Getenv("FOOD_LOOKUP_MOCK") == "true" {
		return []Provider{NewMockEngine(logger)}, func() error { return nil }, nil
	}

	var providers []Provider
	closers := []func() error{}

	if cfg.FoodDBEnabled {
		if _, err := os.Stat(cfg.ParquetPath); err == nil {
			engine, err := NewEngine(cfg.ParquetPath, logger)
			if err != nil {
				return nil, nil, err
			}
			providers = append(providers, engine)
			closers = append(closers, engine.Close)
		} else {
			logger.Warn("Local food dataset not found, skipping DuckDB provider",
				"parquet_path", cfg.ParquetPath,
				"hint", "run with --fetch-db to download it")
		}
	}

	if !cfg.OFFSearchDisabled {
		providers = append(providers, NewOFFClient(cfg.OFFSearchURL, cfg.LookupTimeout(), logger))
	}

	closeAll := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return providers, closeAll, nil
}
