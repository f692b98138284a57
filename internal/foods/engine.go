package foods

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// Engine searches the local Open Food Facts parquet dataset with DuckDB
type Engine struct {
	db          *sql.DB
	parquetPath string
	log         *slog.Logger
}

// Ensure Engine implements Provider interface
var _ Provider = (*Engine)(nil)

// NewEngine creates a new DuckDB backed provider
func NewEngine(parquetPath string, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &Engine{
		db:          db,
		parquetPath: parquetPath,
		log:         logger,
	}, nil
}

// Name identifies the provider in logs and results
func (e *Engine) Name() string {
	return "openfoodfacts-parquet"
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// Search finds products whose name matches and converts their nutriments to profiles.
// Records without complete per-100g macros are skipped.
func (e *Engine) Search(ctx context.Context, name string, limit int) ([]Candidate, error) {
	start := time.Now()
	e.log.Debug("Search starting", "provider", e.Name(), "name", name, "limit", limit)

	// shorter names first: "banana" should beat "banana bread with walnuts"
	query := `
		SELECT code, product_name, to_json(nutriments)
		FROM read_parquet(?)
		WHERE product_name ILIKE ?
		ORDER BY length(product_name)
		LIMIT ?`

	// over-fetch: many records lack complete nutriments
	rows, err := e.db.QueryContext(ctx, query, e.parquetPath, fmt.Sprintf("%%%s%%", name), limit*5)
	if err != nil {
		e.log.Error("DuckDB query failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []Candidate
	for rows.Next() && len(results) < limit {
		var codeStr, productNameStr, nutrimentsStr sql.NullString
		if err := rows.Scan(&codeStr, &productNameStr, &nutrimentsStr); err != nil {
			e.log.Error("Row scan failed", "error", err)
			continue
		}
		if !productNameStr.Valid || !nutrimentsStr.Valid {
			continue
		}

		p := types.Product{Code: codeStr.String, ProductName: productNameStr.String}
		if err := json.Unmarshal([]byte(nutrimentsStr.String), &p.NutrimentList); err != nil {
			e.log.Debug("Failed to parse nutriments JSON", "error", err, "code", p.Code)
			continue
		}

		profile, ok := p.Profile()
		if !ok {
			continue
		}
		results = append(results, Candidate{Name: p.ProductName, Profile: profile, Source: e.Name()})
	}

	if err := rows.Err(); err != nil {
		e.log.Error("Rows iteration failed", "error", err)
		return nil, fmt.Errorf("rows error: %w", err)
	}

	e.log.Info("Search completed", "provider", e.Name(), "count", len(results), "duration", time.Since(start))
	return results, nil
}

// TestConnection tests the database connection and parquet file access
func (e *Engine) TestConnection(ctx context.Context) error {
	start := time.Now()
	e.log.Debug("Testing DuckDB connection and parquet file")

	query := `SELECT COUNT(*) FROM read_parquet(?)`
	var count int64

	if err := e.db.QueryRowContext(ctx, query, e.parquetPath).Scan(&count); err != nil {
		e.log.Error("Connection test failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("connection test failed: %w", err)
	}

	e.log.Info("Connection test successful", "total_records", count, "duration", time.Since(start))
	return nil
}
