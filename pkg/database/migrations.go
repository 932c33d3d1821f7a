package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateVectorIndexes creates approximate-nearest-neighbor indexes for
// pgvector columns ent cannot express in its own schema DSL. Cosine
// distance (vector_cosine_ops) matches the operator pkg/pgvec.QueryNearest
// uses in its ORDER BY clause.
func CreateVectorIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	indexes := []struct{ name, table string }{
		{"idx_messages_embedding_ivfflat", "messages"},
		{"idx_passages_embedding_ivfflat", "passages"},
		{"idx_summaries_embedding_ivfflat", "summaries"},
	}
	for _, idx := range indexes {
		_, err := db.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
			idx.name, idx.table,
		))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}
	return nil
}
