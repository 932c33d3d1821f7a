package pgvec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// NearestOpts configures a QueryNearest call.
type NearestOpts struct {
	Table      string   // e.g. "messages", "passages", "summaries"
	AgentCol   string   // column holding the owning agent id, e.g. "agent_id"
	IDCol      string   // primary key column to return
	VectorCol  string   // embedding column name
	AgentID    string   // owning agent
	Query      Vector   // query embedding
	K          int      // number of neighbors
	TagsCol    string   // optional: column holding a text[] of tags, "" to skip
	TagsFilter []string // optional: require intersection with these tags
}

// Neighbor is one nearest-neighbor match: its row id and cosine similarity
// score (1 - cosine distance; higher is better).
type Neighbor struct {
	ID    string
	Score float64
}

// QueryNearest runs a cosine-distance ORDER BY against a pgvector column.
// ent has no native vector type, so this runs against the raw *sql.DB the
// ent client's driver wraps (see database.Client.DB()).
func QueryNearest(ctx context.Context, db *sql.DB, o NearestOpts) ([]Neighbor, error) {
	if o.K <= 0 {
		o.K = 10
	}
	lit := o.Query.Literal()

	where := fmt.Sprintf("%s = $2", o.AgentCol)
	args := []any{lit, o.AgentID, o.K}
	if o.TagsCol != "" && len(o.TagsFilter) > 0 {
		where += fmt.Sprintf(" AND %s && $4", o.TagsCol)
		args = append(args, pqStringArray(o.TagsFilter))
	}

	query := fmt.Sprintf(
		`SELECT %s, 1 - (%s <=> $1::vector) AS score FROM %s WHERE %s ORDER BY %s <=> $1::vector LIMIT $3`,
		o.IDCol, o.VectorCol, o.Table, where, o.VectorCol,
	)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvec: nearest-neighbor query: %w", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Score); err != nil {
			return nil, fmt.Errorf("pgvec: scan neighbor row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// pqStringArray renders a Go string slice as a Postgres text[] literal.
func pqStringArray(ss []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range ss {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(s, `"`, `\"`))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}
