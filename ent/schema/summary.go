package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/codeready-toolchain/sage/pkg/pgvec"
)

// Summary holds the schema definition for the Summary entity.
// One link in an agent's append-only summary chain; each summary covers a
// non-overlapping range of message sequence_ids.
type Summary struct {
	ent.Schema
}

// Fields of the Summary.
func (Summary) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("summary_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Int64("from_sequence_id").
			Immutable(),
		field.Int64("to_sequence_id").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Other("embedding", pgvec.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}).
			Immutable(),
		field.String("previous_summary_id").
			Optional().
			Nillable().
			Immutable().
			Comment("Chain pointer; live lookup, no snapshot"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Summary.
func (Summary) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("summaries").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Summary.
func (Summary) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "to_sequence_id"),
	}
}
