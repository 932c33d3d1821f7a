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

// Passage holds the schema definition for the Passage entity.
// An archival memory entry: content the agent chose to store for later
// recall, outside the always-in-context block budget.
type Passage struct {
	ent.Schema
}

// Fields of the Passage.
func (Passage) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("passage_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Strings("tags").
			Optional().
			Immutable(),
		field.Other("embedding", pgvec.Vector{}).
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Passage.
func (Passage) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("passages").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Passage.
func (Passage) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id"),
		index.Fields("agent_id", "created_at"),
	}
}
