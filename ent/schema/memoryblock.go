package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MemoryBlock holds the schema definition for the MemoryBlock entity.
// A labelled, size-bounded section of an agent's always-in-context memory
// (e.g. "persona", "human"), editable via the memory_* tools.
type MemoryBlock struct {
	ent.Schema
}

// Fields of the MemoryBlock.
func (MemoryBlock) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("block_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("label").
			Immutable().
			Comment("Stable block name, e.g. 'persona' or 'human'"),
		field.String("description").
			Optional().
			Comment("Canonical label description, injected into compile() output"),
		field.Text("value").
			Default("").
			Comment("Current block contents"),
		field.Int("limit").
			Comment("Max character length this block may hold"),
		field.Bool("read_only").
			Default(false).
			Comment("Read-only blocks reject memory_replace/append/insert"),
		field.Int("version").
			Default(1).
			Comment("Bumped on every successful mutation"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the MemoryBlock.
func (MemoryBlock) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("blocks").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the MemoryBlock.
func (MemoryBlock) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "label").
			Unique(),
	}
}
