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

// Message holds the schema definition for the Message entity.
// Append-only conversational turn belonging to one agent.
type Message struct {
	ent.Schema
}

// Fields of the Message.
func (Message) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("message_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("user_id").
			Optional().
			Nillable().
			Immutable(),
		field.Enum("role").
			Values("user", "assistant", "tool").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Int64("sequence_id").
			Immutable().
			Comment("Strictly increasing per agent; stable compaction cursor"),
		field.JSON("tool_calls", []map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("tool_results", []map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Text("attachment_text").
			Optional().
			Nillable().
			Immutable(),
		field.Other("embedding", pgvec.Vector{}).
			Optional().
			Nillable().
			SchemaType(map[string]string{
				dialect.Postgres: "vector(1536)",
			}).
			Comment("Nullable to allow synchronous insert / asynchronous fill"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Message.
func (Message) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("messages").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Message.
func (Message) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "sequence_id").
			Unique(),
		index.Fields("agent_id", "created_at"),
	}
}
