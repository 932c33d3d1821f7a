package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ChatContext holds the schema definition for the ChatContext entity.
// One ChatContext exists per (messenger, identity) pair and owns the
// workspace directory and agent state for that identity.
type ChatContext struct {
	ent.Schema
}

// Fields of the ChatContext.
func (ChatContext) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("context_id").
			Unique().
			Immutable(),
		field.String("identity").
			Immutable().
			Comment("Opaque transport-scoped user/channel identifier"),
		field.String("messenger").
			Immutable().
			Comment("Transport that owns this identity, e.g. 'slack'"),
		field.String("workspace_path").
			Immutable().
			Comment("Filesystem root for this agent's shell tool and scratch files"),
		field.Enum("kind").
			Values("Direct", "Group").
			Default("Direct").
			Immutable().
			Comment("Direct (1:1) or Group (multi-party) conversation"),
		field.String("display_name").
			Optional().
			Nillable().
			Comment("Human-readable channel/conversation name, if the transport provides one"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_interaction_at").
			Optional().
			Nillable(),
	}
}

// Edges of the ChatContext.
func (ChatContext) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("blocks", MemoryBlock.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("messages", Message.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("passages", Passage.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("summaries", Summary.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("preferences", Preference.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("scheduled_tasks", ScheduledTask.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ChatContext.
func (ChatContext) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("messenger", "identity").
			Unique(),
	}
}
