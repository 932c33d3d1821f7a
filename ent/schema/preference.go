package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Preference holds the schema definition for the Preference entity.
// A single agent-scoped key/value setting (e.g. timezone), set via the
// set_preference tool.
type Preference struct {
	ent.Schema
}

// Fields of the Preference.
func (Preference) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("preference_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.String("key").
			Immutable(),
		field.Text("value"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Preference.
func (Preference) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("preferences").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Preference.
func (Preference) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id", "key").
			Unique(),
	}
}
