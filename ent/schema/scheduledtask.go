package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ScheduledTask holds the schema definition for the ScheduledTask entity.
// A durable one-shot or recurring task dispatched by the Scheduler.
type ScheduledTask struct {
	ent.Schema
}

// Fields of the ScheduledTask.
func (ScheduledTask) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_id").
			Unique().
			Immutable(),
		field.String("agent_id").
			Immutable(),
		field.Enum("task_type").
			Values("Message", "ToolCall").
			Immutable(),
		field.JSON("payload", map[string]interface{}{}).
			Immutable().
			Comment(`{"message": "..."} or {"tool": "...", "args": {...}}`),
		field.Time("next_run_at").
			Comment("Stored UTC"),
		field.String("cron_expression").
			Optional().
			Nillable().
			Immutable().
			Comment("Present => recurring; absent => one-shot"),
		field.String("timezone").
			Default("UTC").
			Immutable(),
		field.Enum("status").
			Values("Pending", "Running", "Completed", "Failed", "Cancelled").
			Default("Pending"),
		field.Time("last_run_at").
			Optional().
			Nillable(),
		field.Int("run_count").
			Default(0),
		field.Text("last_error").
			Optional().
			Nillable(),
		field.Text("description").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ScheduledTask.
func (ScheduledTask) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("context", ChatContext.Type).
			Ref("scheduled_tasks").
			Field("agent_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ScheduledTask.
func (ScheduledTask) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_id"),
		index.Fields("status", "next_run_at"),
		index.Fields("agent_id", "status").
			Annotations(entsql.IndexWhere("status = 'Pending' OR status = 'Running'")),
	}
}
