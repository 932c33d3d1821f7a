// Package store implements the Persistence Layer (spec §4.1): one
// repository per entity, each a thin wrapper over the generated ent
// client plus, where the entity carries a pgvector column, a raw
// cosine-distance query through pkg/pgvec (ent has no native vector
// type and cannot express `ORDER BY embedding <=> $1`).
//
// Grounded on the teacher's pkg/services/*_service.go — a *ent.Client
// wrapped per-concern, every repository call a single bounded
// transaction-free operation against the client (concurrency-safe by
// construction: ent's generated client and the underlying pgx pool are
// safe for concurrent use).
package store

import (
	"database/sql"

	"github.com/codeready-toolchain/sage/ent"
)

// Store bundles every repository over one ent client / pgx connection.
type Store struct {
	Contexts  *ChatContextRepo
	Blocks    *BlockRepo
	Messages  *MessageRepo
	Passages  *PassageRepo
	Summaries *SummaryRepo
	Prefs     *PreferenceRepo
	Tasks     *ScheduledTaskRepo
}

// New builds a Store over an existing ent client and the raw *sql.DB it
// wraps (needed for pgvec's cosine-distance queries).
func New(client *ent.Client, db *sql.DB) *Store {
	return &Store{
		Contexts:  &ChatContextRepo{client: client},
		Blocks:    &BlockRepo{client: client},
		Messages:  &MessageRepo{client: client, db: db},
		Passages:  &PassageRepo{client: client, db: db},
		Summaries: &SummaryRepo{client: client, db: db},
		Prefs:     &PreferenceRepo{client: client},
		Tasks:     &ScheduledTaskRepo{client: client, db: db},
	}
}
