// Package pgvec implements a pgvector-backed vector column type for ent,
// and the raw-SQL nearest-neighbor query helper ent itself cannot express.
package pgvec

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Dim is the embedding dimension the schema is migrated for. The core spec
// leaves this to "whatever the configured model produces"; a Postgres vector
// column still needs a fixed width at migration time, so operators pin one
// model (and its dimension) per deployment and this constant must match
// EMBEDDING_MODEL's actual output width.
const Dim = 1536

// Vector is a fixed-precision embedding stored in a Postgres "vector(N)"
// column. It implements sql.Scanner/driver.Valuer so it can be used as an
// ent field.Other Go type.
type Vector []float32

// Value implements driver.Valuer, encoding as pgvector's text literal
// format: "[v1,v2,...]".
func (v Vector) Value() (driver.Value, error) {
	return v.Literal(), nil
}

// Literal renders the vector in pgvector's input text format.
func (v Vector) Literal() string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// Scan implements sql.Scanner, parsing pgvector's "[v1,v2,...]" text format.
func (v *Vector) Scan(src any) error {
	if src == nil {
		*v = nil
		return nil
	}
	var s string
	switch t := src.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return fmt.Errorf("pgvec: unsupported scan source %T", src)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		*v = Vector{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("pgvec: parse component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	*v = out
	return nil
}
