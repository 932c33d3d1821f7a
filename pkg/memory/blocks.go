// Package memory implements the Memory Hierarchy (spec §4.3): the Block
// Manager, Recall Manager, Archival Manager, Compaction Engine, and
// Preferences, plus the compiled view injected into each agent step.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/sage/ent"
	"github.com/codeready-toolchain/sage/pkg/config"
	"github.com/codeready-toolchain/sage/pkg/sageerr"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// Default block labels that MUST exist for every agent (spec §3).
const (
	LabelPersona = "persona"
	LabelHuman   = "human"
)

var defaultDescriptions = map[string]string{
	LabelPersona: "Your own persistent persona: tone, boundaries, and self-description.",
	LabelHuman:   "What you know about the human you are talking to.",
}

// Block is the process-local, read-optimized view of a MemoryBlock row.
type Block struct {
	ID           string
	Label        string
	Description  string
	Value        string
	CharLimit    int
	ReadOnly     bool
	Version      int
	LastModified time.Time
}

// BlockManager wraps the Block repository with a process-local cache keyed
// by label, grounded on spec §4.3.1.
type BlockManager struct {
	repo    *store.BlockRepo
	agentID string
	cfg     config.MemoryConfig

	mu    sync.Mutex
	cache map[string]*Block
}

// NewBlockManager loads (or seeds) agentID's blocks into the cache.
func NewBlockManager(ctx context.Context, repo *store.BlockRepo, agentID string, cfg config.MemoryConfig) (*BlockManager, error) {
	m := &BlockManager{repo: repo, agentID: agentID, cfg: cfg, cache: map[string]*Block{}}

	rows, err := repo.LoadByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	for _, r := range rows {
		m.cache[r.Label] = fromRow(r)
	}

	if _, ok := m.cache[LabelPersona]; !ok {
		if err := m.seedDefault(ctx, LabelPersona, m.cfg.PersonaCharLimit); err != nil {
			return nil, err
		}
	}
	if _, ok := m.cache[LabelHuman]; !ok {
		if err := m.seedDefault(ctx, LabelHuman, m.cfg.HumanCharLimit); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BlockManager) seedDefault(ctx context.Context, label string, limit int) error {
	row, err := m.repo.Upsert(ctx, m.agentID, label, defaultDescriptions[label], "", limit, false)
	if err != nil {
		return fmt.Errorf("seed default block %q: %w", label, err)
	}
	m.cache[label] = fromRow(row)
	return nil
}

func fromRow(r *ent.MemoryBlock) *Block {
	return &Block{
		ID:           r.ID,
		Label:        r.Label,
		Description:  r.Description,
		Value:        r.Value,
		CharLimit:    r.Limit,
		ReadOnly:     r.ReadOnly,
		Version:      r.Version,
		LastModified: r.UpdatedAt,
	}
}

func fromRowFields(id, label, description, value string, limit int, readOnly bool, version int, lastModified time.Time) *Block {
	return &Block{
		ID: id, Label: label, Description: description, Value: value,
		CharLimit: limit, ReadOnly: readOnly, Version: version, LastModified: lastModified,
	}
}

// Get returns the named block, or nil if it doesn't exist.
func (m *BlockManager) Get(label string) *Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[label]
}

// All returns every block, in no particular order (use Compile() for the
// deterministic rendering).
func (m *BlockManager) All() []*Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Block, 0, len(m.cache))
	for _, b := range m.cache {
		out = append(out, b)
	}
	return out
}

// Has reports whether label exists.
func (m *BlockManager) Has(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cache[label]
	return ok
}

// Update overwrites a block's value wholesale.
func (m *BlockManager) Update(ctx context.Context, label, value string) error {
	return m.mutate(ctx, label, func(*Block) (string, error) {
		return value, nil
	})
}

// Replace requires old to appear verbatim in the current value, substitutes
// new for its first occurrence, and fails NotFound otherwise.
func (m *BlockManager) Replace(ctx context.Context, label, oldText, newText string) error {
	return m.mutate(ctx, label, func(b *Block) (string, error) {
		if !strings.Contains(b.Value, oldText) {
			return "", &sageerr.NotFoundError{Kind: "old_text", Key: oldText}
		}
		return strings.Replace(b.Value, oldText, newText, 1), nil
	})
}

// Append joins content onto the block's value, newline-separated if the
// existing value is non-empty.
func (m *BlockManager) Append(ctx context.Context, label, content string) error {
	return m.mutate(ctx, label, func(b *Block) (string, error) {
		if b.Value == "" {
			return content, nil
		}
		return b.Value + "\n" + content, nil
	})
}

// InsertAtLine inserts content as a new line at the given (0-based) line
// index; line<0 means append.
func (m *BlockManager) InsertAtLine(ctx context.Context, label, content string, line int) error {
	return m.mutate(ctx, label, func(b *Block) (string, error) {
		if line < 0 {
			if b.Value == "" {
				return content, nil
			}
			return b.Value + "\n" + content, nil
		}
		lines := strings.Split(b.Value, "\n")
		if b.Value == "" {
			lines = nil
		}
		if line > len(lines) {
			line = len(lines)
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:line]...)
		out = append(out, content)
		out = append(out, lines[line:]...)
		return strings.Join(out, "\n"), nil
	})
}

// mutate is the shared, read-only-aware, limit-checked, version-bumping
// write path every public mutator funnels through.
func (m *BlockManager) mutate(ctx context.Context, label string, next func(*Block) (string, error)) error {
	m.mu.Lock()
	b, ok := m.cache[label]
	if !ok {
		m.mu.Unlock()
		return &sageerr.NotFoundError{Kind: "block", Key: label}
	}
	if b.ReadOnly {
		m.mu.Unlock()
		return &sageerr.ReadOnlyError{Block: label}
	}
	newValue, err := next(b)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if len(newValue) > b.CharLimit {
		return &sageerr.LimitExceededError{Block: label, Limit: b.CharLimit, Attempt: len(newValue)}
	}

	row, err := m.repo.UpdateValue(ctx, b.ID, newValue)
	if err != nil {
		return fmt.Errorf("persist block %q: %w", label, err)
	}

	m.mu.Lock()
	m.cache[label] = fromRowFields(row.ID, label, b.Description, row.Value, b.CharLimit, b.ReadOnly, row.Version, row.UpdatedAt)
	m.mu.Unlock()
	return nil
}

// Add creates a brand-new block, failing if label already exists.
func (m *BlockManager) Add(ctx context.Context, label, description, value string, limit int, readOnly bool) error {
	m.mu.Lock()
	if _, ok := m.cache[label]; ok {
		m.mu.Unlock()
		return fmt.Errorf("block %q already exists", label)
	}
	m.mu.Unlock()

	row, err := m.repo.Upsert(ctx, m.agentID, label, description, value, limit, readOnly)
	if err != nil {
		return fmt.Errorf("add block %q: %w", label, err)
	}
	m.mu.Lock()
	m.cache[label] = fromRowFields(row.ID, label, description, row.Value, limit, readOnly, row.Version, row.UpdatedAt)
	m.mu.Unlock()
	return nil
}

// Compile renders the deterministic core-memory payload: persona, human,
// then remaining labels lexicographically (spec §4.3.1).
func (m *BlockManager) Compile() string {
	m.mu.Lock()
	blocks := make([]*Block, 0, len(m.cache))
	for _, b := range m.cache {
		blocks = append(blocks, b)
	}
	m.mu.Unlock()

	sort.Slice(blocks, func(i, j int) bool {
		return blockOrderKey(blocks[i].Label) < blockOrderKey(blocks[j].Label)
	})

	var sb strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&sb, "<%s description=%q length=%d limit=%d read_only=%t>\n%s\n</%s>\n",
			b.Label, b.Description, len(b.Value), b.CharLimit, b.ReadOnly, b.Value, b.Label)
	}
	return sb.String()
}

// blockOrderKey maps persona/human to fixed low sort keys, everything else
// to itself, so lexicographic ordering places persona, human, then the
// rest alphabetically.
func blockOrderKey(label string) string {
	switch label {
	case LabelPersona:
		return "\x00" + label
	case LabelHuman:
		return "\x01" + label
	default:
		return "\x02" + label
	}
}
