package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/sageerr"
)

// blockEditor is the subset of *memory.BlockManager the three memory_*
// tools need; named here so tests can supply a fake without constructing a
// full Memory Hierarchy.
type blockEditor interface {
	Replace(ctx context.Context, label, oldText, newText string) error
	Append(ctx context.Context, label, content string) error
	InsertAtLine(ctx context.Context, label, content string, line int) error
}

var _ blockEditor = (*memory.BlockManager)(nil)

// MemoryReplaceTool implements the memory_replace tool (spec §4.4):
// substring replace in block; fails if old is absent.
type MemoryReplaceTool struct {
	Blocks blockEditor
}

func (t *MemoryReplaceTool) Name() string { return "memory_replace" }

func (t *MemoryReplaceTool) Description() string {
	return "Replace a substring in a core-memory block. Fails if the old text is not found."
}

func (t *MemoryReplaceTool) ArgsSchema() string {
	return `{"block": "string", "old": "string", "new": "string"}`
}

func (t *MemoryReplaceTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	block := args["block"]
	if block == "" {
		return Result{Success: false, Error: "block is required"}, nil
	}
	if err := t.Blocks.Replace(ctx, block, args["old"], args["new"]); err != nil {
		return errResult(err)
	}
	return Result{Success: true, Output: fmt.Sprintf("replaced text in block %q", block)}, nil
}

// MemoryAppendTool implements the memory_append tool (spec §4.4): append
// newline-joined.
type MemoryAppendTool struct {
	Blocks blockEditor
}

func (t *MemoryAppendTool) Name() string { return "memory_append" }

func (t *MemoryAppendTool) Description() string {
	return "Append content to a core-memory block, newline-joined with existing content."
}

func (t *MemoryAppendTool) ArgsSchema() string {
	return `{"block": "string", "content": "string"}`
}

func (t *MemoryAppendTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	block := args["block"]
	if block == "" {
		return Result{Success: false, Error: "block is required"}, nil
	}
	if err := t.Blocks.Append(ctx, block, args["content"]); err != nil {
		return errResult(err)
	}
	return Result{Success: true, Output: fmt.Sprintf("appended to block %q", block)}, nil
}

// MemoryInsertTool implements the memory_insert tool (spec §4.4):
// line-based insertion; line<0 means append.
type MemoryInsertTool struct {
	Blocks blockEditor
}

func (t *MemoryInsertTool) Name() string { return "memory_insert" }

func (t *MemoryInsertTool) Description() string {
	return "Insert content as a new line in a core-memory block at the given 0-based line index. -1 appends."
}

func (t *MemoryInsertTool) ArgsSchema() string {
	return `{"block": "string", "content": "string", "line": "int"}`
}

func (t *MemoryInsertTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	block := args["block"]
	if block == "" {
		return Result{Success: false, Error: "block is required"}, nil
	}
	line := -1
	if raw, ok := args["line"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Result{Success: false, Error: fmt.Sprintf("line must be an integer: %v", err)}, nil
		}
		line = n
	}
	if err := t.Blocks.InsertAtLine(ctx, block, args["content"], line); err != nil {
		return errResult(err)
	}
	return Result{Success: true, Output: fmt.Sprintf("inserted into block %q at line %d", block, line)}, nil
}

// errResult maps a pkg/sageerr value into a tool-level failure (spec §7:
// "tool-invocation errors are data fed back to the LLM as tool results").
// Anything not one of the typed kinds is treated as an infra error instead
// and propagated as a Go error.
func errResult(err error) (Result, error) {
	var limitErr *sageerr.LimitExceededError
	var notFoundErr *sageerr.NotFoundError
	var readOnlyErr *sageerr.ReadOnlyError
	var validationErr *sageerr.ValidationError
	switch {
	case errors.As(err, &limitErr), errors.As(err, &notFoundErr), errors.As(err, &readOnlyErr), errors.As(err, &validationErr):
		return Result{Success: false, Error: err.Error()}, nil
	default:
		return Result{}, err
	}
}
