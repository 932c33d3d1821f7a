package tools

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/sage/pkg/memory"
)

// SetPreferenceTool implements the set_preference tool (spec §4.4):
// validated upsert of an agent-scoped preference.
type SetPreferenceTool struct {
	Prefs *memory.PreferenceManager
}

func (t *SetPreferenceTool) Name() string { return "set_preference" }

func (t *SetPreferenceTool) Description() string {
	return "Set a user preference (e.g. timezone, language, display_name). Unknown keys are accepted verbatim."
}

func (t *SetPreferenceTool) ArgsSchema() string {
	return `{"key": "string", "value": "string"}`
}

func (t *SetPreferenceTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	key := args["key"]
	if key == "" {
		return Result{Success: false, Error: "key is required"}, nil
	}
	if err := t.Prefs.Set(ctx, key, args["value"]); err != nil {
		return errResult(err)
	}
	return Result{Success: true, Output: fmt.Sprintf("set %s=%s", key, args["value"])}, nil
}
