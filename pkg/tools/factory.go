package tools

import (
	"github.com/codeready-toolchain/sage/pkg/embedding"
	"github.com/codeready-toolchain/sage/pkg/memory"
	"github.com/codeready-toolchain/sage/pkg/searchmcp"
	"github.com/codeready-toolchain/sage/pkg/store"
)

// BuildOpts carries everything needed to assemble one agent's Tool Registry
// (spec §4.6 step 3: "assemble a fresh Tool Registry with agent-scoped tool
// instances"). WebSearch and Waker are optional: with a nil WebSearch the
// web_search tool is still registered and reports that web search is not
// configured when called; a nil Waker degrades schedule_task to no-op
// scheduling wake.
type BuildOpts struct {
	Memory        *memory.Manager
	Summaries     *store.SummaryRepo
	Embed         embedding.Client
	Tasks         *store.ScheduledTaskRepo
	WorkspacePath string
	WebSearch     *searchmcp.Client
	Waker         Waker
}

// Build assembles the full per-agent Tool Registry: every tool named in
// spec §4.4, bound to this agent's Memory Hierarchy handle and workspace.
func Build(o BuildOpts) *Registry {
	return NewRegistry(
		&MemoryReplaceTool{Blocks: o.Memory.Blocks},
		&MemoryAppendTool{Blocks: o.Memory.Blocks},
		&MemoryInsertTool{Blocks: o.Memory.Blocks},
		&ConversationSearchTool{
			Recall:    o.Memory.Recall,
			Summaries: o.Summaries,
			Embed:     o.Embed,
			Prefs:     o.Memory.Prefs,
			AgentID:   o.Memory.AgentID,
		},
		&ArchivalInsertTool{Archival: o.Memory.Archival},
		&ArchivalSearchTool{Archival: o.Memory.Archival},
		&SetPreferenceTool{Prefs: o.Memory.Prefs},
		&ScheduleTaskTool{Tasks: o.Tasks, Prefs: o.Memory.Prefs, AgentID: o.Memory.AgentID, Waker: o.Waker},
		&ListSchedulesTool{Tasks: o.Tasks, AgentID: o.Memory.AgentID},
		&CancelScheduleTool{Tasks: o.Tasks},
		&ShellTool{WorkspacePath: o.WorkspacePath},
		&WebSearchTool{Client: o.WebSearch},
		&DoneTool{},
	)
}
