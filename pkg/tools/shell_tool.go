package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
	"time"
)

// MaxShellTimeout caps how long a single shell_tool invocation may run
// (DESIGN.md Open Question resolution: 10 minutes — enough for quick
// scripting, not for long-running jobs).
const MaxShellTimeout = 10 * time.Minute

const defaultShellTimeout = 60 * time.Second

// maxShellOutputBytes bounds what gets fed back into the context window; a
// runaway command's stdout shouldn't blow the compaction budget.
const maxShellOutputBytes = 32 * 1024

// ShellTool implements the shell tool (spec §4.4): a workspace-scoped
// subprocess, killed by process group on timeout. Grounded on the shell
// tool's workspace-scoped, timeout-killed subprocess-group pattern,
// reimplemented with os/exec and SysProcAttr.Setpgid.
type ShellTool struct {
	WorkspacePath string
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return fmt.Sprintf("Run a shell command in the agent's workspace directory. "+
		"Default timeout %s, maximum %s.", defaultShellTimeout, MaxShellTimeout)
}

func (t *ShellTool) ArgsSchema() string {
	return `{"command": "string", "timeout_seconds": "int (optional)"}`
}

func (t *ShellTool) Execute(ctx context.Context, args map[string]string) (Result, error) {
	command := args["command"]
	if command == "" {
		return Result{Success: false, Error: "command is required"}, nil
	}

	timeout, err := parseShellTimeout(args["timeout_seconds"])
	if err != nil {
		return Result{Success: false, Error: err.Error()}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = t.WorkspacePath
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()

	if runCtx.Err() != nil && cmd.Process != nil {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	output := truncateShellOutput(out.Bytes())

	if runCtx.Err() != nil {
		return Result{Success: false, Error: fmt.Sprintf("command timed out after %s; output so far:\n%s", timeout, output)}, nil
	}
	if runErr != nil {
		return Result{Success: false, Error: fmt.Sprintf("%v\noutput:\n%s", runErr, output)}, nil
	}
	return Result{Success: true, Output: output}, nil
}

func parseShellTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultShellTimeout, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("timeout_seconds must be a positive integer")
	}
	d := time.Duration(secs) * time.Second
	if d > MaxShellTimeout {
		d = MaxShellTimeout
	}
	return d, nil
}

func truncateShellOutput(b []byte) string {
	if len(b) <= maxShellOutputBytes {
		return string(b)
	}
	return string(b[:maxShellOutputBytes]) + "\n...(truncated)"
}
