// Package sysscan inspects system-level space consumers that a plain file
// walk cannot see: NAS recycle bins, btrfs snapshots, Docker resources and
// oversized logs. Scanners degrade to an "unavailable" result instead of
// failing when the underlying tool or directory is missing.
package sysscan

import (
	"context"
	"os/exec"
	"time"
)

// commandTimeout bounds every external command a scanner runs.
const commandTimeout = 300 * time.Second

// CommandRunner executes a command and returns its stdout. Scanners use
// this indirection so tests can substitute canned output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// DefaultRunner runs commands through exec.CommandContext, bounded by
// commandTimeout.
var DefaultRunner CommandRunner = runCommand
