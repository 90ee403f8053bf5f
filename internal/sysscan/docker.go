package sysscan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
)

// DockerReport summarizes reclaimable Docker resources. Available is
// false when the docker CLI is missing or the daemon is unreachable;
// all other fields are zero in that case.
type DockerReport struct {
	Available         bool  `json:"available"`
	DanglingImages    int   `json:"dangling_images"`
	StoppedContainers int   `json:"stopped_containers"`
	UnusedVolumes     int   `json:"unused_volumes"`
	ReclaimableBytes  int64 `json:"reclaimable_bytes"`
}

// DockerScanner queries the docker CLI for reclaimable resources.
type DockerScanner struct {
	// Run executes docker commands. Defaults to the real CLI.
	Run CommandRunner
}

// dfRow is one line of `docker system df --format '{{json .}}'`.
type dfRow struct {
	Type        string `json:"Type"`
	Reclaimable string `json:"Reclaimable"`
}

// Scan probes Docker and counts dangling images, stopped containers and
// unused volumes. A failing docker CLI yields Available=false, never an
// error: an analyzer host without Docker is a normal condition.
func (s *DockerScanner) Scan(ctx context.Context) *DockerReport {
	run := s.Run
	if run == nil {
		run = runCommand
	}

	report := &DockerReport{}

	out, err := run(ctx, "docker", "system", "df", "--format", "{{json .}}")
	if err != nil {
		slog.Debug("docker unavailable", "error", err)
		return report
	}
	report.Available = true
	report.ReclaimableBytes = parseReclaimable(out)

	report.DanglingImages = countLines(run, ctx, "docker", "images", "-q", "--filter", "dangling=true")
	report.StoppedContainers = countLines(run, ctx, "docker", "ps", "-a", "-q", "--filter", "status=exited")
	report.UnusedVolumes = countLines(run, ctx, "docker", "volume", "ls", "-q", "--filter", "dangling=true")
	return report
}

// parseReclaimable sums the Reclaimable column across df rows. Docker
// prints it as "1.2GB (50%)"; the parenthesized share is dropped.
func parseReclaimable(out []byte) int64 {
	var total int64
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var row dfRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			continue
		}
		value, _, _ := strings.Cut(row.Reclaimable, " ")
		n, err := humanize.ParseBytes(value)
		if err != nil {
			continue
		}
		total += int64(n)
	}
	return total
}

func countLines(run CommandRunner, ctx context.Context, name string, args ...string) int {
	out, err := run(ctx, name, args...)
	if err != nil {
		return 0
	}
	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count
}
