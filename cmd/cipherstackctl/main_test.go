package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/RowanDark/cipherstack/internal/logging"
)

// setupEnv points config, keyset storage and the audit log at a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("CIPHERSTACK_KEYSET_DIR", filepath.Join(dir, "keysets"))
	t.Setenv("CIPHERSTACK_RECIPE_DIR", filepath.Join(dir, "recipes"))
	t.Setenv("CIPHERSTACK_AUDIT_LOG", filepath.Join(dir, "audit.jsonl"))
	t.Setenv("CIPHERSTACK_ORDER", "")
	t.Setenv("CIPHERSTACK_WORKERS", "")
	return dir
}

func capture(t *testing.T, fn func() int) (string, int) {
	t.Helper()
	var buf bytes.Buffer
	previous := stdout
	stdout = &buf
	defer func() {
		stdout = previous
	}()
	code := fn()
	return buf.String(), code
}

func readAudit(t *testing.T, dir string) []logging.AuditEvent {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	var events []logging.AuditEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var event logging.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("decode audit line: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func countEvents(events []logging.AuditEvent, eventType logging.EventType, decision logging.Decision) int {
	n := 0
	for _, event := range events {
		if event.EventType == eventType && event.Decision == decision {
			n++
		}
	}
	return n
}

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	if code := dispatch([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestSubcommandGroupsRequireSubcommand(t *testing.T) {
	for name, run := range map[string]func([]string) int{
		"keyset":   runKeyset,
		"decimal":  runDecimal,
		"pipeline": runPipeline,
		"config":   runConfig,
	} {
		if code := run(nil); code != 2 {
			t.Fatalf("%s: expected exit code 2 for missing subcommand, got %d", name, code)
		}
		if code := run([]string{"unknown"}); code != 2 {
			t.Fatalf("%s: expected exit code 2 for unknown subcommand, got %d", name, code)
		}
	}
}

func TestRunVersion(t *testing.T) {
	out, code := capture(t, func() int { return runVersion(nil) })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(out) != versionString() {
		t.Fatalf("unexpected version output %q", out)
	}
	if code := runVersion([]string{"extra"}); code != 2 {
		t.Fatalf("expected exit code 2 for extra args, got %d", code)
	}

	out, code = capture(t, func() int { return runVersion([]string{"-json"}) })
	if code != 0 {
		t.Fatalf("version -json: exit code %d", code)
	}
	var decoded buildInfo
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode version json: %v", err)
	}
	if decoded.Version == "" || len(decoded.Layers) != 3 {
		t.Fatalf("unexpected build info %+v", decoded)
	}

	out, _ = capture(t, func() int { return runVersion([]string{"-v"}) })
	if !strings.Contains(out, "layers: chacha20, blockstream, xor_avalanche") {
		t.Fatalf("verbose output missing layers: %q", out)
	}
}

func TestBuildInfoFrom(t *testing.T) {
	vcs := &debug.BuildInfo{
		GoVersion: "go1.24.3",
		Main:      debug.Module{Path: "github.com/RowanDark/cipherstack", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	installed := &debug.BuildInfo{
		GoVersion: "go1.24.3",
		Main:      debug.Module{Path: "github.com/RowanDark/cipherstack", Version: "v0.3.1"},
	}

	tests := []struct {
		name    string
		stamped string
		info    *debug.BuildInfo
		want    string
	}{
		{"no build info", "dev", nil, "cipherstack dev"},
		{"vcs build", "dev", vcs, "cipherstack dev (rev 0123456789ab+dirty, go1.24.3)"},
		{"go install", "dev", installed, "cipherstack v0.3.1 (go1.24.3)"},
		{"stamped wins", "v1.0.0", installed, "cipherstack v1.0.0 (go1.24.3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildInfoFrom(tt.stamped, tt.info).String(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
