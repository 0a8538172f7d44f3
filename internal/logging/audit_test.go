package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/cipherstack/internal/redact"
)

func decodeLines(t *testing.T, data []byte) []AuditEvent {
	t.Helper()
	var events []AuditEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("json.Unmarshal: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestAuditLoggerEmit(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewAuditLogger("test", WithoutStdout(), WithWriter(buf))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	event := AuditEvent{EventType: EventKeysetCreated, KeysetID: "01HZX", Decision: DecisionSuccess}
	if err := logger.Emit(event); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	events := decodeLines(t, buf.Bytes())
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	decoded := events[0]
	if decoded.Component != "test" {
		t.Fatalf("expected component 'test', got %q", decoded.Component)
	}
	if decoded.EventType != EventKeysetCreated {
		t.Fatalf("expected event type %q, got %q", EventKeysetCreated, decoded.EventType)
	}
	if decoded.Decision != DecisionSuccess {
		t.Fatalf("expected decision %q, got %q", DecisionSuccess, decoded.Decision)
	}
	if decoded.Timestamp.IsZero() || decoded.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", decoded.Timestamp)
	}
	if _, err := uuid.Parse(decoded.EventID); err != nil {
		t.Fatalf("expected uuid event id, got %q: %v", decoded.EventID, err)
	}
}

func TestAuditLoggerRedactsKeyMaterial(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewAuditLogger("test", WithoutStdout(), WithWriter(buf))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	fingerprint := strings.Repeat("ab", 16)
	key := "455867356320691211509944977504407603390036387149619137164185182714736811808"
	err = logger.Emit(AuditEvent{
		EventType: EventKeyMaterialRejected,
		Decision:  DecisionFailure,
		Reason:    "bad key=" + key,
		Metadata: map[string]any{
			"fingerprint": fingerprint,
			"layer_key":   key,
		},
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if strings.Contains(buf.String(), key) {
		t.Fatalf("key material leaked into audit log: %s", buf.String())
	}
	decoded := decodeLines(t, buf.Bytes())[0]
	if decoded.Reason != "bad key="+redact.Placeholder {
		t.Fatalf("unexpected reason %q", decoded.Reason)
	}
	if decoded.Metadata["fingerprint"] != fingerprint {
		t.Fatalf("fingerprint should be kept, got %#v", decoded.Metadata["fingerprint"])
	}
	if decoded.Metadata["layer_key"] != redact.Placeholder {
		t.Fatalf("layer_key should be masked, got %#v", decoded.Metadata["layer_key"])
	}
}

func TestAuditLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger("file", WithoutStdout(), WithFile(path))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	child := logger.WithComponent("child")
	if err := logger.Emit(AuditEvent{EventType: EventEncrypt}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := child.Emit(AuditEvent{EventType: EventDecrypt}); err != nil {
		t.Fatalf("Emit child: %v", err)
	}
	if err := child.Close(); err != nil {
		t.Fatalf("child Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat audit file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	events := decodeLines(t, data)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Component != "file" || events[1].Component != "child" {
		t.Fatalf("unexpected components %q and %q", events[0].Component, events[1].Component)
	}
	if events[0].EventID == events[1].EventID {
		t.Fatal("event ids should be unique")
	}
}

func TestAuditLoggerOptionErrors(t *testing.T) {
	if _, err := NewAuditLogger("x", WithWriter(nil)); err == nil {
		t.Fatal("expected error for nil writer")
	}
	if _, err := NewAuditLogger("x", WithFile("  ")); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewAuditLogger("x", WithoutStdout()); err == nil {
		t.Fatal("expected error when no writers remain")
	}
	var nilLogger *AuditLogger
	if err := nilLogger.Emit(AuditEvent{}); err == nil {
		t.Fatal("expected error emitting on nil logger")
	}
}

func TestAuditLoggerConcurrentEmit(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewAuditLogger("test", WithoutStdout(), WithWriter(buf))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.Emit(AuditEvent{EventType: EventEncrypt})
		}()
	}
	wg.Wait()

	if got := len(decodeLines(t, buf.Bytes())); got != 16 {
		t.Fatalf("expected 16 events, got %d", got)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard("quiet")
	if err := logger.Emit(AuditEvent{EventType: EventKeysetLoaded}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
