package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sonic "github.com/bytedance/sonic"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewJSONWriter(LevelInfo, &buf).Named("importer")

	logger.InfoContext(context.Background(), "file skipped", "path", "current/mens-division-1.json", "error", errors.New("boom"))
	logger.Debug("dropped below level")

	var entry map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line: %v (raw=%q)", err, buf.String())
	}
	if entry["msg"] != "file skipped" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["logger"] != "importer" {
		t.Fatalf("unexpected logger name: %v", entry["logger"])
	}
	if entry["path"] != "current/mens-division-1.json" {
		t.Fatalf("unexpected path field: %v", entry["path"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", entry["error"])
	}
	if _, ok := entry["trace_id"]; ok {
		t.Fatalf("did not expect trace_id without span")
	}
}

func TestLogger_NilReceiverFallsBackToDefault(t *testing.T) {
	t.Parallel()

	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected nop logger from nil receiver")
	}
}
