package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/logging"
)

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := logging.New(logging.Options{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConsoleInfoHidesIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Close()

	log := logging.NewComponentLogger(logger.Logger, "release")
	log.Info("unit built",
		logging.String(logging.FieldUnit, "05"),
		logging.String(logging.FieldEventType, "unit_complete"),
		logging.String("output_path", "/tmp/out.mkv"),
		logging.Int("warnings", 0),
	)

	out := buf.String()
	for _, want := range []string{"INFO [release] 05 – unit built", "- Event: unit_complete", "- Warnings: 0", "+ 1 more hidden"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "/tmp/out.mkv") {
		t.Fatalf("path should be hidden at info level:\n%s", out)
	}
}

func TestConsoleDebugShowsEverything(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("probing", logging.String("source_path", "/src/premux.mkv"))
	out := buf.String()
	if !strings.Contains(out, "source_path: /src/premux.mkv") {
		t.Fatalf("debug output missing field:\n%s", out)
	}
	if !strings.Contains(out, ".go:") {
		t.Fatalf("debug output should carry source location:\n%s", out)
	}
}

func TestFileOutputIsJSONWithRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "subforge.log")
	var console bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &console, File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "mux complete", logging.Error(errors.New("none")))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry[logging.FieldCorrelationID] != "run-123" {
		t.Fatalf("correlation id = %v", entry[logging.FieldCorrelationID])
	}
	if entry["level"] != "info" || entry["msg"] != "mux complete" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if console.Len() == 0 {
		t.Fatal("console stream should receive the record too")
	}
}

func TestWithContextDoesNotDuplicateRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subforge.log")
	logger, err := logging.New(logging.Options{Console: &bytes.Buffer{}, File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := logging.WithUnit(logging.WithRunID(context.Background(), "abc"), "NCOP1")
	logging.WithContext(ctx, logger.Logger).InfoContext(ctx, "hello")
	_ = logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), `"correlation_id"`); n != 1 {
		t.Fatalf("correlation_id appears %d times: %s", n, data)
	}
	if !strings.Contains(string(data), `"unit":"NCOP1"`) {
		t.Fatalf("unit missing: %s", data)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger.Logger, "font missing", "font_missing", logging.String(logging.FieldImpact, "glyphs may render wrong"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "font_missing" || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("defaults not injected: %v", entry)
	}
	if entry[logging.FieldImpact] != "glyphs may render wrong" {
		t.Fatalf("explicit impact overwritten: %v", entry)
	}
}

func TestNilLoggerHelpers(t *testing.T) {
	logging.WarnWithContext(nil, "ignored", "noop")
	logging.ErrorWithContext(nil, "ignored", "noop")
	logging.NewComponentLogger(nil, "x").Info("discarded")
	var l *logging.Logger
	if err := l.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
