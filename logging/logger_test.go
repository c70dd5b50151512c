package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/c0deZ3R0/readsync/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", slog.Level(LevelTrace)},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerTo_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "info", Format: "json"})

	logger.WithComponent("compare").WithRun("run-1").Info("diff computed", slog.Int("modified", 3))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != "compare" {
		t.Errorf("component = %v, want compare", entry["component"])
	}
	if entry["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", entry["run_id"])
	}
	if entry["modified"] != float64(3) {
		t.Errorf("modified = %v, want 3", entry["modified"])
	}
}

func TestNewLoggerTo_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "warn", Format: "text"})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should have been filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "Text")
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_ADD_SOURCE", "true")

	config := ApplyEnv(Config{})

	if config.Level != "debug" {
		t.Errorf("Level = %q, want debug", config.Level)
	}
	if config.Format != "text" {
		t.Errorf("Format = %q, want text", config.Format)
	}
	if config.AddSource {
		t.Error("test environment must disable AddSource")
	}
}

func TestDynamicLevel(t *testing.T) {
	levelVar := NewDynamicLevelVar(slog.LevelInfo)

	if levelVar.Level() != slog.LevelInfo {
		t.Fatalf("initial level = %v, want info", levelVar.Level())
	}
	if !levelVar.SetFromString("DEBUG") {
		t.Fatal("SetFromString(DEBUG) returned false")
	}
	if levelVar.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", levelVar.Level())
	}
	if levelVar.SetFromString("loud") {
		t.Error("SetFromString accepted an unknown level")
	}
}

func TestNewLoggerWithDynamicLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, level := NewLoggerWithDynamicLevel(&buf, Config{Level: "info", Format: "json"})

	logger.Trace(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("trace record written at info level: %s", buf.String())
	}

	level.SetFromString("trace")
	logger.Trace(context.Background(), "visible")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["level"] != "TRACE" || entry["msg"] != "visible" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_InstallsDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(previous)
		defaultMu.Lock()
		defaultLogger = nil
		defaultMu.Unlock()
	})

	var buf bytes.Buffer
	logger, level := Init(&buf, Config{Level: "warn", Format: "text"})
	if Default() != logger {
		t.Fatal("Default() does not return the installed logger")
	}

	WithComponent("retry").Info("dropped")
	level.SetFromString("info")
	slog.Info("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestCustomLevelString(t *testing.T) {
	if LevelTrace.String() != "TRACE" {
		t.Errorf("LevelTrace.String() = %q", LevelTrace.String())
	}
}

func TestSyncErrorValuer(t *testing.T) {
	syncErr := &errors.SyncError{
		Op:        errors.OpSync,
		Component: "orchestrator",
		Stage:     errors.StageSync,
		Code:      errors.ErrCodeSync,
		Kind:      errors.KindInternal,
		Err:       fmt.Errorf("underlying error"),
		Retryable: true,
		Metadata: map[string]interface{}{
			"attempts": 3,
		},
	}

	logValue := SyncErrorValuer{SyncError: syncErr}.LogValue()
	if logValue.Kind() != slog.KindGroup {
		t.Fatalf("Expected group value, got %v", logValue.Kind())
	}

	keys := map[string]bool{}
	for _, attr := range logValue.Group() {
		keys[attr.Key] = true
	}
	for _, want := range []string{"operation", "component", "code", "stage", "kind", "error", "metadata"} {
		if !keys[want] {
			t.Errorf("missing attribute %q", want)
		}
	}
}

func TestLogError_StructuresSyncError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "debug", Format: "json"})

	err := errors.NewStageError(errors.StageComparison, errors.OpCompare, errors.ErrCodeComparison, fmt.Errorf("boom"))
	logger.LogError(context.Background(), err, "stage failed")

	var entry map[string]any
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatalf("output is not JSON: %v", jerr)
	}
	group, ok := entry["sync_error"].(map[string]any)
	if !ok {
		t.Fatalf("sync_error group missing: %v", entry)
	}
	if group["stage"] != "COMPARISON" {
		t.Errorf("stage = %v, want COMPARISON", group["stage"])
	}
	if _, ok := entry["caller"]; !ok {
		t.Error("caller group missing")
	}
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "debug", Format: "text"})

	if err := logger.LogOperation(context.Background(), "compare", func() error { return nil }); err != nil {
		t.Fatalf("LogOperation() = %v", err)
	}
	if !strings.Contains(buf.String(), "operation completed") || !strings.Contains(buf.String(), "operation=compare") {
		t.Errorf("missing completion record: %s", buf.String())
	}

	want := fmt.Errorf("failed")
	if err := logger.LogOperation(context.Background(), "compare", func() error { return want }); err != want {
		t.Errorf("LogOperation() = %v, want %v", err, want)
	}
	if !strings.Contains(buf.String(), "operation failed") {
		t.Errorf("missing failure record: %s", buf.String())
	}
}

func TestComponentLogger_NilFallsBackToDefault(t *testing.T) {
	if ComponentLogger(nil, "retry") == nil {
		t.Fatal("ComponentLogger(nil) returned nil")
	}
	if ComponentLogger(Discard(), "retry") == nil {
		t.Fatal("ComponentLogger(discard) returned nil")
	}
}

func BenchmarkLogger(b *testing.B) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "info", Format: "json"})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		logger.InfoContext(ctx, "record compared",
			slog.String("operation", "compare"),
			slog.Int("iteration", i),
			slog.Duration("elapsed", time.Microsecond*100),
		)
	}
}
