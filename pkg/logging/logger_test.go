package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestComponentLoggerTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	base := newJSON(&buf, slog.LevelInfo)

	logger := NewComponentLogger(base, "config_dispatcher")
	logger.Info("command_applied", slog.String("setting", "stt-provider"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["component"] != "config_dispatcher" {
		t.Fatalf("component = %v, want config_dispatcher", record["component"])
	}
	if record["msg"] != "command_applied" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["source"] == nil {
		t.Fatalf("source location missing from record")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSON(&buf, slog.LevelInfo)

	logger.Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted at info level: %s", buf.String())
	}
}

func TestInitLoggerInstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := InitLogger(slog.LevelWarn)
	if slog.Default() != logger {
		t.Fatalf("default logger not replaced")
	}
}
