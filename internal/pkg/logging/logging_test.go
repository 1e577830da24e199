package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samirrijal/data512/internal/pkg/logging"
)

func TestSetup_WritesToLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closer, err := logging.Setup("info", "json", dir, "wildfire")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slog.Info("feature included", "name", "CEDAR")
	slog.Debug("not written")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "wildfire.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), data)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["name"] != "CEDAR" {
		t.Errorf("expected name attribute, got %v", rec)
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(&buf, slog.LevelWarn, "text"))
	logger.Info("dropped")
	logger.Warn("kept", "year", 1999)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "year=1999") {
		t.Errorf("expected text key/value output, got %q", out)
	}
}
