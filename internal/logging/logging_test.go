package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetup_StderrOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: "warn", Stderr: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "tab", "beginner")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "tab=beginner") {
		t.Errorf("output = %q, want warn record with attrs", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colour codes written to a non-terminal writer: %q", out)
	}
}

func TestSetup_WithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "findwork.log")

	logger, closeFn, err := Setup(Options{Level: "debug", File: path, Stderr: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.With("component", "refresher").Debug("snapshot published", "generation", 3)
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, out := range []string{buf.String(), string(content)} {
		if !strings.Contains(out, "snapshot published") || !strings.Contains(out, "component=refresher") {
			t.Errorf("output = %q, want record with attrs", out)
		}
	}
}

func TestSetup_InvalidLevel(t *testing.T) {
	if _, _, err := Setup(Options{Level: "loud"}); err == nil {
		t.Fatal("Setup() expected error for unknown level")
	}
}

func TestMultiHandler_Enabled(t *testing.T) {
	warn := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	if NewMultiHandler(warn).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("warn-only handler enabled for info")
	}
	if !NewMultiHandler(warn, debug).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("multi handler should be enabled when any child is")
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))

	slog.New(h).WithGroup("github").Info("request", "status", 200)

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, "github.status=200") {
			t.Errorf("output = %q, want grouped attr", out)
		}
	}
}
