package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"affect/internal/logging"
	"affect/internal/signal"
)

func TestCLISessionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	baselineSamples := make([]signal.Sample, 10)
	for i := range baselineSamples {
		baselineSamples[i] = signal.Sample{GSR: 2, HR: 70, TimestampMs: int64(i+1) * 1000}
	}
	samplePath := writeSampleFile(t, t.TempDir(), baselineSamples)

	out, _, err := runCLI(t, []string{"baseline", "--user", "user-1", "--file", samplePath}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	requireContains(t, out, "Baseline recorded for user-1")
	requireContains(t, out, "10 samples")

	out, _, err = runCLI(t, []string{"session", "start", "--session", "cli-1", "--user", "user-1", "--video", "1", "--start-ts", "1"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	requireContains(t, out, "Session cli-1 started for user user-1")

	out, _, err = runCLI(t, []string{"sessions"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, out, "cli-1")
	requireContains(t, out, "processing")

	ingestSamples(t, env.addr, "cli-1", "user-1", 60)

	out, _, err = runCLI(t, []string{"session", "stop", "cli-1"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("session stop: %v", err)
	}
	requireContains(t, out, "Session cli-1 terminated")
	requireContains(t, out, "12 windows")

	out, _, err = runCLI(t, []string{"predictions", "--session", "cli-1"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	requireContains(t, out, "HH")
	if got := strings.Count(out, "cli-1"); got != 12 {
		t.Fatalf("expected 12 prediction rows, output has %d: %q", got, out)
	}

	out, _, err = runCLI(t, []string{"predictions", "--session", "ghost"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("predictions ghost: %v", err)
	}
	requireContains(t, out, "No predictions found.")

	out, _, err = runCLI(t, []string{"status"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "yes")
	requireContains(t, out, "Models loaded")
	requireContains(t, out, "Predictions logged")
	requireContains(t, out, "12")
}

func TestCLIStopUnknownSession(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"session", "stop", "ghost"}, env.addr, env.configPath)
	if err == nil {
		t.Fatal("expected error stopping unknown session")
	}
	requireContains(t, err.Error(), "daemon:")
}

func TestCLISessionStartRequiresUser(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"session", "start", "--video", "1"}, env.addr, env.configPath)
	if err == nil {
		t.Fatal("expected error without --user")
	}
	requireContains(t, err.Error(), "--user is required")
}

func TestCLILogs(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.addr, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only trailing lines, got %q", out)
	}
}

func TestCLIDaemonUnreachable(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"status"}, "127.0.0.1:1", env.configPath)
	if err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
	requireContains(t, err.Error(), "connect to daemon")
}
