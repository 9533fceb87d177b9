package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"affect/internal/baseline"
	"affect/internal/classifier"
	"affect/internal/config"
	"affect/internal/daemon"
	"affect/internal/logging"
	"affect/internal/session"
	"affect/internal/signal"
	"affect/internal/testsupport"
)

type stubModel struct{}

func (stubModel) LookBack() int { return 3 }

func (stubModel) Classify(sequence [][]float64) (classifier.Prediction, error) {
	if len(sequence) != 3 {
		return classifier.Prediction{}, fmt.Errorf("sequence holds %d windows, model expects 3", len(sequence))
	}
	return classifier.Prediction{Probe: classifier.ProbeHH, Probabilities: [4]float64{0.7, 0.1, 0.1, 0.1}}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	addr       string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "affect", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	db := testsupport.MustOpenStore(t, cfg)
	baselines := baseline.NewStore(db, logging.NewNop())
	registry := classifier.NewRegistry(map[int]classifier.Classifier{
		0: stubModel{},
		1: stubModel{},
	})
	sessions, err := session.NewManager(cfg, db, baselines, registry, logging.NewNop())
	if err != nil {
		t.Fatalf("session.NewManager: %v", err)
	}

	d, err := daemon.New(cfg, db, registry, sessions, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("api server did not bind")
	}

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		addr:       addr,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, addr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if addr != "" {
		flags = append(flags, "--addr", addr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func ingestSamples(t *testing.T, addr, sessionID, userID string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		sample := signal.Sample{
			SequenceIndex: int64(i),
			SessionID:     sessionID,
			UserID:        userID,
			GSR:           2.5 + float64(i%5)*0.1,
			HR:            75 + float64(i%9),
			TimestampMs:   int64(i)*1000 + 1,
		}
		raw, err := json.Marshal(sample)
		if err != nil {
			t.Fatalf("marshal sample: %v", err)
		}
		resp, err := http.Post("http://"+addr+"/api/ingest", "application/json", bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("POST ingest: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("ingest status = %d", resp.StatusCode)
		}
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\nmodel_dir = %q\napi_bind = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.ModelDir,
		cfg.Paths.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeSampleFile(t *testing.T, dir string, samples []signal.Sample) string {
	t.Helper()
	raw, err := json.Marshal(samples)
	if err != nil {
		t.Fatalf("marshal samples: %v", err)
	}
	path := filepath.Join(dir, "samples.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write sample file: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
