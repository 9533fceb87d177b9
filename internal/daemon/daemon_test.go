package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"affect/internal/api"
	"affect/internal/baseline"
	"affect/internal/classifier"
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

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
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
	return d
}

func startDaemon(t *testing.T, d *daemon.Daemon) string {
	t.Helper()
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
	return "http://" + addr
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	// Record a baseline for the user.
	baselineSamples := make([]signal.Sample, 10)
	for i := range baselineSamples {
		baselineSamples[i] = signal.Sample{GSR: 2, HR: 70, TimestampMs: int64(i+1) * 1000}
	}
	resp := postJSON(t, base+"/api/baseline", api.BaselineRequest{UserID: "user-1", Samples: baselineSamples})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("baseline status = %d", resp.StatusCode)
	}
	var baselineResp api.BaselineResponse
	decodeInto(t, resp, &baselineResp)
	if baselineResp.MeanGSR != 2 || baselineResp.MeanHR != 70 {
		t.Fatalf("baseline response %+v", baselineResp)
	}

	// Start a session.
	resp = postJSON(t, base+"/api/session/start", api.StartSessionRequest{
		SessionID: "s-1", UserID: "user-1", VideoID: 1, StartTs: 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session start status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A duplicate session id is rejected.
	resp = postJSON(t, base+"/api/session/start", api.StartSessionRequest{
		SessionID: "s-1", UserID: "user-1", VideoID: 1,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate start status = %d, expected 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Stream 60 samples at a 1s cadence.
	for i := 0; i < 60; i++ {
		sample := signal.Sample{
			SequenceIndex: int64(i),
			SessionID:     "s-1",
			UserID:        "user-1",
			GSR:           2.5 + float64(i%5)*0.1,
			HR:            75 + float64(i%9),
			TimestampMs:   int64(i)*1000 + 1,
		}
		resp := postJSON(t, base+"/api/ingest", sample)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("ingest status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Stop the session, draining the final partial window.
	resp = postJSON(t, base+"/api/session/stop", api.StopSessionRequest{SessionID: "s-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session stop status = %d", resp.StatusCode)
	}
	var stopResp api.SessionResponse
	decodeInto(t, resp, &stopResp)
	if stopResp.Session.State != "terminated" {
		t.Fatalf("final state = %s", stopResp.Session.State)
	}
	if stopResp.Session.WindowsEmitted != 12 {
		t.Fatalf("windows emitted = %d, expected 12", stopResp.Session.WindowsEmitted)
	}

	// Predictions are served ordered by window index.
	getResp, err := http.Get(base + "/api/predictions?session_id=s-1")
	if err != nil {
		t.Fatalf("GET predictions: %v", err)
	}
	var predResp api.PredictionsResponse
	decodeInto(t, getResp, &predResp)
	if len(predResp.Predictions) != 12 {
		t.Fatalf("got %d predictions, expected 12", len(predResp.Predictions))
	}
	for i, p := range predResp.Predictions {
		if p.WindowIndex != int64(i) {
			t.Fatalf("prediction %d at window %d", i, p.WindowIndex)
		}
		if p.Probe != "HH" || p.Valence != 1 || p.Arousal != 1 {
			t.Fatalf("unexpected prediction %+v", p)
		}
	}

	// Unknown session queries return empty, not an error.
	getResp, err = http.Get(base + "/api/predictions?session_id=ghost")
	if err != nil {
		t.Fatalf("GET predictions: %v", err)
	}
	predResp = api.PredictionsResponse{}
	decodeInto(t, getResp, &predResp)
	if len(predResp.Predictions) != 0 {
		t.Fatal("unknown session should yield no predictions")
	}

	// Status reflects the drained session and loaded models.
	getResp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status api.DaemonStatus
	decodeInto(t, getResp, &status)
	if !status.Running || status.ActiveSessions != 0 || status.LoadedModels != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.PredictionsLogged != 12 {
		t.Fatalf("predictions logged = %d, expected 12", status.PredictionsLogged)
	}

	getResp, err = http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	var health api.HealthResponse
	decodeInto(t, getResp, &health)
	if health.Status != "ok" {
		t.Fatalf("health = %s", health.Status)
	}
}

func TestIngestAcceptsSampleBatches(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	resp := postJSON(t, base+"/api/session/start", api.StartSessionRequest{
		SessionID: "s-batch", UserID: "user-1", VideoID: 2, StartTs: 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session start status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	batch := []signal.Sample{
		{SessionID: "s-batch", UserID: "user-1", GSR: 1, HR: 60, TimestampMs: 1},
		{SessionID: "s-batch", UserID: "user-1", GSR: 1.1, HR: 61, TimestampMs: 1001},
	}
	resp = postJSON(t, base+"/api/ingest", batch)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("batch ingest status = %d, expected 202", resp.StatusCode)
	}
}

func TestPredictionsFilterByVideo(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	getResp, err := http.Get(base + "/api/predictions?video_id=3")
	if err != nil {
		t.Fatalf("GET predictions: %v", err)
	}
	var predResp api.PredictionsResponse
	decodeInto(t, getResp, &predResp)
	if len(predResp.Predictions) != 0 {
		t.Fatal("unknown video should yield no predictions")
	}

	getResp, err = http.Get(base + "/api/predictions?video_id=bogus")
	if err != nil {
		t.Fatalf("GET predictions: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400 for malformed video_id", getResp.StatusCode)
	}
}

func TestIngestRejectsUnknownSession(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	resp := postJSON(t, base+"/api/ingest", signal.Sample{
		SessionID: "ghost", GSR: 1, HR: 60, TimestampMs: 1000,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, expected 404", resp.StatusCode)
	}
}

func TestIngestRejectsMalformedSample(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	resp, err := http.Post(base+"/api/ingest", "application/json", bytes.NewReader([]byte(`{"gsr":`)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", resp.StatusCode)
	}
}

func TestSessionStartValidation(t *testing.T) {
	d := newDaemon(t)
	base := startDaemon(t, d)

	resp := postJSON(t, base+"/api/session/start", api.StartSessionRequest{UserID: "", VideoID: 1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", resp.StatusCode)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	d := newDaemon(t)
	startDaemon(t, d)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}
}
