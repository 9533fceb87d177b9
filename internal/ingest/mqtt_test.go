package ingest_test

import (
	"testing"

	"affect/internal/ingest"
)

func TestDecodeSample(t *testing.T) {
	payload := []byte(`{
		"sequence_index": 7,
		"gsr": 2.4,
		"hr": 78,
		"timestamp_ms": 35000,
		"user_id": "user-1",
		"session_id": "s-1"
	}`)

	sample, err := ingest.DecodeSample(payload)
	if err != nil {
		t.Fatalf("DecodeSample failed: %v", err)
	}
	if sample.SequenceIndex != 7 || sample.SessionID != "s-1" || sample.UserID != "user-1" {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if sample.GSR != 2.4 || sample.HR != 78 || sample.TimestampMs != 35000 {
		t.Fatalf("unexpected readings %+v", sample)
	}
}

func TestDecodeBatch(t *testing.T) {
	single, err := ingest.DecodeBatch([]byte(`{"gsr": 1, "hr": 60, "timestamp_ms": 1000, "session_id": "s-1"}`))
	if err != nil {
		t.Fatalf("DecodeBatch single: %v", err)
	}
	if len(single) != 1 || single[0].SessionID != "s-1" {
		t.Fatalf("unexpected samples %+v", single)
	}

	batch, err := ingest.DecodeBatch([]byte(`[
		{"gsr": 1, "hr": 60, "timestamp_ms": 1000, "session_id": "s-1"},
		{"gsr": 2, "hr": 62, "timestamp_ms": 2000, "session_id": "s-1"}
	]`))
	if err != nil {
		t.Fatalf("DecodeBatch array: %v", err)
	}
	if len(batch) != 2 || batch[1].TimestampMs != 2000 {
		t.Fatalf("unexpected samples %+v", batch)
	}

	if _, err := ingest.DecodeBatch([]byte(`[]`)); err == nil {
		t.Fatal("expected error for empty batch")
	}
	if _, err := ingest.DecodeBatch([]byte(`[{"gsr": 1, "hr": 60, "timestamp_ms": 1000}, {"gsr": -1, "hr": 60, "timestamp_ms": 2000}]`)); err == nil {
		t.Fatal("expected error for invalid sample inside batch")
	}
}

func TestDecodeSampleRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"gsr":`},
		{"missing timestamp", `{"gsr": 1, "hr": 60}`},
		{"negative gsr", `{"gsr": -1, "hr": 60, "timestamp_ms": 1000}`},
		{"negative hr", `{"gsr": 1, "hr": -60, "timestamp_ms": 1000}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ingest.DecodeSample([]byte(tc.payload)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}
