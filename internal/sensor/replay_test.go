package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSampleLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.ndjson")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sample log: %v", err)
	}
	return path
}

func TestReplayTimingAndValues(t *testing.T) {
	// Timestamps are binary fractions so the scaled waits come out exact.
	path := writeSampleLog(t, strings.Join([]string{
		"# capture",
		`{"t":0,"pitch":1.5,"roll":-0.5}`,
		`{"t":0.25,"pitch":1.6,"roll":-0.4,"gravity":[0,-1,0]}`,
		`{"t":0.75,"pitch":1.7,"roll":-0.3}`,
		"",
	}, "\n"))

	var waits []time.Duration
	rp := &Replay{
		Path:  path,
		Speed: 2.0,
		wait: func(ctx context.Context, d time.Duration) bool {
			waits = append(waits, d)
			return true
		},
	}

	var got []Sample
	if err := rp.Run(context.Background(), func(s Sample) { got = append(got, s) }); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("emitted %d samples, want 3", len(got))
	}
	if got[0].Pitch != 1.5 || got[2].Roll != -0.3 {
		t.Fatalf("sample values not preserved: %+v", got)
	}
	if got[1].Gravity == nil || (*got[1].Gravity)[1] != -1 {
		t.Fatalf("gravity not preserved: %+v", got[1])
	}

	// Deltas 250 ms and 500 ms at double speed.
	want := []time.Duration{125 * time.Millisecond, 250 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("wait %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestReplayLoopStopsOnCancel(t *testing.T) {
	path := writeSampleLog(t, `{"t":0,"pitch":1,"roll":2}`+"\n"+`{"t":0.5,"pitch":3,"roll":4}`+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	rp := &Replay{
		Path: path,
		Loop: true,
		wait: func(ctx context.Context, d time.Duration) bool {
			return ctx.Err() == nil
		},
	}
	err := rp.Run(ctx, func(Sample) {
		count++
		if count >= 5 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count < 5 {
		t.Fatalf("emitted %d samples before cancel, want at least 5", count)
	}
}

func TestReplayMissingFile(t *testing.T) {
	rp := &Replay{Path: filepath.Join(t.TempDir(), "absent.ndjson")}
	err := rp.Run(context.Background(), func(Sample) {})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Run = %v, want ErrUnavailable", err)
	}
}

func TestReplayMalformedLine(t *testing.T) {
	path := writeSampleLog(t, "{not json}\n")
	rp := &Replay{Path: path}
	if err := rp.Run(context.Background(), func(Sample) {}); err == nil {
		t.Fatalf("Run succeeded on malformed log, want error")
	}
}

type stubSource struct {
	samples []Sample
}

func (s *stubSource) Describe() string { return "stub" }

func (s *stubSource) Run(ctx context.Context, emit func(Sample)) error {
	for _, smp := range s.samples {
		emit(smp)
	}
	return nil
}

func TestTeeRecordsAndForwards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tee.ndjson")
	rc, err := CreateRecorder(path)
	if err != nil {
		t.Fatalf("CreateRecorder: %v", err)
	}

	base := time.Now()
	src := Tee(&stubSource{samples: []Sample{
		{Pitch: 1, Roll: 2, When: base},
		{Pitch: 3, Roll: 4, When: base.Add(10 * time.Millisecond)},
	}}, rc)

	if src.Describe() != "stub" {
		t.Fatalf("Describe = %q, want stub", src.Describe())
	}

	var got []Sample
	if err := src.Run(context.Background(), func(s Sample) { got = append(got, s) }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 2 || got[1].Pitch != 3 {
		t.Fatalf("forwarded samples = %+v", got)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := parseSampleLog(f)
	if err != nil {
		t.Fatalf("parseSampleLog: %v", err)
	}
	if len(recs) != 2 || recs[0].Pitch != 1 || recs[1].Roll != 4 {
		t.Fatalf("recorded %+v", recs)
	}
}

func TestTeeNilRecorderIsIdentity(t *testing.T) {
	src := &stubSource{}
	if got := Tee(src, nil); got != Source(src) {
		t.Fatalf("Tee with nil recorder wrapped the source")
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	rc, err := CreateRecorder(path)
	if err != nil {
		t.Fatalf("CreateRecorder: %v", err)
	}
	g := [3]float64{0, 0, -1}
	base := time.Now()
	samples := []Sample{
		{Pitch: 0.5, Roll: -0.25, When: base},
		{Pitch: 0.6, Roll: -0.2, Gravity: &g, When: base.Add(10 * time.Millisecond)},
	}
	for _, s := range samples {
		if err := rc.WriteSample(s); err != nil {
			t.Fatalf("WriteSample: %v", err)
		}
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rc.WriteSample(samples[0]); err == nil {
		t.Fatalf("WriteSample after Close succeeded, want error")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := parseSampleLog(f)
	if err != nil {
		t.Fatalf("parseSampleLog: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("parsed %d records, want 2", len(recs))
	}
	if recs[0].Pitch != 0.5 || recs[1].Roll != -0.2 {
		t.Fatalf("values not preserved: %+v", recs)
	}
	if recs[1].Gravity == nil || (*recs[1].Gravity)[2] != -1 {
		t.Fatalf("gravity not preserved: %+v", recs[1])
	}
	if recs[1].T < recs[0].T {
		t.Fatalf("timestamps not monotonic: %v then %v", recs[0].T, recs[1].T)
	}
}
