package sensor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Replay plays a recorded sample log back through the pipeline with its
// original relative timing.
type Replay struct {
	Path string
	// Speed is the playback rate: 1.0 real time, 2.0 halves the waits.
	// Zero means 1.0.
	Speed float64
	Loop  bool

	// wait is swapped in tests to avoid real sleeps.
	wait func(ctx context.Context, d time.Duration) bool
}

func (rp *Replay) Describe() string { return "replay:" + rp.Path }

func (rp *Replay) Run(ctx context.Context, emit func(Sample)) error {
	f, err := os.Open(rp.Path)
	if err != nil {
		return fmt.Errorf("%w: sample log: %v", ErrUnavailable, err)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("sensor: read sample log: %w", err)
	}
	recs, err := parseSampleLog(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("sensor: sample log %s has no samples", rp.Path)
	}

	speed := rp.Speed
	if speed <= 0 {
		speed = 1.0
	}
	wait := rp.wait
	if wait == nil {
		wait = sleepCtx
	}

	for {
		last := recs[0].T
		for _, r := range recs {
			d := time.Duration((r.T - last) / speed * float64(time.Second))
			last = r.T
			if d > 0 && !wait(ctx, d) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			emit(Sample{Pitch: r.Pitch, Roll: r.Roll, Gravity: r.Gravity, When: time.Now()})
		}
		if !rp.Loop {
			return nil
		}
	}
}

func parseSampleLog(r io.Reader) ([]logRecord, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var recs []logRecord
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("sensor: invalid sample log line %q: %w", line, err)
		}
		if rec.T < 0 {
			return nil, fmt.Errorf("sensor: invalid sample log timestamp: %v", rec.T)
		}
		recs = append(recs, rec)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
