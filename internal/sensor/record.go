package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Sample log format: line-oriented NDJSON.
//
// - Blank lines and lines starting with '#' are ignored.
// - Data lines are one JSON object per sample: {"t":<seconds since
//   recording start>,"pitch":<deg>,"roll":<deg>,"gravity":[x,y,z]}.
//   The gravity field is omitted when the source had none.
//
// The format is shared by the recorder below and the replay source, so a
// field capture can be played back through the full pipeline.

type logRecord struct {
	T       float64     `json:"t"`
	Pitch   float64     `json:"pitch"`
	Roll    float64     `json:"roll"`
	Gravity *[3]float64 `json:"gravity,omitempty"`
}

// Recorder tees raw samples to a sample log. Safe for use from a source
// goroutine; WriteSample never blocks on anything but the file.
type Recorder struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

func CreateRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sensor: create sample log: %w", err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if _, err := fmt.Fprintf(w, "# sample log, recorded %s\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Recorder{f: f, w: w, start: time.Now()}, nil
}

func (rc *Recorder) WriteSample(s Sample) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return errors.New("sensor: recorder is closed")
	}
	when := s.When
	if when.IsZero() {
		when = time.Now()
	}
	t := when.Sub(rc.start).Seconds()
	if t < 0 {
		t = 0
	}
	b, err := json.Marshal(logRecord{T: t, Pitch: s.Pitch, Roll: s.Roll, Gravity: s.Gravity})
	if err != nil {
		return err
	}
	if _, err := rc.w.Write(b); err != nil {
		return err
	}
	return rc.w.WriteByte('\n')
}

func (rc *Recorder) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return nil
	}
	rc.closed = true
	if err := rc.w.Flush(); err != nil {
		_ = rc.f.Close()
		return err
	}
	return rc.f.Close()
}

// Tee wraps src so every emitted sample is also written to rec. Write
// errors are reported once and recording stops; the sample stream is
// never interrupted by a full disk.
func Tee(src Source, rec *Recorder) Source {
	if rec == nil {
		return src
	}
	return &teeSource{src: src, rec: rec}
}

type teeSource struct {
	src    Source
	rec    *Recorder
	failed bool
}

func (t *teeSource) Describe() string { return t.src.Describe() }

func (t *teeSource) Run(ctx context.Context, emit func(Sample)) error {
	return t.src.Run(ctx, func(s Sample) {
		if !t.failed {
			if err := t.rec.WriteSample(s); err != nil {
				t.failed = true
				log.Printf("sensor: sample log write failed, recording stopped: %v", err)
			}
		}
		emit(s)
	})
}
