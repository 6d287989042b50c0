package web

import (
	"context"
	"testing"
	"time"

	"levelsense/internal/level"
)

func TestStatusMarkFrame(t *testing.T) {
	st := NewStatus()
	if st.Session() == "" {
		t.Fatalf("session id missing")
	}

	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.MarkFrame(when)
	st.MarkFrame(when.Add(10 * time.Millisecond))

	snap := st.Snapshot(when.Add(time.Second), level.Snapshot{})
	if snap.FramesTotal != 2 {
		t.Fatalf("frames_total=%d want 2", snap.FramesTotal)
	}
	if snap.LastFrameUTC == "" {
		t.Fatalf("last_frame_utc missing")
	}
	if snap.Session != st.Session() {
		t.Fatalf("session mismatch: %q vs %q", snap.Session, st.Session())
	}
}

func TestStatusWatchCountsFrames(t *testing.T) {
	st := NewStatus()
	bc := level.NewBroadcaster()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		st.Watch(ctx, bc)
	}()

	waitFrames := func(want uint64) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			snap := st.Snapshot(time.Time{}, level.Snapshot{})
			if snap.FramesTotal >= want {
				return
			}
			select {
			case <-deadline:
				t.Fatalf("frames_total=%d, want >=%d", snap.FramesTotal, want)
			case <-time.After(5 * time.Millisecond):
			}
		}
	}

	// The last frame is replayed on subscribe, so the first publish is
	// seen whether or not the watcher is up yet.
	bc.Publish(level.Snapshot{Available: true})
	waitFrames(1)
	bc.Publish(level.Snapshot{Available: true, PitchDeg: 1})
	waitFrames(2)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop on cancel")
	}
}
