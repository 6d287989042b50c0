package web

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"levelsense/internal/level"
)

// Status tracks process-level state for the status endpoint: session
// identity, uptime and the flow of published frames. Pipeline state
// itself is read from the level service at request time.
type Status struct {
	session       string
	startUnixNano int64
	frames        uint64
	lastFrameNano int64
	source        atomic.Value // string
	listen        atomic.Value // string
}

func NewStatus() *Status {
	s := &Status{
		session:       uuid.NewString(),
		startUnixNano: time.Now().UTC().UnixNano(),
	}
	s.source.Store("")
	s.listen.Store("")
	return s
}

// Session is the per-process identifier, also used to suffix MQTT
// client ids.
func (s *Status) Session() string {
	if s == nil {
		return ""
	}
	return s.session
}

func (s *Status) SetStatic(source, listen string) {
	if s == nil {
		return
	}
	if source != "" {
		s.source.Store(source)
	}
	if listen != "" {
		s.listen.Store(listen)
	}
}

func (s *Status) MarkFrame(nowUTC time.Time) {
	if s == nil {
		return
	}
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.AddUint64(&s.frames, 1)
	atomic.StoreInt64(&s.lastFrameNano, nowUTC.UnixNano())
}

// Watch counts frames off the broadcaster until ctx is cancelled. Run
// it as its own goroutine; it never blocks the publisher.
func (s *Status) Watch(ctx context.Context, bc *level.Broadcaster) {
	if s == nil || bc == nil {
		return
	}
	id, ch := bc.Subscribe(8)
	defer bc.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.MarkFrame(time.Now().UTC())
		}
	}
}

type StatusSnapshot struct {
	Service      string         `json:"service"`
	Session      string         `json:"session"`
	NowUTC       string         `json:"now_utc"`
	UptimeSec    int64          `json:"uptime_sec"`
	Source       string         `json:"source"`
	Listen       string         `json:"listen,omitempty"`
	Level        level.Snapshot `json:"level"`
	FramesTotal  uint64         `json:"frames_total"`
	LastFrameUTC string         `json:"last_frame_utc,omitempty"`
	LocalAddrs   []string       `json:"local_addrs,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time, lv level.Snapshot) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastFrame := atomic.LoadInt64(&s.lastFrameNano)

	snap := StatusSnapshot{
		Service:     serviceName,
		Session:     s.session,
		NowUTC:      nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:   int64(nowUTC.Sub(start).Seconds()),
		Source:      s.source.Load().(string),
		Listen:      s.listen.Load().(string),
		Level:       lv,
		FramesTotal: atomic.LoadUint64(&s.frames),
		LocalAddrs:  localInterfaceAddrs(),
	}
	if lastFrame != 0 {
		snap.LastFrameUTC = time.Unix(0, lastFrame).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
