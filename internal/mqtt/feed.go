package mqtt

import (
	"context"
	"log"

	"levelsense/internal/level"
)

// Feed watches the pipeline broadcast and publishes on transitions, so
// the broker sees state changes rather than the raw frame stream. The
// retained state document is refreshed whenever any of its
// non-continuous fields changes; angle values ride along with whatever
// transition triggered the publish.
type Feed struct {
	pub  Publisher
	prev *level.Snapshot
}

func NewFeed(pub Publisher) *Feed {
	return &Feed{pub: pub}
}

// Run consumes frames until ctx is cancelled. Run it as its own
// goroutine; slow broker round-trips cost dropped frames on this
// subscription only, never pipeline stalls.
func (f *Feed) Run(ctx context.Context, bc *level.Broadcaster) {
	if f == nil || f.pub == nil || bc == nil {
		return
	}
	id, ch := bc.Subscribe(16)
	defer bc.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			f.Offer(snap)
		}
	}
}

// Offer applies a single frame. Publish failures are logged and
// otherwise ignored; the next transition tries again.
func (f *Feed) Offer(snap level.Snapshot) {
	if f == nil || f.pub == nil || !snap.Available {
		return
	}
	prev := f.prev
	f.prev = &snap

	stateChanged := prev == nil ||
		prev.Color != snap.Color ||
		prev.Calibrated != snap.Calibrated ||
		prev.Orientation != snap.Orientation ||
		prev.Mode != snap.Mode ||
		prev.Sound != snap.Sound

	var events []Event
	if prev != nil {
		if snap.IsLevel != prev.IsLevel {
			if snap.IsLevel {
				events = append(events, EventLevel)
			} else {
				events = append(events, EventNotLevel)
			}
		}
		if snap.Calibrated != prev.Calibrated {
			if snap.Calibrated {
				events = append(events, EventCalibrated)
			} else {
				events = append(events, EventCalibrationReset)
			}
		}
	}

	if stateChanged {
		if err := f.pub.PublishState(snap); err != nil {
			log.Printf("mqtt: publish state: %v", err)
		}
	}
	for _, ev := range events {
		if err := f.pub.PublishEvent(ev, snap); err != nil {
			log.Printf("mqtt: publish %s event: %v", ev, err)
		}
	}
}
