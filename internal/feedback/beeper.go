package feedback

import (
	"sync"
	"sync/atomic"
	"time"

	"levelsense/internal/buzzer"
)

// Beep cadence and tone layout.
const (
	minBeepInterval     = 200 * time.Millisecond
	maxBeepInterval     = 800 * time.Millisecond
	perfectBeepInterval = time.Second
	doubleToneGap       = 120 * time.Millisecond

	NormalToneHz  = 880
	PerfectToneHz = 1320
)

// beepTimer narrows time.Timer so tests can drive the cadence.
type beepTimer interface {
	C() <-chan time.Time
	Stop() bool
}

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

var newTimerFn = func(d time.Duration) beepTimer { return realTimer{time.NewTimer(d)} }

// beeper is the independent timer actor behind the adaptive beep. The
// sampling path only stores the newest deviation and pokes the wake
// channel; all timing lives here, so neither side ever blocks the other.
//
// The machine has two states. idle: no timer outstanding. running: one
// pending timer for the next beep (or for the second half of a perfect
// double tone). Range entry beeps immediately and arms the timer; range
// exit or disabling sound stops the timer without draining it.
type beeper struct {
	player buzzer.Player

	enabled atomic.Bool
	dev     atomic.Value // deviation

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newBeeper(p buzzer.Player, enabled bool) *beeper {
	b := &beeper{
		player: p,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	b.enabled.Store(enabled)
	b.dev.Store(deviation{})
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *beeper) observe(d deviation) {
	b.dev.Store(d)
	b.poke()
}

func (b *beeper) setEnabled(on bool) {
	b.enabled.Store(on)
	b.poke()
}

func (b *beeper) poke() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// stop synchronously shuts the actor down; no tone fires after return.
func (b *beeper) stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.wg.Wait()
	})
}

func (b *beeper) run() {
	defer b.wg.Done()

	var (
		running bool
		pending beepTimer
		fire    <-chan time.Time
		second  bool // the pending timer is the 120 ms gap of a double tone
	)
	cancel := func() {
		if pending != nil {
			pending.Stop()
			pending = nil
			fire = nil
		}
		second = false
		running = false
	}
	schedule := func(d time.Duration) {
		if pending != nil {
			pending.Stop()
		}
		pending = newTimerFn(d)
		fire = pending.C()
	}
	// beep starts one beep unit: a single burst at the interpolated
	// cadence, or the rising tone pair inside the perfect zone.
	beep := func(d deviation) {
		b.player.Play(NormalToneHz)
		if d.perfect() {
			second = true
			schedule(doubleToneGap)
			return
		}
		schedule(intervalFor(d))
	}

	for {
		select {
		case <-b.stopCh:
			cancel()
			return

		case <-b.wake:
			d := b.dev.Load().(deviation)
			on := b.enabled.Load()
			if running {
				if !on || !d.inRange {
					cancel()
				}
			} else if on && d.inRange {
				running = true
				beep(d)
			}

		case <-fire:
			pending = nil
			fire = nil
			d := b.dev.Load().(deviation)
			if !b.enabled.Load() || !d.inRange {
				second = false
				running = false
				continue
			}
			if second {
				second = false
				b.player.Play(PerfectToneHz)
				schedule(perfectBeepInterval - doubleToneGap)
				continue
			}
			beep(d)
		}
	}
}

// intervalFor maps deviation onto the beep period: linear from
// minBeepInterval at the perfect threshold to maxBeepInterval at the
// edge of the sound range. The perfect zone does not interpolate; it
// uses the fixed perfectBeepInterval.
func intervalFor(d deviation) time.Duration {
	if d.perfect() {
		return perfectBeepInterval
	}
	f := (d.value - PerfectThresholdDeg) / (SoundRangeDeg - PerfectThresholdDeg)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return minBeepInterval + time.Duration(f*float64(maxBeepInterval-minBeepInterval))
}
