package haptic

import (
	"sync"
	"time"
)

const (
	lightPulse  = 30 * time.Millisecond
	strongPulse = 90 * time.Millisecond
	pulseGap    = 30 * time.Millisecond
)

var afterFn = time.After

type outputLine interface {
	SetValue(v int) error
	Close() error
}

// Motor pulses a vibration motor behind a transistor on a digital
// output line. Pulses are shaped by a single worker goroutine so the
// sampling path never waits on the hardware.
type Motor struct {
	line outputLine

	queue    chan Strength
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newMotor(line outputLine) *Motor {
	m := &Motor{
		line:   line,
		queue:  make(chan Strength, 8),
		stopCh: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

func (m *Motor) Pulse(s Strength) {
	select {
	case m.queue <- s:
	default:
		// Worker is saturated; extra pulses add nothing.
	}
}

func (m *Motor) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case s := <-m.queue:
			d := lightPulse
			if s == Strong {
				d = strongPulse
			}
			if err := m.line.SetValue(1); err != nil {
				continue
			}
			select {
			case <-afterFn(d):
			case <-m.stopCh:
				_ = m.line.SetValue(0)
				return
			}
			_ = m.line.SetValue(0)
			select {
			case <-afterFn(pulseGap):
			case <-m.stopCh:
				return
			}
		}
	}
}

func (m *Motor) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		_ = m.line.SetValue(0)
		err = m.line.Close()
	})
	return err
}
