package level

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"levelsense/internal/calibration"
	"levelsense/internal/feedback"
	"levelsense/internal/sensor"
)

type Config struct {
	Source   sensor.Source
	Store    *calibration.Store
	Feedback *feedback.Controller // nil degrades to no feedback
}

// Service owns the sampling pipeline: one producer goroutine runs the
// sensor source, one consumer loop folds samples through the filter,
// calibration and classifier, ticks the feedback controller and
// publishes snapshots. All pipeline state lives on the loop; control
// requests travel to it as chan chan error so calibration captures the
// loop's current filtered values without races.
type Service struct {
	cfg       Config
	broadcast *Broadcaster

	samples     chan sensor.Sample
	calibrateCh chan chan error
	resetCh     chan chan error

	mu   sync.RWMutex
	snap Snapshot

	cancelSource context.CancelFunc
	loopDone     chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	closeErr error
	wg       sync.WaitGroup
}

func New(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("level: no sensor source")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("level: no calibration store")
	}
	s := &Service{
		cfg:         cfg,
		broadcast:   NewBroadcaster(),
		samples:     make(chan sensor.Sample, 16),
		calibrateCh: make(chan chan error, 1),
		resetCh:     make(chan chan error, 1),
		loopDone:    make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
	s.snap = Snapshot{
		Orientation: OrientationPortrait,
		Calibrated:  cfg.Store.Calibrated(),
		Color:       ColorOff,
		Mode:        cfg.Feedback.Mode(),
		Sound:       cfg.Feedback.Sound(),
		Source:      cfg.Source.Describe(),
	}
	return s, nil
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("level: service is nil")
	}
	srcCtx, cancel := context.WithCancel(ctx)
	s.cancelSource = cancel
	s.wg.Add(2)
	go s.pump(srcCtx)
	go func() {
		defer s.wg.Done()
		defer close(s.loopDone)
		s.run()
	}()
	return nil
}

// Close stops the pipeline synchronously: the sensor subscription is
// cancelled, the loop drained and the feedback hardware released.
// After Close returns no callback fires and no beep timer remains.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		if s.cancelSource != nil {
			s.cancelSource()
		}
		close(s.stopCh)
		s.wg.Wait()
		s.closeErr = s.cfg.Feedback.Close()
	})
	return s.closeErr
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Broadcast exposes the frame fanout for transports.
func (s *Service) Broadcast() *Broadcaster {
	if s == nil {
		return nil
	}
	return s.broadcast
}

// Calibrate zeroes the level at the current attitude: the loop's
// filtered pitch and roll become the stored offsets. Fails until the
// source has produced at least one sample.
func (s *Service) Calibrate() error {
	return s.request(s.calibrateCh, "calibration")
}

// ResetCalibration clears the offsets and the calibrated flag.
func (s *Service) ResetCalibration() error {
	return s.request(s.resetCh, "calibration reset")
}

func (s *Service) request(ch chan chan error, what string) error {
	if s == nil {
		return fmt.Errorf("level: service is nil")
	}
	done := make(chan error, 1)
	select {
	case ch <- done:
	case <-s.loopDone:
		return fmt.Errorf("level: service stopped")
	default:
		return fmt.Errorf("level: %s already in progress", what)
	}
	select {
	case err := <-done:
		return err
	case <-s.loopDone:
		return fmt.Errorf("level: service stopped")
	}
}

func (s *Service) SetSound(enabled bool) error {
	if s == nil {
		return fmt.Errorf("level: service is nil")
	}
	s.cfg.Feedback.SetSound(enabled)
	s.mu.Lock()
	s.snap.Sound = enabled
	s.mu.Unlock()
	return nil
}

func (s *Service) SetMode(m feedback.Mode) error {
	if s == nil {
		return fmt.Errorf("level: service is nil")
	}
	if err := s.cfg.Feedback.SetMode(m); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Mode = m
	s.mu.Unlock()
	return nil
}

// pump runs the sensor source and feeds the sample channel. It is the
// only writer to the channel; offer drops the oldest queued sample
// rather than ever blocking the source.
func (s *Service) pump(ctx context.Context) {
	defer s.wg.Done()
	err := s.cfg.Source.Run(ctx, s.offer)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("level: sensor source %s stopped: %v", s.cfg.Source.Describe(), err)
		s.mu.Lock()
		s.snap.Available = false
		s.mu.Unlock()
		return
	}
	log.Printf("level: sensor source %s finished", s.cfg.Source.Describe())
}

func (s *Service) offer(sm sensor.Sample) {
	select {
	case s.samples <- sm:
		return
	default:
	}
	select {
	case <-s.samples:
	default:
	}
	select {
	case s.samples <- sm:
	default:
	}
}

func (s *Service) run() {
	var filter angleFilter
	cls := newClassifier()

	for {
		select {
		case <-s.stopCh:
			return
		case done := <-s.calibrateCh:
			if !filter.have {
				done <- fmt.Errorf("level: no samples yet")
				continue
			}
			done <- s.cfg.Store.Calibrate(filter.pitch, filter.roll)
			s.publish(&filter, &cls)
		case done := <-s.resetCh:
			done <- s.cfg.Store.Reset()
			s.publish(&filter, &cls)
		case sm := <-s.samples:
			filter.update(sm.Pitch, sm.Roll)
			if sm.Gravity != nil {
				cls.classify(*sm.Gravity)
			}
			p, r := s.applyOffsets(&filter)
			s.cfg.Feedback.Tick(p, r)
			s.publishAngles(&filter, &cls, p, r)
		}
	}
}

func (s *Service) applyOffsets(f *angleFilter) (pitchDeg, rollDeg float64) {
	offPitch, offRoll := s.cfg.Store.Offsets()
	return f.pitch - offPitch, f.roll - offRoll
}

func (s *Service) publish(f *angleFilter, cls *classifier) {
	p, r := s.applyOffsets(f)
	s.publishAngles(f, cls, p, r)
}

// publishAngles rebuilds the snapshot from the loop state and fans it
// out. Levelness compares the unrounded calibrated values; only the
// published angle fields are rounded. Mode and Sound belong to the
// setters, so the loop carries the previous values forward.
func (s *Service) publishAngles(f *angleFilter, cls *classifier, pitchDeg, rollDeg float64) {
	isLevel := levelFor(pitchDeg, rollDeg)
	snap := Snapshot{
		Available:   f.have,
		PitchDeg:    round2(pitchDeg),
		RollDeg:     round2(rollDeg),
		Orientation: cls.lastStable,
		Calibrated:  s.cfg.Store.Calibrated(),
		IsLevel:     isLevel,
		Color:       colorFor(isLevel, pitchDeg, rollDeg),
		Source:      s.cfg.Source.Describe(),
		UpdatedUTC:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.mu.Lock()
	snap.Mode = s.snap.Mode
	snap.Sound = s.snap.Sound
	s.snap = snap
	s.mu.Unlock()
	s.broadcast.Publish(snap)
}
