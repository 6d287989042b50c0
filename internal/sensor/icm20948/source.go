package icm20948

import (
	"context"
	"fmt"
	"log"
	"time"

	"levelsense/internal/i2c"
	"levelsense/internal/sensor"
)

// Source polls the ICM-20948 accelerometer at the pipeline cadence and
// converts each vector to tilt angles plus the gravity direction.
type Source struct {
	BusPath string // default /dev/i2c-1
	Addr    uint16 // default 0x68
	Mount   sensor.Mount
}

func (s *Source) Describe() string { return "imu" }

func (s *Source) busPath() string {
	if s.BusPath != "" {
		return s.BusPath
	}
	return "/dev/i2c-1"
}

func (s *Source) addr() uint16 {
	if s.Addr != 0 {
		return s.Addr
	}
	return addrDefault
}

// Probe checks for the device without starting a sampling loop, so
// source auto-selection can fall through cheaply.
func (s *Source) Probe() error {
	bus, err := i2c.Open(s.busPath())
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", sensor.ErrUnavailable, s.busPath(), err)
	}
	defer bus.Close()
	who, err := bus.Dev(s.addr()).ReadRegU8(regWhoAmI)
	if err != nil {
		return fmt.Errorf("%w: whoami at 0x%02X: %v", sensor.ErrUnavailable, s.addr(), err)
	}
	if who != whoAmIVal {
		return fmt.Errorf("%w: whoami=0x%02X want 0x%02X", sensor.ErrUnavailable, who, whoAmIVal)
	}
	return nil
}

func (s *Source) Run(ctx context.Context, emit func(sensor.Sample)) error {
	bus, err := i2c.Open(s.busPath())
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", sensor.ErrUnavailable, s.busPath(), err)
	}
	defer bus.Close()

	dev, err := New(bus.Dev(s.addr()))
	if err != nil {
		return fmt.Errorf("%w: %v", sensor.ErrUnavailable, err)
	}

	tick := time.NewTicker(sensor.SampleInterval)
	defer tick.Stop()

	// A transient bus error is skipped; a solid second of failures
	// means the device is gone.
	consecutiveErrs := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			ax, ay, az, err := dev.ReadAccel()
			if err != nil {
				consecutiveErrs++
				if consecutiveErrs == 1 {
					log.Printf("icm20948: read failed: %v", err)
				}
				if consecutiveErrs >= 100 {
					return fmt.Errorf("icm20948: device stopped responding: %w", err)
				}
				continue
			}
			consecutiveErrs = 0

			pitch, roll, gravity, ok := sensor.TiltFromAccel(ax, ay, az, s.Mount)
			if !ok {
				continue
			}
			emit(sensor.Sample{Pitch: pitch, Roll: roll, Gravity: &gravity, When: time.Now()})
		}
	}
}
