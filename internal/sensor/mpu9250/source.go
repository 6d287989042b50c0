package mpu9250

import (
	"context"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"levelsense/internal/sensor"
)

// MPU-9250 over SPI via periph.io, for boards that carry the older IMU
// instead of the ICM. Accelerometer only; raw counts are scaled here.

const (
	defaultDevice = "/dev/spidev0.0"
	defaultCSPin  = "GPIO25"

	accelRange2g = 0 // +-2g, 16384 LSB/g
	dlpfMode     = 3 // 41 Hz bandwidth, knocks down bus noise
	sampleDiv    = 9 // 1 kHz internal / (1+9) = 100 Hz output

	countsPerG = 16384.0
)

type Source struct {
	Device string // SPI device path, default /dev/spidev0.0
	CSPin  string // chip select GPIO name, default GPIO25
	Mount  sensor.Mount
}

func (s *Source) Describe() string { return "spi" }

func (s *Source) device() string {
	if s.Device != "" {
		return s.Device
	}
	return defaultDevice
}

func (s *Source) csPin() string {
	if s.CSPin != "" {
		return s.CSPin
	}
	return defaultCSPin
}

func (s *Source) open() (*mpu9250.MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: periph host init: %v", sensor.ErrUnavailable, err)
	}
	cs := gpioreg.ByName(s.csPin())
	if cs == nil {
		return nil, fmt.Errorf("%w: CS pin %q not found", sensor.ErrUnavailable, s.csPin())
	}
	tr, err := mpu9250.NewSpiTransport(s.device(), cs)
	if err != nil {
		return nil, fmt.Errorf("%w: spi transport %s: %v", sensor.ErrUnavailable, s.device(), err)
	}
	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%w: mpu9250: %v", sensor.ErrUnavailable, err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%w: mpu9250 init: %v", sensor.ErrUnavailable, err)
	}
	if err := imu.SetAccelRange(accelRange2g); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	if err := imu.SetDLPFMode(dlpfMode); err != nil {
		return nil, fmt.Errorf("mpu9250: set dlpf: %w", err)
	}
	if err := imu.SetSampleRateDivider(sampleDiv); err != nil {
		return nil, fmt.Errorf("mpu9250: set sample rate: %w", err)
	}
	return imu, nil
}

func (s *Source) Run(ctx context.Context, emit func(sensor.Sample)) error {
	imu, err := s.open()
	if err != nil {
		return err
	}

	tick := time.NewTicker(sensor.SampleInterval)
	defer tick.Stop()

	consecutiveErrs := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			ax, ay, az, err := readAccel(imu)
			if err != nil {
				consecutiveErrs++
				if consecutiveErrs == 1 {
					log.Printf("mpu9250: read failed: %v", err)
				}
				if consecutiveErrs >= 100 {
					return fmt.Errorf("mpu9250: device stopped responding: %w", err)
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

func readAccel(imu *mpu9250.MPU9250) (ax, ay, az float64, err error) {
	rx, err := imu.GetAccelerationX()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("accel x: %w", err)
	}
	ry, err := imu.GetAccelerationY()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("accel y: %w", err)
	}
	rz, err := imu.GetAccelerationZ()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("accel z: %w", err)
	}
	return float64(rx) / countsPerG, float64(ry) / countsPerG, float64(rz) / countsPerG, nil
}
