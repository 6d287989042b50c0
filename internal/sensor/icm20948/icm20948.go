package icm20948

import (
	"fmt"
	"time"

	"levelsense/internal/i2c"
)

var sleep = time.Sleep

// Accelerometer-only ICM-20948 driver.
//
// The level pipeline needs gravity, not rates, so the gyro block is
// left at power-on defaults and never read. Probing mirrors the
// datasheet: WHO_AM_I at 0x00 must return 0xEA.

const (
	addrDefault = 0x68

	regWhoAmI  = 0x00
	whoAmIVal  = 0xEA
	regBankSel = 0x7F

	// Bank 0.
	regPwrMgmt1   = 0x06
	bitReset      = 0x80
	regIntEnable  = 0x38
	regAccelXoutH = 0x2D

	// Bank 2.
	bank2           = 2
	regAccelSmplrt2 = 0x11
	regAccelConfig  = 0x14

	// ACCEL_FS_SEL=0: +-2g, 16384 LSB/g. Small-angle tilt wants the
	// finest resolution, and a bench level never sees more than 1g.
	fsAccel2g = 0x00
)

type Device struct {
	dev regIO

	curBank    byte
	scaleAccel float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	d := &Device{dev: dev, curBank: 0xFF}

	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("icm20948: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("icm20948: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	if err := d.setBank(0); err != nil {
		return err
	}

	// Interrupts stay off; the source polls.
	_ = d.dev.WriteReg(regIntEnable, 0x00)

	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("icm20948: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)

	// Wake with PLL clock (CLKSEL=1).
	if err := d.dev.WriteReg(regPwrMgmt1, 0x01); err != nil {
		return fmt.Errorf("icm20948: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	if err := d.setBank(bank2); err != nil {
		return err
	}

	// Internal ODR just above the 100 Hz poll: 1125/(div+1) with
	// div=10 gives ~102 Hz, so every poll sees a fresh conversion.
	_ = d.dev.WriteReg(regAccelSmplrt2, 10)

	if err := d.dev.WriteReg(regAccelConfig, fsAccel2g); err != nil {
		return fmt.Errorf("icm20948: accel config failed: %w", err)
	}

	if err := d.setBank(0); err != nil {
		return err
	}

	d.scaleAccel = 2.0 / 32768.0
	return nil
}

func (d *Device) setBank(bank byte) error {
	if d.curBank == bank {
		return nil
	}
	if err := d.dev.WriteReg(regBankSel, bank<<4); err != nil {
		return fmt.Errorf("icm20948: set bank %d failed: %w", bank, err)
	}
	d.curBank = bank
	return nil
}

// ReadAccel returns one acceleration vector in g.
func (d *Device) ReadAccel() (ax, ay, az float64, err error) {
	if d == nil {
		return 0, 0, 0, fmt.Errorf("icm20948: device is nil")
	}
	if err := d.setBank(0); err != nil {
		return 0, 0, 0, err
	}

	var buf [6]byte
	if err := d.dev.ReadReg(regAccelXoutH, buf[:]); err != nil {
		return 0, 0, 0, fmt.Errorf("icm20948: read accel failed: %w", err)
	}

	rx := int16(buf[0])<<8 | int16(buf[1])
	ry := int16(buf[2])<<8 | int16(buf[3])
	rz := int16(buf[4])<<8 | int16(buf[5])
	return float64(rx) * d.scaleAccel, float64(ry) * d.scaleAccel, float64(rz) * d.scaleAccel, nil
}
