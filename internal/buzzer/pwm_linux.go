//go:build linux

package buzzer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// PWMPlayer drives a piezo buzzer on a hardware PWM channel via
// /sys/class/pwm. The tone frequency sets the period, duty stays at 50%,
// and the channel is enabled only for the duration of each burst.
//
// On Raspberry Pi the channel must be exposed first, e.g.
// `dtoverlay=pwm-2chan` for GPIO18/GPIO19.
//
// A bare PWM line cannot shape amplitude, so the attack/release envelope
// of the PCM path does not apply here; the short bursts keep clicks
// tolerable on a piezo.
type PWMPlayer struct {
	pwmPath string

	queue    chan float64
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var pwmSysfsBase = "/sys/class/pwm"

// NewPWM exports channel on pwmchip<chip> and returns a player for it.
func NewPWM(chip, channel int) (*PWMPlayer, error) {
	if chip < 0 || channel < 0 {
		return nil, fmt.Errorf("buzzer: invalid pwm chip %d channel %d", chip, channel)
	}
	chipPath := filepath.Join(pwmSysfsBase, fmt.Sprintf("pwmchip%d", chip))
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("buzzer: no pwm chip at %s (is the pwm overlay enabled?): %w", chipPath, err)
	}

	p := &PWMPlayer{
		pwmPath: filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
		queue:   make(chan float64, 2),
		stopCh:  make(chan struct{}),
	}
	if err := p.ensureExported(chipPath, channel); err != nil {
		return nil, err
	}
	_ = p.writeBool("enable", false)

	p.wg.Add(1)
	go p.run()
	return p, nil
}

func (p *PWMPlayer) ensureExported(chipPath string, channel int) error {
	if _, err := os.Stat(p.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(channel)); err != nil {
		// Already exported by someone else is fine.
		if _, statErr := os.Stat(p.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("buzzer: export pwm: %w", err)
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(p.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(p.pwmPath); err != nil {
		return fmt.Errorf("buzzer: pwm path not created after export: %w", err)
	}
	return nil
}

func (p *PWMPlayer) Play(freqHz float64) {
	select {
	case p.queue <- freqHz:
	default:
		// A burst is still sounding; tones never queue up.
	}
}

func (p *PWMPlayer) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case freq := <-p.queue:
			p.burst(freq)
		}
	}
}

func (p *PWMPlayer) burst(freqHz float64) {
	if freqHz <= 0 {
		return
	}
	periodNS := uint64(1_000_000_000 / freqHz)
	if periodNS == 0 {
		return
	}

	// Sysfs requires duty <= period at all times, so shrink duty first.
	_ = p.writeUint("duty_cycle", 0)
	if err := p.writeUint("period", periodNS); err != nil {
		return
	}
	if err := p.writeUint("duty_cycle", periodNS/2); err != nil {
		return
	}
	if err := p.writeBool("enable", true); err != nil {
		return
	}
	t := time.NewTimer(BurstDuration)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.stopCh:
	}
	_ = p.writeBool("enable", false)
}

func (p *PWMPlayer) Close() error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		_ = p.writeBool("enable", false)
	})
	return nil
}

func (p *PWMPlayer) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(p.pwmPath, name), strconv.FormatUint(v, 10))
}

func (p *PWMPlayer) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(p.pwmPath, name), val)
}

// writeSysfs opens with plain O_WRONLY: sysfs attributes can reject
// truncation flags, and right after export udev may still be fixing
// permissions, so transient EACCES/ENOENT are retried briefly.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if werr != nil {
			return werr
		}
		return cerr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}
