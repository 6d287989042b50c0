//go:build linux

package haptic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// OpenGPIO requests the named BCM line as a digital output and returns a
// Motor driving it. chip may name a specific device ("gpiochip0"); when
// empty, likely chips are probed in order, since Pi kernel variants move
// the header GPIOs between chips.
func OpenGPIO(chip string, pin int) (*Motor, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("haptic: invalid gpio pin %d", pin)
	}
	lineName := fmt.Sprintf("GPIO%d", pin)

	var candidates []string
	if chip != "" {
		candidates = append(candidates, filepath.Join("/dev", chip))
	} else {
		candidates = append(candidates, "/dev/gpiochip0", "/dev/gpiochip4")
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", name))
			}
		}
	}

	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(lineName)
		if err != nil {
			_ = c.Close()
			continue
		}
		line, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("levelsense-haptic"))
		if err != nil {
			_ = c.Close()
			continue
		}
		return newMotor(&gpiodLine{chip: c, line: line}), nil
	}

	return nil, fmt.Errorf("haptic: gpio line %q not found (or busy)", lineName)
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("haptic: gpio line not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
