//go:build !linux

package haptic

import "fmt"

func OpenGPIO(chip string, pin int) (*Motor, error) {
	return nil, fmt.Errorf("haptic: gpio unsupported on this platform")
}
