//go:build !linux

package buzzer

import "fmt"

type PWMPlayer struct{}

func NewPWM(chip, channel int) (*PWMPlayer, error) {
	return nil, fmt.Errorf("buzzer: pwm unsupported on this platform")
}

func (p *PWMPlayer) Play(freqHz float64) {}
func (p *PWMPlayer) Close() error        { return nil }
