package haptic

// Strength selects between the two pulse weights the feedback machine
// uses: light for ordinary transitions, strong for the success pulse
// when the surface comes level.
type Strength int

const (
	Light Strength = iota
	Strong
)

func (s Strength) String() string {
	if s == Strong {
		return "strong"
	}
	return "light"
}

// Driver delivers vibration pulses. Pulse must not block the caller; the
// pipeline tick invokes it inline.
type Driver interface {
	Pulse(s Strength)
	Close() error
}

type nopDriver struct{}

// Nop returns a driver that drops every pulse, for boards without a
// vibration motor.
func Nop() Driver { return nopDriver{} }

func (nopDriver) Pulse(s Strength) {}
func (nopDriver) Close() error     { return nil }
