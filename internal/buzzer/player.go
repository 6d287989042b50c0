package buzzer

// Player emits a single fixed-duration tone burst. Play must not block
// for the duration of the burst; the beep scheduler calls it from its
// timing loop.
type Player interface {
	Play(freqHz float64)
	Close() error
}

type nopPlayer struct{}

// Nop returns a player that swallows every tone. It stands in when no
// audio backend is configured or the configured one failed to open, so
// sound toggles stay harmless no-ops.
func Nop() Player { return nopPlayer{} }

func (nopPlayer) Play(freqHz float64) {}
func (nopPlayer) Close() error        { return nil }
