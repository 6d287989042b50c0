package buzzer

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// PCMPlayer renders tone bursts as raw little-endian int16 frames on a
// writer, typically a FIFO feeding an audio tool (`aplay -f S16_LE -r
// 44100 -c 1 <fifo>`) or an ALSA loopback.
type PCMPlayer struct {
	w io.WriteCloser

	mu       sync.Mutex
	queue    chan float64
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	dead   bool
	frames map[float64][]byte
}

// OpenPCM opens path for writing and returns a player streaming frames
// to it.
func OpenPCM(path string) (*PCMPlayer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("buzzer: open pcm sink: %w", err)
	}
	return NewPCM(f), nil
}

// NewPCM wraps an already-open frame sink.
func NewPCM(w io.WriteCloser) *PCMPlayer {
	p := &PCMPlayer{
		w:      w,
		queue:  make(chan float64, 2),
		stopCh: make(chan struct{}),
		frames: make(map[float64][]byte),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *PCMPlayer) Play(freqHz float64) {
	select {
	case p.queue <- freqHz:
	default:
		// A burst is still draining; tones never queue up.
	}
}

func (p *PCMPlayer) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case freq := <-p.queue:
			p.write(freq)
		}
	}
}

func (p *PCMPlayer) write(freq float64) {
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		return
	}
	frame, ok := p.frames[freq]
	if !ok {
		samples := Synthesize(freq, BurstDuration)
		frame = make([]byte, 2*len(samples))
		for i, s := range samples {
			binary.LittleEndian.PutUint16(frame[2*i:], uint16(s))
		}
		p.frames[freq] = frame
	}
	p.mu.Unlock()

	if _, err := p.w.Write(frame); err != nil {
		p.mu.Lock()
		if !p.dead {
			p.dead = true
			log.Printf("buzzer: pcm sink write failed, muting: %v", err)
		}
		p.mu.Unlock()
	}
}

func (p *PCMPlayer) Close() error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		err = p.w.Close()
	})
	return err
}
