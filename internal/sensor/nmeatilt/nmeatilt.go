package nmeatilt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"levelsense/internal/sensor"
)

// Source reads XDR inclinometer sentences from a serial NMEA feed.
// Marine tilt sensors report angular displacement transducers named
// PTCH and ROLL in degrees:
//
//	$YXXDR,A,-2.5,D,PTCH,A,1.2,D,ROLL*hh
//
// Samples arrive at the device's own rate, not the internal 100 Hz
// cadence, and carry no gravity vector.
type Source struct {
	Device string // empty auto-detects /dev/ttyACM*, /dev/ttyUSB*
	Baud   uint   // default 4800, the NMEA 0183 standard rate

	// open is swapped in tests.
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)
}

func (s *Source) Describe() string { return "nmea" }

func (s *Source) baud() uint {
	if s.Baud != 0 {
		return s.Baud
	}
	return 4800
}

func (s *Source) Run(ctx context.Context, emit func(sensor.Sample)) error {
	device := strings.TrimSpace(s.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return fmt.Errorf("%w: no /dev/ttyACM* or /dev/ttyUSB* found", sensor.ErrUnavailable)
		}
	}

	openFn := s.open
	if openFn == nil {
		openFn = serial.Open
	}
	port, err := openFn(serial.OpenOptions{
		PortName:        device,
		BaudRate:        s.baud(),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", sensor.ErrUnavailable, device, err)
	}
	// Reads block without a deadline; closing the port is what unblocks
	// the scanner on cancel.
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()

	log.Printf("nmeatilt: reading %s at %d baud", device, s.baud())

	scanner := bufio.NewScanner(port)
	// NMEA sentences are < 82 chars; leave headroom for chatty devices.
	scanner.Buffer(make([]byte, 0, 256), 4096)

	var st tiltState
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}
		sent, perr := nmea.Parse(line)
		if perr != nil {
			// Serial noise and partial sentences are routine.
			continue
		}
		xdr, ok := sent.(nmea.XDR)
		if !ok {
			continue
		}
		if st.apply(xdr) {
			emit(sensor.Sample{Pitch: st.pitch, Roll: st.roll, When: time.Now()})
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	err = scanner.Err()
	if err == nil {
		err = io.EOF
	}
	return fmt.Errorf("nmeatilt: read stopped: %w", err)
}

// tiltState accumulates the newest pitch and roll across sentences;
// some talkers split the pair over two XDRs.
type tiltState struct {
	pitch, roll         float64
	havePitch, haveRoll bool
}

// apply folds one XDR in and reports whether a complete pair is ready.
func (st *tiltState) apply(x nmea.XDR) bool {
	updated := false
	for _, m := range x.Measurements {
		if m.TransducerType != "A" || m.Unit != "D" {
			continue
		}
		switch strings.ToUpper(m.TransducerName) {
		case "PTCH", "PITCH":
			st.pitch = m.Value
			st.havePitch = true
			updated = true
		case "ROLL":
			st.roll = m.Value
			st.haveRoll = true
			updated = true
		}
	}
	return updated && st.havePitch && st.haveRoll
}

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
