//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func TestDevTxInvalidAddr(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}
	for _, addr := range []uint16{0, 0x80} {
		d := &Dev{bus: b, addr: addr}
		err := d.WriteReg(0x00, 0x00)
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("addr=0x%X err=%v want invalid i2c addr", addr, err)
		}
	}
}

func TestDevTxEmptyIsNoop(t *testing.T) {
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	defer f.Close()

	b := &Bus{f: f, path: "/dev/null"}
	d := &Dev{bus: b, addr: 0x68}

	n, err := d.tx(nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}

func TestDevNilGuards(t *testing.T) {
	var d *Dev
	if err := d.WriteReg(0x00, 0x01); err == nil {
		t.Fatalf("nil dev write accepted")
	}
	if _, err := d.ReadRegU8(0x00); err == nil {
		t.Fatalf("nil dev read accepted")
	}
}
