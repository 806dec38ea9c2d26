package emulator

import (
	"bytes"
	"testing"
)

func TestOutputCapture(t *testing.T) {
	// LD A,'A' / OUT ($81),A / HALT
	rom := []byte{0x3E, 'A', 0xD3, 0x81, 0x76}
	m, err := NewMachine(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Output(), []byte("A")) {
		t.Errorf("output %q, want %q", m.Output(), "A")
	}
	if !m.Halted() {
		t.Error("machine should be halted")
	}
}

func TestStatusPort(t *testing.T) {
	// IN A,($80) / LD ($8000),A / HALT
	rom := []byte{0xDB, 0x80, 0x32, 0x00, 0x80, 0x76}
	m, err := NewMachine(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if status := m.ReadMemory(0x8000); status != 0x02 {
		t.Errorf("status %02X, want TX-ready only", status)
	}

	m2, _ := NewMachine(rom)
	m2.FeedInput([]byte("x"))
	if err := m2.Run(); err != nil {
		t.Fatal(err)
	}
	if status := m2.ReadMemory(0x8000); status != 0x03 {
		t.Errorf("status %02X, want TX-ready and RX-full", status)
	}
}

func TestInputQueue(t *testing.T) {
	// IN A,($81) / LD ($8000),A / IN A,($81) / LD ($8001),A / HALT
	rom := []byte{0xDB, 0x81, 0x32, 0x00, 0x80, 0xDB, 0x81, 0x32, 0x01, 0x80, 0x76}
	m, err := NewMachine(rom)
	if err != nil {
		t.Fatal(err)
	}
	m.FeedInput([]byte("hi"))
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.ReadMemory(0x8000) != 'h' || m.ReadMemory(0x8001) != 'i' {
		t.Error("input bytes should drain in order")
	}
}

func TestROMProtection(t *testing.T) {
	// LD A,$55 / LD ($4000),A / HALT
	rom := []byte{0x3E, 0x55, 0x32, 0x00, 0x40, 0x76}
	m, err := NewMachine(rom)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.ReadMemory(0x4000) != 0x00 {
		t.Error("writes below $8000 should be ignored")
	}
}

func TestCycleLimit(t *testing.T) {
	// spin: JP spin
	rom := []byte{0xC3, 0x00, 0x00}
	m, err := NewMachine(rom)
	if err != nil {
		t.Fatal(err)
	}
	m.SetCycleLimit(10_000)
	if err := m.Run(); err == nil {
		t.Error("an endless loop should hit the cycle limit")
	}
}

func TestOversizeROM(t *testing.T) {
	if _, err := NewMachine(make([]byte, 0x8001)); err == nil {
		t.Error("a ROM beyond 32K should be rejected")
	}
}
