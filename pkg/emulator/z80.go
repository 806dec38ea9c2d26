// Package emulator runs compiled ROMs on a remogatto/z80 core with a
// memory-mapped ACIA for serial I/O.
package emulator

import (
	"fmt"

	"github.com/remogatto/z80"
)

// ACIA ports: status bit 1 is TX-ready (always set here), bit 0 is
// RX-full; reads of the data port drain the input queue.
const (
	PortStatus = 0x80
	PortData   = 0x81
)

// Machine is a Z80 with ROM in the low 32K, RAM above, and an ACIA
type Machine struct {
	cpu    *z80.Z80
	memory *Memory
	ports  *Ports

	cycles   int
	maxCycle int
	halted   bool
}

// Memory implements z80.MemoryAccessor with a ROM boundary
type Memory struct {
	data   [65536]byte
	romEnd uint16
}

func NewMemory() *Memory {
	return &Memory{romEnd: 0x8000}
}

func (m *Memory) ReadByte(address uint16) byte {
	return m.data[address]
}

func (m *Memory) WriteByte(address uint16, value byte) {
	if address < m.romEnd {
		return // ROM protection
	}
	m.data[address] = value
}

func (m *Memory) ReadByteInternal(address uint16) byte {
	return m.ReadByte(address)
}

func (m *Memory) WriteByteInternal(address uint16, value byte) {
	m.WriteByte(address, value)
}

func (m *Memory) ContendRead(address uint16, time int)                          {}
func (m *Memory) ContendReadNoMreq(address uint16, time int)                    {}
func (m *Memory) ContendReadNoMreq_loop(address uint16, time int, count uint)   {}
func (m *Memory) ContendWriteNoMreq(address uint16, time int)                   {}
func (m *Memory) ContendWriteNoMreq_loop(address uint16, time int, count uint)  {}

func (m *Memory) Read(address uint16) byte {
	return m.ReadByte(address)
}

func (m *Memory) Write(address uint16, value byte, protectROM bool) {
	if protectROM && address < m.romEnd {
		return
	}
	m.WriteByte(address, value)
}

func (m *Memory) Data() []byte {
	return m.data[:]
}

// Ports implements z80.PortAccessor as an ACIA
type Ports struct {
	output []byte
	input  []byte
}

func (p *Ports) ReadPort(address uint16) byte {
	switch address & 0xFF {
	case PortStatus:
		status := byte(0x02) // TX always ready
		if len(p.input) > 0 {
			status |= 0x01
		}
		return status
	case PortData:
		if len(p.input) == 0 {
			return 0
		}
		b := p.input[0]
		p.input = p.input[1:]
		return b
	}
	return 0xFF
}

func (p *Ports) WritePort(address uint16, b byte) {
	if address&0xFF == PortData {
		p.output = append(p.output, b)
	}
}

func (p *Ports) ReadPortInternal(address uint16, contend bool) byte {
	return p.ReadPort(address)
}

func (p *Ports) WritePortInternal(address uint16, b byte, contend bool) {
	p.WritePort(address, b)
}

func (p *Ports) ContendPortPreio(address uint16)  {}
func (p *Ports) ContendPortPostio(address uint16) {}

// NewMachine creates a machine with the ROM loaded at address 0
func NewMachine(rom []byte) (*Machine, error) {
	if len(rom) > 0x8000 {
		return nil, fmt.Errorf("ROM image of %d bytes exceeds 32K", len(rom))
	}
	memory := NewMemory()
	copy(memory.data[:], rom)
	ports := &Ports{}
	cpu := z80.NewZ80(memory, ports)
	return &Machine{
		cpu:      cpu,
		memory:   memory,
		ports:    ports,
		maxCycle: 200_000_000,
	}, nil
}

// SetCycleLimit overrides the runaway guard
func (m *Machine) SetCycleLimit(cycles int) {
	m.maxCycle = cycles
}

// FeedInput queues bytes on the ACIA receive side
func (m *Machine) FeedInput(data []byte) {
	m.ports.input = append(m.ports.input, data...)
}

// Run executes from the reset vector until HALT
func (m *Machine) Run() error {
	for !m.halted {
		if err := m.step(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilOutput executes until at least n output bytes have arrived
// or the machine halts. Used to drive the REPL ROM, which never halts.
func (m *Machine) RunUntilOutput(n int) error {
	for !m.halted && len(m.ports.output) < n {
		if err := m.step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) step() error {
	m.cpu.DoOpcode()
	m.cycles += int(m.cpu.Tstates)
	m.cpu.Tstates = 0
	if m.cpu.Halted {
		m.halted = true
	}
	if m.cycles > m.maxCycle {
		return fmt.Errorf("execution limit exceeded after %d cycles at PC=%04X",
			m.cycles, m.cpu.PC())
	}
	return nil
}

// Output returns the bytes written to the ACIA so far
func (m *Machine) Output() []byte {
	return m.ports.output
}

// Halted reports whether the CPU has executed HALT
func (m *Machine) Halted() bool {
	return m.halted
}

// Cycles returns the executed cycle count
func (m *Machine) Cycles() int {
	return m.cycles
}

// ReadMemory reads a byte for test assertions
func (m *Machine) ReadMemory(address uint16) byte {
	return m.memory.data[address]
}
