package main

import "testing"

// cpu6502TestRig is a much simpler rig than the source engine's goroutine-
// synchronized one: Step() is synchronous and single-threaded, so tests just
// call it directly.
type cpu6502TestRig struct {
	mem *MemoryManager
	cpu *CPU6502
}

func newCPU6502TestRig() *cpu6502TestRig {
	mem := NewMemoryManager(MemoryOptions{})
	cpu := NewCPU6502(mem)
	return &cpu6502TestRig{mem: mem, cpu: cpu}
}

func (r *cpu6502TestRig) load(addr uint16, program []byte) {
	for i, b := range program {
		r.mem.WriteByte(addr+uint16(i), b)
	}
}

func (r *cpu6502TestRig) resetAt(entry uint16) {
	r.mem.WriteByte(resetVector, byte(entry))
	r.mem.WriteByte(resetVector+1, byte(entry>>8))
	r.cpu.Reset()
}

func (r *cpu6502TestRig) stepN(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := r.cpu.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
}

func TestResetEstablishesPowerUpState(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	if r.cpu.SP != 0xFF {
		t.Fatalf("SP = %02X, want FF", r.cpu.SP)
	}
	if r.cpu.SR&FlagInterrupt == 0 || r.cpu.SR&FlagUnused == 0 {
		t.Fatalf("SR = %02X, want I and U set", r.cpu.SR)
	}
	if r.cpu.PC != 0x0600 {
		t.Fatalf("PC = %04X, want 0600", r.cpu.PC)
	}
}

func TestResetAfterResetIsIdentical(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.load(0x0600, []byte{0xA9, 0x42, 0xAA}) // LDA #$42; TAX
	r.stepN(t, 2)
	first := r.cpu.Snapshot()
	r.resetAt(0x0600)
	second := r.cpu.Snapshot()
	if first.SP != second.SP || second.A != 0 || second.X != 0 || second.PC != 0x0600 {
		t.Fatalf("reset after reset mismatch: %+v vs %+v", first, second)
	}
}

func TestLDASTARoundTrip(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.load(0x0600, []byte{0xA9, 0x55, 0x8D, 0x00, 0x20}) // LDA #$55; STA $2000
	r.stepN(t, 2)
	v, err := r.mem.ReadByte(0x2000)
	if err != nil || v != 0x55 {
		t.Fatalf("mem[2000] = %v, %v; want 55 nil", v, err)
	}
}

func TestLDAUpdatesZeroAndNegativeFlags(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.load(0x0600, []byte{0xA9, 0x00})
	r.stepN(t, 1)
	if !r.cpu.getFlag(FlagZero) || r.cpu.getFlag(FlagNegative) {
		t.Fatalf("SR = %02X after LDA #00, want Z set, N clear", r.cpu.SR)
	}

	r.resetAt(0x0600)
	r.load(0x0600, []byte{0xA9, 0x80})
	r.stepN(t, 1)
	if r.cpu.getFlag(FlagZero) || !r.cpu.getFlag(FlagNegative) {
		t.Fatalf("SR = %02X after LDA #80, want Z clear, N set", r.cpu.SR)
	}
}

func TestADCSetsCarryAndOverflow(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	// LDA #$FF; ADC #$01 -> A=0, C=1, V=0 (unsigned wrap, not signed overflow)
	r.load(0x0600, []byte{0xA9, 0xFF, 0x69, 0x01})
	r.stepN(t, 2)
	if r.cpu.A != 0x00 || !r.cpu.getFlag(FlagCarry) || r.cpu.getFlag(FlagOverflow) {
		t.Fatalf("A=%02X SR=%02X, want A=00 C=1 V=0", r.cpu.A, r.cpu.SR)
	}

	r.resetAt(0x0600)
	// LDA #$7F; ADC #$01 -> signed overflow (127+1 overflows into negative)
	r.load(0x0600, []byte{0xA9, 0x7F, 0x69, 0x01})
	r.stepN(t, 2)
	if r.cpu.A != 0x80 || r.cpu.getFlag(FlagCarry) || !r.cpu.getFlag(FlagOverflow) {
		t.Fatalf("A=%02X SR=%02X, want A=80 C=0 V=1", r.cpu.A, r.cpu.SR)
	}
}

func TestBranchCycleCounts(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	// CLC; BCC +2 (not taken would be impossible since carry clear means taken)
	r.load(0x0600, []byte{0x18, 0x90, 0x02})
	r.cpu.Step() // CLC: 2 cycles
	cyc, err := r.cpu.Step()
	if err != nil {
		t.Fatalf("BCC step: %v", err)
	}
	if cyc != 3 {
		t.Fatalf("taken same-page branch cost %d cycles, want 3", cyc)
	}

	r = newCPU6502TestRig()
	r.resetAt(0x0600)
	r.load(0x0600, []byte{0x38, 0x90, 0x02}) // SEC; BCC (not taken)
	r.cpu.Step()
	cyc, _ = r.cpu.Step()
	if cyc != 2 {
		t.Fatalf("not-taken branch cost %d cycles, want 2", cyc)
	}
}

func TestBranchPageCrossCycleCount(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x06F0)
	r.load(0x06F0, []byte{0x18, 0x90, 0x10}) // CLC; BCC +16 (crosses into next page)
	r.cpu.Step()
	cyc, err := r.cpu.Step()
	if err != nil {
		t.Fatalf("BCC step: %v", err)
	}
	if cyc != 4 {
		t.Fatalf("taken cross-page branch cost %d cycles, want 4", cyc)
	}
}

// TestIndirectJMPPageBoundaryBug verifies the documented NMOS bug: when the
// pointer's low byte is $FF, the high byte wraps within the same page
// instead of reading from the next page.
func TestIndirectJMPPageBoundaryBug(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.mem.WriteByte(0x30FF, 0x80)
	r.mem.WriteByte(0x3000, 0x42) // the buggy "wrap" byte, at 0x30FF&0xFF00
	r.mem.WriteByte(0x3100, 0x99) // the byte a non-buggy implementation would read
	r.load(0x0600, []byte{0x6C, 0xFF, 0x30}) // JMP ($30FF)
	r.stepN(t, 1)
	if r.cpu.PC != 0x4280 {
		t.Fatalf("PC after buggy indirect JMP = %04X, want 4280", r.cpu.PC)
	}
}

func TestGosubReturnEquivalentJSRRTS(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	// JSR $0610; INX (after return); ... at $0610: INY; RTS
	r.load(0x0600, []byte{0x20, 0x10, 0x06, 0xE8})
	r.load(0x0610, []byte{0xC8, 0x60})
	r.stepN(t, 3) // JSR, INY, RTS
	if r.cpu.Y != 1 {
		t.Fatalf("Y = %d after subroutine, want 1", r.cpu.Y)
	}
	if r.cpu.PC != 0x0603 {
		t.Fatalf("PC after RTS = %04X, want 0603 (resumed after JSR)", r.cpu.PC)
	}
	r.stepN(t, 1) // INX
	if r.cpu.X != 1 {
		t.Fatalf("X = %d after resumed INX, want 1", r.cpu.X)
	}
}

func TestStackWrapsByte(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.cpu.SP = 0x00
	r.cpu.push(0xAB)
	if r.cpu.SP != 0xFF {
		t.Fatalf("SP after push at 00 = %02X, want FF (byte wrap)", r.cpu.SP)
	}
	if v := r.cpu.pull(); v != 0xAB {
		t.Fatalf("pull() = %02X, want AB", v)
	}
	if r.cpu.SP != 0x00 {
		t.Fatalf("SP after pull = %02X, want 00", r.cpu.SP)
	}
}

func TestUnknownOpcodeError(t *testing.T) {
	r := newCPU6502TestRig()
	r.resetAt(0x0600)
	r.load(0x0600, []byte{0x02}) // undocumented opcode
	_, err := r.cpu.Step()
	if err == nil {
		t.Fatalf("expected UnknownOpcodeError")
	}
	if _, ok := err.(*UnknownOpcodeError); !ok {
		t.Fatalf("expected *UnknownOpcodeError, got %T", err)
	}
}

func TestNMITakesPriorityOverIRQ(t *testing.T) {
	r := newCPU6502TestRig()
	r.mem.WriteByte(nmiVector, 0x00)
	r.mem.WriteByte(nmiVector+1, 0x40)
	r.mem.WriteByte(irqVector, 0x00)
	r.mem.WriteByte(irqVector+1, 0x50)
	r.resetAt(0x0600)
	r.cpu.setFlag(FlagInterrupt, false)
	r.load(0x0600, []byte{0xEA}) // NOP, never reached this step
	r.cpu.SetNMILine(true)
	r.cpu.SetNMILine(false) // falling edge latches NMI
	r.cpu.SetIRQLine(true)
	if _, err := r.cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if r.cpu.PC != 0x4000 {
		t.Fatalf("PC after simultaneous NMI+IRQ = %04X, want 4000 (NMI wins)", r.cpu.PC)
	}
}
