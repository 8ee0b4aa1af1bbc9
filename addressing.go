// addressing.go - Addressing Unit: resolves effective addresses and fetched
// operands for the 13 6502 addressing modes.
//
// Grounded on the per-mode getAbsolute/getAbsoluteX/getZeroPage/.../getIndirectY
// helpers of the source engine's CPU core, generalized into one resolve
// dispatch driven by the decode table instead of one method per mode, since
// every mode here needs the same {addr, value, bytesConsumed, pageCrossed}
// shape the CPU core and disassembler both consume.

package main

// AddressingMode enumerates the 13 documented 6502 addressing modes.
type AddressingMode int

const (
	ModeImplied AddressingMode = iota
	ModeAccumulator
	ModeImmediate
	ModeZeroPage
	ModeZeroPageX
	ModeZeroPageY
	ModeAbsolute
	ModeAbsoluteX
	ModeAbsoluteY
	ModeRelative
	ModeIndirect
	ModeIndirectX
	ModeIndirectY
)

// Resolved carries everything an instruction handler needs from the
// addressing unit: where the operand lives (if anywhere), its value for
// read-class instructions, how many operand bytes were consumed, and
// whether resolution crossed a page boundary (for cycle penalties).
type Resolved struct {
	Addr         uint16
	HasAddr      bool
	Value        byte
	BytesConsumed int
	PageCrossed  bool
}

// resolve advances PC past the instruction's operand bytes and computes the
// effective address/operand for the given addressing mode. It never itself
// re-reads the opcode byte; PC must already point at the first operand byte.
func (c *CPU6502) resolve(mode AddressingMode) Resolved {
	switch mode {
	case ModeImplied:
		return Resolved{}
	case ModeAccumulator:
		return Resolved{Value: c.A}
	case ModeImmediate:
		v := c.fetch()
		return Resolved{Addr: c.PC - 1, HasAddr: true, Value: v, BytesConsumed: 1}
	case ModeZeroPage:
		addr := uint16(c.fetch())
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 1}
	case ModeZeroPageX:
		base := c.fetch()
		addr := uint16(base+c.X) & 0xFF
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 1}
	case ModeZeroPageY:
		base := c.fetch()
		addr := uint16(base+c.Y) & 0xFF
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 1}
	case ModeAbsolute:
		addr := c.fetch16()
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 2}
	case ModeAbsoluteX:
		base := c.fetch16()
		addr := base + uint16(c.X)
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 2, PageCrossed: (base & 0xFF00) != (addr & 0xFF00)}
	case ModeAbsoluteY:
		base := c.fetch16()
		addr := base + uint16(c.Y)
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 2, PageCrossed: (base & 0xFF00) != (addr & 0xFF00)}
	case ModeRelative:
		offset := int8(c.fetch())
		target := uint16(int32(c.PC) + int32(offset))
		return Resolved{Addr: target, HasAddr: true, BytesConsumed: 1, PageCrossed: (c.PC & 0xFF00) != (target & 0xFF00)}
	case ModeIndirect:
		ptr := c.fetch16()
		addr := c.readIndirectBug(ptr)
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 2}
	case ModeIndirectX:
		base := c.fetch()
		ptr := uint16(base+c.X) & 0xFF
		lo := uint16(c.mem.MustReadByte(ptr))
		hi := uint16(c.mem.MustReadByte((ptr + 1) & 0xFF))
		return Resolved{Addr: lo | hi<<8, HasAddr: true, BytesConsumed: 1}
	case ModeIndirectY:
		ptr := uint16(c.fetch())
		lo := uint16(c.mem.MustReadByte(ptr))
		hi := uint16(c.mem.MustReadByte((ptr + 1) & 0xFF))
		base := lo | hi<<8
		addr := base + uint16(c.Y)
		return Resolved{Addr: addr, HasAddr: true, BytesConsumed: 1, PageCrossed: (base & 0xFF00) != (addr & 0xFF00)}
	default:
		return Resolved{}
	}
}

// readIndirectBug resolves the operand of an indirect JMP, preserving the
// documented NMOS 6502 bug: when the pointer's low byte is $FF, the high
// byte of the target wraps within the same page instead of advancing to the
// next one.
func (c *CPU6502) readIndirectBug(ptr uint16) uint16 {
	lo := uint16(c.mem.MustReadByte(ptr))
	hiAddr := ptr + 1
	if ptr&0xFF == 0xFF {
		hiAddr = ptr & 0xFF00
	}
	hi := uint16(c.mem.MustReadByte(hiAddr))
	return lo | hi<<8
}
