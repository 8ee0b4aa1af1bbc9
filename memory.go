// memory.go - Memory Manager: 64 KiB address space, bank switching, region
// protection and memory-mapped I/O dispatch.
//
// Grounded on the bank/IO-region dispatch pattern of the source engine's
// memory_bus.go (SystemBus/IORegion), narrowed from a 16MB multi-region bus
// down to the flat 64KB 6502 address space this module targets, and
// extended with bank switching and access tracing.

package main

import "fmt"

const memorySize = 0x10000

// RegionKind classifies a memory region for display and protection defaults.
type RegionKind int

const (
	RegionRAM RegionKind = iota
	RegionROM
	RegionIO
	RegionDevice
)

// RegionDescriptor describes the protection and I/O behaviour of an address range.
type RegionDescriptor struct {
	Name        string
	Readable    bool
	Writable    bool
	Kind        RegionKind
	ReadHandler func(addr uint16) byte
	// WriteHandler, if present, is invoked instead of storing into the bank.
	WriteHandler func(addr uint16, value byte)
}

type addrRange struct{ start, end uint16 }

func (r addrRange) contains(addr uint16) bool { return addr >= r.start && addr <= r.end }

// AccessOp distinguishes read from write in an AccessRecord.
type AccessOp int

const (
	AccessRead AccessOp = iota
	AccessWrite
)

// AccessRecord is one entry of the memory access trace ring buffer.
type AccessRecord struct {
	Seq        uint64
	Addr       uint16
	Op         AccessOp
	Value      byte
	PriorValue byte
	HasPrior   bool
	Bank       string
}

// MemoryManager implements a flat 64 KiB address space: one primary bank
// plus any number of named banks, a region-protection map with optional
// read/write handlers for memory-mapped I/O, and an optional bounded
// access trace.
type MemoryManager struct {
	banks      map[string][]byte
	selected   string
	regions    []struct {
		rng  addrRange
		desc RegionDescriptor
	}

	traceEnabled bool
	trace        []AccessRecord
	traceCap     int
	traceSeq     uint64
}

// MemoryOptions configures a MemoryManager at construction time.
type MemoryOptions struct {
	// ProtectVectors makes $FFFA-$FFFF read-only (the default map always
	// installs it as ROM; this toggles whether writes are denied).
	ProtectVectors bool
	// TraceCapacity is the ring buffer size for access tracing; 0 disables tracing.
	TraceCapacity int
}

const primaryBank = "main"

// NewMemoryManager constructs a memory manager with the default region
// map: Zero Page and Stack as plain RAM, and the interrupt vectors at
// $FFFA-$FFFF as ROM (optionally write-protected).
func NewMemoryManager(opts MemoryOptions) *MemoryManager {
	m := &MemoryManager{
		banks:    map[string][]byte{primaryBank: make([]byte, memorySize)},
		selected: primaryBank,
		traceCap: opts.TraceCapacity,
	}
	if m.traceCap > 0 {
		m.traceEnabled = true
		m.trace = make([]AccessRecord, 0, m.traceCap)
	}

	m.addRegionLocked(addrRange{0x0000, 0x00FF}, RegionDescriptor{
		Name: "Zero Page", Readable: true, Writable: true, Kind: RegionRAM,
	})
	m.addRegionLocked(addrRange{0x0100, 0x01FF}, RegionDescriptor{
		Name: "Stack", Readable: true, Writable: true, Kind: RegionRAM,
	})
	m.addRegionLocked(addrRange{0xFFFA, 0xFFFF}, RegionDescriptor{
		Name: "Interrupt Vectors", Readable: true, Writable: !opts.ProtectVectors, Kind: RegionROM,
	})
	return m
}

func (m *MemoryManager) addRegionLocked(r addrRange, d RegionDescriptor) {
	m.regions = append(m.regions, struct {
		rng  addrRange
		desc RegionDescriptor
	}{r, d})
}

// findRegion returns the most recently installed region covering addr, if any.
// Later SetRegion calls shadow earlier ones for overlapping ranges.
func (m *MemoryManager) findRegion(addr uint16) (RegionDescriptor, bool) {
	for i := len(m.regions) - 1; i >= 0; i-- {
		if m.regions[i].rng.contains(addr) {
			return m.regions[i].desc, true
		}
	}
	return RegionDescriptor{}, false
}

// SetRegion installs (or shadows) a protection/IO descriptor over an address range.
func (m *MemoryManager) SetRegion(start, end uint16, d RegionDescriptor) error {
	if start > end {
		return &InvalidAddressError{Detail: fmt.Sprintf("region start $%04X > end $%04X", start, end)}
	}
	m.addRegionLocked(addrRange{start, end}, d)
	return nil
}

// ClearRegion removes the most recently installed descriptor covering the
// given range, reverting to whatever was installed before it (or to the
// unconstrained RAM default if none remains).
func (m *MemoryManager) ClearRegion(start, end uint16) {
	target := addrRange{start, end}
	for i := len(m.regions) - 1; i >= 0; i-- {
		if m.regions[i].rng == target {
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			return
		}
	}
}

// ReadByte applies region protection, then the read-handler if any,
// then falls back to the selected bank's byte.
func (m *MemoryManager) ReadByte(addr uint16) (byte, error) {
	if desc, ok := m.findRegion(addr); ok && !desc.Readable {
		return 0, &AccessDeniedError{Addr: addr, Write: false}
	}
	var value byte
	if desc, ok := m.findRegion(addr); ok && desc.ReadHandler != nil {
		value = desc.ReadHandler(addr)
	} else {
		value = m.banks[m.selected][addr]
	}
	m.recordAccess(addr, AccessRead, value, 0, false)
	return value, nil
}

// MustReadByte is ReadByte without the error return, for call sites (CPU bus
// access) where the default map guarantees readability; protected custom
// regions should still use ReadByte directly.
func (m *MemoryManager) MustReadByte(addr uint16) byte {
	v, err := m.ReadByte(addr)
	if err != nil {
		return 0
	}
	return v
}

// WriteByte applies region protection, then the write-handler if any
// (which suppresses the bank mutation), else writes the bank byte.
func (m *MemoryManager) WriteByte(addr uint16, value byte) error {
	desc, hasDesc := m.findRegion(addr)
	if hasDesc && !desc.Writable {
		return &AccessDeniedError{Addr: addr, Write: true}
	}
	bank := m.banks[m.selected]
	prior := bank[addr]
	if hasDesc && desc.WriteHandler != nil {
		desc.WriteHandler(addr, value)
	} else {
		bank[addr] = value
	}
	m.recordAccess(addr, AccessWrite, value, prior, true)
	return nil
}

func (m *MemoryManager) recordAccess(addr uint16, op AccessOp, value, prior byte, hasPrior bool) {
	if !m.traceEnabled {
		return
	}
	m.traceSeq++
	rec := AccessRecord{Seq: m.traceSeq, Addr: addr, Op: op, Value: value, PriorValue: prior, HasPrior: hasPrior, Bank: m.selected}
	if len(m.trace) >= m.traceCap {
		m.trace = append(m.trace[1:], rec)
	} else {
		m.trace = append(m.trace, rec)
	}
}

// Trace returns a copy of the current access trace ring buffer.
func (m *MemoryManager) Trace() []AccessRecord {
	out := make([]AccessRecord, len(m.trace))
	copy(out, m.trace)
	return out
}

// SetTraceEnabled toggles access tracing without discarding the existing buffer.
func (m *MemoryManager) SetTraceEnabled(enabled bool) { m.traceEnabled = enabled }

// ReadWord reads a little-endian word at addr, wrapping at 0x10000.
func (m *MemoryManager) ReadWord(addr uint16) (uint16, error) {
	lo, err := m.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// WriteWord writes a little-endian word at addr, wrapping at 0x10000.
func (m *MemoryManager) WriteWord(addr uint16, value uint16) error {
	if err := m.WriteByte(addr, byte(value)); err != nil {
		return err
	}
	return m.WriteByte(addr+1, byte(value>>8))
}

// BulkCopy is a byte-by-byte loop that walks high-to-low when the ranges
// overlap with src < dst, so an overlapping copy
// behaves as if every source byte were captured before any destination byte
// was overwritten.
func (m *MemoryManager) BulkCopy(src, dst uint16, length int) error {
	if length < 0 {
		return &InvalidLengthError{Detail: fmt.Sprintf("negative length %d", length)}
	}
	if length == 0 {
		return nil
	}
	if src < dst && dst < src+uint16(length) {
		for i := length - 1; i >= 0; i-- {
			v, err := m.ReadByte(src + uint16(i))
			if err != nil {
				return err
			}
			if err := m.WriteByte(dst+uint16(i), v); err != nil {
				return err
			}
		}
		return nil
	}
	for i := 0; i < length; i++ {
		v, err := m.ReadByte(src + uint16(i))
		if err != nil {
			return err
		}
		if err := m.WriteByte(dst+uint16(i), v); err != nil {
			return err
		}
	}
	return nil
}

// Fill writes val into length bytes starting at addr.
func (m *MemoryManager) Fill(addr uint16, length int, val byte) error {
	if length < 0 {
		return &InvalidLengthError{Detail: fmt.Sprintf("negative length %d", length)}
	}
	for i := 0; i < length; i++ {
		if err := m.WriteByte(addr+uint16(i), val); err != nil {
			return err
		}
	}
	return nil
}

// Search scans [start, end] for occurrences of pattern, returning the start
// address of each match.
func (m *MemoryManager) Search(pattern []byte, start, end uint16) ([]uint16, error) {
	if len(pattern) == 0 || end < start {
		return nil, nil
	}
	var hits []uint16
	for addr := uint32(start); addr+uint32(len(pattern)) <= uint32(end)+1; addr++ {
		matched := true
		for j, b := range pattern {
			v, err := m.ReadByte(uint16(addr) + uint16(j))
			if err != nil {
				return hits, err
			}
			if v != b {
				matched = false
				break
			}
		}
		if matched {
			hits = append(hits, uint16(addr))
		}
	}
	return hits, nil
}

// CreateBank allocates a new zeroed bank. size is advisory (every bank backs
// the same flat 16-bit address space, so it is always allocated at the full
// 64 KiB) but validated: a negative or oversized request fails.
func (m *MemoryManager) CreateBank(name string, size int) error {
	if name == "" {
		return &BankError{Detail: "empty bank name"}
	}
	if _, exists := m.banks[name]; exists {
		return &BankError{Detail: "bank already exists: " + name}
	}
	if size < 0 || size > memorySize {
		return &InvalidLengthError{Detail: fmt.Sprintf("bank size %d out of range", size)}
	}
	m.banks[name] = make([]byte, memorySize)
	return nil
}

// SwitchBank atomically renames which byte array backs unmapped addresses.
func (m *MemoryManager) SwitchBank(name string) error {
	if _, exists := m.banks[name]; !exists {
		return &BankError{Detail: "unknown bank: " + name}
	}
	m.selected = name
	return nil
}

// DeleteBank removes a non-primary, non-selected bank.
func (m *MemoryManager) DeleteBank(name string) error {
	if name == primaryBank {
		return &BankError{Detail: "cannot delete primary bank"}
	}
	if name == m.selected {
		return &BankError{Detail: "cannot delete currently selected bank"}
	}
	if _, exists := m.banks[name]; !exists {
		return &BankError{Detail: "unknown bank: " + name}
	}
	delete(m.banks, name)
	return nil
}

// SelectedBank returns the name of the bank currently backing unmapped addresses.
func (m *MemoryManager) SelectedBank() string { return m.selected }

// Snapshot returns a copy of the selected bank's full 64 KiB contents.
func (m *MemoryManager) Snapshot() []byte {
	out := make([]byte, memorySize)
	copy(out, m.banks[m.selected])
	return out
}

// Restore overwrites the selected bank's contents from a 64 KiB snapshot.
func (m *MemoryManager) Restore(data []byte) {
	bank := m.banks[m.selected]
	n := copy(bank, data)
	for i := n; i < len(bank); i++ {
		bank[i] = 0
	}
}
