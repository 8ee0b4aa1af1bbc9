package main

import "testing"

func TestMemoryByteRoundTrip(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	for _, addr := range []uint16{0x0200, 0x4000, 0x7FFF, 0xBEEF} {
		for _, v := range []byte{0x00, 0x01, 0x7F, 0x80, 0xFF} {
			if err := m.WriteByte(addr, v); err != nil {
				t.Fatalf("WriteByte(%04X, %02X): %v", addr, v, err)
			}
			got, err := m.ReadByte(addr)
			if err != nil {
				t.Fatalf("ReadByte(%04X): %v", addr, err)
			}
			if got != v {
				t.Fatalf("ReadByte(%04X) = %02X, want %02X", addr, got, v)
			}
		}
	}
}

func TestMemoryWordRoundTrip(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	if err := m.WriteWord(0x3000, 0xBEEF); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	lo, _ := m.ReadByte(0x3000)
	hi, _ := m.ReadByte(0x3001)
	if lo != 0xEF || hi != 0xBE {
		t.Fatalf("bytes = %02X %02X, want EF BE", lo, hi)
	}
	got, err := m.ReadWord(0x3000)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != 0xBEEF {
		t.Fatalf("ReadWord = %04X, want BEEF", got)
	}
}

func TestMemoryWordWrapsAtTopOfAddressSpace(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	if err := m.WriteWord(0xFFFF, 0x1234); err != nil {
		t.Fatalf("WriteWord at wrap boundary: %v", err)
	}
	lo, _ := m.ReadByte(0xFFFF)
	hi, _ := m.ReadByte(0x0000)
	if lo != 0x34 || hi != 0x12 {
		t.Fatalf("wrap bytes = %02X %02X, want 34 12", lo, hi)
	}
}

func TestMemoryDefaultMapProtectsInterruptVectors(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{ProtectVectors: true})
	if err := m.WriteByte(0xFFFC, 0x00); err == nil {
		t.Fatalf("expected AccessDeniedError writing protected reset vector")
	} else if _, ok := err.(*AccessDeniedError); !ok {
		t.Fatalf("expected *AccessDeniedError, got %T", err)
	}
	if _, err := m.ReadByte(0xFFFC); err != nil {
		t.Fatalf("reading protected vector should succeed: %v", err)
	}
}

func TestMemoryReadHandlerOverridesBank(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	calls := 0
	m.SetRegion(0xD000, 0xD000, RegionDescriptor{
		Name: "IO Port", Readable: true, Writable: true, Kind: RegionIO,
		ReadHandler: func(addr uint16) byte {
			calls++
			return 0x42
		},
	})
	v, err := m.ReadByte(0xD000)
	if err != nil || v != 0x42 {
		t.Fatalf("ReadByte via handler = %v, %v; want 0x42, nil", v, err)
	}
	if calls != 1 {
		t.Fatalf("handler called %d times, want 1", calls)
	}
}

func TestMemoryWriteHandlerSuppressesBankMutation(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	var seen byte
	m.SetRegion(0xD400, 0xD400, RegionDescriptor{
		Name: "Sound", Readable: true, Writable: true, Kind: RegionIO,
		WriteHandler: func(addr uint16, value byte) { seen = value },
	})
	if err := m.WriteByte(0xD400, 0x99); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if seen != 0x99 {
		t.Fatalf("handler saw %02X, want 99", seen)
	}
	raw := m.banks[m.selected][0xD400]
	if raw != 0 {
		t.Fatalf("bank byte mutated to %02X despite write handler", raw)
	}
}

func TestMemoryClearRegionRevertsToPriorState(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.SetRegion(0x9000, 0x9000, RegionDescriptor{Name: "Locked", Readable: true, Writable: false})
	if err := m.WriteByte(0x9000, 1); err == nil {
		t.Fatalf("expected write to be denied before ClearRegion")
	}
	m.ClearRegion(0x9000, 0x9000)
	if err := m.WriteByte(0x9000, 1); err != nil {
		t.Fatalf("expected write to succeed after ClearRegion: %v", err)
	}
}

func TestMemoryBulkCopyNonOverlapping(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	for i := 0; i < 4; i++ {
		m.WriteByte(uint16(0x1000+i), byte(0x10+i))
	}
	if err := m.BulkCopy(0x1000, 0x2000, 4); err != nil {
		t.Fatalf("BulkCopy: %v", err)
	}
	for i := 0; i < 4; i++ {
		v, _ := m.ReadByte(uint16(0x2000 + i))
		if v != byte(0x10+i) {
			t.Fatalf("dst[%d] = %02X, want %02X", i, v, 0x10+i)
		}
	}
}

// TestMemoryBulkCopyOverlappingForward covers the src < dst < src+len case,
// where the spec requires a high-to-low copy so the tail of the source range
// isn't clobbered before it's read.
func TestMemoryBulkCopyOverlappingForward(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	base := uint16(0x5000)
	for i := 0; i < 6; i++ {
		m.WriteByte(base+uint16(i), byte(i+1))
	}
	if err := m.BulkCopy(base, base+2, 6); err != nil {
		t.Fatalf("BulkCopy: %v", err)
	}
	want := []byte{1, 2, 1, 2, 3, 4, 5, 6}
	for i := 0; i < 8; i++ {
		v, _ := m.ReadByte(base + uint16(i))
		if v != want[i] {
			t.Fatalf("byte[%d] = %d, want %d", i, v, want[i])
		}
	}
}

func TestMemoryBulkCopyNegativeLength(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	if err := m.BulkCopy(0x1000, 0x2000, -1); err == nil {
		t.Fatalf("expected InvalidLengthError")
	} else if _, ok := err.(*InvalidLengthError); !ok {
		t.Fatalf("expected *InvalidLengthError, got %T", err)
	}
}

func TestMemoryFillAndSearch(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	if err := m.Fill(0x6000, 16, 0xAA); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	m.WriteByte(0x6008, 0xDE)
	m.WriteByte(0x6009, 0xAD)
	hits, err := m.Search([]byte{0xDE, 0xAD}, 0x6000, 0x600F)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0] != 0x6008 {
		t.Fatalf("Search hits = %v, want [6008]", hits)
	}
}

func TestMemoryBankLifecycle(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	if err := m.CreateBank("ram2", 0x10000); err != nil {
		t.Fatalf("CreateBank: %v", err)
	}
	if err := m.CreateBank("ram2", 0x10000); err == nil {
		t.Fatalf("expected BankError on duplicate bank")
	}
	if err := m.SwitchBank("ram2"); err != nil {
		t.Fatalf("SwitchBank: %v", err)
	}
	if err := m.WriteByte(0x0200, 0x7E); err != nil {
		t.Fatalf("WriteByte after switch: %v", err)
	}
	if err := m.DeleteBank("ram2"); err == nil {
		t.Fatalf("expected BankError deleting the selected bank")
	}
	if err := m.SwitchBank(primaryBank); err != nil {
		t.Fatalf("SwitchBank back to primary: %v", err)
	}
	v, _ := m.ReadByte(0x0200)
	if v != 0 {
		t.Fatalf("primary bank byte = %02X, want 0 (banks are independent)", v)
	}
	if err := m.DeleteBank("ram2"); err != nil {
		t.Fatalf("DeleteBank: %v", err)
	}
	if err := m.DeleteBank(primaryBank); err == nil {
		t.Fatalf("expected BankError deleting the primary bank")
	}
	if err := m.SwitchBank("ram2"); err == nil {
		t.Fatalf("expected BankError switching to a deleted bank")
	}
}

func TestMemorySnapshotRestore(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{})
	m.WriteByte(0x1234, 0x55)
	snap := m.Snapshot()
	m.WriteByte(0x1234, 0x99)
	m.Restore(snap)
	v, _ := m.ReadByte(0x1234)
	if v != 0x55 {
		t.Fatalf("Restore did not roll back byte: got %02X, want 55", v)
	}
}

func TestMemoryAccessTrace(t *testing.T) {
	m := NewMemoryManager(MemoryOptions{TraceCapacity: 2})
	m.WriteByte(0x0300, 1)
	m.WriteByte(0x0300, 2)
	m.WriteByte(0x0300, 3)
	trace := m.Trace()
	if len(trace) != 2 {
		t.Fatalf("trace length = %d, want 2 (ring buffer capacity)", len(trace))
	}
	if trace[len(trace)-1].Value != 3 || trace[len(trace)-1].PriorValue != 2 {
		t.Fatalf("last trace entry = %+v, want Value=3 PriorValue=2", trace[len(trace)-1])
	}
}
