// debug.go - Debug Instrumentation: breakpoints, watchpoints, backtrace and
// the synchronous run loop that services them.
//
// Grounded on the source engine's Machine Monitor (debug_interface.go /
// debug_cpu_6502.go / debug_monitor.go): the same RegisterInfo/
// DisassembledLine/ConditionalBreakpoint/Watchpoint vocabulary, but built
// directly against the single *CPU6502 this module targets instead of a
// DebuggableCPU adapter interface managing a freeze/resume goroutine per
// CPU. Since this model rules out concurrent execution, RunUntil below
// replaces the source engine's trapLoop goroutine with a synchronous
// stepping loop called from the same goroutine as everything else.
// Breakpoint conditions are gopher-lua expressions rather than the
// source engine's hand-rolled "r1==$FF" mini-parser, giving condition
// authors arbitrary boolean expressions over the registers.

package main

import (
	"github.com/davecgh/go-spew/spew"
	lua "github.com/yuin/gopher-lua"
)

// DisassembledLine is one decoded instruction, as rendered for a listing.
type DisassembledLine struct {
	Address  uint64
	HexBytes string
	Mnemonic string
	Size     int
	IsPC     bool
	IsBranch bool
}

// RegisterInfo describes a single CPU register for display.
type RegisterInfo struct {
	Name     string
	BitWidth int
	Value    uint64
	Group    string
}

// BreakpointEvent is returned by RunUntil when execution halts at a
// breakpoint or watchpoint rather than running out of steps.
type BreakpointEvent struct {
	Address uint64

	IsWatch       bool
	WatchAddr     uint64
	WatchOldValue byte
	WatchNewValue byte
}

// ConditionalBreakpoint pairs an address with an optional Lua condition
// expression; the breakpoint only fires once the expression evaluates truthy.
type ConditionalBreakpoint struct {
	Address   uint64
	Expr      string
	proto     *lua.FunctionProto
	HitCount  uint64
}

type WatchpointType int

const (
	WatchWrite WatchpointType = iota
)

type Watchpoint struct {
	Type      WatchpointType
	Address   uint64
	LastValue byte
}

// Debugger wraps one CPU core and memory manager with breakpoint/watchpoint
// bookkeeping and a synchronous run loop.
type Debugger struct {
	cpu *CPU6502
	mem *MemoryManager

	breakpoints map[uint64]*ConditionalBreakpoint
	watchpoints map[uint64]*Watchpoint
	luaState    *lua.LState
}

func NewDebugger(cpu *CPU6502, mem *MemoryManager) *Debugger {
	return &Debugger{
		cpu:         cpu,
		mem:         mem,
		breakpoints: make(map[uint64]*ConditionalBreakpoint),
		watchpoints: make(map[uint64]*Watchpoint),
		luaState:    lua.NewState(),
	}
}

func (d *Debugger) Close() { d.luaState.Close() }

func (d *Debugger) CPUName() string   { return "6502" }
func (d *Debugger) AddressWidth() int { return 16 }

func (d *Debugger) GetRegisters() []RegisterInfo {
	c := d.cpu
	return []RegisterInfo{
		{Name: "A", BitWidth: 8, Value: uint64(c.A), Group: "general"},
		{Name: "X", BitWidth: 8, Value: uint64(c.X), Group: "general"},
		{Name: "Y", BitWidth: 8, Value: uint64(c.Y), Group: "general"},
		{Name: "SP", BitWidth: 8, Value: uint64(c.SP), Group: "general"},
		{Name: "PC", BitWidth: 16, Value: uint64(c.PC), Group: "general"},
		{Name: "SR", BitWidth: 8, Value: uint64(c.SR), Group: "flags"},
	}
}

func (d *Debugger) GetRegister(name string) (uint64, bool) {
	c := d.cpu
	switch name {
	case "A":
		return uint64(c.A), true
	case "X":
		return uint64(c.X), true
	case "Y":
		return uint64(c.Y), true
	case "SP":
		return uint64(c.SP), true
	case "PC":
		return uint64(c.PC), true
	case "SR":
		return uint64(c.SR), true
	}
	return 0, false
}

func (d *Debugger) SetRegister(name string, value uint64) bool {
	c := d.cpu
	switch name {
	case "A":
		c.A = byte(value)
	case "X":
		c.X = byte(value)
	case "Y":
		c.Y = byte(value)
	case "SP":
		c.SP = byte(value)
	case "PC":
		c.PC = uint16(value)
	case "SR":
		c.SR = byte(value)
	default:
		return false
	}
	return true
}

func (d *Debugger) ReadMemory(addr uint64, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = d.mem.MustReadByte(uint16(addr) + uint16(i))
	}
	return out
}

func (d *Debugger) WriteMemory(addr uint64, data []byte) {
	for i, b := range data {
		d.mem.WriteByte(uint16(addr)+uint16(i), b)
	}
}

func (d *Debugger) Disassemble(addr uint64, count int) []DisassembledLine {
	return d.cpu.DisassembleAt(uint16(addr), count)
}

// SetBreakpoint installs an unconditional breakpoint.
func (d *Debugger) SetBreakpoint(addr uint64) {
	d.breakpoints[addr] = &ConditionalBreakpoint{Address: addr}
}

// SetConditionalBreakpoint compiles expr as a Lua boolean expression
// evaluated against A, X, Y, SP, PC, SR and HITCOUNT globals, plus a
// PEEK(addr) function reading the attached memory.
func (d *Debugger) SetConditionalBreakpoint(addr uint64, expr string) error {
	proto, err := compileLuaExpr(d.luaState, expr)
	if err != nil {
		return &DebugConditionError{Expr: expr, Err: err}
	}
	d.breakpoints[addr] = &ConditionalBreakpoint{Address: addr, Expr: expr, proto: proto}
	return nil
}

func (d *Debugger) ClearBreakpoint(addr uint64) {
	delete(d.breakpoints, addr)
}

func (d *Debugger) ClearAllBreakpoints() {
	d.breakpoints = make(map[uint64]*ConditionalBreakpoint)
}

func (d *Debugger) ListBreakpoints() []*ConditionalBreakpoint {
	out := make([]*ConditionalBreakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		out = append(out, bp)
	}
	return out
}

func (d *Debugger) SetWatchpoint(addr uint64) {
	d.watchpoints[addr] = &Watchpoint{Address: addr, LastValue: d.mem.MustReadByte(uint16(addr))}
}

func (d *Debugger) ClearWatchpoint(addr uint64) {
	delete(d.watchpoints, addr)
}

func (d *Debugger) ClearAllWatchpoints() {
	d.watchpoints = make(map[uint64]*Watchpoint)
}

// compileLuaExpr wraps expr as `return (expr)` and precompiles it so
// repeated evaluation at every step doesn't re-parse the source.
func compileLuaExpr(L *lua.LState, expr string) (*lua.FunctionProto, error) {
	fn, err := L.LoadString("return (" + expr + ")")
	if err != nil {
		return nil, err
	}
	return fn.Proto, nil
}

func (d *Debugger) evalCondition(bp *ConditionalBreakpoint) (bool, error) {
	if bp.proto == nil {
		return true, nil
	}
	L := d.luaState
	for _, r := range d.GetRegisters() {
		L.SetGlobal(r.Name, lua.LNumber(r.Value))
	}
	L.SetGlobal("HITCOUNT", lua.LNumber(bp.HitCount))
	L.SetGlobal("PEEK", L.NewFunction(func(L *lua.LState) int {
		addr := L.CheckInt(1)
		L.Push(lua.LNumber(d.mem.MustReadByte(uint16(addr))))
		return 1
	}))
	fn := L.NewFunctionFromProto(bp.proto)
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// RunUntil steps the CPU synchronously until a breakpoint/watchpoint fires
// or maxSteps instructions have executed, whichever comes first. This is
// the single-threaded replacement for the source engine's background
// trapLoop: the caller's own goroutine blocks for the duration of the run.
func (d *Debugger) RunUntil(maxSteps int) (*BreakpointEvent, error) {
	for i := 0; i < maxSteps; i++ {
		if bp, ok := d.breakpoints[uint64(d.cpu.PC)]; ok {
			bp.HitCount++
			fire, err := d.evalCondition(bp)
			if err != nil {
				return nil, &DebugConditionError{Expr: bp.Expr, Err: err}
			}
			if fire {
				return &BreakpointEvent{Address: bp.Address}, nil
			}
		}
		if _, err := d.cpu.Step(); err != nil {
			return nil, err
		}
		for _, wp := range d.watchpoints {
			cur := d.mem.MustReadByte(uint16(wp.Address))
			if cur != wp.LastValue {
				old := wp.LastValue
				wp.LastValue = cur
				return &BreakpointEvent{
					Address: uint64(d.cpu.PC), IsWatch: true,
					WatchAddr: wp.Address, WatchOldValue: old, WatchNewValue: cur,
				}, nil
			}
		}
	}
	return nil, nil
}

// Backtrace walks page-1 stack slots interpreting each as a JSR return
// address (return-1, per the 6502 JSR/RTS convention).
func (d *Debugger) Backtrace(depth int) []uint64 {
	sp := uint16(0x0100) + uint16((d.cpu.SP+1)&0xFF)
	var out []uint64
	for i := 0; i < depth && sp <= 0x01FF; i++ {
		lo := d.mem.MustReadByte(sp)
		hi := d.mem.MustReadByte(sp + 1)
		addr := uint16(lo) | uint16(hi)<<8
		out = append(out, uint64(addr)+1)
		sp += 2
	}
	return out
}

// DumpState renders a human-readable register/flag dump using go-spew,
// for monitor display and crash diagnostics.
func (d *Debugger) DumpState() string {
	return spew.Sdump(d.cpu.Snapshot())
}
