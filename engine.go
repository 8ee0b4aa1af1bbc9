// engine.go - Engine: top-level wiring of the Memory Manager, CPU Core,
// Interpreter and Debugger into one runnable machine.
//
// Grounded on the source engine's CPU6502Runner (cpu_6502_runner.go), which
// owned a memory bus plus a CPU and exposed LoadProgram/Reset/Execute; this
// module plays the same "own the pieces, expose a small run surface" role,
// but the memory and CPU it owns are the 64KB MemoryManager/CPU6502 this
// module defines, and running a program now means handing lines to the
// Interpreter rather than executing raw machine code directly — machine
// code only runs when BASIC asks for it via USR/CALL.
package main

// EngineOptions configures a new Engine.
type EngineOptions struct {
	Memory MemoryOptions
	Out    OutputSink
	In     InputSource
	Caps   CapabilityHost
}

// Engine owns one Memory Manager, one CPU core sharing it, one Interpreter
// driving both, and one Debugger observing the CPU.
type Engine struct {
	Memory      *MemoryManager
	CPU         *CPU6502
	Interpreter *Interpreter
	Debugger    *Debugger
}

// NewEngine constructs a fully wired machine ready to load and run programs.
func NewEngine(opts EngineOptions) *Engine {
	mem := NewMemoryManager(opts.Memory)
	cpu := NewCPU6502(mem)
	out := opts.Out
	if out == nil {
		out = NewConsoleOutputSink()
	}
	interp := NewInterpreter(mem, cpu, out, opts.In, opts.Caps)
	return &Engine{
		Memory:      mem,
		CPU:         cpu,
		Interpreter: interp,
		Debugger:    NewDebugger(cpu, mem),
	}
}

// LoadSource feeds each line of program text through the Interpreter, in
// order, exactly as a user typing them into a direct-mode prompt would.
func (e *Engine) LoadSource(lines []string) error {
	for _, l := range lines {
		if err := e.Interpreter.LoadLine(l); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the stored program from its first line.
func (e *Engine) Run() error {
	return e.Interpreter.Run()
}

// ListProgram renders the stored program back to source text, in line-number
// order, for LIST.
func (e *Engine) ListProgram() []string {
	out := make([]string, 0, len(e.Interpreter.order))
	for _, n := range e.Interpreter.order {
		out = append(out, e.Interpreter.lines[n].Source)
	}
	return out
}

// LoadMachineCodeAt writes raw bytes directly into memory, for ROM/binary
// loading ahead of a USR/CALL bridge into machine code.
func (e *Engine) LoadMachineCodeAt(addr uint16, data []byte) {
	for i, b := range data {
		e.Memory.WriteByte(addr+uint16(i), b)
	}
}

// ResetCPU re-establishes power-up CPU state without touching the stored
// BASIC program or variables.
func (e *Engine) ResetCPU() {
	e.CPU.Reset()
}
