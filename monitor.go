// monitor.go - interactive debug monitor TUI.
//
// Grounded on a bubbletea/lipgloss CPU debugger model found elsewhere in the
// pack (a model holding *CPU plus a step/quit key loop, a page-table
// hex view and a status panel joined with lipgloss.JoinHorizontal/Vertical).
// Adapted here to page the shared MemoryManager/CPU6502, to single-step
// through CPU6502.Step and to run through the synchronous Debugger.RunUntil
// instead of a raw opcode tick.
package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type monitorModel struct {
	engine  *Engine
	offset  uint16
	prevPC  uint16
	lastErr error
	halted  bool
}

func (m monitorModel) Init() tea.Cmd { return nil }

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "s":
			if m.halted {
				return m, nil
			}
			m.prevPC = m.engine.CPU.PC
			if _, err := m.engine.CPU.Step(); err != nil {
				m.lastErr = err
				m.halted = true
			}
		case "r":
			if m.halted {
				return m, nil
			}
			if _, err := m.engine.Debugger.RunUntil(10000); err != nil {
				m.lastErr = err
				m.halted = true
			}
		case "pgdown":
			m.offset += 16 * 5
		case "pgup":
			if m.offset >= 16*5 {
				m.offset -= 16 * 5
			}
		}
	}
	return m, nil
}

func (m monitorModel) renderPage(start uint16) string {
	s := fmt.Sprintf("%04X | ", start)
	for i := 0; i < 16; i++ {
		addr := start + uint16(i)
		b := m.engine.Memory.MustReadByte(addr)
		if addr == m.engine.CPU.PC {
			s += fmt.Sprintf("[%02X] ", b)
		} else {
			s += fmt.Sprintf(" %02X  ", b)
		}
	}
	return s
}

func (m monitorModel) pageTable() string {
	header := "page | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %X  ", b)
	}
	rows := []string{header}
	for p := 0; p < 8; p++ {
		rows = append(rows, m.renderPage(m.offset+uint16(p*16)))
	}
	return strings.Join(rows, "\n")
}

func (m monitorModel) status() string {
	c := m.engine.CPU
	flagNames := "N V _ B D I Z C"
	var flags strings.Builder
	for _, f := range []byte{FlagNegative, FlagOverflow, FlagUnused, FlagBreak, FlagDecimal, FlagInterrupt, FlagZero, FlagCarry} {
		if c.SR&f != 0 {
			flags.WriteString("/ ")
		} else {
			flags.WriteString("  ")
		}
	}
	errLine := ""
	if m.lastErr != nil {
		errLine = "\nERROR: " + m.lastErr.Error()
	}
	return fmt.Sprintf(`
PC: %04X (was %04X)
 A: %02X   X: %02X   Y: %02X
SP: %02X  CYCLES: %d
%s
%s%s`,
		c.PC, m.prevPC, c.A, c.X, c.Y, c.SP, c.Cycles,
		flagNames, flags.String(), errLine)
}

func (m monitorModel) View() string {
	disasm := m.engine.Debugger.Disassemble(uint64(m.engine.CPU.PC), 8)
	var lines []string
	for _, l := range disasm {
		marker := "  "
		if l.IsPC {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s$%04X  %-10s %s", marker, l.Address, l.HexBytes, l.Mnemonic))
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		"",
		strings.Join(lines, "\n"),
		"\n[space/s] step  [r] run  [pgup/pgdn] page  [q] quit",
	)
}

// runMonitor starts the interactive TUI against an already-loaded Engine.
func runMonitor(e *Engine) error {
	_, err := tea.NewProgram(monitorModel{engine: e}).Run()
	return err
}
