// capabilities.go - OutputSink/InputSource and the Graphics/Audio/Store
// capability surface the CapabilityStmt statements forward to.
//
// TerminalInputSource is adapted from the source engine's TerminalHost
// (terminal_host.go): the same raw-mode/non-blocking stdin read loop, but
// assembling whole lines for INPUT instead of routing individual bytes to
// an MMIO keyboard device. golang.org/x/sync/semaphore bounds it to one
// outstanding RequestLine at a time, matching the single-threaded
// interpreter's INPUT contract: no concurrent requests.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/term"
)

// ConsoleOutputSink writes PRINT output to a buffered stdout writer.
type ConsoleOutputSink struct {
	w *bufio.Writer
}

func NewConsoleOutputSink() *ConsoleOutputSink {
	return &ConsoleOutputSink{w: bufio.NewWriter(os.Stdout)}
}

func (c *ConsoleOutputSink) Write(s string) {
	c.w.WriteString(s)
	c.w.Flush()
}

// BufferedOutputSink is the in-memory double used by tests.
type BufferedOutputSink struct {
	mu  sync.Mutex
	buf []byte
}

func (b *BufferedOutputSink) Write(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, s...)
}

func (b *BufferedOutputSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// BufferedInputSource is the scripted test double for InputSource: each
// RequestLine call pops the next queued line, or returns an error once
// exhausted.
type BufferedInputSource struct {
	lines []string
	pos   int
}

func NewBufferedInputSource(lines ...string) *BufferedInputSource {
	return &BufferedInputSource{lines: lines}
}

func (b *BufferedInputSource) RequestLine(prompt string) (string, error) {
	if b.pos >= len(b.lines) {
		return "", &InterruptedError{}
	}
	line := b.lines[b.pos]
	b.pos++
	return line, nil
}

// TerminalInputSource reads interactive input from a raw-mode stdin,
// assembling bytes into a line the way a terminal driver's cooked mode
// would, since raw mode disables the kernel's own line editing.
type TerminalInputSource struct {
	fd      int
	old     *term.State
	sem     *semaphore.Weighted
	lineCh  chan string
	stopCh  chan struct{}
	done    chan struct{}
	started bool
}

func NewTerminalInputSource() *TerminalInputSource {
	return &TerminalInputSource{
		sem:    semaphore.NewWeighted(1),
		lineCh: make(chan string),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (t *TerminalInputSource) Start() error {
	t.fd = int(os.Stdin.Fd())
	old, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.old = old
	t.started = true
	go t.readLoop()
	return nil
}

func (t *TerminalInputSource) Stop() {
	if !t.started {
		return
	}
	close(t.stopCh)
	<-t.done
	_ = term.Restore(t.fd, t.old)
	t.started = false
}

func (t *TerminalInputSource) readLoop() {
	defer close(t.done)
	buf := make([]byte, 1)
	var line []byte
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}
		n, err := syscall.Read(t.fd, buf)
		if n > 0 {
			b := buf[0]
			switch b {
			case '\r', '\n':
				fmt.Print("\r\n")
				select {
				case t.lineCh <- string(line):
				case <-t.stopCh:
					return
				}
				line = nil
			case 0x7F, 0x08:
				if len(line) > 0 {
					line = line[:len(line)-1]
					fmt.Print("\b \b")
				}
			default:
				line = append(line, b)
				fmt.Printf("%c", b)
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// RequestLine blocks until a full line has been assembled from stdin,
// printing prompt first. The semaphore rejects a second concurrent caller
// outright rather than queuing it, since the interpreter is single-threaded
// and a second call would only ever happen from a programming error.
func (t *TerminalInputSource) RequestLine(prompt string) (string, error) {
	if !t.sem.TryAcquire(1) {
		return "", fmt.Errorf("input already in progress")
	}
	defer t.sem.Release(1)
	fmt.Print(prompt)
	select {
	case line := <-t.lineCh:
		return line, nil
	case <-t.stopCh:
		return "", &InterruptedError{}
	}
}

// RequestLineContext is the cancelable variant of RequestLine, for a host
// that wants to time out an INPUT.
func (t *TerminalInputSource) RequestLineContext(ctx context.Context, prompt string) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)
	fmt.Print(prompt)
	select {
	case line := <-t.lineCh:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.stopCh:
		return "", &InterruptedError{}
	}
}

// Graphics, Audio and Store are the external capability interfaces the
// CapabilityStmt dispatch surface targets; NullGraphics/NullAudio/FileStore
// give a headless interpreter a harmless default.
type Graphics interface {
	Screen(mode int) error
	PSet(x, y, color int) error
	Line(x1, y1, x2, y2, color int) error
	Circle(x, y, radius, color int) error
	Cls() error
}

type Audio interface {
	Sound(frequency, durationMs int) error
	Play(macro string) error
}

type Store interface {
	Save(name, program string) error
	Load(name string) (string, error)
	List() ([]string, error)
	Remove(name string) error
}

type NullGraphics struct{}

func (NullGraphics) Screen(int) error                { return nil }
func (NullGraphics) PSet(int, int, int) error        { return nil }
func (NullGraphics) Line(int, int, int, int, int) error { return nil }
func (NullGraphics) Circle(int, int, int, int) error { return nil }
func (NullGraphics) Cls() error                      { return nil }

type NullAudio struct{}

func (NullAudio) Sound(int, int) error  { return nil }
func (NullAudio) Play(string) error     { return nil }

// FileStore implements Store against the host filesystem for SAVE/LOAD.
type FileStore struct{ Dir string }

func (f FileStore) Save(name, program string) error {
	return os.WriteFile(f.Dir+"/"+name+".bas", []byte(program), 0o644)
}

func (f FileStore) Load(name string) (string, error) {
	data, err := os.ReadFile(f.Dir + "/" + name + ".bas")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasSuffix(n, ".bas") {
			names = append(names, strings.TrimSuffix(n, ".bas"))
		}
	}
	return names, nil
}

func (f FileStore) Remove(name string) error {
	return os.Remove(f.Dir + "/" + name + ".bas")
}

// DefaultCapabilityHost dispatches CapabilityStmt statements to whichever
// Graphics/Audio/Store implementations are attached, ignoring statements
// whose target is nil (a headless run with no display or persistence).
type DefaultCapabilityHost struct {
	Graphics Graphics
	Audio    Audio
	Store    Store
	Program  func() string // serializes the running program, for SAVE
	OnLoad   func(src string) error
}

func (h *DefaultCapabilityHost) Dispatch(name string, args []Value) error {
	arg := func(i int) float64 {
		if i < len(args) {
			return args[i].Num
		}
		return 0
	}
	switch name {
	case "SCREEN":
		if h.Graphics == nil {
			return nil
		}
		return h.Graphics.Screen(int(arg(0)))
	case "PSET", "PRESET":
		if h.Graphics == nil {
			return nil
		}
		return h.Graphics.PSet(int(arg(0)), int(arg(1)), int(arg(2)))
	case "LINE":
		if h.Graphics == nil {
			return nil
		}
		return h.Graphics.Line(int(arg(0)), int(arg(1)), int(arg(2)), int(arg(3)))
	case "CIRCLE":
		if h.Graphics == nil {
			return nil
		}
		return h.Graphics.Circle(int(arg(0)), int(arg(1)), int(arg(2)), int(arg(3)))
	case "CLS":
		if h.Graphics == nil {
			return nil
		}
		return h.Graphics.Cls()
	case "COLOR", "POINT", "PAINT":
		return nil // palette/query statements with no state in a headless run
	case "SOUND":
		if h.Audio == nil {
			return nil
		}
		return h.Audio.Sound(int(arg(0)), int(arg(1)))
	case "PLAY":
		if h.Audio == nil || len(args) == 0 {
			return nil
		}
		return h.Audio.Play(args[0].Str)
	case "SAVE":
		if h.Store == nil || len(args) == 0 || h.Program == nil {
			return nil
		}
		return h.Store.Save(args[0].Str, h.Program())
	case "LOAD":
		if h.Store == nil || len(args) == 0 {
			return nil
		}
		src, err := h.Store.Load(args[0].Str)
		if err != nil {
			return err
		}
		if h.OnLoad != nil {
			return h.OnLoad(src)
		}
		return nil
	case "NEW", "CLEAR", "LIST", "RUN", "OPEN", "CLOSE":
		return nil // shell-surface statements handled by the REPL, not the host
	}
	return nil
}
