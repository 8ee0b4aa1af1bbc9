// main.go - entry point: a small urfave/cli app wrapping the Engine with
// run/tokens/disasm/monitor subcommands.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "sixfivebasic",
		Usage: "line-numbered BASIC over a 6502 core",
		Commands: []*cli.Command{
			runCommand,
			tokensCommand,
			disasmCommand,
			monitorCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "load a .bas file and run it to completion",
	ArgsUsage: "<file.bas>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("usage: sixfivebasic run <file.bas>", 1)
		}
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		in := NewTerminalInputSource()
		if err := in.Start(); err == nil {
			defer in.Stop()
		}
		e := NewEngine(EngineOptions{In: in})
		if err := e.LoadSource(lines); err != nil {
			return cli.Exit(err, 1)
		}
		if err := e.Run(); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	},
}

var tokensCommand = &cli.Command{
	Name:      "tokens",
	Usage:     "print the token stream for each line of a .bas file",
	ArgsUsage: "<file.bas>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("usage: sixfivebasic tokens <file.bas>", 1)
		}
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		for _, src := range lines {
			num, rest, hasNum := SplitLineNumber(src)
			toks, err := NewTokenizer(rest, num).Tokenize()
			if err != nil {
				fmt.Printf("%s: %v\n", src, err)
				continue
			}
			if hasNum {
				fmt.Printf("%d:\n", num)
			} else {
				fmt.Println("(direct):")
			}
			for _, tk := range toks {
				fmt.Printf("  kind=%d text=%q num=%v\n", tk.Kind, tk.Text, tk.Num)
			}
		}
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble raw 6502 machine code loaded at an address",
	ArgsUsage: "<file.bin> <addr-hex>",
	Action: func(c *cli.Context) error {
		args := c.Args()
		if args.Len() < 2 {
			return cli.Exit("usage: sixfivebasic disasm <file.bin> <addr-hex>", 1)
		}
		data, err := os.ReadFile(args.Get(0))
		if err != nil {
			return cli.Exit(err, 1)
		}
		var addr uint64
		if _, err := fmt.Sscanf(args.Get(1), "%x", &addr); err != nil {
			return cli.Exit(fmt.Errorf("bad address %q: %w", args.Get(1), err), 1)
		}
		e := NewEngine(EngineOptions{})
		e.LoadMachineCodeAt(uint16(addr), data)
		lines := e.Debugger.Disassemble(addr, len(data))
		for _, l := range lines {
			fmt.Printf("$%04X  %-12s %s\n", l.Address, l.HexBytes, l.Mnemonic)
		}
		return nil
	},
}

var monitorCommand = &cli.Command{
	Name:      "monitor",
	Usage:     "launch the interactive debug monitor for a .bas file",
	ArgsUsage: "<file.bas>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("usage: sixfivebasic monitor <file.bas>", 1)
		}
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		e := NewEngine(EngineOptions{Out: &BufferedOutputSink{}})
		if err := e.LoadSource(lines); err != nil {
			return cli.Exit(err, 1)
		}
		return runMonitor(e)
	},
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cli.Exit(err, 1)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, cli.Exit(err, 1)
	}
	return lines, nil
}
