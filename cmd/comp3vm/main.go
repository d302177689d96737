// Command comp3vm runs a compiled COMP-3 program image against an
// optional input string, printing the program's output once it halts.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/comp3toolchain/comp3/config"
	"github.com/comp3toolchain/comp3/loader"
	"github.com/comp3toolchain/comp3/machine"
	"github.com/comp3toolchain/comp3/microcode"
)

func main() {
	showStatistics := flag.Bool("show-statistics", false, "print tick/instruction counts after the program halts")
	logs := flag.Bool("logs", false, "when trace.enabled is set in the config, trace every completed instruction to the configured trace file")
	configPath := flag.String("config", "comp3.toml", "path to an optional comp3.toml")
	maxTicks := flag.Int("max-ticks", 0, "override the configured tick watchdog (0 keeps the config value)")

	// Flags may follow the positional arguments too: flag parsing stops at
	// the first non-flag argument, so it is resumed after each one.
	var args []string
	rest := os.Args[1:]
	for {
		flag.CommandLine.Parse(rest) // ExitOnError: a bad flag exits here
		rest = flag.CommandLine.Args()
		if len(rest) == 0 {
			break
		}
		args = append(args, rest[0])
		rest = rest[1:]
	}
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: comp3vm <program.json> [input-string] [flags]")
		os.Exit(2)
	}
	programPath := args[0]
	input := ""
	if len(args) > 1 {
		input = args[1]
	}

	if err := run(programPath, input, *showStatistics, *logs, *configPath, *maxTicks); err != nil {
		fmt.Fprintf(os.Stderr, "comp3vm: %v\n", err)
		os.Exit(1)
	}
}

func run(programPath, input string, showStatistics, tracing bool, configPath string, maxTicksFlag int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	program, err := loader.DecodeProgram(programPath)
	if err != nil {
		return err
	}

	d := machine.New(program, input, cfg.Machine.StackTop)
	table, err := microcode.Build()
	if err != nil {
		return err
	}
	control := microcode.NewControl(table)

	var traceFile *os.File
	if tracing && cfg.Trace.Enabled {
		traceFile, err = os.Create(cfg.Trace.OutputFile)
		if err != nil {
			return err
		}
		defer traceFile.Close()
	}

	maxTicks := cfg.Machine.MaxTicks
	if maxTicksFlag > 0 {
		maxTicks = maxTicksFlag
	}

	if traceFile == nil {
		if err := control.Run(context.Background(), d, maxTicks); err != nil {
			return err
		}
	} else if err := runWithTrace(control, d, maxTicks, traceFile, cfg.Trace.PerMicrocycle); err != nil {
		return err
	}

	fmt.Print(d.IO.Output())

	if showStatistics {
		return writeStatistics(os.Stdout, cfg.Statistics.Format, control)
	}
	return nil
}

// runWithTrace mirrors Control.Run but logs progress to traceFile: one
// line per completed instruction, or per microcycle when the config asks
// for finer granularity.
func runWithTrace(c *microcode.Control, d *machine.DataPath, maxTicks int, traceFile *os.File, perMicrocycle bool) error {
	lastInstructions := c.Instructions()
	for {
		if maxTicks > 0 && c.Ticks() >= maxTicks {
			return &microcode.TickLimitError{Ticks: maxTicks}
		}
		halted := c.Step(d)
		if perMicrocycle {
			fmt.Fprintf(traceFile, "tick=%d pc=%d ac=%d\n", c.Ticks(), d.PC, d.AC)
		} else if c.Instructions() != lastInstructions {
			fmt.Fprintf(traceFile, "instr=%d pc=%d ac=%d\n", c.Instructions(), d.PC, d.AC)
			lastInstructions = c.Instructions()
		}
		if halted {
			if c.FetchFailed() {
				return &microcode.FetchError{PC: d.PC}
			}
			return nil
		}
	}
}

func writeStatistics(w *os.File, format string, c *microcode.Control) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]int{
			"ticks":        c.Ticks(),
			"instructions": c.Instructions(),
		})
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"ticks", "instructions"}); err != nil {
			return err
		}
		if err := cw.Write([]string{fmt.Sprint(c.Ticks()), fmt.Sprint(c.Instructions())}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	default:
		fmt.Fprintf(w, "ticks: %d\ninstructions: %d\n", c.Ticks(), c.Instructions())
		return nil
	}
}
