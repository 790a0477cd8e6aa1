// Package vm - debugger support
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/avl-labs/wisp/pkg/bytecode"
)

// Debugger provides interactive debugging capabilities for the dispatch
// loop, generalized from the teacher's *VM-indexed breakpoint debugger to
// the thread's PC over the shared append-only code array (spec.md's
// bytecode stream has no per-Instruction index to key breakpoints on, just
// a byte offset, so breakpoints key on PC directly).
type Debugger struct {
	t           *Thread      // the thread being debugged
	breakpoints map[int64]bool // PCs where execution should pause
	stepMode    bool           // if true, pause after each instruction
	enabled     bool           // if true, debugger is active
}

// NewDebugger creates a new debugger instance.
func NewDebugger(t *Thread) *Debugger {
	return &Debugger{
		t:           t,
		breakpoints: make(map[int64]bool),
	}
}

// Enable activates the debugger.
func (d *Debugger) Enable() {
	d.enabled = true
}

// Disable deactivates the debugger.
func (d *Debugger) Disable() {
	d.enabled = false
}

// SetStepMode enables or disables step mode.
// In step mode, execution pauses after each instruction.
func (d *Debugger) SetStepMode(enabled bool) {
	d.stepMode = enabled
}

// AddBreakpoint adds a breakpoint at the specified code-array offset.
func (d *Debugger) AddBreakpoint(pc int64) {
	d.breakpoints[pc] = true
}

// RemoveBreakpoint removes a breakpoint at the specified code-array offset.
func (d *Debugger) RemoveBreakpoint(pc int64) {
	delete(d.breakpoints, pc)
}

// ClearBreakpoints removes all breakpoints.
func (d *Debugger) ClearBreakpoints() {
	d.breakpoints = make(map[int64]bool)
}

// ShouldPause checks if execution should pause at the current instruction.
// Returns true if we're in step mode or at a breakpoint.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}

	if d.stepMode {
		return true
	}

	return d.breakpoints[d.t.PC]
}

// ShowCurrentInstruction displays the current instruction being executed.
// pkg/bytecode exposes no single-instruction-at-PC decoder, only a
// whole-stream Disassemble, so this finds the one line whose recorded
// offset matches the live PC.
func (d *Debugger) ShowCurrentInstruction() {
	line, ok := d.findInstructionLine(d.t.PC)
	if !ok {
		fmt.Printf("No instruction at PC %d\n", d.t.PC)
		return
	}
	fmt.Println(line)
}

func (d *Debugger) findInstructionLine(pc int64) (string, bool) {
	if d.t.Code == nil {
		return "", false
	}
	prefix := fmt.Sprintf("%6d  ", pc)
	for _, line := range strings.Split(bytecode.Disassemble(d.t.Code), "\n") {
		if strings.HasPrefix(line, prefix) {
			return line, true
		}
	}
	return "", false
}

// ShowStack displays the current value stack.
func (d *Debugger) ShowStack() {
	fmt.Println("Stack (top to bottom):")
	if len(d.t.Stack) == 0 {
		fmt.Println("  (empty)")
		return
	}

	for i := len(d.t.Stack) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, d.t.Stack[i].String())
	}
}

// ShowFrame displays the current argument frame chain, replacing the
// teacher's flat ShowLocals (this model has no single locals array; each
// closure invocation gets its own chained *object.Frame).
func (d *Debugger) ShowFrame() {
	fmt.Println("Frame chain (innermost first):")
	if d.t.Frame == nil {
		fmt.Println("  (none)")
		return
	}
	for f, depth := d.t.Frame, 0; f != nil; f, depth = f.Next, depth+1 {
		fmt.Printf("  [%d]", depth)
		for i, a := range f.Args {
			fmt.Printf(" %d=%s", i, a.String())
		}
		fmt.Println()
	}
}

// ShowGlobals displays the bindings visible in the current module and the
// global values they resolve to, replacing the teacher's flat
// map[string]interface{} walk (bindings here are indirect: a symbol maps
// to a Binding naming a global-value-index, not a value itself).
func (d *Debugger) ShowGlobals() {
	fmt.Println("Global bindings:")
	if d.t.Env == nil || len(d.t.Env.Symbols) == 0 {
		fmt.Println("  (none)")
		return
	}
	for name, b := range d.t.Env.Symbols {
		if b.GVI < 0 || int(b.GVI) >= len(d.t.Globals.Values) {
			fmt.Printf("  %s = <unresolved gvi=%d>\n", name, b.GVI)
			continue
		}
		fmt.Printf("  %s = %s\n", name, d.t.Globals.Values[b.GVI].String())
	}
}

// ShowKrun displays the krun stack of top-level abort continuations,
// replacing the teacher's ShowCallStack: this architecture keeps no
// separate Smalltalk-style call-stack list, since return addresses live
// inline on the value stack as marker-tagged frames instead.
func (d *Debugger) ShowKrun() {
	fmt.Println("Krun stack (top to bottom):")
	if len(d.t.Krun) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(d.t.Krun) - 1; i >= 0; i-- {
		e := d.t.Krun[i]
		fmt.Printf("  [%d] %s -> pc=%d\n", i, e.Description, e.Continuation.PC)
	}
}

// InteractivePrompt provides an interactive debugger prompt.
// This is called when execution pauses at a breakpoint or in step mode.
func (d *Debugger) InteractivePrompt() (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		command := parts[0]

		switch command {
		case "help", "h", "?":
			d.printHelp()

		case "continue", "c":
			d.SetStepMode(false)
			return true

		case "step", "s":
			d.SetStepMode(true)
			return true

		case "next", "n":
			return true

		case "stack", "st":
			d.ShowStack()

		case "frame", "f":
			d.ShowFrame()

		case "globals", "g":
			d.ShowGlobals()

		case "krun", "k":
			d.ShowKrun()

		case "instruction", "i":
			d.ShowCurrentInstruction()

		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <pc>")
				continue
			}
			pc, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				fmt.Println("Invalid pc")
				continue
			}
			d.AddBreakpoint(pc)
			fmt.Printf("Breakpoint added at pc %d\n", pc)

		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <pc>")
				continue
			}
			pc, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				fmt.Println("Invalid pc")
				continue
			}
			d.RemoveBreakpoint(pc)
			fmt.Printf("Breakpoint removed at pc %d\n", pc)

		case "quit", "q":
			return false

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", command)
		}
	}
}

// printHelp displays available debugger commands.
func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s              Enable step mode (pause after each instruction)")
	fmt.Println("  next, n              Execute next instruction")
	fmt.Println("  stack, st            Show value stack")
	fmt.Println("  frame, f             Show argument frame chain")
	fmt.Println("  globals, g           Show global bindings")
	fmt.Println("  krun, k              Show krun (top-level abort continuation) stack")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  breakpoint <pc>, b   Add breakpoint at code offset pc")
	fmt.Println("  delete <pc>, d       Remove breakpoint at code offset pc")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}
