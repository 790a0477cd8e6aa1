// Command wisp is the command-line front end for the execution core: run a
// source file, drop into a REPL, compile a source file to a persisted
// bytecode module, or disassemble one.
//
// Grounded on the teacher's cmd/smog/main.go (the version/help/repl/run/
// compile/disassemble switch and the runFile .sg-vs-source extension
// dispatch), rebuilt around pkg/reader/pkg/compiler/pkg/vm instead of
// pkg/lexer/pkg/parser/pkg/compiler's Smalltalk pipeline, and extended to
// run the dispatch loop alongside an OS signal watcher the way the sibling
// example's gen_vm_expects.go coordinates goroutines with errgroup.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/avl-labs/wisp/pkg/bytecode"
	"github.com/avl-labs/wisp/pkg/compiler"
	"github.com/avl-labs/wisp/pkg/handle"
	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/reader"
	"github.com/avl-labs/wisp/pkg/value"
	"github.com/avl-labs/wisp/pkg/vm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("wisp version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(1)
		}
		runFile(os.Args[2])
	case "compile":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: wisp compile <input.sg.scm> [output.sg]")
			os.Exit(1)
		}
		out := ""
		if len(os.Args) >= 4 {
			out = os.Args[3]
		}
		compileFile(os.Args[2], out)
	case "disasm", "disassemble":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: wisp disasm <file.sg>")
			os.Exit(1)
		}
		disasmFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func printUsage() {
	fmt.Println("wisp - a tagged-pointer Scheme-influenced execution core")
	fmt.Println("\nUsage:")
	fmt.Println("  wisp                        Start the interactive REPL")
	fmt.Println("  wisp [file]                 Run a source file or compiled .sg module")
	fmt.Println("  wisp run [file]             Same as above")
	fmt.Println("  wisp compile <in> [out.sg]  Compile source to a persisted .sg module")
	fmt.Println("  wisp disasm <file.sg>       Disassemble a persisted .sg module")
	fmt.Println("  wisp repl                   Start the interactive REPL")
	fmt.Println("  wisp version                Show the version")
	fmt.Println("  wisp help                   Show this help")
}

// runFile dispatches on extension: ".sg" is the persisted bytecode
// container of pkg/bytecode/format.go, anything else is read as source.
func runFile(filename string) {
	if filepath.Ext(filename) == ".sg" {
		runBytecodeFile(filename)
		return
	}
	runSourceFile(filename)
}

func runSourceFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	forms, err := reader.New(string(data)).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	bc := bytecode.New()
	g := module.NewGlobals()
	env := module.New(name)
	th := vm.New(bc, g, env)
	vm.RegisterBuiltins(th, env, g)
	wireStdio(th)

	c := compiler.New(env, g)
	start, err := c.CompileProgram(bc, forms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}

	th.PC = start
	if _, err := runThread(th); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

// runBytecodeFile loads a persisted .sg module and runs it without
// re-parsing or re-compiling source, the fast path the teacher's .sg format
// was built for.
func runBytecodeFile(filename string) {
	th, start, err := loadPersistedModule(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}
	wireStdio(th)
	th.PC = start
	if _, err := runThread(th); err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		os.Exit(1)
	}
}

func compileFile(inputFile, outputFile string) {
	if outputFile == "" {
		outputFile = strings.TrimSuffix(inputFile, filepath.Ext(inputFile)) + ".sg"
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	forms, err := reader.New(string(data)).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	bc := bytecode.New()
	g := module.NewGlobals()
	env := module.New(name)
	th := vm.New(bc, g, env)
	vm.RegisterBuiltins(th, env, g)

	c := compiler.New(env, g)
	if _, err := c.CompileProgram(bc, forms); err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	pm := persistModule(env, g, bc)
	if err := bytecode.Encode(out, pm); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bytecode: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
}

func disasmFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	pm, err := bytecode.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== %s ===\n", filename)
	fmt.Printf("module: %s\n", pm.Name)
	fmt.Printf("exports: %s\n", strings.Join(pm.Exports, ", "))
	fmt.Println("constants:")
	for i, c := range pm.Constants {
		fmt.Printf("  [%d] %s\n", i, c.String())
	}
	fmt.Println()
	fmt.Print(bytecode.Disassemble(&pm.Code))
}

// persistModule converts the compiler's direct-into-shared-Globals
// constant wiring into the per-module-local Constants/VCI shape
// pkg/bytecode/format.go persists: spec.md §6.4's module-local constants
// array is addressed by mci directly, so index i of the array built here
// must hold the constant for mci i, matching what module.Globals.LoadConstants
// expects to read back on the other end.
func persistModule(env *module.Module, g *module.Globals, bc *bytecode.Bytecode) *bytecode.Module {
	var maxMCI int64
	for mci := range env.VCI {
		if mci+1 > maxMCI {
			maxMCI = mci + 1
		}
	}
	consts := make([]value.Value, maxMCI)
	for mci, gci := range env.VCI {
		consts[mci] = g.Constants[gci]
	}
	vci := make(map[int64]int64, maxMCI)
	for i := range consts {
		vci[int64(i)] = int64(i)
	}
	var exports []string
	for name, on := range env.Exports {
		if on {
			exports = append(exports, name)
		}
	}
	return &bytecode.Module{
		Name:      env.Name,
		Exports:   exports,
		Constants: consts,
		VCI:       vci,
		Code:      bytecode.Bytecode{Code: bc.Code},
	}
}

// loadPersistedModule is persistModule's inverse: it rebuilds a fresh
// module/globals/thread from a decoded .sg file and returns the PC the
// program proper starts at (the end of the fixed prologue bytecode.New
// always writes first, independent of module contents).
func loadPersistedModule(filename string) (*vm.Thread, int64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	pm, err := bytecode.Decode(f)
	if err != nil {
		return nil, 0, err
	}

	g := module.NewGlobals()
	env := module.New(pm.Name)
	for _, name := range pm.Exports {
		env.Export(name)
	}

	symbolNames := map[int64]string{}
	for i, c := range pm.Constants {
		if sym, ok := c.Object().(*object.Symbol); ok {
			symbolNames[int64(i)] = sym.Name
		}
	}
	g.LoadConstants(env, pm.Constants, symbolNames)

	proto := bytecode.New()
	bc := &bytecode.Bytecode{Code: pm.Code.Code, Prologue: proto.Prologue}
	th := vm.New(bc, g, env)
	vm.RegisterBuiltins(th, env, g)
	return th, int64(len(proto.Code)), nil
}

// wireStdio binds a thread's standard handles to the process's own stdio,
// the way the teacher's primitives assumed direct os.Stdin/os.Stdout access.
func wireStdio(th *vm.Thread) {
	th.SetStdio(
		handle.New("stdin", handle.Read|handle.Stdio, os.Stdin, nil, nil, nil),
		handle.New("stdout", handle.Write|handle.Stdio, nil, os.Stdout, nil, nil),
		handle.New("stderr", handle.Write|handle.Stdio, nil, os.Stderr, nil, nil),
	)
}

// defaultSignalMapping maps the POSIX signals a shell-like front end cares
// about onto spec.md §6.5's process-wide signum array.
func defaultSignalMapping() map[os.Signal]int {
	return map[os.Signal]int{
		syscall.SIGHUP:  1,
		os.Interrupt:    2,
		syscall.SIGQUIT: 3,
		syscall.SIGTERM: 15,
	}
}

// runThread drives th.Run() alongside vm.WatchOSSignals in the same
// errgroup, grounded on pkg/vm/signal.go's own doc comment pointing at the
// sibling example's errgroup.WithContext pattern: a cancelled context or a
// dispatch error tears both goroutines down together.
func runThread(th *vm.Thread) (value.Value, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	var result value.Value
	var runErr error

	eg.Go(func() error {
		defer cancel()
		result, runErr = th.Run()
		return nil
	})
	eg.Go(func() error {
		return vm.WatchOSSignals(ctx, th, defaultSignalMapping())
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return value.Value{}, err
	}
	return result, runErr
}

func runREPL() {
	fmt.Printf("wisp %s\n", version)
	fmt.Println("Type :quit or :exit to leave")
	fmt.Println()

	bc := bytecode.New()
	g := module.NewGlobals()
	env := module.New("repl")
	th := vm.New(bc, g, env)
	vm.RegisterBuiltins(th, env, g)
	wireStdio(th)
	c := compiler.New(env, g)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("wisp> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case ":quit", ":exit":
			return
		case "":
			continue
		}
		evalREPL(th, c, bc, line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func evalREPL(th *vm.Thread, c *compiler.Compiler, bc *bytecode.Bytecode, line string) {
	forms, err := reader.New(line).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		return
	}
	start, err := c.CompileProgram(bc, forms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		return
	}
	th.PC = start
	result, err := th.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Runtime error: %v\n", err)
		return
	}
	fmt.Println(result.String())
}
