// Command govm loads a single module image and runs one of its
// public functions to completion, printing its results. It is the
// thin flag-driven front end over the runtime package, in the same
// spirit as KTStephano-GVM's own main.go: parse flags, load the
// program, run it, report what happened.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"govm/alloc"
	"govm/diag"
	"govm/envcall"
	"govm/ffi"
	"govm/image"
	"govm/runtime"
)

func main() {
	modulePath := flag.String("module", "", "path to a module image file")
	entry := flag.String("entry", "", "public function name to run")
	debug := flag.Bool("debug", false, "enable development-mode diagnostic logging")
	stackSize := flag.Int("stack-size", 1<<20, "operand stack size in bytes")
	argList := flag.String("args", "", "comma-separated i64 arguments for the entry function")
	flag.Parse()

	if err := run(*modulePath, *entry, *debug, *stackSize, *argList); err != nil {
		fmt.Fprintln(os.Stderr, "govm:", err)
		os.Exit(1)
	}
}

func run(modulePath, entry string, debug bool, stackSize int, argList string) error {
	if modulePath == "" || entry == "" {
		return fmt.Errorf("-module and -entry are required")
	}

	raw, err := os.ReadFile(modulePath)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	img, err := image.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing module: %w", err)
	}

	internalIndex, ok := lookupFunction(img, entry)
	if !ok {
		return fmt.Errorf("no public function named %q", entry)
	}

	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer logger.Sync()

	bridge := ffi.NewBridge(ffi.NewDlopenResolver())
	ctx := runtime.NewThreadContext(stackSize, alloc.New(), bridge, envcall.Default())
	ctx.SetLogger(logger)
	ctx.LoadModule(0, &img)

	args, err := encodeArgs(argList)
	if err != nil {
		return fmt.Errorf("parsing -args: %w", err)
	}

	results, err := runtime.ProcessFunction(ctx, 0, internalIndex, args)
	if err != nil {
		return fmt.Errorf("running %s: %w", entry, err)
	}

	printResults(results)
	return nil
}

func newLogger(debug bool) (*diag.Logger, error) {
	if debug {
		return diag.NewDevelopment()
	}
	return diag.New()
}

// lookupFunction resolves a public function name via the module's
// FunctionNameSection, skipping any entry marked private — only
// public names are valid run targets from outside the module.
func lookupFunction(img image.Image, name string) (uint32, bool) {
	for _, it := range img.FunctionNames.Items {
		if it.Name == name && it.Visibility == image.VisibilityPublic {
			return it.InternalIndex, true
		}
	}
	return 0, false
}

// encodeArgs packs a comma-separated list of i64 literals into the
// flat 8-byte-per-slot buffer ProcessFunction expects. govm only
// drives i64-typed entry points from the command line; functions with
// other parameter types need a host program built against the
// runtime package directly.
func encodeArgs(list string) ([]byte, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	out := make([]byte, len(parts)*8)
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out, nil
}

func printResults(results []byte) {
	for i := 0; i+8 <= len(results); i += 8 {
		bits := binary.LittleEndian.Uint64(results[i : i+8])
		fmt.Printf("result[%d] = %d (0x%016x, f64 %v)\n", i/8, int64(bits), bits, math.Float64frombits(bits))
	}
}
