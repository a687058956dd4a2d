// Package diag supplies the structured logging ambient concern
// SPEC_FULL.md's Ambient Stack expansion adds on top of spec.md:
// module-load diagnostics, per-Terminate diagnostic records (PC,
// function index, disassembly), and FFI wrapper-build tracing. It
// mirrors KTStephano-GVM's single debug-mode toggle, just backed by
// go.uber.org/zap instead of a bufio.Writer/strings.Builder pair.
package diag

import "go.uber.org/zap"

// Logger wraps a *zap.Logger so callers don't need to import zap
// directly for the handful of fields this package's call sites use.
type Logger struct {
	z *zap.Logger
}

// New returns a production-mode logger: leveled JSON output, no
// per-call caller/stack traces.
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewDevelopment returns a debug-mode logger: human-readable console
// output with caller info, matching KTStephano-GVM's `debug bool`
// toggle (vm.go's debugOut/debugSym fields) promoted to a real
// logging backend.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Noop returns a logger that discards everything, for tests that
// don't want log output on the wire.
func Noop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// ModuleLoaded records a successful image parse.
func (l *Logger) ModuleLoaded(moduleIndex uint32, functionCount, dataCount int) {
	l.z.Info("module loaded",
		zap.Uint32("module_index", moduleIndex),
		zap.Int("function_count", functionCount),
		zap.Int("data_count", dataCount),
	)
}

// TerminateRecord is the diagnostic payload spec.md Section 7
// describes for programming errors in the module: "optionally with a
// diagnostic string including PC, function index, and a disassembly
// of the offending function (intended for debug builds)."
type TerminateRecord struct {
	Code                  int32
	ModuleIndex           uint32
	FunctionInternalIndex uint32
	InstructionAddress    uint32
	Disassembly           string
}

// Terminate logs a TerminateRecord at warn level — abnormal but not a
// host-process bug.
func (l *Logger) Terminate(r TerminateRecord) {
	l.z.Warn("terminate",
		zap.Int32("code", r.Code),
		zap.Uint32("module_index", r.ModuleIndex),
		zap.Uint32("function_internal_index", r.FunctionInternalIndex),
		zap.Uint32("instruction_address", r.InstructionAddress),
		zap.String("disassembly", r.Disassembly),
	)
}

// WrapperBuilt traces one FFI wrapper construction (spec.md Section
// 4.5's lazy, cached wrapper build).
func (l *Logger) WrapperBuilt(moduleIndex, externalFunctionIndex uint32, symbol string) {
	l.z.Debug("ffi wrapper built",
		zap.Uint32("module_index", moduleIndex),
		zap.Uint32("external_function_index", externalFunctionIndex),
		zap.String("symbol", symbol),
	)
}
