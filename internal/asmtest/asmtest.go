// Package asmtest is a test-only mini-assembler: it turns a small
// line-oriented text syntax into the fixed-width bytecode a function
// body needs, so _test.go files can write "block/recur/break_" test
// programs by hand instead of hand-computing byte offsets. It is
// deliberately not part of the module's build surface for any real
// program — only tests import it.
//
// Syntax, distilled from the teacher's own line assembler
// (vm/compile.go, vm/parse.go): one instruction or label per line,
// "//" starts a line comment, blank lines are ignored, a line ending
// in ":" defines a label at the current byte offset. An instruction
// line is a mnemonic (the same name opcode.Lookup recognizes, e.g.
// "add_i32", "block", "imm_i64") followed by as many whitespace
// separated arguments as its encoded Form has parameter slots for,
// each either a decimal/hex integer literal or (for the forms that
// branch) a label name.
package asmtest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"govm/instr"
	"govm/opcode"
)

// offsetSpec names which parameter of a branching instruction is a
// byte offset the assembler should resolve from a label rather than
// a literal, and whether that offset is relative to the branching
// instruction's own address (break_/block_alt/break_alt/block_nez) or
// absolute within the function (recur, whose offset is measured from
// the function's own start per control_flow.go).
type offsetSpec struct {
	paramIndex int
	relative   bool
}

var offsetParams = map[opcode.Code]offsetSpec{
	opcode.Break:    {paramIndex: 1, relative: true},
	opcode.Recur:    {paramIndex: 1, relative: false},
	opcode.BlockAlt: {paramIndex: 2, relative: true},
	opcode.BreakAlt: {paramIndex: 0, relative: true},
	opcode.BlockNez: {paramIndex: 1, relative: true},
}

type fixup struct {
	instrOffset int
	slot        int
	label       string
	spec        offsetSpec
}

// Assemble parses src and returns the encoded function body.
func Assemble(src string) ([]byte, error) {
	w := instr.NewWriter()
	labels := map[string]int{}
	var fixups []fixup

	for lineNo, raw := range strings.Split(src, "\n") {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(strings.TrimSuffix(line, ":"))
			if name == "" {
				return nil, fmt.Errorf("asmtest: line %d: empty label", lineNo+1)
			}
			if _, exists := labels[name]; exists {
				return nil, fmt.Errorf("asmtest: line %d: label %q redefined", lineNo+1, name)
			}
			labels[name] = w.Len()
			continue
		}

		fields := strings.Fields(line)
		mnemonic, args := fields[0], fields[1:]

		code, ok := opcode.Lookup(mnemonic)
		if !ok {
			return nil, fmt.Errorf("asmtest: line %d: unknown mnemonic %q", lineNo+1, mnemonic)
		}
		form := instr.FormOf(code)
		in := instr.Instruction{Code: code, Form: form}

		switch code {
		case opcode.ImmI64:
			if err := requireArgCount(lineNo, mnemonic, args, 1); err != nil {
				return nil, err
			}
			v, err := parseInt64(args[0])
			if err != nil {
				return nil, fmt.Errorf("asmtest: line %d: %w", lineNo+1, err)
			}
			in.Params[0] = uint32(uint64(v))
			in.Params[1] = uint32(uint64(v) >> 32)

		case opcode.ImmF32:
			if err := requireArgCount(lineNo, mnemonic, args, 1); err != nil {
				return nil, err
			}
			f, err := parseFloat(args[0])
			if err != nil {
				return nil, fmt.Errorf("asmtest: line %d: %w", lineNo+1, err)
			}
			in.Params[0] = math.Float32bits(float32(f))

		case opcode.ImmF64:
			if err := requireArgCount(lineNo, mnemonic, args, 1); err != nil {
				return nil, err
			}
			f, err := parseFloat(args[0])
			if err != nil {
				return nil, fmt.Errorf("asmtest: line %d: %w", lineNo+1, err)
			}
			bits := math.Float64bits(f)
			in.Params[0] = uint32(bits)
			in.Params[1] = uint32(bits >> 32)

		default:
			want := paramCount(form)
			if len(args) != want {
				return nil, fmt.Errorf("asmtest: line %d: %s takes %d argument(s), got %d", lineNo+1, mnemonic, want, len(args))
			}
			spec, hasOffset := offsetParams[code]
			for i, a := range args {
				if hasOffset && i == spec.paramIndex && !isNumericToken(a) {
					continue // resolved as a fixup below, once w.Emit gives us the instruction's offset
				}
				v, err := parseInt64(a)
				if err != nil {
					return nil, fmt.Errorf("asmtest: line %d: %w", lineNo+1, err)
				}
				in.Params[i] = uint32(uint64(v))
			}
		}

		offset := w.Emit(in)

		if spec, ok := offsetParams[code]; ok && spec.paramIndex < len(args) && !isNumericToken(args[spec.paramIndex]) {
			fixups = append(fixups, fixup{instrOffset: offset, slot: spec.paramIndex, label: args[spec.paramIndex], spec: spec})
		}
	}

	for _, fx := range fixups {
		target, ok := labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("asmtest: undefined label %q", fx.label)
		}
		var value uint32
		if fx.spec.relative {
			value = uint32(target - fx.instrOffset)
		} else {
			value = uint32(target)
		}
		w.PatchParam(fx.instrOffset, fx.slot, value)
	}

	return w.Bytes(), nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

func paramCount(f instr.Form) int {
	switch f {
	case instr.FormNone:
		return 0
	case instr.FormP16, instr.FormPad32:
		return 1
	case instr.FormP16P32, instr.Form32x2:
		return 2
	case instr.FormP16x3, instr.Form32x3:
		return 3
	default:
		return 0
	}
}

func requireArgCount(lineNo int, mnemonic string, args []string, want int) error {
	if len(args) != want {
		return fmt.Errorf("asmtest: line %d: %s takes %d argument(s), got %d", lineNo+1, mnemonic, want, len(args))
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func parseInt64(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", s)
	}
	return int64(v), nil
}

func isNumericToken(s string) bool {
	_, err := parseInt64(s)
	return err == nil
}
