package interp

import (
	"bufio"
	"fmt"
)

// builtin is a function implemented in Go rather than BMB source. Each one
// corresponds to a runtime symbol the emitter declares in generated IR
// (bmb_print_i64, bmb_println_str, bmb_read_int, ...); the interpreter
// calls straight through to Go's fmt/bufio instead of linking the C
// runtime, since it exists only to run programs before any backend is
// available.
type builtin func(it *Interp, args []Value) (Value, error)

var builtins = map[string]builtin{
	"println": biPrintln,
	"print":   biPrint,
	"read_int": biReadInt,
	"assert":   biAssert,
}

func biPrintln(it *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, runtimeErrorf("println takes exactly one argument")
	}
	fmt.Fprintln(it.out, formatArg(args[0]))
	return &UnitValue{}, nil
}

func biPrint(it *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, runtimeErrorf("print takes exactly one argument")
	}
	fmt.Fprint(it.out, formatArg(args[0]))
	return &UnitValue{}, nil
}

// formatArg mirrors the distinct i64/f64/String runtime entry points
// (bmb_print_i64 vs bmb_print_f64 vs bmb_print_str) with one overloaded Go
// function, since the interpreter already knows the dynamic type.
func formatArg(v Value) string {
	switch tv := v.(type) {
	case *StringValue:
		return tv.V
	default:
		return v.String()
	}
}

func biReadInt(it *Interp, args []Value) (Value, error) {
	if it.stdin == nil {
		return nil, runtimeErrorf("read_int: no input source configured")
	}
	if !it.stdin.Scan() {
		return &IntValue{V: 0}, nil
	}
	var n int64
	if _, err := fmt.Sscanf(it.stdin.Text(), "%d", &n); err != nil {
		return nil, runtimeErrorf("read_int: %v", err)
	}
	return &IntValue{V: n}, nil
}

func biAssert(it *Interp, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, runtimeErrorf("assert takes exactly one argument")
	}
	b, ok := args[0].(*BoolValue)
	if !ok || !b.V {
		return nil, runtimeErrorf("assertion failed")
	}
	return &UnitValue{}, nil
}

// withStdin attaches a line-buffered input source for read_int; tests that
// never call read_int can leave it unset.
func (it *Interp) withStdin(scanner *bufio.Scanner) {
	it.stdin = scanner
}
