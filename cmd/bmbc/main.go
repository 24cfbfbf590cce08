// Command bmbc is the BMB compiler driver: it wires the lexer, parser,
// type checker, MIR lowering, optimizer and LLVM emitter into the CLI
// surface described by the project's external interfaces, the same role
// the teacher compiler's root main.go plays for VSL.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bmb/internal/ast"
	"bmb/internal/bootstrap"
	"bmb/internal/diag"
	"bmb/internal/emit"
	"bmb/internal/interp"
	"bmb/internal/lexer"
	"bmb/internal/mir"
	"bmb/internal/optimize"
	"bmb/internal/parser"
	"bmb/internal/types"
)

// Exit codes per the driver's external-interfaces contract: 0 success, 1
// user error, 2 internal compiler error, 3 I/O error.
const (
	exitOK       = 0
	exitUserErr  = 1
	exitICE      = 2
	exitIOErr    = 3
)

type options struct {
	verb       string
	src        string
	out        string
	threads    int
	release    bool
	aggressive bool
	emitIR     bool
}

func parseArgs(args []string) (options, error) {
	opt := options{threads: 1}
	if len(args) == 0 {
		return opt, fmt.Errorf("expected a verb: check, parse, tokens, build, run, bootstrap")
	}
	opt.verb = args[0]
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		switch {
		case a == "-o":
			if i+1 >= len(rest) {
				return opt, fmt.Errorf("-o requires a path argument")
			}
			i++
			opt.out = rest[i]
		case a == "--release":
			opt.release = true
		case a == "--aggressive":
			opt.aggressive = true
		case a == "--emit-ir":
			opt.emitIR = true
		case a == "-t":
			if i+1 >= len(rest) {
				return opt, fmt.Errorf("-t requires a thread count")
			}
			i++
			n, err := strconv.Atoi(rest[i])
			if err != nil || n < 1 {
				return opt, fmt.Errorf("invalid thread count %q", rest[i])
			}
			opt.threads = n
		case strings.HasPrefix(a, "-"):
			return opt, fmt.Errorf("unexpected flag: %s", a)
		default:
			opt.src = a
		}
	}
	if opt.src == "" && opt.verb != "bootstrap" {
		return opt, fmt.Errorf("expected a source file path")
	}
	return opt, nil
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "bmbc:", err)
		os.Exit(exitUserErr)
	}

	var code int
	switch opt.verb {
	case "tokens":
		code = runTokens(opt)
	case "parse":
		code = runParse(opt)
	case "check":
		code = runCheck(opt)
	case "build":
		code = runBuild(opt)
	case "run":
		code = runRun(opt)
	case "bootstrap":
		code = runBootstrap(opt)
	default:
		fmt.Fprintf(os.Stderr, "bmbc: unknown verb %q\n", opt.verb)
		code = exitUserErr
	}
	os.Exit(code)
}

func runTokens(opt options) int {
	src, err := readSource(opt.src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	toks, err := lexer.All(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUserErr
	}
	for _, t := range toks {
		fmt.Println(t.String())
	}
	return exitOK
}

func runParse(opt options) int {
	src, err := readSource(opt.src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	prog, rep := parser.Parse(src)
	if rep != nil && len(rep.Diagnostics()) > 0 {
		diag.Print(os.Stderr, opt.src, src, rep)
	}
	if rep != nil && rep.HasFatal() {
		return exitUserErr
	}
	fmt.Print(ast.Print(prog))
	return exitOK
}

// checkProgram runs the full front end (parse, then type check) and
// reports every diagnostic it collects before returning. It is the one
// place build/run/check converge, so the three verbs can never disagree
// about what counts as a valid program.
func checkProgram(opt options, src string) (*ast.Program, *types.Info, int) {
	prog, rep := parser.Parse(src)
	if rep != nil && len(rep.Diagnostics()) > 0 {
		diag.Print(os.Stderr, opt.src, src, rep)
	}
	if rep != nil && rep.HasFatal() {
		return nil, nil, exitUserErr
	}

	typeRep, info := types.Check(prog)
	if typeRep != nil && len(typeRep.Diagnostics()) > 0 {
		diag.Print(os.Stderr, opt.src, src, typeRep)
	}
	if typeRep != nil && typeRep.HasFatal() {
		return nil, nil, exitUserErr
	}
	return prog, info, exitOK
}

func runCheck(opt options) int {
	src, err := readSource(opt.src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	_, _, code := checkProgram(opt, src)
	return code
}

func runBuild(opt options) int {
	src, err := readSource(opt.src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	prog, info, code := checkProgram(opt, src)
	if code != exitOK {
		return code
	}

	mirProg := mir.Lower(prog, info)
	mirProg = optimize.Run(mirProg, optimize.Options{
		Threads:    opt.threads,
		Aggressive: opt.release || opt.aggressive,
	})

	irText, err := emit.Emit(mirProg, info.Env, emit.Options{
		Threads: opt.threads,
		Module:  opt.src,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "internal compiler error:", err)
		return exitICE
	}

	if !opt.emitIR && opt.out == "" {
		fmt.Fprintln(os.Stderr, "bmbc: build needs -o <path> or --emit-ir to stdout")
		return exitUserErr
	}
	if opt.out == "" {
		fmt.Print(irText)
		return exitOK
	}
	if err := os.WriteFile(opt.out, []byte(irText), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	return exitOK
}

// runRun executes a program via the test-only tree-walking interpreter.
// The spec reserves a real compile-and-execute path for an external
// backend; until one is linked in, `run` interprets, which is sufficient
// for golden-test and bootstrap-stage comparisons.
func runRun(opt options) int {
	src, err := readSource(opt.src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	prog, _, code := checkProgram(opt, src)
	if code != exitOK {
		return code
	}
	exitCode, err := interp.New(prog, os.Stdout).RunMain()
	if err != nil {
		if _, ok := err.(*interp.RuntimeError); ok {
			fmt.Fprintln(os.Stderr, "runtime error:", err)
			return exitUserErr
		}
		fmt.Fprintln(os.Stderr, "internal compiler error:", err)
		return exitICE
	}
	return int(exitCode)
}

func runBootstrap(opt options) int {
	cfgPath := opt.src
	if cfgPath == "" {
		cfgPath = "bmb.bootstrap.yaml"
	}
	cfg, err := bootstrap.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOErr
	}
	report, err := bootstrap.Run(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap failed:", err)
		return exitUserErr
	}
	fmt.Print(report.Summary())
	if !report.OK() {
		return exitUserErr
	}
	return exitOK
}
