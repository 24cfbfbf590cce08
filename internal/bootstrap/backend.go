package bootstrap

import (
	"bytes"

	"bmb/internal/interp"
	"bmb/internal/parser"
)

// Backend stands in for the external native code generator/linker the
// compiler core hands emitted IR to. Compiling and linking a real
// executable from LLVM IR text needs a linker toolchain this repo does not
// carry, so the bootstrap driver is built against this interface and
// exercised here with FakeBackend rather than a real one; a production
// deployment supplies a Backend that shells out to a real linker.
type Backend interface {
	// Run executes the program compiled from src and returns its stdout
	// and exit code.
	Run(src string) (stdout string, exitCode int64, err error)
}

// FakeBackend interprets src directly with internal/interp instead of
// compiling and linking it, standing in for "compile IR, link, execute
// the resulting binary" well enough to drive golden tests and the
// fixed-point harness without an external backend installed.
type FakeBackend struct{}

func (FakeBackend) Run(src string) (string, int64, error) {
	prog, rep := parser.Parse(src)
	if rep.HasFatal() {
		return "", 0, rep.Sorted()[0]
	}
	var buf bytes.Buffer
	code, err := interp.New(prog, &buf).RunMain()
	if err != nil {
		return buf.String(), 0, err
	}
	return buf.String(), code, nil
}
