// Package diag implements BMB's diagnostic taxonomy and source-snippet
// reporting: stable phase-prefixed codes (LEX###, PAR###, TYP###, …) and
// colorized, caret-annotated rendering of collected diagnostics sorted by
// span start.
package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"bmb/internal/token"
)

// Phase identifies which compiler stage raised a diagnostic.
type Phase int

const (
	Lex Phase = iota
	Parse
	Type
	MIR
	Emitter
	Internal
)

var phaseNames = [...]string{"lex", "parse", "type", "mir", "emitter", "internal"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

var phaseCodePrefix = [...]string{"LEX", "PAR", "TYP", "MIR", "EMT", "ICE"}

// Kind is a stable, named error condition within a phase.
type Kind string

const (
	// LexError
	UnknownCharacter  Kind = "UnknownCharacter"
	UnterminatedString Kind = "UnterminatedString"
	InvalidEscape     Kind = "InvalidEscape"
	InvalidNumber     Kind = "InvalidNumber"

	// ParseError
	UnexpectedToken Kind = "UnexpectedToken"
	ExpectedToken   Kind = "ExpectedToken"
	MalformedItem   Kind = "MalformedItem"

	// TypeError
	TypeMismatch     Kind = "TypeMismatch"
	UndefinedVariable Kind = "UndefinedVariable"
	UndefinedType    Kind = "UndefinedType"
	ArityMismatch    Kind = "ArityMismatch"
	AmbiguousGeneric Kind = "AmbiguousGeneric"
	TraitNotSatisfied Kind = "TraitNotSatisfied"
	AmbiguousMethod  Kind = "AmbiguousMethod"
	MethodNotFound   Kind = "MethodNotFound"
	NonBoolContract  Kind = "NonBoolContract"
	NonExhaustiveMatch Kind = "NonExhaustiveMatch"

	// MIRError (debug builds only)
	NonSSAForm        Kind = "NonSSAForm"
	MissingTerminator Kind = "MissingTerminator"

	// EmitterError
	UnsupportedConstruct Kind = "UnsupportedConstruct"

	// InternalCompilerError
	InvariantViolation Kind = "InvariantViolation"

	// I/O, not part of the phase taxonomy but reported the same way.
	ReadFailed  Kind = "ReadFailed"
	WriteFailed Kind = "WriteFailed"
)

// kindOrdinal assigns each kind a stable per-phase numeric suffix so codes
// never reorder across releases even as new kinds are appended elsewhere in
// this file.
var kindOrdinal = map[Kind]int{
	UnknownCharacter:   1,
	UnterminatedString: 2,
	InvalidEscape:      3,
	InvalidNumber:      4,

	UnexpectedToken: 1,
	ExpectedToken:   2,
	MalformedItem:   3,

	TypeMismatch:       1,
	UndefinedVariable:  2,
	UndefinedType:      3,
	ArityMismatch:      4,
	AmbiguousGeneric:   5,
	TraitNotSatisfied:  6,
	AmbiguousMethod:    7,
	MethodNotFound:     8,
	NonBoolContract:    9,
	NonExhaustiveMatch: 10,

	NonSSAForm:        1,
	MissingTerminator: 2,

	UnsupportedConstruct: 1,

	InvariantViolation: 1,
}

// Code returns the stable phase-prefixed code, e.g. "TYP005".
func Code(phase Phase, kind Kind) string {
	n := kindOrdinal[kind]
	prefix := "GEN"
	if int(phase) < len(phaseCodePrefix) {
		prefix = phaseCodePrefix[phase]
	}
	return fmt.Sprintf("%s%03d", prefix, n)
}

// Severity distinguishes fatal diagnostics (which abort a pass's
// contribution to the output) from warnings that never affect the emitted
// byte sequence.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one reported condition, always carrying a source span.
type Diagnostic struct {
	Phase    Phase
	Kind     Kind
	Severity Severity
	Message  string
	Span     token.Span
}

func (d Diagnostic) Code() string { return Code(d.Phase, d.Kind) }

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: [%s] %s (line %d:%d)", d.Severity, d.Code(), d.Message, d.Span.Line, d.Span.Col)
}

// Report collects diagnostics across a single compile. Diagnostics are
// appended in discovery order and sorted by span start only when rendered,
// so collection itself stays allocation-cheap and deterministic.
type Report struct {
	diags []Diagnostic
}

func NewReport() *Report { return &Report{} }

func (r *Report) Add(d Diagnostic) { r.diags = append(r.diags, d) }

func (r *Report) Errorf(phase Phase, kind Kind, span token.Span, format string, args ...interface{}) {
	r.Add(Diagnostic{Phase: phase, Kind: kind, Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) Warnf(phase Phase, kind Kind, span token.Span, format string, args ...interface{}) {
	r.Add(Diagnostic{Phase: phase, Kind: kind, Severity: SeverityWarning, Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasFatal reports whether any collected diagnostic is an error (not just a
// warning); the driver stops after any fatal error in a pass.
func (r *Report) HasFatal() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r *Report) Diagnostics() []Diagnostic { return r.diags }

// Sorted returns diagnostics ordered by span start. The receiver's internal
// order is left untouched.
func (r *Report) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// Print renders every diagnostic Ariadne-style: a colored level tag, the
// message, and a source snippet with a caret under the offending column.
// filename is used only for display.
func Print(w io.Writer, filename, src string, r *Report) {
	lines := strings.Split(src, "\n")
	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow, color.Bold)
	locColor := color.New(color.FgCyan)
	caretColor := color.New(color.FgRed, color.Bold)

	for _, d := range r.Sorted() {
		tag := errColor
		if d.Severity == SeverityWarning {
			tag = warnColor
		}
		tag.Fprintf(w, "%s", d.Severity.String())
		fmt.Fprintf(w, "[%s]: %s\n", d.Code(), d.Message)
		locColor.Fprintf(w, "  --> %s:%d:%d\n", filename, d.Span.Line, d.Span.Col)
		if d.Span.Line-1 >= 0 && d.Span.Line-1 < len(lines) {
			src := lines[d.Span.Line-1]
			fmt.Fprintf(w, "   | %s\n", src)
			col := d.Span.Col
			if col < 1 {
				col = 1
			}
			fmt.Fprintf(w, "   | %s", strings.Repeat(" ", col-1))
			caretColor.Fprintln(w, "^")
		}
	}
}
