package compiler

import (
	"fmt"

	"github.com/helixlab/helix/vm"
)

// ---------------------------------------------------------------------------
// Structural validation
// ---------------------------------------------------------------------------

// Severity classifies a ParseError. Errors describe genomes that will not
// behave as written; warnings flag pedagogical issues that do not block
// execution.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String implements the Stringer interface.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// ParseError is a structural or frame diagnostic. ParseErrors are collected
// and returned, never thrown: the UI decides whether to block on them.
type ParseError struct {
	Severity Severity
	Message  string
	Offset   int // cleaned-source offset of the offending codon, -1 if n/a
	Line     int // 1-indexed source line, 0 if n/a
}

func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Severity, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Severity, e.Message)
}

// ValidateStructure checks start/stop placement. It reports an error when
// the first token does not decode to START, an error when no STOP token
// exists, and a warning for every token after the first STOP (unreachable,
// the genome equivalent of dead code).
func ValidateStructure(tokens []vm.Token) []ParseError {
	var errs []ParseError

	if len(tokens) == 0 {
		errs = append(errs, ParseError{
			Severity: SeverityError,
			Message:  "empty genome: no codons to execute",
			Offset:   -1,
		})
		return errs
	}

	if op, _ := vm.Decode(tokens[0].Text); op != vm.OpStart {
		errs = append(errs, ParseError{
			Severity: SeverityError,
			Message:  fmt.Sprintf("genome must begin with a START codon (ATG), found %s (%s)", tokens[0].Text, op),
			Offset:   tokens[0].Offset,
			Line:     tokens[0].Line,
		})
	}

	stopIdx := -1
	for i := 0; i < len(tokens); i++ {
		op, _ := vm.Decode(tokens[i].Text)
		if op == vm.OpStop {
			stopIdx = i
			break
		}
		// PUSH consumes the following codon as data; it can never be a STOP.
		if op == vm.OpPush {
			i++
		}
	}

	if stopIdx < 0 {
		errs = append(errs, ParseError{
			Severity: SeverityError,
			Message:  "genome has no STOP codon (TAA, TAG or TGA); execution will run off the end",
			Offset:   -1,
		})
		return errs
	}

	for _, tok := range tokens[stopIdx+1:] {
		errs = append(errs, ParseError{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("unreachable codon %s after STOP", tok.Text),
			Offset:   tok.Offset,
			Line:     tok.Line,
		})
	}

	return errs
}

// ValidateFrame checks triplet alignment: a warning when the count of
// significant base characters is not divisible by 3. A frameshift changes
// the meaning of every downstream codon, which is exactly the lesson the
// warning exists to teach.
func ValidateFrame(source string) []ParseError {
	n := significantCount(source)
	if n%3 == 0 {
		return nil
	}
	return []ParseError{{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("frame misalignment: %d significant bases is not a multiple of 3; %d trailing base(s) are ignored", n, n%3),
		Offset:   -1,
	}}
}

// Check is the one-call convenience used by the CLI and servers: tokenize,
// then collect structure and frame diagnostics. The returned error is only
// a TokenizeError; ParseErrors never abort.
func Check(source string) ([]vm.Token, []ParseError, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, nil, err
	}
	diags := ValidateStructure(tokens)
	diags = append(diags, ValidateFrame(source)...)
	return tokens, diags, nil
}
