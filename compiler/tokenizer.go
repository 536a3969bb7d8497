// Package compiler turns raw genome text into the token sequence the engine
// executes, and collects the structural diagnostics a teaching UI surfaces.
package compiler

import (
	"fmt"

	"github.com/helixlab/helix/vm"
)

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

// TokenizeError reports a significant character that is not a nucleotide
// base. Comments and whitespace never trigger it; anything else does.
type TokenizeError struct {
	Char   rune
	Offset int // byte offset in the original source
	Line   int // 1-indexed line in the original source
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("invalid character %q at line %d (offset %d): genomes use only A, C, G, T, U", e.Char, e.Line, e.Offset)
}

// Tokenize converts genome text into codon tokens. It strips `;`-to-end-of-
// line comments and all whitespace, uppercases the rest, and groups the
// remaining bases into consecutive 3-character windows. A trailing remainder
// of 1-2 bases is dropped here; ValidateFrame flags it as a frame warning.
//
// Token offsets index the cleaned source (what remains after stripping);
// token lines are 1-indexed lines of the original source. Unknown triplets
// are not an error at this stage: the instruction table is total, and
// structural checks live in ValidateStructure.
func Tokenize(source string) ([]vm.Token, error) {
	var (
		tokens  []vm.Token
		buf     [3]byte
		bufLen  int
		bufLine int
		cleaned int // count of significant chars emitted so far
		line    = 1
		comment bool
	)

	for off, r := range source {
		if r == '\n' {
			line++
			comment = false
			continue
		}
		if comment {
			continue
		}
		if r == ';' {
			comment = true
			continue
		}
		if isSpace(r) {
			continue
		}

		b, ok := upperBase(r)
		if !ok {
			return nil, &TokenizeError{Char: r, Offset: off, Line: line}
		}

		if bufLen == 0 {
			bufLine = line
		}
		buf[bufLen] = b
		bufLen++
		cleaned++

		if bufLen == 3 {
			tokens = append(tokens, vm.Token{
				Text:   vm.Codon(buf[:]),
				Offset: cleaned - 3,
				Line:   bufLine,
			})
			bufLen = 0
		}
	}

	// A partial trailing codon is a frame misalignment, not a token.
	return tokens, nil
}

// isSpace matches the whitespace the tokenizer discards as separators.
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}

// upperBase uppercases r and reports whether it is a nucleotide letter.
func upperBase(r rune) (byte, bool) {
	switch r {
	case 'a', 'A':
		return 'A', true
	case 'c', 'C':
		return 'C', true
	case 'g', 'G':
		return 'G', true
	case 't', 'T':
		return 'T', true
	case 'u', 'U':
		return 'U', true
	}
	return 0, false
}

// significantCount returns the number of base characters that survive
// comment and whitespace stripping. Invalid characters also count; they are
// reported by Tokenize, not here.
func significantCount(source string) int {
	n := 0
	comment := false
	for _, r := range source {
		switch {
		case r == '\n':
			comment = false
		case comment:
		case r == ';':
			comment = true
		case !isSpace(r):
			n++
		}
	}
	return n
}
