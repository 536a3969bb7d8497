package vm

import "fmt"

// ---------------------------------------------------------------------------
// Codons: the atomic unit of decoding
// ---------------------------------------------------------------------------

// A Codon is a triplet of nucleotide bases (A, C, G, T; U is accepted as a
// synonym for T). Codons are the atomic unit of the genome language: each one
// decodes either to an opcode through the instruction table, or to a 6-bit
// numeric literal through its base-4 digits.
type Codon string

// StackValue is a 6-bit unsigned integer in [0, 63], the only numeric type
// the machine knows. Literals enter the value stack by decoding a codon's
// three base digits big-endian in base 4.
type StackValue uint8

// StackValueMax is the largest representable stack value.
const StackValueMax StackValue = 63

// baseDigit maps a base letter to its 2-bit digit: A=0, C=1, G=2, T/U=3.
func baseDigit(b byte) (uint8, bool) {
	switch b {
	case 'A':
		return 0, true
	case 'C':
		return 1, true
	case 'G':
		return 2, true
	case 'T', 'U':
		return 3, true
	}
	return 0, false
}

// digitBase is the canonical spelling for each 2-bit digit.
var digitBase = [4]byte{'A', 'C', 'G', 'T'}

// Valid reports whether c is exactly three recognized bases.
func (c Codon) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if _, ok := baseDigit(c[i]); !ok {
			return false
		}
	}
	return true
}

// Value decodes the codon as a numeric literal: d0*16 + d1*4 + d2, where the
// digits are read big-endian in base 4. The result is always in [0, 63].
// Invalid codons decode to 0; callers that care should check Valid first.
func (c Codon) Value() StackValue {
	if len(c) != 3 {
		return 0
	}
	var v uint8
	for i := 0; i < 3; i++ {
		d, ok := baseDigit(c[i])
		if !ok {
			return 0
		}
		v = v<<2 | d
	}
	return StackValue(v)
}

// CodonFromValue returns the canonical spelling (using T, never U) of the
// codon whose literal value is v. It is the inverse of Value over [0, 63].
func CodonFromValue(v StackValue) Codon {
	var b [3]byte
	b[0] = digitBase[(v>>4)&3]
	b[1] = digitBase[(v>>2)&3]
	b[2] = digitBase[v&3]
	return Codon(b[:])
}

// String implements the Stringer interface.
func (c Codon) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

// Token is one codon as it appeared in a genome, created once by the
// tokenizer and never mutated.
type Token struct {
	Text   Codon // the three-base triplet, uppercased
	Offset int   // character offset in the cleaned source (comments and whitespace stripped)
	Line   int   // 1-indexed line of the codon's first base in the original source
}

// String implements the Stringer interface.
func (t Token) String() string {
	return fmt.Sprintf("%s@%d:%d", t.Text, t.Line, t.Offset)
}
