package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction formats the instruction at index i of tokens and
// returns the listing line plus the number of tokens consumed (2 for PUSH
// and its operand, otherwise 1).
func DisassembleInstruction(tokens []Token, i int) (string, int) {
	tok := tokens[i]
	op, ok := Decode(tok.Text)
	if !ok {
		return fmt.Sprintf("%04d  %s  ???", i, tok.Text), 1
	}

	if op == OpPush {
		if i+1 >= len(tokens) {
			return fmt.Sprintf("%04d  %s  PUSH <missing operand>", i, tok.Text), 1
		}
		operand := tokens[i+1]
		return fmt.Sprintf("%04d  %s %s  PUSH %d", i, tok.Text, operand.Text, operand.Text.Value()), 2
	}

	return fmt.Sprintf("%04d  %s  %s", i, tok.Text, op.Name()), 1
}

// Disassemble returns a full program listing, one executed instruction per
// line. Operand codons of PUSH appear on the PUSH line, mirroring how the
// engine consumes them.
func Disassemble(tokens []Token) string {
	var b strings.Builder
	for i := 0; i < len(tokens); {
		line, consumed := DisassembleInstruction(tokens, i)
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		i += consumed
	}
	return b.String()
}
