package vm

import "testing"

func TestInstructionTableTotality(t *testing.T) {
	for v := 0; v < 64; v++ {
		c := CodonFromValue(StackValue(v))
		op, ok := Decode(c)
		if !ok {
			t.Fatalf("Decode(%s) not ok", c)
		}
		if _, known := opcodeTable[op]; !known {
			t.Errorf("codon %s decodes to opcode %d with no metadata", c, op)
		}
	}
}

func TestInstructionTableAnchors(t *testing.T) {
	tests := []struct {
		codon Codon
		want  Opcode
	}{
		{"ATG", OpStart},
		{"TAA", OpStop},
		{"TAG", OpStop},
		{"TGA", OpStop},
		{"GAA", OpPush},
		{"GGA", OpCircle},
		{"CGA", OpAdd},
		{"CGT", OpDiv},
		{"TCG", OpSaveState},
		{"TCT", OpRestoreState},
		{"TCA", OpLoop},
		{"TGC", OpNoise},
		{"CCA", OpColor},
		{"AUG", OpStart}, // U spelling decodes identically
	}
	for _, tt := range tests {
		got, ok := Decode(tt.codon)
		if !ok || got != tt.want {
			t.Errorf("Decode(%s) = %s, want %s", tt.codon, got, tt.want)
		}
	}
}

func TestDecodeRejectsMalformedCodons(t *testing.T) {
	for _, c := range []Codon{"", "AT", "ATGA", "XYZ"} {
		if _, ok := Decode(c); ok {
			t.Errorf("Decode(%q) ok, want rejection", c)
		}
	}
}

func TestStackArity(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpStart, 0},
		{OpStop, 0},
		{OpNop, 0},
		{OpPush, 0},
		{OpSaveState, 0},
		{OpRestoreState, 0},
		{OpCircle, 1},
		{OpLine, 1},
		{OpTriangle, 1},
		{OpRotate, 1},
		{OpScale, 1},
		{OpDup, 1},
		{OpPop, 1},
		{OpRect, 2},
		{OpEllipse, 2},
		{OpTranslate, 2},
		{OpSetPos, 2},
		{OpSwap, 2},
		{OpAdd, 2},
		{OpDiv, 2},
		{OpEq, 2},
		{OpLt, 2},
		{OpLoop, 2},
		{OpNoise, 2},
		{OpColor, 3},
	}
	for _, tt := range tests {
		if got := tt.op.StackArity(); got != tt.want {
			t.Errorf("StackArity(%s) = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestSynonymousCodons(t *testing.T) {
	// Drawing opcodes carry the most redundancy, like the real code's
	// four-fold degenerate families.
	tests := []struct {
		op    Opcode
		count int
	}{
		{OpPush, 4},
		{OpCircle, 4},
		{OpRect, 4},
		{OpLine, 4},
		{OpTriangle, 4},
		{OpEllipse, 4},
		{OpColor, 4},
		{OpStop, 3},
		{OpStart, 1},
	}
	total := 0
	for _, tt := range tests {
		if got := len(SynonymsOf(tt.op)); got != tt.count {
			t.Errorf("SynonymsOf(%s) has %d codons, want %d", tt.op, got, tt.count)
		}
	}
	for op := range opcodeTable {
		total += len(SynonymsOf(op))
	}
	if total != 64 {
		t.Errorf("opcode synonym counts sum to %d, want 64", total)
	}
}
