package vm

import "testing"

func TestCodonValueFormula(t *testing.T) {
	tests := []struct {
		codon Codon
		want  StackValue
	}{
		{"AAA", 0},
		{"AAC", 1},
		{"AAT", 3},
		{"ATG", 14},
		{"GAA", 32},
		{"TAA", 48},
		{"TTT", 63},
		{"UUU", 63}, // U is a synonym for T
		{"AUG", 14},
	}
	for _, tt := range tests {
		if got := tt.codon.Value(); got != tt.want {
			t.Errorf("Value(%s) = %d, want %d", tt.codon, got, tt.want)
		}
	}
}

func TestCodonValueBijection(t *testing.T) {
	seen := make(map[StackValue]Codon)
	for v := 0; v < 64; v++ {
		c := CodonFromValue(StackValue(v))
		if !c.Valid() {
			t.Fatalf("CodonFromValue(%d) = %q, not a valid codon", v, c)
		}
		got := c.Value()
		if got != StackValue(v) {
			t.Errorf("round trip %d -> %s -> %d", v, c, got)
		}
		if prev, dup := seen[got]; dup {
			t.Errorf("value %d produced by both %s and %s", got, prev, c)
		}
		seen[got] = c
	}
	if len(seen) != 64 {
		t.Errorf("expected 64 distinct values, got %d", len(seen))
	}
}

func TestCodonValid(t *testing.T) {
	tests := []struct {
		codon Codon
		want  bool
	}{
		{"ATG", true},
		{"UUU", true},
		{"AT", false},
		{"ATGA", false},
		{"AXG", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.codon.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.codon, got, tt.want)
		}
	}
}
