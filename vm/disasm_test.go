package vm

import (
	"strings"
	"testing"
)

func TestDisassemble(t *testing.T) {
	listing := Disassemble(genomeTokens("ATG GAA AAT GGA TAA"))
	lines := strings.Split(listing, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), listing)
	}
	wants := []string{"START", "PUSH 3", "CIRCLE", "STOP"}
	for i, want := range wants {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}
}

func TestDisassembleTruncatedPush(t *testing.T) {
	listing := Disassemble(genomeTokens("ATG GAA"))
	if !strings.Contains(listing, "missing operand") {
		t.Errorf("listing = %q, want missing-operand marker", listing)
	}
}
