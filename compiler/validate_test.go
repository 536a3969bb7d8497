package compiler

import (
	"strings"
	"testing"

	"github.com/helixlab/helix/vm"
)

func mustTokenize(t *testing.T, src string) []vm.Token {
	t.Helper()
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	return tokens
}

func TestValidateStructureGoodGenome(t *testing.T) {
	errs := ValidateStructure(mustTokenize(t, "ATG GAA AAT GGA TAA"))
	if len(errs) != 0 {
		t.Errorf("diagnostics = %v, want none", errs)
	}
}

func TestValidateStructureMissingStart(t *testing.T) {
	errs := ValidateStructure(mustTokenize(t, "GAA AAT GGA TAA"))
	if len(errs) != 1 || errs[0].Severity != SeverityError {
		t.Fatalf("diagnostics = %v, want one error", errs)
	}
	if !strings.Contains(errs[0].Message, "START") {
		t.Errorf("message = %q, want mention of START", errs[0].Message)
	}
}

func TestValidateStructureMissingStop(t *testing.T) {
	errs := ValidateStructure(mustTokenize(t, "ATG GAA AAT GGA"))
	if len(errs) != 1 || errs[0].Severity != SeverityError {
		t.Fatalf("diagnostics = %v, want one error", errs)
	}
	if !strings.Contains(errs[0].Message, "STOP") {
		t.Errorf("message = %q, want mention of STOP", errs[0].Message)
	}
}

func TestValidateStructurePushOperandIsNotStop(t *testing.T) {
	// The TAA after the first GAA is PUSH data, not a STOP; the genome
	// still needs a real STOP, which the final TAA provides.
	errs := ValidateStructure(mustTokenize(t, "ATG GAA TAA GGA TAA"))
	if len(errs) != 0 {
		t.Errorf("diagnostics = %v, want none", errs)
	}
}

func TestValidateStructureUnreachableWarnings(t *testing.T) {
	errs := ValidateStructure(mustTokenize(t, "ATG TAA GGA GGC"))
	if len(errs) != 2 {
		t.Fatalf("diagnostics = %v, want 2 warnings", errs)
	}
	for _, e := range errs {
		if e.Severity != SeverityWarning {
			t.Errorf("severity = %s, want warning", e.Severity)
		}
		if !strings.Contains(e.Message, "unreachable") {
			t.Errorf("message = %q, want unreachable", e.Message)
		}
	}
}

func TestValidateStructureEmpty(t *testing.T) {
	errs := ValidateStructure(nil)
	if len(errs) != 1 || errs[0].Severity != SeverityError {
		t.Errorf("diagnostics = %v, want one error", errs)
	}
}

func TestValidateFrame(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"aligned", "ATG GAA AAT TAA", 0},
		{"one trailing base", "ATG GAA AAT TAA G", 1},
		{"two trailing bases", "ATG GAA AAT TAA GG", 1},
		{"comments ignored", "ATG TAA ; GG", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateFrame(tt.src)
			if len(errs) != tt.want {
				t.Errorf("ValidateFrame(%q) = %v, want %d warning(s)", tt.src, errs, tt.want)
			}
			for _, e := range errs {
				if e.Severity != SeverityWarning {
					t.Errorf("severity = %s, want warning", e.Severity)
				}
			}
		})
	}
}

func TestCheckCollectsEverything(t *testing.T) {
	tokens, diags, err := Check("ATG GAA AAT GGA TAA G")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(tokens) != 5 {
		t.Errorf("got %d tokens, want 5", len(tokens))
	}
	if len(diags) != 1 || diags[0].Severity != SeverityWarning {
		t.Errorf("diagnostics = %v, want one frame warning", diags)
	}
}
