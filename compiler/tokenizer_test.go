package compiler

import (
	"errors"
	"testing"

	"github.com/helixlab/helix/vm"
)

func TestTokenizeBasic(t *testing.T) {
	tokens, err := Tokenize("ATG GAA AAT GGA TAA")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []vm.Codon{"ATG", "GAA", "AAT", "GGA", "TAA"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Errorf("token %d = %s, want %s", i, tokens[i].Text, w)
		}
		if tokens[i].Offset != i*3 {
			t.Errorf("token %d offset = %d, want %d", i, tokens[i].Offset, i*3)
		}
		if tokens[i].Line != 1 {
			t.Errorf("token %d line = %d, want 1", i, tokens[i].Line)
		}
	}
}

func TestTokenizeStripsCommentsEverywhere(t *testing.T) {
	src := "; leading comment\n" +
		"ATG ; trailing comment with bases GGG TTT\n" +
		"GAA AAT ; another\n" +
		"GGA\n" +
		"TAA ; end"
	tokens, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []vm.Codon{"ATG", "GAA", "AAT", "GGA", "TAA"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Errorf("token %d = %s, want %s", i, tokens[i].Text, w)
		}
	}
	wantLines := []int{2, 3, 3, 4, 5}
	for i, w := range wantLines {
		if tokens[i].Line != w {
			t.Errorf("token %d line = %d, want %d", i, tokens[i].Line, w)
		}
	}
}

func TestTokenizeIsCaseInsensitiveAndAcceptsU(t *testing.T) {
	tokens, err := Tokenize("aug gaa aat taa")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if tokens[0].Text != "AUG" {
		t.Errorf("first token = %s, want AUG", tokens[0].Text)
	}
	if op, _ := vm.Decode(tokens[0].Text); op != vm.OpStart {
		t.Errorf("AUG decodes to %s, want START", op)
	}
}

func TestTokenizeSplitsAcrossWhitespace(t *testing.T) {
	// Codon boundaries ignore separators entirely: a codon may span lines.
	tokens, err := Tokenize("AT\nG GA\tA A A T")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []vm.Codon{"ATG", "GAA", "AAT"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Errorf("token %d = %s, want %s", i, tokens[i].Text, w)
		}
	}
}

func TestTokenizeIdempotentOnCleanInput(t *testing.T) {
	clean := "ATGGAAAATGGATAA"
	a, err := Tokenize(clean)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	b, err := Tokenize(clean)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("token counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("token %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestTokenizeDropsTrailingRemainder(t *testing.T) {
	tokens, err := Tokenize("ATG GA")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Text != "ATG" {
		t.Errorf("tokens = %v, want just ATG", tokens)
	}
}

func TestTokenizeRejectsInvalidCharacters(t *testing.T) {
	_, err := Tokenize("ATG GXA TAA")
	var terr *TokenizeError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TokenizeError", err)
	}
	if terr.Char != 'X' || terr.Line != 1 {
		t.Errorf("error = %+v, want char X on line 1", terr)
	}
}

func TestTokenizeCommentHidesInvalidCharacters(t *testing.T) {
	if _, err := Tokenize("ATG ; not bases: xyz123!\nTAA"); err != nil {
		t.Errorf("comment content rejected: %v", err)
	}
}
