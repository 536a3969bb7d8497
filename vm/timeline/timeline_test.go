package timeline

import (
	"strings"
	"testing"

	"github.com/helixlab/helix/vm"
)

func genomeTokens(src string) []vm.Token {
	fields := strings.Fields(src)
	tokens := make([]vm.Token, len(fields))
	for i, f := range fields {
		tokens[i] = vm.Token{Text: vm.Codon(f), Offset: i * 3, Line: 1}
	}
	return tokens
}

func runGenome(t *testing.T, src string) *Timeline {
	t.Helper()
	snaps, err := vm.NewEngine(nil).Run(genomeTokens(src))
	if err != nil {
		t.Fatalf("run %q failed: %v", src, err)
	}
	return New(snaps)
}

func TestTimelineAccess(t *testing.T) {
	tl := runGenome(t, "ATG GAA AAT GGA TAA")
	if tl.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tl.Len())
	}
	first, ok := tl.At(0)
	if !ok || first.Op != vm.OpStart {
		t.Errorf("At(0) = %v, %v, want START snapshot", first.Op, ok)
	}
	last, ok := tl.Last()
	if !ok || last.Op != vm.OpStop {
		t.Errorf("Last() = %v, %v, want STOP snapshot", last.Op, ok)
	}
	if _, ok := tl.At(-1); ok {
		t.Error("At(-1) succeeded")
	}
	if _, ok := tl.At(tl.Len()); ok {
		t.Error("At(Len) succeeded")
	}
}

func TestTimelineEmpty(t *testing.T) {
	tl := New(nil)
	if tl.Len() != 0 {
		t.Errorf("Len = %d, want 0", tl.Len())
	}
	if _, ok := tl.Last(); ok {
		t.Error("Last() on empty timeline succeeded")
	}
}

func TestDivergeIndexIdentical(t *testing.T) {
	a := runGenome(t, "ATG GAA AAT GGA TAA")
	b := runGenome(t, "ATG GAA AAT GGA TAA")
	if got := DivergeIndex(a, b); got != -1 {
		t.Errorf("DivergeIndex = %d, want -1", got)
	}
}

func TestDivergeIndexPointMutation(t *testing.T) {
	// The operand codon differs, so the runs split at the PUSH.
	a := runGenome(t, "ATG GAA AAT GGA TAA")
	b := runGenome(t, "ATG GAA ACC GGA TAA")
	if got := DivergeIndex(a, b); got != 1 {
		t.Errorf("DivergeIndex = %d, want 1", got)
	}
}

func TestDivergeIndexPrefix(t *testing.T) {
	a := runGenome(t, "ATG GAA AAT TAA")
	b := runGenome(t, "ATG GAA AAT GGA TAA")
	if got := DivergeIndex(a, b); got != 2 {
		t.Errorf("DivergeIndex = %d, want 2", got)
	}
}

func TestWireRoundTrip(t *testing.T) {
	src := "ATG GAA AAT GGA TCG GAA ACC AGA TCT TAA"
	tokens := genomeTokens(src)
	snaps, err := vm.NewEngine(nil).Run(tokens)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	tl := New(snaps)
	digest := Digest(tokens)

	data, err := Marshal(tl, digest)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, gotDigest, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if gotDigest != digest {
		t.Error("digest did not survive the round trip")
	}
	if back.Len() != tl.Len() {
		t.Fatalf("Len = %d, want %d", back.Len(), tl.Len())
	}
	if got := DivergeIndex(tl, back); got != -1 {
		t.Errorf("decoded timeline diverges at %d", got)
	}
}

func TestWireDeterministic(t *testing.T) {
	tl := runGenome(t, "ATG GAA AAT GGA TAA")
	digest := Digest(genomeTokens("ATG GAA AAT GGA TAA"))
	a, err := Marshal(tl, digest)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := Marshal(tl, digest)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("canonical encoding produced different bytes for the same timeline")
	}
}

func TestWireVersionMismatch(t *testing.T) {
	env := Envelope{Version: WireVersion + 1}
	data, err := cborEncMode.Marshal(&env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if _, _, err := Unmarshal(data); err == nil {
		t.Error("Unmarshal accepted an unsupported wire version")
	}
}

func TestWireRejectsGarbage(t *testing.T) {
	if _, _, err := Unmarshal([]byte("not cbor at all")); err == nil {
		t.Error("Unmarshal accepted garbage input")
	}
}

func TestDigestDistinguishesGenomes(t *testing.T) {
	a := Digest(genomeTokens("ATG TAA"))
	b := Digest(genomeTokens("ATG GGA TAA"))
	if a == b {
		t.Error("distinct genomes share a digest")
	}
	if a != Digest(genomeTokens("ATG TAA")) {
		t.Error("digest is not deterministic")
	}
}
