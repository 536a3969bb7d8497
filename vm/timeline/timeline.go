// Package timeline holds executed runs for scrubbing and diffing: an
// index-addressable arena over the snapshot sequence a run produced, plus a
// deterministic wire encoding for saving and sharing runs.
package timeline

import (
	"crypto/sha256"

	"github.com/helixlab/helix/vm"
)

// Timeline is an append-only, index-addressable view of one run's snapshot
// sequence. Snapshots are immutable; a Timeline can be shared freely for
// read-only scrubbing without cloning on every access.
type Timeline struct {
	snaps []vm.Snapshot
}

// New wraps a snapshot sequence. The Timeline takes ownership of the slice.
func New(snaps []vm.Snapshot) *Timeline {
	return &Timeline{snaps: snaps}
}

// Len returns the number of snapshots.
func (t *Timeline) Len() int {
	return len(t.snaps)
}

// At returns the snapshot at index i.
func (t *Timeline) At(i int) (vm.Snapshot, bool) {
	if i < 0 || i >= len(t.snaps) {
		return vm.Snapshot{}, false
	}
	return t.snaps[i], true
}

// Last returns the final snapshot of the run.
func (t *Timeline) Last() (vm.Snapshot, bool) {
	if len(t.snaps) == 0 {
		return vm.Snapshot{}, false
	}
	return t.snaps[len(t.snaps)-1], true
}

// Snapshots returns the underlying sequence. Callers must treat it as
// read-only.
func (t *Timeline) Snapshots() []vm.Snapshot {
	return t.snaps
}

// DivergeIndex returns the first instruction index at which two runs differ,
// the core of mutation-diff visualization: everything before the index is
// common history, everything after is the mutation's consequence. It returns
// -1 when the runs are identical, and the shorter length when one run is a
// strict prefix of the other.
func DivergeIndex(a, b *Timeline) int {
	n := len(a.snaps)
	if len(b.snaps) < n {
		n = len(b.snaps)
	}
	for i := 0; i < n; i++ {
		if !a.snaps[i].Equal(b.snaps[i]) {
			return i
		}
	}
	if len(a.snaps) != len(b.snaps) {
		return n
	}
	return -1
}

// Digest returns the sha256 of a token sequence's codon text, used to bind a
// saved timeline to the genome that produced it.
func Digest(tokens []vm.Token) [32]byte {
	h := sha256.New()
	for _, tok := range tokens {
		h.Write([]byte(tok.Text))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
