package timeline

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/helixlab/helix/vm"
)

// WireVersion is bumped whenever the envelope layout changes.
const WireVersion = 1

// cborEncMode uses canonical options so the same timeline always encodes to
// the same bytes, which keeps digests and equality checks meaningful.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("timeline: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Envelope is the wire form of a saved run: the snapshot sequence plus the
// digest of the genome that produced it.
type Envelope struct {
	Version      int      `cbor:"1,keyasint"`
	GenomeDigest [32]byte `cbor:"2,keyasint"`
	Snapshots    []Frame  `cbor:"3,keyasint"`
}

// Frame is one snapshot flattened for the wire. It mirrors vm.Snapshot
// without reaching into engine internals, so the wire format can outlive
// refactors of the live state layout.
type Frame struct {
	Codon    string    `cbor:"1,keyasint"`
	Offset   int       `cbor:"2,keyasint"`
	Line     int       `cbor:"3,keyasint"`
	Op       byte      `cbor:"4,keyasint"`
	Index    int       `cbor:"5,keyasint"`
	X        float64   `cbor:"6,keyasint"`
	Y        float64   `cbor:"7,keyasint"`
	Rotation float64   `cbor:"8,keyasint"`
	Scale    float64   `cbor:"9,keyasint"`
	H        float64   `cbor:"10,keyasint"`
	S        float64   `cbor:"11,keyasint"`
	L        float64   `cbor:"12,keyasint"`
	Stack    []uint8   `cbor:"13,keyasint"`
	Saved    []SavedTF `cbor:"14,keyasint"`
	IP       int       `cbor:"15,keyasint"`
	Executed int       `cbor:"16,keyasint"`
	Rand     uint64    `cbor:"17,keyasint"`
}

// SavedTF is one SAVE_STATE entry on the wire.
type SavedTF struct {
	X        float64 `cbor:"1,keyasint"`
	Y        float64 `cbor:"2,keyasint"`
	Rotation float64 `cbor:"3,keyasint"`
	Scale    float64 `cbor:"4,keyasint"`
	H        float64 `cbor:"5,keyasint"`
	S        float64 `cbor:"6,keyasint"`
	L        float64 `cbor:"7,keyasint"`
}

// Marshal serializes a timeline and its genome digest to canonical CBOR.
func Marshal(t *Timeline, genomeDigest [32]byte) ([]byte, error) {
	env := Envelope{
		Version:      WireVersion,
		GenomeDigest: genomeDigest,
		Snapshots:    make([]Frame, 0, t.Len()),
	}
	for _, s := range t.snaps {
		env.Snapshots = append(env.Snapshots, frameOf(s))
	}
	return cborEncMode.Marshal(&env)
}

// Unmarshal deserializes a saved timeline.
func Unmarshal(data []byte) (*Timeline, [32]byte, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, [32]byte{}, fmt.Errorf("timeline: unmarshal envelope: %w", err)
	}
	if env.Version != WireVersion {
		return nil, [32]byte{}, fmt.Errorf("timeline: unsupported wire version %d", env.Version)
	}
	t := &Timeline{snaps: make([]vm.Snapshot, 0, len(env.Snapshots))}
	for _, f := range env.Snapshots {
		t.snaps = append(t.snaps, f.snapshot())
	}
	return t, env.GenomeDigest, nil
}

// frameOf flattens a snapshot for the wire.
func frameOf(s vm.Snapshot) Frame {
	f := Frame{
		Codon:    string(s.Token.Text),
		Offset:   s.Token.Offset,
		Line:     s.Token.Line,
		Op:       byte(s.Op),
		Index:    s.Index,
		X:        s.State.Pos.X,
		Y:        s.State.Pos.Y,
		Rotation: s.State.Rotation,
		Scale:    s.State.Scale,
		H:        s.State.Color.H,
		S:        s.State.Color.S,
		L:        s.State.Color.L,
		Stack:    make([]uint8, len(s.State.Stack)),
		IP:       s.State.IP,
		Executed: s.State.Executed,
		Rand:     s.State.Rand,
	}
	for i, v := range s.State.Stack {
		f.Stack[i] = uint8(v)
	}
	for _, tf := range s.State.Saved {
		f.Saved = append(f.Saved, SavedTF{
			X: tf.Pos.X, Y: tf.Pos.Y,
			Rotation: tf.Rotation, Scale: tf.Scale,
			H: tf.Color.H, S: tf.Color.S, L: tf.Color.L,
		})
	}
	return f
}

// snapshot rebuilds the in-memory form of a wire frame.
func (f Frame) snapshot() vm.Snapshot {
	s := vm.Snapshot{
		Token: vm.Token{Text: vm.Codon(f.Codon), Offset: f.Offset, Line: f.Line},
		Op:    vm.Opcode(f.Op),
		Index: f.Index,
	}
	s.State = vm.MachineState{
		Transform: vm.Transform{
			Pos:      vm.Point{X: f.X, Y: f.Y},
			Rotation: f.Rotation,
			Scale:    f.Scale,
			Color:    vm.HSL{H: f.H, S: f.S, L: f.L},
		},
		IP:       f.IP,
		Executed: f.Executed,
		Rand:     f.Rand,
		LastOp:   vm.Opcode(f.Op),
	}
	if len(f.Stack) > 0 {
		s.State.Stack = make([]vm.StackValue, len(f.Stack))
		for i, v := range f.Stack {
			s.State.Stack[i] = vm.StackValue(v)
		}
	}
	for _, tf := range f.Saved {
		s.State.Saved = append(s.State.Saved, vm.Transform{
			Pos:      vm.Point{X: tf.X, Y: tf.Y},
			Rotation: tf.Rotation,
			Scale:    tf.Scale,
			Color:    vm.HSL{H: tf.H, S: tf.S, L: tf.L},
		})
	}
	return s
}
