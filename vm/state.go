package vm

import "math"

// ---------------------------------------------------------------------------
// Machine state
// ---------------------------------------------------------------------------

// Point is a 2D position in renderer space.
type Point struct {
	X float64
	Y float64
}

// HSL is a color in HSL space: H in [0, 360), S and L in [0, 100].
type HSL struct {
	H float64
	S float64
	L float64
}

// Transform is the drawing context saved and restored by SAVE_STATE and
// RESTORE_STATE: everything that affects how the next shape is painted, but
// not the value stack or the instruction pointer.
type Transform struct {
	Pos      Point
	Rotation float64 // degrees, unbounded accumulator, never auto-normalized
	Scale    float64 // positive multiplier, compounds across SCALE ops
	Color    HSL
}

// MachineState is the complete mutable state of one executing genome. The
// engine mutates a single MachineState in place; immutable copies are taken
// after every instruction (see Snapshot).
type MachineState struct {
	Transform

	Stack      []StackValue // value stack, LIFO, entries always in [0, 63]
	Saved      []Transform  // state stack for SAVE_STATE / RESTORE_STATE
	IP         int          // index of the next token to execute
	Executed   int          // total instructions executed so far
	Rand       uint64       // deterministic RNG state, reseeded by NOISE
	LastOp     Opcode       // opcode of the most recently executed instruction
}

// NewMachineState returns the initial state of a fresh program: origin
// position, zero rotation, identity scale, black-ish default color, empty
// stacks.
func NewMachineState() MachineState {
	return MachineState{
		Transform: Transform{
			Scale: 1,
			Color: HSL{H: 0, S: 0, L: 0},
		},
	}
}

// Clone returns a deep copy. Snapshots and the SAVE_STATE stack both rely on
// this; the copy shares no memory with the receiver.
func (m *MachineState) Clone() MachineState {
	c := *m
	c.Stack = append([]StackValue(nil), m.Stack...)
	c.Saved = append([]Transform(nil), m.Saved...)
	return c
}

// Heading returns the unit vector of the current rotation.
func (m *MachineState) Heading() Point {
	rad := m.Rotation * math.Pi / 180
	return Point{X: math.Cos(rad), Y: math.Sin(rad)}
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Snapshot is an immutable copy of machine state captured after one executed
// instruction, paired with the token that produced it. Snapshots are what
// downstream timeline scrubbers and mutation-diff viewers replay; they are
// safe to share across goroutines.
type Snapshot struct {
	State MachineState
	Token Token
	Op    Opcode
	Index int // 0-based position in the run's snapshot sequence
}

// snapshotOf captures the current state. One snapshot is taken per executed
// instruction, including START and STOP; a PUSH and its operand codon count
// as a single instruction.
func snapshotOf(m *MachineState, tok Token, op Opcode, index int) Snapshot {
	return Snapshot{
		State: m.Clone(),
		Token: tok,
		Op:    op,
		Index: index,
	}
}

// Equal reports whether two snapshots represent identical machine states and
// producing instructions. Used by timeline diffing.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Op != o.Op || s.Token != o.Token || s.Index != o.Index {
		return false
	}
	a, b := s.State, o.State
	if a.Transform != b.Transform || a.IP != b.IP || a.Executed != b.Executed ||
		a.Rand != b.Rand || a.LastOp != b.LastOp {
		return false
	}
	if len(a.Stack) != len(b.Stack) || len(a.Saved) != len(b.Saved) {
		return false
	}
	for i := range a.Stack {
		if a.Stack[i] != b.Stack[i] {
			return false
		}
	}
	for i := range a.Saved {
		if a.Saved[i] != b.Saved[i] {
			return false
		}
	}
	return true
}
