package vm

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single machine instruction.
type Opcode byte

// Control
const (
	OpNop Opcode = iota // no effect
	OpStart
	OpStop
)

// Drawing
const (
	OpCircle Opcode = iota + 0x10
	OpRect
	OpLine
	OpTriangle
	OpEllipse
	OpNoise
)

// Transform
const (
	OpTranslate Opcode = iota + 0x20
	OpSetPos
	OpRotate
	OpScale
	OpColor
)

// Stack
const (
	OpPush Opcode = iota + 0x30
	OpDup
	OpPop
	OpSwap
)

// Arithmetic and comparison
const (
	OpAdd Opcode = iota + 0x40
	OpSub
	OpMul
	OpDiv
	OpEq
	OpLt
)

// Control flow and state
const (
	OpLoop Opcode = iota + 0x50
	OpSaveState
	OpRestoreState
)

// Family groups opcodes the way the genetic code groups amino acids: by the
// role they play, not by their encoding.
type Family int

const (
	FamilyControl Family = iota
	FamilyDrawing
	FamilyTransform
	FamilyStack
	FamilyArithmetic
	FamilyComparison
	FamilyFlow
	FamilyState
	FamilyUtility
)

var familyNames = map[Family]string{
	FamilyControl:    "control",
	FamilyDrawing:    "drawing",
	FamilyTransform:  "transform",
	FamilyStack:      "stack",
	FamilyArithmetic: "arithmetic",
	FamilyComparison: "comparison",
	FamilyFlow:       "flow",
	FamilyState:      "state",
	FamilyUtility:    "utility",
}

// String implements the Stringer interface.
func (f Family) String() string {
	return familyNames[f]
}

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name       string // human-readable name
	Family     Family
	StackArity int // minimum value-stack depth required before execution
}

// opcodeTable maps opcodes to their metadata. StackArity is checked by the
// engine before any pop, so opcode handlers never see an underflowed stack.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop:   {"NOP", FamilyUtility, 0},
	OpStart: {"START", FamilyControl, 0},
	OpStop:  {"STOP", FamilyControl, 0},

	OpCircle:   {"CIRCLE", FamilyDrawing, 1},
	OpRect:     {"RECT", FamilyDrawing, 2},
	OpLine:     {"LINE", FamilyDrawing, 1},
	OpTriangle: {"TRIANGLE", FamilyDrawing, 1},
	OpEllipse:  {"ELLIPSE", FamilyDrawing, 2},
	OpNoise:    {"NOISE", FamilyDrawing, 2},

	OpTranslate: {"TRANSLATE", FamilyTransform, 2},
	OpSetPos:    {"SETPOS", FamilyTransform, 2},
	OpRotate:    {"ROTATE", FamilyTransform, 1},
	OpScale:     {"SCALE", FamilyTransform, 1},
	OpColor:     {"COLOR", FamilyTransform, 3},

	OpPush: {"PUSH", FamilyStack, 0},
	OpDup:  {"DUP", FamilyStack, 1},
	OpPop:  {"POP", FamilyStack, 1},
	OpSwap: {"SWAP", FamilyStack, 2},

	OpAdd: {"ADD", FamilyArithmetic, 2},
	OpSub: {"SUB", FamilyArithmetic, 2},
	OpMul: {"MUL", FamilyArithmetic, 2},
	OpDiv: {"DIV", FamilyArithmetic, 2},
	OpEq:  {"EQ", FamilyComparison, 2},
	OpLt:  {"LT", FamilyComparison, 2},

	OpLoop:         {"LOOP", FamilyFlow, 2},
	OpSaveState:    {"SAVE_STATE", FamilyState, 0},
	OpRestoreState: {"RESTORE_STATE", FamilyState, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	return opcodeTable[op]
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return opcodeTable[op].Name
}

// StackArity returns the minimum stack depth the opcode requires.
func (op Opcode) StackArity() int {
	return opcodeTable[op].StackArity
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Instruction table: the genetic code of the machine
// ---------------------------------------------------------------------------

// codonTable is the total mapping from all 64 codon values to opcodes.
// Multiple codons intentionally alias to the same opcode, modeling the
// redundancy of the real genetic code: synonymous codons mostly share their
// first two bases, and TRIANGLE/ELLIPSE split across the CT and TT prefixes
// the way leucine splits across CUx and UUA/UUG.
//
// Anchors that mirror biology: ATG is START (methionine), and TAA, TAG, TGA
// are the three STOP codons.
var codonTable = [64]Opcode{
	// AA*
	OpDup, OpDup, OpPop, OpPop,
	// AC*
	OpTranslate, OpTranslate, OpSetPos, OpSetPos,
	// AG*
	OpRotate, OpRotate, OpScale, OpScale,
	// AT*  (ATG = START)
	OpNop, OpNop, OpStart, OpNop,
	// CA*
	OpSwap, OpSwap, OpEq, OpLt,
	// CC*
	OpColor, OpColor, OpColor, OpColor,
	// CG*
	OpAdd, OpSub, OpMul, OpDiv,
	// CT*
	OpTriangle, OpTriangle, OpEllipse, OpEllipse,
	// GA*
	OpPush, OpPush, OpPush, OpPush,
	// GC*
	OpRect, OpRect, OpRect, OpRect,
	// GG*
	OpCircle, OpCircle, OpCircle, OpCircle,
	// GT*
	OpLine, OpLine, OpLine, OpLine,
	// TA*  (TAA, TAG = STOP)
	OpStop, OpNop, OpStop, OpNop,
	// TC*
	OpLoop, OpLoop, OpSaveState, OpRestoreState,
	// TG*  (TGA = STOP)
	OpStop, OpNoise, OpNoise, OpNop,
	// TT*
	OpTriangle, OpTriangle, OpEllipse, OpEllipse,
}

// Decode maps a codon to its opcode through the instruction table. The table
// is total over the 64 codon values, so every valid codon decodes; ok is
// false only for malformed codons that never came from the tokenizer.
func Decode(c Codon) (Opcode, bool) {
	if !c.Valid() {
		return OpNop, false
	}
	return codonTable[c.Value()], true
}

// SynonymsOf returns every codon that decodes to op, in codon-value order.
func SynonymsOf(op Opcode) []Codon {
	var out []Codon
	for v := 0; v < 64; v++ {
		if codonTable[v] == op {
			out = append(out, CodonFromValue(StackValue(v)))
		}
	}
	return out
}
