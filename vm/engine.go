package vm

// ---------------------------------------------------------------------------
// Engine: the genome execution machine
// ---------------------------------------------------------------------------

// Status is the engine's execution state.
type Status int

const (
	StatusReady   Status = iota // program loaded, nothing executed yet
	StatusRunning               // inside Run
	StatusPaused                // stepped interactively, more tokens remain
	StatusHalted                // STOP reached or program ran off the end
	StatusErrored               // an execution error stopped the run
)

var statusNames = map[Status]string{
	StatusReady:   "ready",
	StatusRunning: "running",
	StatusPaused:  "paused",
	StatusHalted:  "halted",
	StatusErrored: "errored",
}

// String implements the Stringer interface.
func (s Status) String() string {
	return statusNames[s]
}

// Default sandbox limits.
const (
	DefaultMaxInstructions = 10000
	DefaultStackDepth      = 256
	DefaultStateStackDepth = 64
)

// loopFrame tracks one active LOOP re-entry region.
type loopFrame struct {
	start     int // first token of the repeated block
	end       int // token index just past the block
	resume    int // token index after the LOOP instruction
	remaining int // additional passes still owed
}

// Engine interprets a token sequence against a single MachineState. It is an
// explicit, passable value with no hidden shared state: callers own their
// engines and the snapshots they produce. The engine is single-threaded and
// synchronous; the instruction ceiling is its only cancellation mechanism,
// checked once per instruction.
type Engine struct {
	renderer        Renderer
	maxInstructions int
	maxStack        int
	maxSaved        int

	tokens    []Token
	state     MachineState
	status    Status
	loops     []loopFrame
	err       error
	snapIndex int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxInstructions sets the instruction ceiling. Exceeding it halts the
// run with an InstructionLimitError; it is never silently truncated.
func WithMaxInstructions(n int) Option {
	return func(e *Engine) { e.maxInstructions = n }
}

// WithStackDepth sets the value-stack depth limit.
func WithStackDepth(n int) Option {
	return func(e *Engine) { e.maxStack = n }
}

// WithStateStackDepth sets the SAVE_STATE stack depth limit.
func WithStateStackDepth(n int) Option {
	return func(e *Engine) { e.maxSaved = n }
}

// NewEngine creates an engine that draws through r. A nil renderer is
// replaced by NullRenderer.
func NewEngine(r Renderer, opts ...Option) *Engine {
	if r == nil {
		r = NullRenderer{}
	}
	e := &Engine{
		renderer:        r,
		maxInstructions: DefaultMaxInstructions,
		maxStack:        DefaultStackDepth,
		maxSaved:        DefaultStateStackDepth,
		state:           NewMachineState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load installs a program and resets all execution state. The renderer is
// cleared: a load is the start of a fresh drawing.
func (e *Engine) Load(tokens []Token) {
	e.tokens = tokens
	e.Reset()
	e.renderer.Clear()
}

// Reset returns the engine to the initial state, keeping the loaded program.
func (e *Engine) Reset() {
	e.state = NewMachineState()
	e.loops = nil
	e.err = nil
	e.status = StatusReady
	e.snapIndex = 0
}

// Status returns the current execution state.
func (e *Engine) Status() Status {
	return e.status
}

// Err returns the execution error that stopped the run, if any.
func (e *Engine) Err() error {
	return e.err
}

// Snapshot returns an immutable copy of the live machine state.
func (e *Engine) Snapshot() MachineState {
	return e.state.Clone()
}

// Restore overwrites the live machine state with a copy of st, e.g. to
// resume from an earlier timeline position. The engine must not be running.
func (e *Engine) Restore(st MachineState) {
	e.state = st.Clone()
	e.loops = nil
	e.err = nil
	e.status = StatusPaused
}

// Run executes tokens from the initial state until STOP, an execution error,
// or the instruction ceiling, and returns one snapshot per executed
// instruction (START and STOP included; a PUSH and its operand codon count
// as one instruction). On error the returned snapshots cover everything that
// executed before the fault.
func (e *Engine) Run(tokens []Token) ([]Snapshot, error) {
	e.Load(tokens)
	e.status = StatusRunning

	snapshots := make([]Snapshot, 0, len(tokens))
	for e.status == StatusRunning {
		snap, err := e.step()
		if err != nil {
			return snapshots, err
		}
		if snap != nil {
			snapshots = append(snapshots, *snap)
		}
	}
	return snapshots, nil
}

// Step executes exactly one instruction for interactive use and returns its
// snapshot. A nil snapshot with nil error means the program has halted.
func (e *Engine) Step() (*Snapshot, error) {
	switch e.status {
	case StatusHalted:
		return nil, nil
	case StatusErrored:
		return nil, e.err
	case StatusReady, StatusPaused:
		e.status = StatusRunning
	}
	snap, err := e.step()
	if e.status == StatusRunning {
		e.status = StatusPaused
	}
	return snap, err
}

// fail transitions to StatusErrored and records err.
func (e *Engine) fail(err error) (*Snapshot, error) {
	e.status = StatusErrored
	e.err = err
	return nil, err
}

// step executes a single instruction. It returns (nil, nil) when the program
// halts without executing anything (implicit end of program).
func (e *Engine) step() (*Snapshot, error) {
	// Resolve loop re-entry at block boundaries. This bookkeeping executes
	// no instruction and emits no snapshot.
	for len(e.loops) > 0 {
		top := &e.loops[len(e.loops)-1]
		if e.state.IP != top.end {
			break
		}
		top.remaining--
		if top.remaining > 0 {
			e.state.IP = top.start
		} else {
			e.state.IP = top.resume
			e.loops = e.loops[:len(e.loops)-1]
		}
	}

	if e.state.IP >= len(e.tokens) {
		// Implicit end of program without STOP.
		e.status = StatusHalted
		return nil, nil
	}

	tok := e.tokens[e.state.IP]

	if e.state.Executed >= e.maxInstructions {
		return e.fail(&InstructionLimitError{Limit: e.maxInstructions, Token: tok})
	}

	op, ok := Decode(tok.Text)
	if !ok {
		return e.fail(&InvalidOpcodeError{Token: tok})
	}

	if have := len(e.state.Stack); have < op.StackArity() {
		return e.fail(&StackUnderflowError{Op: op, Token: tok, Need: op.StackArity(), Have: have})
	}

	advance := 1
	switch op {
	case OpNop, OpStart:
		// START marks the reading frame; neither has a machine effect.

	case OpStop:
		e.status = StatusHalted

	case OpPush:
		// PUSH reads the next codon purely as data: the operand is decoded
		// through the base-4 digit formula, never through the instruction
		// table, and both tokens count as one instruction.
		if e.state.IP+1 >= len(e.tokens) {
			return e.fail(&MissingOperandError{Token: tok})
		}
		if err := e.push(op, tok, e.tokens[e.state.IP+1].Text.Value()); err != nil {
			return e.fail(err)
		}
		advance = 2

	case OpDup:
		if err := e.push(op, tok, e.state.Stack[len(e.state.Stack)-1]); err != nil {
			return e.fail(err)
		}

	case OpPop:
		e.pop()

	case OpSwap:
		n := len(e.state.Stack)
		e.state.Stack[n-1], e.state.Stack[n-2] = e.state.Stack[n-2], e.state.Stack[n-1]

	case OpAdd, OpSub, OpMul:
		b, a := int(e.pop()), int(e.pop())
		var r int
		switch op {
		case OpAdd:
			r = a + b
		case OpSub:
			r = a - b
		case OpMul:
			r = a * b
		}
		e.state.Stack = append(e.state.Stack, wrapStackValue(r))

	case OpDiv:
		b, a := int(e.pop()), int(e.pop())
		if b == 0 {
			return e.fail(&DivisionByZeroError{Token: tok})
		}
		e.state.Stack = append(e.state.Stack, wrapStackValue(a/b))

	case OpEq, OpLt:
		b, a := int(e.pop()), int(e.pop())
		var r StackValue
		if (op == OpEq && a == b) || (op == OpLt && a < b) {
			r = 1
		}
		e.state.Stack = append(e.state.Stack, r)

	case OpCircle:
		r := float64(e.pop())
		e.applyContext()
		e.renderer.DrawCircle(r)

	case OpRect:
		h, w := float64(e.pop()), float64(e.pop())
		e.applyContext()
		e.renderer.DrawRect(w, h)

	case OpTriangle:
		size := float64(e.pop())
		e.applyContext()
		e.renderer.DrawTriangle(size)

	case OpEllipse:
		ry, rx := float64(e.pop()), float64(e.pop())
		e.applyContext()
		e.renderer.DrawEllipse(rx, ry)

	case OpLine:
		length := float64(e.pop())
		e.applyContext()
		e.renderer.DrawLine(length)
		// Turtle semantics: the pen ends where the line ends, so consecutive
		// LINEs form connected polylines without explicit TRANSLATEs.
		h := e.state.Heading()
		e.state.Pos.X += h.X * length * e.state.Scale
		e.state.Pos.Y += h.Y * length * e.state.Scale

	case OpTranslate:
		dy, dx := float64(e.pop()), float64(e.pop())
		h := e.state.Heading()
		e.state.Pos.X += dx*h.X - dy*h.Y
		e.state.Pos.Y += dx*h.Y + dy*h.X

	case OpSetPos:
		y, x := float64(e.pop()), float64(e.pop())
		e.state.Pos = Point{X: x, Y: y}

	case OpRotate:
		e.state.Rotation += float64(e.pop())

	case OpScale:
		e.state.Scale *= 1 + float64(e.pop())/16

	case OpColor:
		l, s, h := float64(e.pop()), float64(e.pop()), float64(e.pop())
		e.state.Color = HSL{
			H: h * 360 / 64,
			S: s * 100 / 63,
			L: l * 100 / 63,
		}

	case OpNoise:
		intensity, seed := e.pop(), uint64(e.pop())
		e.state.Rand = splitmixSeed(seed)
		e.applyContext()
		e.renderer.Noise(seed, float64(intensity))

	case OpLoop:
		count, extent := int(e.pop()), int(e.pop())
		loopIdx := e.state.IP
		// The repeated block ends four tokens before LOOP, skipping the
		// conventional pair of literal pushes that supplied the operands.
		blockEnd := loopIdx - 4
		blockStart := blockEnd - extent
		if blockStart < 0 {
			blockStart = 0
		}
		if count > 0 && blockStart < blockEnd {
			e.loops = append(e.loops, loopFrame{
				start:     blockStart,
				end:       blockEnd,
				resume:    loopIdx + 1,
				remaining: count,
			})
			e.state.IP = blockStart
			advance = 0
		}

	case OpSaveState:
		if len(e.state.Saved) >= e.maxSaved {
			return e.fail(&StackOverflowError{Op: op, Token: tok, Depth: e.maxSaved})
		}
		e.state.Saved = append(e.state.Saved, e.state.Transform)

	case OpRestoreState:
		n := len(e.state.Saved)
		if n == 0 {
			return e.fail(&StateStackUnderflowError{Token: tok})
		}
		e.state.Transform = e.state.Saved[n-1]
		e.state.Saved = e.state.Saved[:n-1]

	default:
		return e.fail(&InvalidOpcodeError{Token: tok})
	}

	e.state.IP += advance
	e.state.Executed++
	e.state.LastOp = op

	snap := snapshotOf(&e.state, tok, op, e.snapIndex)
	e.snapIndex++
	return &snap, nil
}

// applyContext pushes the current transform and color to the renderer ahead
// of a draw primitive.
func (e *Engine) applyContext() {
	e.renderer.SetTransform(e.state.Pos, e.state.Rotation, e.state.Scale)
	e.renderer.SetColor(e.state.Color)
}

// push appends v, enforcing the value-stack depth limit.
func (e *Engine) push(op Opcode, tok Token, v StackValue) error {
	if len(e.state.Stack) >= e.maxStack {
		return &StackOverflowError{Op: op, Token: tok, Depth: e.maxStack}
	}
	e.state.Stack = append(e.state.Stack, v)
	return nil
}

// pop removes and returns the top value. Arity is checked before dispatch,
// so pop never underflows.
func (e *Engine) pop() StackValue {
	n := len(e.state.Stack)
	v := e.state.Stack[n-1]
	e.state.Stack = e.state.Stack[:n-1]
	return v
}

// wrapStackValue wraps n into [0, 63] via modulo-64 arithmetic.
func wrapStackValue(n int) StackValue {
	return StackValue(((n % 64) + 64) % 64)
}
