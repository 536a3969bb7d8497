package vm

import "fmt"

// ---------------------------------------------------------------------------
// Renderer contract
// ---------------------------------------------------------------------------

// Renderer receives drawing and transform calls from the engine with
// already-resolved numeric arguments. The engine is agnostic to how shapes
// are actually painted: canvas, audio, and pixel specifics all live behind
// this interface. SetTransform and SetColor are called before every draw
// primitive, so a renderer may be stateless about the machine.
type Renderer interface {
	DrawCircle(r float64)
	DrawRect(w, h float64)
	DrawLine(length float64)
	DrawTriangle(size float64)
	DrawEllipse(rx, ry float64)
	SetTransform(pos Point, rotation, scale float64)
	SetColor(c HSL)
	Noise(seed uint64, intensity float64)
	Clear()
}

// ---------------------------------------------------------------------------
// NullRenderer
// ---------------------------------------------------------------------------

// NullRenderer discards every call. Useful when only the snapshot sequence
// matters, e.g. timeline diffing or headless validation.
type NullRenderer struct{}

func (NullRenderer) DrawCircle(float64)                 {}
func (NullRenderer) DrawRect(float64, float64)          {}
func (NullRenderer) DrawLine(float64)                   {}
func (NullRenderer) DrawTriangle(float64)               {}
func (NullRenderer) DrawEllipse(float64, float64)       {}
func (NullRenderer) SetTransform(Point, float64, float64) {}
func (NullRenderer) SetColor(HSL)                       {}
func (NullRenderer) Noise(uint64, float64)              {}
func (NullRenderer) Clear()                             {}

// ---------------------------------------------------------------------------
// TraceRenderer
// ---------------------------------------------------------------------------

// TraceOp is one recorded renderer call.
type TraceOp struct {
	Kind string    // CIRCLE, RECT, LINE, TRIANGLE, ELLIPSE, NOISE, CLEAR
	Args []float64 // primitive arguments in call order
	Pos  Point     // transform at the time of the call
	Rot  float64
	Sc   float64
	Col  HSL
}

// String implements the Stringer interface.
func (op TraceOp) String() string {
	return fmt.Sprintf("%s%v @(%.1f,%.1f) rot=%.1f scale=%.2f hsl=(%.0f,%.0f,%.0f)",
		op.Kind, op.Args, op.Pos.X, op.Pos.Y, op.Rot, op.Sc, op.Col.H, op.Col.S, op.Col.L)
}

// TraceRenderer records every draw call along with the transform that was
// active when it arrived. It is the test surface for engine semantics and
// the CLI's stand-in for a real canvas. NOISE is expanded into its scatter
// marks here, using the seed deterministically, so two runs with the same
// seed record identical traces.
type TraceRenderer struct {
	Ops []TraceOp

	pos   Point
	rot   float64
	scale float64
	color HSL
}

// NewTraceRenderer creates an empty trace.
func NewTraceRenderer() *TraceRenderer {
	return &TraceRenderer{scale: 1}
}

func (t *TraceRenderer) record(kind string, args ...float64) {
	t.Ops = append(t.Ops, TraceOp{
		Kind: kind,
		Args: args,
		Pos:  t.pos,
		Rot:  t.rot,
		Sc:   t.scale,
		Col:  t.color,
	})
}

func (t *TraceRenderer) DrawCircle(r float64)           { t.record("CIRCLE", r) }
func (t *TraceRenderer) DrawRect(w, h float64)          { t.record("RECT", w, h) }
func (t *TraceRenderer) DrawLine(length float64)        { t.record("LINE", length) }
func (t *TraceRenderer) DrawTriangle(size float64)      { t.record("TRIANGLE", size) }
func (t *TraceRenderer) DrawEllipse(rx, ry float64)     { t.record("ELLIPSE", rx, ry) }

func (t *TraceRenderer) SetTransform(pos Point, rotation, scale float64) {
	t.pos, t.rot, t.scale = pos, rotation, scale
}

func (t *TraceRenderer) SetColor(c HSL) {
	t.color = c
}

// Noise records one mark per unit of intensity, scattered within a radius of
// intensity around the current position. Placement comes from a splitmix
// stream seeded only by the seed operand.
func (t *TraceRenderer) Noise(seed uint64, intensity float64) {
	state := splitmixSeed(seed)
	n := int(intensity)
	for i := 0; i < n; i++ {
		dx := (splitmixFloat(&state)*2 - 1) * intensity
		dy := (splitmixFloat(&state)*2 - 1) * intensity
		t.record("NOISE", t.pos.X+dx, t.pos.Y+dy)
	}
}

func (t *TraceRenderer) Clear() {
	t.Ops = t.Ops[:0]
	t.record("CLEAR")
}

// DrawCalls returns only the shape-producing ops, excluding CLEAR.
func (t *TraceRenderer) DrawCalls() []TraceOp {
	var out []TraceOp
	for _, op := range t.Ops {
		if op.Kind != "CLEAR" {
			out = append(out, op)
		}
	}
	return out
}
