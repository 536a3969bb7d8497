package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/helixlab/helix/compiler"
	"github.com/helixlab/helix/store"
	"github.com/helixlab/helix/vm"
	"github.com/helixlab/helix/vm/timeline"
)

// HTTPServer exposes the run/validate pipeline and the genome library as a
// JSON API.
type HTTPServer struct {
	store      *store.Store
	engineOpts []vm.Option
	app        *fiber.App
}

// NewHTTP creates the API server. st may be nil, which disables the library
// endpoints. engineOpts apply to every run the server executes.
func NewHTTP(st *store.Store, engineOpts ...vm.Option) *HTTPServer {
	s := &HTTPServer{
		store:      st,
		engineOpts: engineOpts,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	v1 := app.Group("/v1")
	v1.Post("/validate", s.postValidate)
	v1.Post("/run", s.postRun)
	v1.Post("/diff", s.postDiff)
	v1.Post("/disassemble", s.postDisassemble)

	if st != nil {
		v1.Get("/genomes", s.listGenomes)
		v1.Put("/genomes/:name", s.putGenome)
		v1.Get("/genomes/:name", s.getGenome)
		v1.Delete("/genomes/:name", s.deleteGenome)
		v1.Post("/genomes/:name/run", s.runGenome)
		v1.Get("/genomes/:name/runs", s.listRuns)
		v1.Get("/runs/:id", s.getRun)
	}

	s.app = app
	return s
}

// Listen serves the API on addr. Blocks until shutdown.
func (s *HTTPServer) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// --- Request / response shapes ---

type sourceRequest struct {
	Source string `json:"source"`
}

type diffRequest struct {
	SourceA string `json:"source_a"`
	SourceB string `json:"source_b"`
}

type diagnosticJSON struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
}

type validateResponse struct {
	Valid       bool             `json:"valid"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
}

type stateJSON struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
	H        float64 `json:"h"`
	S        float64 `json:"s"`
	L        float64 `json:"l"`
	Stack    []int   `json:"stack"`
}

type drawJSON struct {
	Kind string    `json:"kind"`
	Args []float64 `json:"args"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

type runResponse struct {
	Status string     `json:"status"`
	Steps  int        `json:"steps"`
	Error  string     `json:"error,omitempty"`
	Final  *stateJSON `json:"final,omitempty"`
	Draws  []drawJSON `json:"draws"`
	RunID  int64      `json:"run_id,omitempty"`
}

type diffResponse struct {
	DivergeIndex int `json:"diverge_index"`
	StepsA       int `json:"steps_a"`
	StepsB       int `json:"steps_b"`
}

type genomeJSON struct {
	Name        string `json:"name"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
}

type runSummaryJSON struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Steps  int    `json:"steps"`
}

// --- Validation and execution ---

func (s *HTTPServer) postValidate(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp := validateResponse{Diagnostics: []diagnosticJSON{}}
	_, diags, err := compiler.Check(req.Source)
	if err != nil {
		resp.Diagnostics = append(resp.Diagnostics, diagnosticJSON{
			Severity: "error",
			Message:  err.Error(),
			Line:     tokenizeErrorLine(err),
		})
		return c.JSON(resp)
	}

	resp.Valid = true
	for _, d := range diags {
		if d.Severity == compiler.SeverityError {
			resp.Valid = false
		}
		resp.Diagnostics = append(resp.Diagnostics, diagnosticJSON{
			Severity: d.Severity.String(),
			Message:  d.Message,
			Line:     d.Line,
		})
	}
	return c.JSON(resp)
}

func tokenizeErrorLine(err error) int {
	var terr *compiler.TokenizeError
	if errors.As(err, &terr) {
		return terr.Line
	}
	return 0
}

// execute runs source through a fresh engine and reports the outcome. The
// snapshot sequence is returned for callers that persist runs.
func (s *HTTPServer) execute(source string) (runResponse, []vm.Snapshot, []vm.Token, error) {
	tokens, err := compiler.Tokenize(source)
	if err != nil {
		return runResponse{}, nil, nil, err
	}

	tracer := vm.NewTraceRenderer()
	engine := vm.NewEngine(tracer, s.engineOpts...)
	snaps, runErr := engine.Run(tokens)

	resp := runResponse{
		Status: engine.Status().String(),
		Steps:  len(snaps),
		Draws:  []drawJSON{},
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	if last, ok := timeline.New(snaps).Last(); ok {
		st := stateJSON{
			X:        last.State.Pos.X,
			Y:        last.State.Pos.Y,
			Rotation: last.State.Rotation,
			Scale:    last.State.Scale,
			H:        last.State.Color.H,
			S:        last.State.Color.S,
			L:        last.State.Color.L,
			Stack:    make([]int, 0, len(last.State.Stack)),
		}
		for _, v := range last.State.Stack {
			st.Stack = append(st.Stack, int(v))
		}
		resp.Final = &st
	}
	for _, op := range tracer.DrawCalls() {
		resp.Draws = append(resp.Draws, drawJSON{
			Kind: op.Kind,
			Args: op.Args,
			X:    op.Pos.X,
			Y:    op.Pos.Y,
		})
	}
	return resp, snaps, tokens, nil
}

func (s *HTTPServer) postRun(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	resp, _, _, err := s.execute(req.Source)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(resp)
}

func (s *HTTPServer) postDiff(c *fiber.Ctx) error {
	var req diffRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	_, snapsA, _, err := s.execute(req.SourceA)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	_, snapsB, _, err := s.execute(req.SourceB)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	return c.JSON(diffResponse{
		DivergeIndex: timeline.DivergeIndex(timeline.New(snapsA), timeline.New(snapsB)),
		StepsA:       len(snapsA),
		StepsB:       len(snapsB),
	})
}

func (s *HTTPServer) postDisassemble(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tokens, err := compiler.Tokenize(req.Source)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(fiber.Map{"listing": vm.Disassemble(tokens)})
}

// --- Genome library ---

func (s *HTTPServer) listGenomes(c *fiber.Ctx) error {
	gs, err := s.store.ListGenomes(c.Context())
	if err != nil {
		return err
	}
	out := make([]genomeJSON, 0, len(gs))
	for _, g := range gs {
		out = append(out, genomeJSON{Name: g.Name, Description: g.Description})
	}
	return c.JSON(out)
}

func (s *HTTPServer) putGenome(c *fiber.Ctx) error {
	var req genomeJSON
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := compiler.Tokenize(req.Source); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	if _, err := s.store.PutGenome(c.Context(), c.Params("name"), req.Source, req.Description); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) getGenome(c *fiber.Ctx) error {
	g, err := s.store.GetGenome(c.Context(), c.Params("name"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	return c.JSON(genomeJSON{Name: g.Name, Source: g.Source, Description: g.Description})
}

func (s *HTTPServer) deleteGenome(c *fiber.Ctx) error {
	err := s.store.DeleteGenome(c.Context(), c.Params("name"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// runGenome executes a stored genome and saves the resulting timeline as a
// new run.
func (s *HTTPServer) runGenome(c *fiber.Ctx) error {
	g, err := s.store.GetGenome(c.Context(), c.Params("name"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}

	resp, snaps, tokens, err := s.execute(g.Source)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	digest := timeline.Digest(tokens)
	data, err := timeline.Marshal(timeline.New(snaps), digest)
	if err != nil {
		return err
	}
	runID, err := s.store.PutRun(c.Context(), g.ID, digest[:], resp.Status, resp.Steps, data)
	if err != nil {
		return err
	}
	resp.RunID = runID
	return c.JSON(resp)
}

func (s *HTTPServer) listRuns(c *fiber.Ctx) error {
	g, err := s.store.GetGenome(c.Context(), c.Params("name"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}

	runs, err := s.store.ListRuns(c.Context(), g.ID)
	if err != nil {
		return err
	}
	out := make([]runSummaryJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, runSummaryJSON{ID: r.ID, Status: r.Status, Steps: r.Steps})
	}
	return c.JSON(out)
}

func (s *HTTPServer) getRun(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrBadRequest
	}
	r, err := s.store.GetRun(c.Context(), int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}

	tl, _, err := timeline.Unmarshal(r.Timeline)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"id":     r.ID,
		"status": r.Status,
		"steps":  r.Steps,
	}
	if step := c.QueryInt("step", -1); step >= 0 {
		snap, ok := tl.At(step)
		if !ok {
			return fiber.ErrNotFound
		}
		resp["snapshot"] = fiber.Map{
			"index":    snap.Index,
			"codon":    string(snap.Token.Text),
			"op":       snap.Op.String(),
			"x":        snap.State.Pos.X,
			"y":        snap.State.Pos.Y,
			"rotation": snap.State.Rotation,
			"scale":    snap.State.Scale,
		}
	}
	return c.JSON(resp)
}
