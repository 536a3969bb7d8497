// Helix CLI - run, inspect, and serve genome programs
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/helixlab/helix/compiler"
	"github.com/helixlab/helix/manifest"
	"github.com/helixlab/helix/server"
	"github.com/helixlab/helix/store"
	"github.com/helixlab/helix/vm"
	"github.com/helixlab/helix/vm/timeline"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	validateOnly := flag.Bool("validate", false, "Check the genome and print diagnostics without running it")
	disasm := flag.Bool("disasm", false, "Print the instruction listing without running")
	dump := flag.Bool("dump", false, "Print machine state after every instruction")
	limit := flag.Int("limit", 0, "Instruction ceiling override (0 keeps the configured limit)")
	snapshotsOut := flag.String("snapshots", "", "Write the run's timeline to this file (CBOR)")
	diffWith := flag.String("diff", "", "Compare the run against this saved timeline or genome file")
	saveAs := flag.String("save", "", "Save the genome and its run to the library under this name")
	galleryDir := flag.String("gallery", "", "Run every .hx genome in this directory into the library")
	libraryPath := flag.String("library", "", "Library database location (defaults from helix.toml)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	httpAddr := flag.String("http", "", "Serve the HTTP API on this address (e.g. :8723)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: helix [options] [genome-file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a genome program. Use - to read the genome from stdin.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  helix spiral.hx                     # Run and print draw calls\n")
		fmt.Fprintf(os.Stderr, "  helix -validate spiral.hx           # Diagnostics only\n")
		fmt.Fprintf(os.Stderr, "  helix -snapshots run.cbor spiral.hx # Export the timeline\n")
		fmt.Fprintf(os.Stderr, "  helix -diff run.cbor mutant.hx      # Where does the mutant diverge?\n")
		fmt.Fprintf(os.Stderr, "  helix -gallery ./genomes            # Batch-run a directory\n")
		fmt.Fprintf(os.Stderr, "  helix -lsp                          # Editor language server\n")
		fmt.Fprintf(os.Stderr, "  helix -http :8723                   # JSON API\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if m != nil && *verbose {
		fmt.Printf("Using project %q (%s)\n", m.Project.Name, m.Dir)
	}

	app := &cli{
		manifest:   m,
		engineOpts: engineOptions(m, *limit),
		library:    resolveLibrary(m, *libraryPath),
		verbose:    *verbose,
	}

	switch {
	case *lspMode || *httpAddr != "":
		err = app.serve(*lspMode, *httpAddr)
	case *galleryDir != "":
		err = app.gallery(*galleryDir)
	default:
		err = app.runOne(flag.Args(), runFlags{
			validateOnly: *validateOnly,
			disasm:       *disasm,
			dump:         *dump,
			snapshotsOut: *snapshotsOut,
			diffWith:     *diffWith,
			saveAs:       *saveAs,
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	manifest   *manifest.Manifest
	engineOpts []vm.Option
	library    string
	verbose    bool
}

type runFlags struct {
	validateOnly bool
	disasm       bool
	dump         bool
	snapshotsOut string
	diffWith     string
	saveAs       string
}

// engineOptions merges manifest limits with the -limit override.
func engineOptions(m *manifest.Manifest, limit int) []vm.Option {
	var opts []vm.Option
	if m != nil {
		opts = m.EngineOptions()
	}
	if limit > 0 {
		opts = append(opts, vm.WithMaxInstructions(limit))
	}
	return opts
}

// resolveLibrary picks the library path: flag, then manifest, then default.
func resolveLibrary(m *manifest.Manifest, override string) string {
	if override != "" {
		return override
	}
	if m != nil {
		return m.LibraryPath()
	}
	return filepath.Join(".helix", "library.db")
}

// readSource resolves the genome to run: an explicit file argument, stdin for
// "-", or the manifest's entry genome.
func (c *cli) readSource(args []string) (string, error) {
	if len(args) > 0 {
		if args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("reading stdin: %w", err)
			}
			return string(data), nil
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if c.manifest != nil && c.manifest.EntryPath() != "" {
		data, err := os.ReadFile(c.manifest.EntryPath())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no genome file given and no entry configured in helix.toml")
}

// runOne executes the single-genome pipeline selected by the flags.
func (c *cli) runOne(args []string, f runFlags) error {
	source, err := c.readSource(args)
	if err != nil {
		return err
	}

	if f.validateOnly {
		return validate(source)
	}

	tokens, err := compiler.Tokenize(source)
	if err != nil {
		return err
	}

	if f.disasm {
		fmt.Println(vm.Disassemble(tokens))
		return nil
	}

	tracer := vm.NewTraceRenderer()
	engine := vm.NewEngine(tracer, c.engineOpts...)
	snaps, runErr := engine.Run(tokens)
	tl := timeline.New(snaps)

	if f.dump {
		for _, snap := range snaps {
			fmt.Println(describeSnapshot(snap))
		}
	} else {
		for _, op := range tracer.DrawCalls() {
			fmt.Println(op)
		}
	}
	if c.verbose {
		fmt.Printf("%s after %d instructions, %d draw calls\n",
			engine.Status(), tl.Len(), len(tracer.DrawCalls()))
	}

	if f.snapshotsOut != "" {
		if err := exportTimeline(f.snapshotsOut, tl, tokens); err != nil {
			return err
		}
		if c.verbose {
			fmt.Printf("Wrote %d snapshots to %s\n", tl.Len(), f.snapshotsOut)
		}
	}

	if f.diffWith != "" {
		if err := c.diff(tl, f.diffWith); err != nil {
			return err
		}
	}

	if f.saveAs != "" {
		if err := c.saveRun(f.saveAs, source, engine.Status(), tokens, snaps); err != nil {
			return err
		}
		if c.verbose {
			fmt.Printf("Saved run as %q\n", f.saveAs)
		}
	}

	if runErr != nil {
		return fmt.Errorf("execution: %w", runErr)
	}
	return nil
}

// validate prints diagnostics and fails on errors.
func validate(source string) error {
	_, diags, err := compiler.Check(source)
	if err != nil {
		return err
	}
	failed := false
	for _, d := range diags {
		fmt.Println(d.Error())
		if d.Severity == compiler.SeverityError {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("genome has structural errors")
	}
	if len(diags) == 0 {
		fmt.Println("ok")
	}
	return nil
}

// exportTimeline writes the run's snapshot sequence as a CBOR envelope.
func exportTimeline(path string, tl *timeline.Timeline, tokens []vm.Token) error {
	data, err := timeline.Marshal(tl, timeline.Digest(tokens))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// diff compares the current run against another: a saved timeline envelope,
// or a genome source that gets run on the spot.
func (c *cli) diff(tl *timeline.Timeline, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	other, _, err := timeline.Unmarshal(data)
	if err != nil {
		// Not a saved timeline; treat it as genome source.
		tokens, terr := compiler.Tokenize(string(data))
		if terr != nil {
			return fmt.Errorf("%s is neither a saved timeline nor a genome: %w", path, terr)
		}
		snaps, _ := vm.NewEngine(nil, c.engineOpts...).Run(tokens)
		other = timeline.New(snaps)
	}

	idx := timeline.DivergeIndex(tl, other)
	if idx < 0 {
		fmt.Printf("identical runs (%d instructions)\n", tl.Len())
		return nil
	}
	fmt.Printf("runs diverge at instruction %d (%d vs %d total)\n", idx, tl.Len(), other.Len())
	if snap, ok := tl.At(idx); ok {
		fmt.Printf("  this:  %s\n", describeSnapshot(snap))
	}
	if snap, ok := other.At(idx); ok {
		fmt.Printf("  other: %s\n", describeSnapshot(snap))
	}
	return nil
}

func describeSnapshot(snap vm.Snapshot) string {
	stack := make([]string, len(snap.State.Stack))
	for i, v := range snap.State.Stack {
		stack[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%4d  %s %-12s pos=(%.1f,%.1f) rot=%.0f scale=%.2f stack=[%s]",
		snap.Index, snap.Token.Text, snap.Op,
		snap.State.Pos.X, snap.State.Pos.Y,
		snap.State.Rotation, snap.State.Scale,
		strings.Join(stack, " "))
}

// saveRun stores the genome and its timeline in the project library.
func (c *cli) saveRun(name, source string, status vm.Status, tokens []vm.Token, snaps []vm.Snapshot) error {
	st, err := store.Open(c.library)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	genomeID, err := st.PutGenome(ctx, name, source, "")
	if err != nil {
		return err
	}

	digest := timeline.Digest(tokens)
	data, err := timeline.Marshal(timeline.New(snaps), digest)
	if err != nil {
		return err
	}
	_, err = st.PutRun(ctx, genomeID, digest[:], status.String(), len(snaps), data)
	return err
}

// gallery runs every .hx genome under dir concurrently, saving each run to
// the library under the file's base name.
func (c *cli) gallery(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.hx"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no .hx genomes in %s", dir)
	}
	sort.Strings(matches)

	st, err := store.Open(c.library)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(4)
	ctx := context.Background()

	for _, path := range matches {
		path := path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tokens, err := compiler.Tokenize(string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			engine := vm.NewEngine(nil, c.engineOpts...)
			snaps, _ := engine.Run(tokens)

			digest := timeline.Digest(tokens)
			wire, err := timeline.Marshal(timeline.New(snaps), digest)
			if err != nil {
				return err
			}

			name := strings.TrimSuffix(filepath.Base(path), ".hx")

			mu.Lock()
			defer mu.Unlock()
			genomeID, err := st.PutGenome(ctx, name, string(data), "")
			if err != nil {
				return err
			}
			if _, err := st.PutRun(ctx, genomeID, digest[:], engine.Status().String(), len(snaps), wire); err != nil {
				return err
			}
			fmt.Printf("%-20s %s, %d instructions\n", name, engine.Status(), len(snaps))
			return nil
		})
	}
	return g.Wait()
}

// serve starts the requested servers, both at once when asked.
func (c *cli) serve(lsp bool, httpAddr string) error {
	var g errgroup.Group

	if lsp {
		srv, err := server.NewLSP()
		if err != nil {
			return err
		}
		g.Go(srv.Run)
	}

	if httpAddr != "" {
		st, err := store.Open(c.library)
		if err != nil {
			return err
		}
		defer st.Close()
		srv := server.NewHTTP(st, c.engineOpts...)
		g.Go(func() error { return srv.Listen(httpAddr) })
	}

	return g.Wait()
}
