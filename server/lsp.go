// Package server exposes genome tooling over the network: a language server
// for editors and an HTTP API for running, validating, and storing genomes.
package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/helixlab/helix/compiler"
	"github.com/helixlab/helix/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "helix-lsp"

// LspServer bridges LSP editor features to the genome toolchain.
type LspServer struct {
	cache *compiler.Cache

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() (*LspServer, error) {
	cache, err := compiler.NewCache(64)
	if err != nil {
		return nil, err
	}
	s := &LspServer{
		cache:   cache,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s, nil
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "Helix LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	prefix := strings.ToUpper(extractWordBefore(text, pos))
	if len(prefix) >= 3 || !isBasePrefix(prefix) {
		return nil, nil
	}

	return completeCodons(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}

	word := strings.ToUpper(extractWord(text, pos))
	if len(word) != 3 {
		return nil, nil
	}
	return hoverCodon(vm.Codon(word)), nil
}

// completeCodons lists every codon starting with prefix, labeled with the
// instruction it decodes to.
func completeCodons(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for v := 0; v < 64; v++ {
		codon := vm.CodonFromValue(vm.StackValue(v))
		if !strings.HasPrefix(string(codon), prefix) {
			continue
		}
		op, _ := vm.Decode(codon)
		kind := protocol.CompletionItemKindKeyword
		detail := fmt.Sprintf("%s (value %d)", op, v)
		text := string(codon)
		items = append(items, protocol.CompletionItem{
			Label:      text,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &text,
		})
	}
	return items
}

// hoverCodon describes the instruction and literal value of one codon.
func hoverCodon(codon vm.Codon) *protocol.Hover {
	op, ok := vm.Decode(codon)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** → `%s`\n\n", codon, op)
	fmt.Fprintf(&b, "Literal value: %d\n\n", codon.Value())
	if n := op.StackArity(); n > 0 {
		fmt.Fprintf(&b, "Pops %d value(s)\n\n", n)
	}
	syns := vm.SynonymsOf(op)
	if len(syns) > 1 {
		names := make([]string, len(syns))
		for i, c := range syns {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, "Synonymous codons: `%s`", strings.Join(names, " "))
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(text)
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose converts compiler diagnostics into LSP form. Tokenization goes
// through the cache since editors re-check on every keystroke.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	source := lspName

	tokens, err := s.cache.Tokenize(text)
	if err != nil {
		severity := protocol.DiagnosticSeverityError
		line := uint32(0)
		var terr *compiler.TokenizeError
		if errors.As(err, &terr) && terr.Line > 0 {
			line = uint32(terr.Line - 1)
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(line),
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		})
		return diagnostics
	}

	diags := compiler.ValidateStructure(tokens)
	diags = append(diags, compiler.ValidateFrame(text)...)
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == compiler.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		line := uint32(0)
		if d.Line > 0 {
			line = uint32(d.Line - 1)
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(line),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

func lineRange(line uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: 0},
		End:   protocol.Position{Line: line, Character: 0},
	}
}

// --- Text extraction helpers ---

func isBasePrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		switch ch {
		case 'A', 'C', 'G', 'T', 'U':
		default:
			return false
		}
	}
	return true
}

// extractWordBefore returns the word fragment before the cursor for
// completion.
func extractWordBefore(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && unicode.IsLetter(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full word under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && unicode.IsLetter(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && unicode.IsLetter(rune(line[end])) {
		end++
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
