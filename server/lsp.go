package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/codegen"
	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/parser"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
	"github.com/chazu/wardlang/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "wardd"

// LspServer bridges LSP editor features (spec.md's expanded tooling
// surface) to a shared compilectx.Context via a CompileWorker, directly
// adapting the teacher's server/lsp.go shape: glsp.Handler callbacks that
// extract a word or prefix from the open document's text, hand it to the
// worker goroutine, and translate the result into LSP wire types.
type LspServer struct {
	worker  *CompileWorker
	effects *effect.Registry

	mu      sync.Mutex
	docs    map[string]string
	modules map[string]*ast.Module

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates an LSP server driving the given compiler context. When
// effects is non-nil, every arity-0, no-required-role function is
// eagerly re-evaluated after a clean re-registration (publishDiagnostics
// below) so the editor sees live execution errors, not just static
// diagnostics, and so any effects it invokes dispatch through effects'
// handlers and durable audit sink for real — the live-VM-backed hover the
// teacher's own server/lsp.go provides, adapted here to a document-level
// preview rather than a persistent object memory.
func NewLSP(ctx *compilectx.Context, effects *effect.Registry) *LspServer {
	s := &LspServer{
		worker:  NewCompileWorker(ctx),
		effects: effects,
		docs:    make(map[string]string),
		modules: make(map[string]*ast.Module),
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

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "ward LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

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
	s.worker.Stop()
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
	delete(s.modules, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Diagnostics ---

// publishDiagnostics reparses and re-registers the document's source on
// the worker goroutine, translating parse errors and VER-series
// registration diagnostics into LSP diagnostics.
func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	type outcome struct {
		module *ast.Module
		diags  []diag.Diagnostic
		parseErr *parser.ParseError
	}

	result, err := s.worker.Do(func(c *compilectx.Context) interface{} {
		mod, perr := parser.Parse(text)
		if perr != nil {
			if pe, ok := perr.(*parser.ParseError); ok {
				return outcome{parseErr: pe}
			}
			return outcome{parseErr: &parser.ParseError{Message: perr.Error()}}
		}
		c.Diags.Reset()
		c.RegisterModule(mod)
		return outcome{module: mod, diags: c.Diags.Diagnostics()}
	})
	if err != nil {
		return
	}
	out := result.(outcome)

	var diagnostics []protocol.Diagnostic
	if out.parseErr != nil {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    toLSPRange(out.parseErr.Span),
			Severity: &severity,
			Source:   &source,
			Message:  out.parseErr.Message,
		})
	} else {
		s.mu.Lock()
		s.modules[string(uri)] = out.module
		s.mu.Unlock()

		source := lspName
		hasError := false
		for _, d := range out.diags {
			sev := toLSPSeverity(d.Severity)
			msg := d.Message
			if d.Code != "" {
				msg = fmt.Sprintf("[%s] %s", d.Code, d.Message)
			}
			if d.Severity == diag.Error {
				hasError = true
			}
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    toLSPRange(d.Span),
				Severity: &sev,
				Source:   &source,
				Message:  msg,
			})
		}

		if !hasError && s.effects != nil {
			diagnostics = append(diagnostics, s.evalPreviewFunctions(out.module)...)
		}
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// evalPreviewFunctions compiles every versioned, arity-0, no-required-role
// function in mod and executes it against s.effects, turning a runtime
// failure into a hint-severity diagnostic at the function's span. It is
// the thing that actually dispatches effects (and, when audit_required,
// appends to s.effects' durable sink) during ordinary editing rather than
// only from cmd/wardc run — see SPEC_FULL.md §4.18.
func (s *LspServer) evalPreviewFunctions(mod *ast.Module) []protocol.Diagnostic {
	bc := bytecode.NewModule(mod.Name, "")
	type target struct {
		name string
		ver  version.Version
		sp   diag.Span
	}
	var targets []target

	for _, el := range mod.Elements {
		fn, ok := el.(*ast.Function)
		if !ok || fn.Version == nil {
			continue
		}
		if len(fn.Inputs) != 0 || len(fn.RequiredRoles) != 0 {
			continue
		}
		v, err := version.Parse(fn.Version.Version)
		if err != nil {
			continue
		}
		rec, err := codegen.CompileFunction(fn, v)
		if err != nil {
			continue
		}
		bc.AddFunction(rec)
		targets = append(targets, target{name: fn.Name, ver: v, sp: fn.Sp})
	}

	machine := vm.New(bc, s.effects)
	var diagnostics []protocol.Diagnostic
	for _, t := range targets {
		if _, err := machine.Execute(t.name+":"+t.ver.Key(), []value.Value{}, effect.Principal{ID: "lsp"}); err != nil {
			severity := protocol.DiagnosticSeverityHint
			src := lspName
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    toLSPRange(t.sp),
				Severity: &severity,
				Source:   &src,
				Message:  fmt.Sprintf("preview run of %q failed: %v", t.name, err),
			})
		}
	}
	return diagnostics
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(text, pos)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(c *compilectx.Context) interface{} {
		return s.hover(c, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) hover(c *compilectx.Context, word string) *protocol.Hover {
	ve, ok := c.Functions.Latest(word)
	if !ok {
		return nil
	}
	fn, ok := ve.Node.(*ast.Function)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** v%s\n\n", fn.Name, ve.Version.String())
	if ve.Stability != ast.StabilityStable {
		fmt.Fprintf(&b, "stability: %s\n\n", ve.Stability.String())
	}
	if len(fn.RequiredRoles) > 0 {
		fmt.Fprintf(&b, "requires roles: `%s`\n\n", strings.Join(fn.RequiredRoles, ", "))
	}
	if len(fn.RequiredPerms) > 0 {
		fmt.Fprintf(&b, "requires permissions: `%s`\n\n", strings.Join(fn.RequiredPerms, ", "))
	}
	if len(fn.Effects) > 0 {
		var effs []string
		for _, e := range fn.Effects {
			effs = append(effs, e.Handler+"."+e.Operation)
		}
		fmt.Fprintf(&b, "effects: `%s`\n\n", strings.Join(effs, ", "))
	}
	if fn.HandlesSecrets {
		b.WriteString("handles secrets\n\n")
	}
	fmt.Fprintf(&b, "pure: %v, idempotent: %v", fn.Pure, fn.Idempotent)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	s.mu.Lock()
	text, ok := s.docs[string(uri)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(text, pos)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(c *compilectx.Context) interface{} {
		return s.definition(c, uri, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) definition(c *compilectx.Context, uri protocol.DocumentUri, word string) []protocol.Location {
	ve, ok := c.Functions.Latest(word)
	if !ok {
		return nil
	}
	fn, ok := ve.Node.(*ast.Function)
	if !ok {
		return nil
	}
	return []protocol.Location{{
		URI:   uri,
		Range: toLSPRange(fn.Sp),
	}}
}

// --- Text extraction helpers ---

// extractWord returns the full identifier under the cursor.
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
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}

	if start == end {
		return ""
	}
	return line[start:end]
}

// toLSPRange converts a 1-based diag.Span to a 0-based LSP Range.
func toLSPRange(sp diag.Span) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      lspLine(sp.Start.Line),
			Character: lspChar(sp.Start.Column),
		},
		End: protocol.Position{
			Line:      lspLine(sp.End.Line),
			Character: lspChar(sp.End.Column),
		},
	}
}

func lspLine(line int) protocol.UInteger {
	if line <= 0 {
		return 0
	}
	return protocol.UInteger(line - 1)
}

func lspChar(col int) protocol.UInteger {
	if col <= 0 {
		return 0
	}
	return protocol.UInteger(col - 1)
}

func toLSPSeverity(sev diag.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diag.Error:
		return protocol.DiagnosticSeverityError
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Info:
		return protocol.DiagnosticSeverityInformation
	case diag.Hint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

func boolPtr(b bool) *bool {
	return &b
}
