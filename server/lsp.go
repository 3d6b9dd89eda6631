// Package server implements the zlox language server. It speaks LSP over
// stdio and surfaces compile diagnostics, keyword completion and keyword
// hover. Every document is compiled against scratch state, so the server
// holds no interpreter and requests never contend on shared VM state.
package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/cmourglia/zlox/compiler"
	"github.com/cmourglia/zlox/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "zlox-lsp"

// LspServer bridges LSP editor features to the zlox compiler.
type LspServer struct {
	mu   sync.RWMutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	log     commonlog.Logger
	version string
}

func (s *LspServer) storeDoc(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) readDoc(uri protocol.DocumentUri) (string, bool) {
	s.mu.RLock()
	text, ok := s.docs[string(uri)]
	s.mu.RUnlock()
	return text, ok
}

func (s *LspServer) dropDoc(uri protocol.DocumentUri) {
	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		log:     commonlog.GetLogger("zlox.lsp"),
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

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("initializing")

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
	s.log.Info("shutting down")
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.storeDoc(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// Sync is Full, so each whole-document event replaces the text.
	// Only the final state is worth compiling.
	text, found := "", false
	for _, change := range params.ContentChanges {
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			text, found = whole.Text, true
		}
	}
	if !found {
		return nil
	}

	s.storeDoc(params.TextDocument.URI, text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, text)
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.dropDoc(params.TextDocument.URI)
	s.publish(ctx, params.TextDocument.URI, nil)
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.readDoc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	return completeKeywords(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.readDoc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	doc := keywordHover(extractWord(text, params.Position))
	if doc == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: doc,
		},
	}, nil
}

// completeKeywords returns every reserved word matching the typed prefix.
func completeKeywords(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lower := strings.ToLower(prefix)

	for _, word := range compiler.Keywords() {
		if !strings.HasPrefix(word, lower) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := keywordDetail(word)
		items = append(items, protocol.CompletionItem{
			Label:      word,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &word,
		})
	}

	return items
}

// keywordDocs describes every reserved word the compiler accepts today.
// Reserved words missing here are recognized by the scanner but rejected
// by the parser.
var keywordDocs = map[string]string{
	"and":   "Boolean conjunction. Both operands are evaluated and must be booleans.",
	"or":    "Boolean disjunction. Both operands are evaluated and must be booleans.",
	"xor":   "Boolean exclusive or. Both operands are evaluated and must be booleans.",
	"not":   "Boolean negation. The operand must be a boolean.",
	"true":  "The boolean truth literal.",
	"false": "The boolean falsehood literal.",
	"nil":   "The absent-value literal. Only equal to itself.",
	"let":   "Declares a variable. Bindings do not exist yet, so an initializer is evaluated for its effects and discarded.",
	"print": "Evaluates an expression and writes its rendering followed by a newline.",
}

func keywordDetail(word string) string {
	if _, ok := keywordDocs[word]; ok {
		return "keyword"
	}
	return "reserved word"
}

// keywordHover renders hover markdown for a reserved word, or "" for
// anything that is not one.
func keywordHover(word string) string {
	doc, ok := keywordDocs[word]
	if !ok {
		if !compiler.IsKeyword(word) {
			return ""
		}
		doc = "Reserved for future use. Using it is a compile error."
	}
	return fmt.Sprintf("**%s**\n\n%s", word, doc)
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnosticsFor(text)
	s.log.Debugf("%s: %d diagnostics", uri, len(diagnostics))
	s.publish(ctx, uri, diagnostics)
}

// publish sends diagnostics for a document. nil clears them: the protocol
// wants an empty list, not an absent one.
func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnosticsFor compiles text against scratch state and converts each
// compiler diagnostic to an LSP diagnostic on its source line.
func diagnosticsFor(text string) []protocol.Diagnostic {
	err := compiler.Compile(text, vm.NewChunk(), vm.NewHeap())
	if err == nil {
		return nil
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName

	var cerr *compiler.CompileError
	if !errors.As(err, &cerr) {
		return []protocol.Diagnostic{{
			Range:    lineRange(0),
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		}}
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(cerr.Diagnostics))
	for _, d := range cerr.Diagnostics {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(d.Line - 1),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return diagnostics
}

// lineRange pins a diagnostic to the start of a zero-based line. Columns
// are not tracked.
func lineRange(line int) protocol.Range {
	if line < 0 {
		line = 0
	}
	pos := protocol.Position{Line: protocol.UInteger(line), Character: 0}
	return protocol.Range{Start: pos, End: pos}
}

// --- Text extraction helpers ---

// lineAt returns the line the cursor sits on and the cursor column clamped
// to the line length. Positions past the document yield ok=false.
func lineAt(text string, pos protocol.Position) (line string, col int, ok bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line = lines[pos.Line]
	col = min(int(pos.Character), len(line))
	return line, col, true
}

// isWordByte matches the scanner's identifier alphabet. Identifiers are
// ASCII, so byte-level checks are exact.
func isWordByte(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// wordBounds widens [col, col) to the identifier span around the cursor.
func wordBounds(line string, col int) (start, end int) {
	start, end = col, col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	return start, end
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start, _ := wordBounds(line, col)
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}
	start, end := wordBounds(line, col)
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
