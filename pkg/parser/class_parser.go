// Package parser implements the class declaration parser.
//
// This parser consumes tokens from the lexer and produces a class
// descriptor. Field types, operation signatures and operation bodies are
// Go syntax and are handed to go/parser.
//
// The grammar supports:
//   - An optional package clause and import declarations
//   - An optional parent reference (extends Parent;)
//   - One struct declaration with named fields (name: Type,)
//   - One primary impl block (impl Name { ... })
//   - Capability impl blocks (impl Capability for Name { ... })
//   - Operation tags #[native] (alias #[keep]) and #[static]
package parser

import (
	"fmt"
	goparser "go/parser"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/inherit/pkg/ast"
	"github.com/chazu/inherit/pkg/lexer"
)

// ParseWarning represents a non-fatal parse warning.
type ParseWarning struct {
	Type    string `json:"type"`    // Warning type (e.g., "unknown_tag")
	Message string `json:"message"` // Warning message
	Line    int    `json:"line"`    // Source line
	Col     int    `json:"col"`     // Source column
}

// ParseError represents a parse error with context.
type ParseError struct {
	Type    string       `json:"type"`    // Error type
	Message string       `json:"message"` // Error message
	File    string       `json:"file"`    // Source file
	Token   *lexer.Token `json:"token"`   // Token that caused the error
	Context string       `json:"context"` // Parsing context
}

func (e *ParseError) Error() string {
	if e.Token != nil {
		return fmt.Sprintf("%s:%d:%d: %s: %s (context: %s)",
			e.File, e.Token.Line, e.Token.Column, e.Type, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s: %s (context: %s)", e.File, e.Type, e.Message, e.Context)
}

// ClassParser holds the state for parsing one class declaration.
type ClassParser struct {
	filename string
	src      []byte
	tokens   []lexer.Token
	pos      int
	errors   []ParseError
	warnings []ParseWarning
}

// NewClassParser creates a new class parser for the given token stream.
// src must be the text the tokens were scanned from.
func NewClassParser(filename string, src []byte, tokens []lexer.Token) *ClassParser {
	return &ClassParser{
		filename: filename,
		src:      src,
		tokens:   tokens,
	}
}

// =============================================================================
// ClassParser Utilities
// =============================================================================

func (p *ClassParser) current() *lexer.Token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return &lexer.Token{Type: lexer.EOF}
}

func (p *ClassParser) atEnd() bool {
	return p.current().Type == lexer.EOF
}

func (p *ClassParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// skipSemis skips explicit and inserted semicolons.
func (p *ClassParser) skipSemis() {
	for !p.atEnd() && p.current().Type == lexer.SEMI {
		p.advance()
	}
}

// expect consumes a token of the given type or records an error.
func (p *ClassParser) expect(typ lexer.TokenType, context string) (*lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError("parse_error", fmt.Sprintf("expected %s, got %s %q", typ, tok.Type, tok.Value), context)
		return nil, false
	}
	p.advance()
	return tok, true
}

// synchronize skips tokens until the next impl block.
func (p *ClassParser) synchronize() {
	depth := 0
	for !p.atEnd() {
		tok := p.current()
		switch {
		case tok.IsOpen():
			depth++
		case tok.IsClose():
			depth--
		case depth <= 0 && tok.IsIdent("impl"):
			return
		}
		p.advance()
	}
}

// matching returns the index of the bracket closing the one at p.pos.
func (p *ClassParser) matching() (int, bool) {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch {
		case tok.IsOpen():
			depth++
		case tok.IsClose():
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// bracketed consumes a balanced [...] or (...) group and returns its text.
func (p *ClassParser) bracketed(context string) (string, bool) {
	start := *p.current()
	end, ok := p.matching()
	if !ok {
		p.addError("parse_error", "unbalanced "+start.Value, context)
		return "", false
	}
	closeTok := p.tokens[end]
	p.pos = end + 1
	return string(p.src[start.Offset : closeTok.Offset+1]), true
}

func (p *ClassParser) addError(errType, message, context string) {
	tok := *p.current()
	p.errors = append(p.errors, ParseError{
		Type:    errType,
		Message: message,
		File:    p.filename,
		Token:   &tok,
		Context: context,
	})
}

func (p *ClassParser) addWarning(warnType, message string, line, col int) {
	p.warnings = append(p.warnings, ParseWarning{
		Type:    warnType,
		Message: message,
		Line:    line,
		Col:     col,
	})
}

// Warnings returns the non-fatal warnings collected by Parse.
func (p *ClassParser) Warnings() []ParseWarning {
	return p.warnings
}

// =============================================================================
// Header Parsing
// =============================================================================

func (p *ClassParser) parsePackage(class *ast.Class) {
	if !p.current().IsKeyword("package") {
		return
	}
	p.advance()
	if tok, ok := p.expect(lexer.IDENTIFIER, "package"); ok {
		class.Package = tok.Value
	}
	p.skipSemis()
}

func (p *ClassParser) parseImports(class *ast.Class) {
	for p.current().IsKeyword("import") {
		p.advance()
		if p.current().Type == lexer.LPAREN {
			p.advance()
			for !p.atEnd() && p.current().Type != lexer.RPAREN {
				p.skipSemis()
				if p.current().Type == lexer.RPAREN {
					break
				}
				if !p.parseImportSpec(class) {
					return
				}
			}
			p.expect(lexer.RPAREN, "import")
		} else if !p.parseImportSpec(class) {
			return
		}
		p.skipSemis()
	}
}

func (p *ClassParser) parseImportSpec(class *ast.Class) bool {
	var imp ast.Import
	if tok := p.current(); tok.Type == lexer.IDENTIFIER || tok.Type == lexer.DOT {
		imp.Name = tok.Value
		p.advance()
	}
	tok, ok := p.expect(lexer.STRING, "import")
	if !ok {
		return false
	}
	path, err := strconv.Unquote(tok.Value)
	if err != nil {
		p.addError("parse_error", "invalid import path "+tok.Value, "import")
		return false
	}
	imp.Path = path
	class.Imports = append(class.Imports, imp)
	return true
}

func (p *ClassParser) parseParent(class *ast.Class) {
	if !p.current().IsIdent("extends") {
		return
	}
	p.advance()
	tok, ok := p.expect(lexer.IDENTIFIER, "extends")
	if !ok {
		return
	}
	parent := &ast.ParentRef{Name: tok.Value}
	if p.current().Type == lexer.LBRACKET {
		if args, ok := p.bracketed("extends"); ok {
			parent.TypeArgs = args
		}
	}
	class.Parent = parent
	p.skipSemis()
}

// =============================================================================
// Struct Parsing
// =============================================================================

func (p *ClassParser) parseStruct(class *ast.Class) bool {
	if !p.current().IsKeyword("struct") {
		p.addError("parse_error", "expected struct declaration", "struct")
		return false
	}
	p.advance()
	name, ok := p.expect(lexer.IDENTIFIER, "struct")
	if !ok {
		return false
	}
	class.Name = name.Value
	class.Location = ast.Location{File: p.filename, Line: name.Line, Col: name.Column}

	if p.current().Type == lexer.LBRACKET {
		params, ok := p.bracketed("type_params")
		if !ok {
			return false
		}
		class.TypeParams = params
	}

	switch p.current().Type {
	case lexer.LBRACE:
		class.Layout.Kind = ast.LayoutNamed
		p.advance()
		return p.parseFields(class)
	case lexer.LPAREN:
		class.Layout.Kind = ast.LayoutPositional
		_, ok := p.bracketed("struct")
		return ok
	case lexer.SEMI:
		class.Layout.Kind = ast.LayoutUnit
		p.advance()
		return true
	}
	p.addError("parse_error", "expected '{', '(' or ';' after struct "+class.Name, "struct")
	return false
}

func (p *ClassParser) parseFields(class *ast.Class) bool {
	for {
		for !p.atEnd() && (p.current().Type == lexer.SEMI || p.current().Type == lexer.COMMA) {
			p.advance()
		}
		if p.atEnd() {
			p.addError("parse_error", "unterminated struct "+class.Name, "fields")
			return false
		}
		if p.current().Type == lexer.RBRACE {
			p.advance()
			return true
		}

		name, ok := p.expect(lexer.IDENTIFIER, "fields")
		if !ok {
			return false
		}
		if _, ok := p.expect(lexer.COLON, "fields"); !ok {
			return false
		}
		typ, ok := p.fieldType()
		if !ok {
			return false
		}
		class.Layout.Fields = append(class.Layout.Fields, ast.Field{Name: name.Value, Type: typ})
	}
}

// fieldType consumes tokens up to the ',', ';' or '}' that ends a field
// and returns the validated type text.
func (p *ClassParser) fieldType() (string, bool) {
	start := *p.current()
	depth := 0
	for !p.atEnd() {
		tok := p.current()
		if depth == 0 && (tok.Type == lexer.COMMA || tok.Type == lexer.SEMI || tok.Type == lexer.RBRACE) {
			break
		}
		switch {
		case tok.IsOpen():
			depth++
		case tok.IsClose():
			depth--
		}
		p.advance()
	}
	text := strings.TrimSpace(string(p.src[start.Offset:p.current().Offset]))
	if text == "" {
		p.addError("parse_error", "missing field type", "fields")
		return "", false
	}
	if _, err := goparser.ParseExpr(text); err != nil {
		p.addError("syntax_error", fmt.Sprintf("invalid field type %q: %v", text, err), "fields")
		return "", false
	}
	return text, true
}

// =============================================================================
// Impl Block Parsing
// =============================================================================

// typeName consumes a possibly qualified, possibly instantiated type name.
func (p *ClassParser) typeName(context string) (string, bool) {
	tok, ok := p.expect(lexer.IDENTIFIER, context)
	if !ok {
		return "", false
	}
	name := tok.Value
	if p.current().Type == lexer.DOT {
		p.advance()
		sel, ok := p.expect(lexer.IDENTIFIER, context)
		if !ok {
			return "", false
		}
		name += "." + sel.Value
	}
	if p.current().Type == lexer.LBRACKET {
		args, ok := p.bracketed(context)
		if !ok {
			return "", false
		}
		name += args
	}
	return name, true
}

func baseName(typeName string) string {
	if i := strings.IndexByte(typeName, '['); i >= 0 {
		return typeName[:i]
	}
	return typeName
}

func (p *ClassParser) parseImpl(class *ast.Class) bool {
	implTok := *p.current()
	p.advance()

	first, ok := p.typeName("impl")
	if !ok {
		return false
	}

	capability := ""
	target := first
	if p.current().IsKeyword("for") {
		p.advance()
		capability = first
		if target, ok = p.typeName("impl"); !ok {
			return false
		}
	}
	if baseName(target) != class.Name {
		p.addError("parse_error", fmt.Sprintf("impl block for %s inside class %s", baseName(target), class.Name), "impl")
		return false
	}

	if _, ok := p.expect(lexer.LBRACE, "impl"); !ok {
		return false
	}
	block := &ast.Block{Name: class.Name}
	if capability != "" {
		block.Name = capability
	}
	for {
		p.skipSemis()
		if p.atEnd() {
			p.addError("parse_error", "unterminated impl block", "impl")
			return false
		}
		if p.current().Type == lexer.RBRACE {
			p.advance()
			break
		}
		op, ok := p.parseOperation()
		if !ok {
			return false
		}
		block.Operations = append(block.Operations, op)
	}

	if capability == "" {
		if class.Primary != nil {
			p.errors = append(p.errors, ParseError{
				Type: "parse_error", Message: "duplicate primary impl for " + class.Name,
				File: p.filename, Token: &implTok, Context: "impl",
			})
			return true
		}
		class.Primary = block
		return true
	}

	key := baseName(capability)
	if _, dup := class.Capabilities[key]; dup {
		p.errors = append(p.errors, ParseError{
			Type: "parse_error", Message: "duplicate impl of " + key + " for " + class.Name,
			File: p.filename, Token: &implTok, Context: "impl",
		})
		return true
	}
	block.Name = capability
	class.Capabilities[key] = block
	return true
}

// =============================================================================
// Operation Parsing
// =============================================================================

func (p *ClassParser) parseTags() (native, static bool, ok bool) {
	for p.current().Type == lexer.HASH {
		hash := *p.current()
		p.advance()
		if p.current().Type != lexer.LBRACKET {
			p.addError("parse_error", "expected '[' after '#'", "tag")
			return false, false, false
		}
		text, ok := p.bracketed("tag")
		if !ok {
			return false, false, false
		}
		tag := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "["), "]"))
		switch tag {
		case "native", "keep":
			native = true
		case "static":
			static = true
		default:
			p.addWarning("unknown_tag", "ignoring tag #["+tag+"]", hash.Line, hash.Column)
		}
		p.skipSemis()
	}
	return native, static, true
}

func (p *ClassParser) parseOperation() (*ast.Operation, bool) {
	native, static, ok := p.parseTags()
	if !ok {
		return nil, false
	}
	start := *p.current()
	if !start.IsKeyword("func") {
		p.addError("parse_error", fmt.Sprintf("expected operation, got %s %q", start.Type, start.Value), "operation")
		return nil, false
	}

	// Find the brace opening the body. Braces of struct{} and interface{}
	// types in the signature belong to the signature.
	depth := 0
	var prev lexer.Token
	for {
		tok := p.current()
		if tok.Type == lexer.EOF || (depth == 0 && tok.Type == lexer.SEMI) {
			p.addError("parse_error", "operation without body", "operation")
			return nil, false
		}
		if tok.Type == lexer.LBRACE && depth == 0 && !prev.IsKeyword("struct") && !prev.IsKeyword("interface") {
			break
		}
		switch {
		case tok.IsOpen():
			depth++
		case tok.IsClose():
			depth--
		}
		prev = *tok
		p.advance()
	}

	end, found := p.matching()
	if !found {
		p.addError("parse_error", "unterminated operation body", "operation")
		return nil, false
	}
	closeTok := p.tokens[end]
	p.pos = end + 1

	text := string(p.src[start.Offset : closeTok.Offset+1])
	op, err := ast.ParseOperation(p.filename, text, start.Line, start.Column)
	if err != nil {
		p.errors = append(p.errors, ParseError{
			Type: "syntax_error", Message: err.Error(),
			File: p.filename, Token: &start, Context: "operation",
		})
		return nil, false
	}
	if native && static {
		p.addWarning("conflicting_tags", "#[static] takes precedence over #[native] on "+op.Name, start.Line, start.Column)
		native = false
	}
	op.Native = native
	op.Static = static
	return op, true
}

// =============================================================================
// Main Parse Function
// =============================================================================

// Parse parses the token stream into a class descriptor in the Declared
// state. It returns the descriptor and any parse errors.
func (p *ClassParser) Parse() (*ast.Class, []ParseError) {
	class := &ast.Class{
		Capabilities: map[string]*ast.Block{},
		State:        ast.StateDeclared,
	}

	p.skipSemis()
	p.parsePackage(class)
	p.parseImports(class)
	p.parseParent(class)

	if !p.parseStruct(class) {
		return nil, p.errors
	}

	for {
		p.skipSemis()
		if p.atEnd() {
			break
		}
		if !p.current().IsIdent("impl") {
			p.addError("unknown_token", "unexpected token in class body", "class_body")
			p.advance()
			p.synchronize()
			continue
		}
		if !p.parseImpl(class) {
			p.synchronize()
		}
	}

	return class, p.errors
}

// ParseClass tokenizes and parses one class declaration.
func ParseClass(filename string, src []byte) (*ast.Class, []ParseError) {
	tokens, err := lexer.New(filename, src).Tokenize()
	if err != nil {
		return nil, []ParseError{{Type: "lex_error", Message: err.Error(), File: filename, Context: "tokenize"}}
	}
	return NewClassParser(filename, src, tokens).Parse()
}

// ParseFile reads and parses a class file. Parse errors are reported as a
// MalformedInput class error.
func ParseFile(path string) (*ast.Class, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	class, errs := ParseClass(path, src)
	if len(errs) > 0 {
		return nil, MalformedInput(path, class, errs)
	}
	return class, nil
}

// MalformedInput folds parse errors into a single class error.
func MalformedInput(path string, class *ast.Class, errs []ParseError) error {
	merr := &multierror.Error{ErrorFormat: joinLines}
	for i := range errs {
		merr = multierror.Append(merr, &errs[i])
	}
	ce := &ast.ClassError{
		Kind:   ast.ErrMalformedInput,
		Class:  path,
		Pos:    ast.Location{File: path},
		Detail: merr.Error(),
	}
	if class != nil && class.Name != "" {
		ce.Class = class.Name
		ce.Pos = class.Location
	}
	return ce
}

// joinLines formats folded parse errors one per line, in source order.
func joinLines(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}
