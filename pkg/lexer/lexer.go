package lexer

import (
	"encoding/json"
	"fmt"
	"go/scanner"
	"go/token"
	"io"
)

// Lexer tokenizes a class declaration file. Operation bodies use Go
// syntax, so the Go scanner does the work; the lexer only classifies
// tokens and tolerates the '#' that introduces operation tags.
type Lexer struct {
	filename string
	input    []byte
	tokens   []Token
	errors   scanner.ErrorList
}

// New creates a new Lexer for the given input.
func New(filename string, input []byte) *Lexer {
	return &Lexer{
		filename: filename,
		input:    input,
		tokens:   make([]Token, 0),
	}
}

// NewFromReader creates a new Lexer from an io.Reader.
func NewFromReader(filename string, r io.Reader) (*Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return New(filename, data), nil
}

// Tokenize processes the entire input and returns all tokens, ending with
// an EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	fset := token.NewFileSet()
	file := fset.AddFile(l.filename, -1, len(l.input))

	var s scanner.Scanner
	s.Init(file, l.input, l.handleError, 0)

	for {
		pos, tok, lit := s.Scan()
		p := fset.Position(pos)
		if tok == token.EOF {
			l.tokens = append(l.tokens, NewToken(EOF, "", p.Line, p.Column, p.Offset))
			break
		}
		typ, value := classify(tok, lit)
		l.tokens = append(l.tokens, NewToken(typ, value, p.Line, p.Column, p.Offset))
	}

	if len(l.errors) > 0 {
		l.errors.Sort()
		return l.tokens, l.errors.Err()
	}
	return l.tokens, nil
}

// TokenizeJSON processes the input and returns tokens as a JSON array.
func (l *Lexer) TokenizeJSON() (string, error) {
	tokens, err := l.Tokenize()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tokens: %w", err)
	}
	return string(data), nil
}

// Source returns the raw input. The parser slices operation text from it
// by token offsets.
func (l *Lexer) Source() []byte {
	return l.input
}

func (l *Lexer) handleError(pos token.Position, msg string) {
	// '#' is not Go but introduces #[native]; the scanner reports it as
	// illegal and still yields a token, which classify maps to HASH.
	if pos.Offset < len(l.input) && l.input[pos.Offset] == '#' {
		return
	}
	l.errors.Add(pos, msg)
}

func classify(tok token.Token, lit string) (TokenType, string) {
	switch {
	case tok == token.IDENT:
		return IDENTIFIER, lit
	case tok.IsKeyword():
		return KEYWORD, tok.String()
	}

	switch tok {
	case token.STRING:
		return STRING, lit
	case token.INT, token.FLOAT, token.IMAG:
		return NUMBER, lit
	case token.CHAR:
		return CHAR, lit
	case token.LBRACK:
		return LBRACKET, "["
	case token.RBRACK:
		return RBRACKET, "]"
	case token.LPAREN:
		return LPAREN, "("
	case token.RPAREN:
		return RPAREN, ")"
	case token.LBRACE:
		return LBRACE, "{"
	case token.RBRACE:
		return RBRACE, "}"
	case token.COLON:
		return COLON, ":"
	case token.COMMA:
		return COMMA, ","
	case token.SEMICOLON:
		// lit is "\n" for an automatically inserted semicolon.
		return SEMI, lit
	case token.PERIOD:
		return DOT, "."
	case token.MUL:
		return STAR, "*"
	case token.ILLEGAL:
		if lit == "#" {
			return HASH, lit
		}
		return ERROR, lit
	case token.COMMENT:
		return SEMI, lit
	}
	return OPERATOR, tok.String()
}
