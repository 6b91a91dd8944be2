// Package lexer tokenizes class declaration files.
package lexer

// TokenType represents the type of a token.
type TokenType string

// Token types of the class declaration grammar. Operators and literals
// that only occur inside operation bodies keep Go's spelling in Value.
const (
	// Basic tokens
	IDENTIFIER TokenType = "IDENTIFIER" // Class, field and operation names
	KEYWORD    TokenType = "KEYWORD"    // Go keywords (struct, func, for, package, import, ...)
	STRING     TokenType = "STRING"     // String literals, import paths
	NUMBER     TokenType = "NUMBER"     // Integer, float, imaginary literals
	CHAR       TokenType = "CHAR"       // Rune literals

	// Brackets and delimiters
	LBRACKET TokenType = "LBRACKET" // [
	RBRACKET TokenType = "RBRACKET" // ]
	LPAREN   TokenType = "LPAREN"   // (
	RPAREN   TokenType = "RPAREN"   // )
	LBRACE   TokenType = "LBRACE"   // {
	RBRACE   TokenType = "RBRACE"   // }

	// Punctuation
	HASH     TokenType = "HASH"     // # (operation tags: #[native])
	COLON    TokenType = "COLON"    // :
	COMMA    TokenType = "COMMA"    // ,
	SEMI     TokenType = "SEMI"     // ; explicit or inserted at a line end
	DOT      TokenType = "DOT"      // .
	STAR     TokenType = "STAR"     // *
	OPERATOR TokenType = "OPERATOR" // Any other Go operator

	// Special tokens
	ERROR TokenType = "ERROR" // Illegal character
	EOF   TokenType = "EOF"   // End of file
)

// Token represents a single token from the lexer.
type Token struct {
	Type   TokenType `json:"type"`
	Value  string    `json:"value"`
	Line   int       `json:"line"`
	Column int       `json:"col"`
	Offset int       `json:"offset"` // byte offset into the source
}

// NewToken creates a new token with the given properties.
func NewToken(typ TokenType, value string, line, col, offset int) Token {
	return Token{
		Type:   typ,
		Value:  value,
		Line:   line,
		Column: col,
		Offset: offset,
	}
}

// IsKeyword returns true if the token is the given Go keyword.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == KEYWORD && t.Value == kw
}

// IsIdent returns true if the token is the given identifier. Contextual
// keywords of the class grammar (extends, impl) are identifiers.
func (t Token) IsIdent(name string) bool {
	return t.Type == IDENTIFIER && t.Value == name
}

// IsLiteral returns true if the token represents a literal value.
func (t Token) IsLiteral() bool {
	switch t.Type {
	case STRING, NUMBER, CHAR:
		return true
	}
	return false
}

// IsOpen returns true for an opening bracket of any kind.
func (t Token) IsOpen() bool {
	return t.Type == LPAREN || t.Type == LBRACKET || t.Type == LBRACE
}

// IsClose returns true for a closing bracket of any kind.
func (t Token) IsClose() bool {
	return t.Type == RPAREN || t.Type == RBRACKET || t.Type == RBRACE
}
