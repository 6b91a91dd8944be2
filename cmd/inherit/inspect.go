package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chazu/inherit/pkg/lexer"
	"github.com/chazu/inherit/pkg/parser"
)

type ParseCmd struct {
	File string `arg:"" type:"existingfile" help:"Class file to parse."`
}

// Run prints the descriptor in the Declared state, before lowering.
func (c *ParseCmd) Run() error {
	src, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	tokens, err := lexer.New(c.File, src).Tokenize()
	if err != nil {
		return fmt.Errorf("tokenizing: %w", err)
	}
	p := parser.NewClassParser(c.File, src, tokens)
	class, errs := p.Parse()
	for _, w := range p.Warnings() {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: warning: %s\n", c.File, w.Line, w.Col, w.Message)
	}
	if len(errs) > 0 {
		return parser.MalformedInput(c.File, class, errs)
	}

	output, err := json.MarshalIndent(class, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling class: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

type TokenizeCmd struct {
	File string `arg:"" type:"existingfile" help:"Class file to tokenize."`
}

func (c *TokenizeCmd) Run() error {
	src, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	output, err := lexer.New(c.File, src).TokenizeJSON()
	if err != nil {
		return fmt.Errorf("tokenizing: %w", err)
	}
	fmt.Println(output)
	return nil
}
