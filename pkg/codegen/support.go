package codegen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"
)

// GenerateSupport produces the companion file shared by all classes of a
// package: the immovability marker and the mutable handle helper.
func GenerateSupport(pkg string) (*Result, error) {
	if pkg == "" {
		pkg = DefaultPackage
	}
	f := jen.NewFile(pkg)
	f.HeaderComment(Header)

	f.Comment("noCopy marks a class value as immovable after construction.")
	f.Comment("go vet's copylocks check reports any copy of a struct holding it.")
	f.Type().Id("noCopy").Struct()
	f.Line()
	f.Func().Params(jen.Op("*").Id("noCopy")).Id("Lock").Params().Block()
	f.Func().Params(jen.Op("*").Id("noCopy")).Id("Unlock").Params().Block()
	f.Line()

	f.Comment("asMut returns the handle of a constructed object for mutation in place.")
	f.Comment("The object stays where its constructor put it.")
	f.Func().Id("asMut").Types(jen.Id("T").Id("any")).
		Params(jen.Id("h").Op("*").Id("T")).
		Op("*").Id("T").
		Block(jen.Return(jen.Id("h")))

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering support file: %w", err)
	}
	return &Result{
		Filename: SupportFilename,
		Package:  pkg,
		Code:     buf.String(),
	}, nil
}
