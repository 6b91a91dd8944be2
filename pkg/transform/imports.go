package transform

import (
	"path"

	"github.com/chazu/inherit/pkg/ast"
)

// inheritImports adds the imports of the ancestors in chain to class.
// Forwarders and the constructor copy parameter and result types from
// ancestor signatures, so the class file may name the packages its
// ancestors imported. Imports the file does not use are dropped when it
// is emitted.
//
// An ancestor import is skipped when the class already binds its local
// name. Blank and dot imports never name a type and are not inherited.
func inheritImports(class *ast.Class, chain []*ast.Class) {
	bound := map[string]bool{}
	for _, imp := range class.Imports {
		bound[localName(imp)] = true
	}
	for _, anc := range chain {
		for _, imp := range anc.Imports {
			name := localName(imp)
			if name == "_" || name == "." || bound[name] {
				continue
			}
			bound[name] = true
			class.Imports = append(class.Imports, imp)
		}
	}
}

// localName is the name an import binds in the file. For an unnamed
// import it is the last path element, which is the package name by
// convention.
func localName(imp ast.Import) string {
	if imp.Name != "" {
		return imp.Name
	}
	return path.Base(imp.Path)
}
