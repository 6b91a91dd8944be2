package transform

import (
	"github.com/chazu/inherit/pkg/ast"
)

// dispatched reports whether op takes part in virtual dispatch.
func dispatched(op *ast.Operation) bool {
	return !op.Native && !op.Static
}

// relocateOverrides moves every primary operation whose signature matches
// an operation of an ancestor's dispatch interface into this class's
// implementation of that interface. The nearest declaring ancestor wins.
// The returned levels are ordered root first.
func relocateOverrides(class *ast.Class, chain []*ast.Class) []*ast.Level {
	levels := make([]*ast.Level, len(chain))
	for i, anc := range chain {
		levels[i] = &ast.Level{Interface: dispatchType(anc), Owner: anc.Name}
	}

	var kept []*ast.Operation
	for _, op := range class.Primary.Operations {
		target := -1
		if dispatched(op) {
			key := op.SignatureKey()
			for i, anc := range chain {
				if anc.Dispatch != nil && (&ast.Block{Operations: anc.Dispatch.Operations}).Find(key) != nil {
					target = i
					break
				}
			}
		}
		if target < 0 {
			kept = append(kept, op)
			continue
		}
		levels[target].Operations = append(levels[target].Operations, op)
	}
	class.Primary.Operations = kept

	// chain is nearest first; emit root first.
	for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
		levels[i], levels[j] = levels[j], levels[i]
	}
	return levels
}

// forwardLevels completes every ancestor level with forwarders for the
// ancestor's dispatch operations the class does not override.
func forwardLevels(levels []*ast.Level, chain []*ast.Class, recv string) {
	byOwner := map[string]*ast.Level{}
	for _, l := range levels {
		byOwner[l.Owner] = l
	}
	for _, anc := range chain {
		level := byOwner[anc.Name]
		if level == nil || anc.Dispatch == nil {
			continue
		}
		explicit := &ast.Block{Operations: level.Operations}
		for _, op := range anc.Dispatch.Operations {
			if explicit.Find(op.SignatureKey()) == nil {
				level.Operations = append(level.Operations, Forwarder(op, recv))
			}
		}
	}
}

// synthesizeInterface builds the class's dispatch interface from the
// dispatched operations left in the primary block.
func synthesizeInterface(class *ast.Class) *ast.Interface {
	iface := &ast.Interface{Name: class.DispatchName()}
	if class.Parent != nil {
		iface.Extends = class.Parent.Name + ast.DispatchSuffix + class.Parent.TypeArgs
	}
	for _, op := range class.Primary.Operations {
		if dispatched(op) {
			iface.Operations = append(iface.Operations, op.SignatureOnly())
		}
	}
	return iface
}

// redistribute moves the dispatched primary operations into the class's
// own dispatch level. Native and static operations stay in the primary
// block.
func redistribute(class *ast.Class) *ast.Level {
	own := &ast.Level{Interface: dispatchType(class), Owner: class.Name}
	var kept []*ast.Operation
	for _, op := range class.Primary.Operations {
		if dispatched(op) {
			own.Operations = append(own.Operations, op)
		} else {
			kept = append(kept, op)
		}
	}
	class.Primary.Operations = kept
	return own
}

// dispatchType is the instantiated dispatch interface type of a class,
// using the class's own type parameter names.
func dispatchType(class *ast.Class) string {
	return class.DispatchName() + class.TypeArgs()
}
