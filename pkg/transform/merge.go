package transform

import (
	"sort"

	"github.com/chazu/inherit/pkg/ast"
)

// MergeCapability merges a child's implementation of one capability
// interface with the parent's. A child operation replaces the parent
// operation with the same normalized signature; every parent operation
// without a child override becomes a forwarder. child may be nil. The
// result is a new block; neither input is modified.
func MergeCapability(name string, child, parent *ast.Block, recv string) *ast.Block {
	merged := &ast.Block{Name: name}
	if child != nil {
		merged.Name = child.Name
		merged.Operations = append(merged.Operations, child.Operations...)
	}
	if parent == nil {
		return merged
	}
	if child == nil {
		merged.Name = parent.Name
	}
	for _, op := range parent.Operations {
		if op.Shadowed {
			continue
		}
		if child.Find(op.SignatureKey()) != nil {
			continue
		}
		merged.Operations = append(merged.Operations, Forwarder(op, recv))
	}
	return merged
}

// mergeCapabilities replaces the class's capability blocks with the
// union of its own and its parent's, merged per interface. The parent
// descriptor already carries its ancestors' capabilities, so one level
// suffices.
func mergeCapabilities(class, parent *ast.Class, recv string) {
	if parent == nil {
		return
	}
	names := map[string]bool{}
	for name := range class.Capabilities {
		names[name] = true
	}
	for name := range parent.Capabilities {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	merged := make(map[string]*ast.Block, len(sorted))
	for _, name := range sorted {
		merged[name] = MergeCapability(name, class.Capabilities[name], parent.Capabilities[name], recv)
	}
	class.Capabilities = merged
}

// countForwarders returns how many of ops are forwarders.
func countForwarders(ops []*ast.Operation) int {
	n := 0
	for _, op := range ops {
		if op.Forward {
			n++
		}
	}
	return n
}
