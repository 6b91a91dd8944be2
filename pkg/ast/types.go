// Package ast defines the class descriptor produced by the class parser,
// lowered by the transformation pipeline and stored in the class registry.
package ast

import (
	"sort"
	"strings"
)

// Reserved layout slots added during layout augmentation.
const (
	PrototypeField = "prototype"
	SelfField      = "self"
	PinField       = "_"
	PinType        = "noCopy"
)

// DispatchSuffix is appended to a class name to form its dispatch interface.
const DispatchSuffix = "Dispatch"

// State tracks how far a class has moved through the pipeline.
type State int

const (
	StateDeclared State = iota
	StateInterfaceSynthesized
	StateBehaviorRedistributed
	StateOverridesMerged
	StateLayoutAugmented
	StateConstructorSynthesized
	StateRegistered
)

func (s State) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateInterfaceSynthesized:
		return "interface-synthesized"
	case StateBehaviorRedistributed:
		return "behavior-redistributed"
	case StateOverridesMerged:
		return "overrides-merged"
	case StateLayoutAugmented:
		return "layout-augmented"
	case StateConstructorSynthesized:
		return "constructor-synthesized"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// LayoutKind distinguishes the struct forms the parser accepts.
// Only LayoutNamed can be lowered.
type LayoutKind string

const (
	LayoutNamed      LayoutKind = "named"
	LayoutPositional LayoutKind = "positional"
	LayoutUnit       LayoutKind = "unit"
)

// Class is the descriptor of one declared class.
type Class struct {
	Name         string            `json:"name"`
	Package      string            `json:"package,omitempty"`
	Imports      []Import          `json:"imports,omitempty"`
	TypeParams   string            `json:"typeParams,omitempty"` // "[T any]" or ""
	Parent       *ParentRef        `json:"parent,omitempty"`
	Layout       Layout            `json:"layout"`
	Primary      *Block            `json:"primary,omitempty"`
	Capabilities map[string]*Block `json:"capabilities,omitempty"`
	Levels       []*Level          `json:"levels,omitempty"`
	Dispatch     *Interface        `json:"dispatch,omitempty"`
	Constructor  *Operation        `json:"constructor,omitempty"`
	Receiver     string            `json:"receiver,omitempty"`
	State        State             `json:"state"`
	Location     Location          `json:"location"`
}

// Location represents a position in the source file.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// Import is an import clause carried from the class file into the output.
type Import struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path"`
}

// ParentRef names the single class being extended.
type ParentRef struct {
	Name     string `json:"name"`
	TypeArgs string `json:"typeArgs,omitempty"` // "[T]" or ""
}

// Type returns the parent as a Go type expression.
func (p ParentRef) Type() string {
	return p.Name + p.TypeArgs
}

// Layout is the ordered field list of the class struct.
type Layout struct {
	Kind   LayoutKind `json:"kind"`
	Fields []Field    `json:"fields,omitempty"`
}

// Field is one struct field. Synthetic fields are added by the pipeline.
type Field struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// Block is a named set of operations: the primary impl block or one
// capability implementation.
type Block struct {
	Name       string       `json:"name"`
	Operations []*Operation `json:"operations"`
}

// Level is the implementation of one dispatch interface for a class.
// Owner is the class that declared the interface.
type Level struct {
	Interface  string       `json:"interface"`
	Owner      string       `json:"owner"`
	Operations []*Operation `json:"operations"`
}

// Interface is a synthesized dispatch interface. Its operations carry
// signatures only.
type Interface struct {
	Name       string       `json:"name"`
	Extends    string       `json:"extends,omitempty"`
	Operations []*Operation `json:"operations"`
}

// TypeArgs returns the bare type parameter names as an instantiation list,
// "[K, V]" for "[K comparable, V any]".
func (c *Class) TypeArgs() string {
	names := typeParamNames(c.TypeParams)
	if len(names) == 0 {
		return ""
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// TypeExpr returns the class as an instantiated Go type expression.
func (c *Class) TypeExpr() string {
	return c.Name + c.TypeArgs()
}

// DispatchName returns the name of the class's dispatch interface.
func (c *Class) DispatchName() string {
	return c.Name + DispatchSuffix
}

// IsGeneric reports whether the class declares type parameters.
func (c *Class) IsGeneric() bool {
	return c.TypeParams != ""
}

// FieldNames returns the names of the user-declared fields.
func (c *Class) FieldNames() []string {
	var names []string
	for _, f := range c.Layout.Fields {
		if !f.Synthetic {
			names = append(names, f.Name)
		}
	}
	return names
}

// CapabilityNames returns the capability interface names in sorted order.
func (c *Class) CapabilityNames() []string {
	names := make([]string, 0, len(c.Capabilities))
	for name := range c.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Level returns the implementation block for the named dispatch interface.
func (c *Class) Level(iface string) *Level {
	for _, l := range c.Levels {
		if l.Interface == iface {
			return l
		}
	}
	return nil
}

// Methods returns every operation that becomes a method on the class
// type: native primary operations, dispatch levels and capabilities.
func (c *Class) Methods() []*Operation {
	var ops []*Operation
	if c.Primary != nil {
		for _, op := range c.Primary.Operations {
			if !op.Static {
				ops = append(ops, op)
			}
		}
	}
	for _, l := range c.Levels {
		ops = append(ops, l.Operations...)
	}
	for _, name := range c.CapabilityNames() {
		ops = append(ops, c.Capabilities[name].Operations...)
	}
	return ops
}

// Find returns the operation in b whose signature key matches key.
func (b *Block) Find(key string) *Operation {
	if b == nil {
		return nil
	}
	for _, op := range b.Operations {
		if op.SignatureKey() == key {
			return op
		}
	}
	return nil
}
