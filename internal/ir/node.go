package ir

import "slices"

// Value is an SSA value: produced exactly once, either as a node result or
// as a block parameter, and never mutated afterwards.
type Value struct {
	Type Type

	def   *Node  // defining node, nil for block parameters
	owner *Block // owning block, nil for node results
}

// Def returns the node that produces v, or nil if v is a block parameter.
func (v *Value) Def() *Node { return v.def }

// Owner returns the block v is a parameter of, or nil if v is a node result.
func (v *Value) Owner() *Block { return v.owner }

// IsBlockParam reports whether v is a block formal parameter.
func (v *Value) IsBlockParam() bool { return v.owner != nil }

// Node is a tagged operation with attributes, operands, results and nested
// regions.
type Node struct {
	Kind     Kind
	Attrs    map[string]Attr
	Operands []*Value
	Results  []*Value
	Regions  []*Region

	parent *Block
}

// Parent returns the block holding n, or nil if n is detached.
func (n *Node) Parent() *Block { return n.parent }

// Attr returns the named attribute.
func (n *Node) Attr(name string) (Attr, bool) {
	a, ok := n.Attrs[name]
	return a, ok
}

// StringAttr returns the named string attribute, or "" if it is absent or
// not a string.
func (n *Node) StringAttr(name string) string {
	if s, ok := n.Attrs[name].(StringAttr); ok {
		return string(s)
	}
	return ""
}

// BoolAttr returns the named boolean attribute, or false.
func (n *Node) BoolAttr(name string) bool {
	if b, ok := n.Attrs[name].(BoolAttr); ok {
		return bool(b)
	}
	return false
}

// TypeAttr returns the named type attribute, or the empty type.
func (n *Node) TypeAttr(name string) Type {
	if t, ok := n.Attrs[name].(TypeAttr); ok {
		return t.Type
	}
	return EmptyType()
}

// SetAttr patches an attribute in place. The new attribute must satisfy the
// kind's schema; on failure n is left unchanged.
func (n *Node) SetAttr(name string, a Attr) error {
	old, had := n.Attrs[name]
	if n.Attrs == nil {
		n.Attrs = map[string]Attr{}
	}
	n.Attrs[name] = a
	if err := Verify(n); err != nil {
		if had {
			n.Attrs[name] = old
		} else {
			delete(n.Attrs, name)
		}
		return err
	}
	return nil
}

// Result returns the single result of n, or nil if n has none.
func (n *Node) Result() *Value {
	if len(n.Results) == 0 {
		return nil
	}
	return n.Results[0]
}

// Body returns the entry block of region i, or nil if it does not exist.
func (n *Node) Body(i int) *Block {
	if i < 0 || i >= len(n.Regions) {
		return nil
	}
	return n.Regions[i].Entry()
}

// Children returns the nodes of the entry block of region i.
func (n *Node) Children(i int) []*Node {
	if b := n.Body(i); b != nil {
		return b.Nodes
	}
	return nil
}

// Detach removes n from its parent block.
func (n *Node) Detach() {
	if n.parent != nil {
		n.parent.Remove(n)
	}
}

// Replace puts repl at n's position in its parent block and detaches n.
// It returns false if n is not attached.
func (n *Node) Replace(repl *Node) bool {
	b := n.parent
	if b == nil {
		return false
	}
	i := b.Index(n)
	if i < 0 {
		return false
	}
	repl.Detach()
	b.Nodes[i] = repl
	repl.parent = b
	n.parent = nil
	return true
}

// Region is an ordered list of blocks owned by one node. Every region in
// this IR has exactly one block.
type Region struct {
	Blocks []*Block

	parent *Node
}

// NewRegion returns a region holding the given blocks.
func NewRegion(blocks ...*Block) *Region {
	r := &Region{Blocks: blocks}
	for _, b := range blocks {
		b.parent = r
	}
	return r
}

// RegionOf returns a single-block region without parameters holding nodes.
func RegionOf(nodes ...*Node) *Region {
	b := NewBlock()
	b.Append(nodes...)
	return NewRegion(b)
}

// Parent returns the node owning r.
func (r *Region) Parent() *Node { return r.parent }

// Entry returns the first block of r, or nil.
func (r *Region) Entry() *Block {
	if len(r.Blocks) == 0 {
		return nil
	}
	return r.Blocks[0]
}

// Block is an ordered list of nodes plus formal parameters.
type Block struct {
	Params []*Value
	Nodes  []*Node

	parent *Region
}

// NewBlock returns a block with one parameter per type.
func NewBlock(paramTypes ...Type) *Block {
	b := &Block{}
	for _, t := range paramTypes {
		b.AddParam(t)
	}
	return b
}

// Parent returns the region owning b.
func (b *Block) Parent() *Region { return b.parent }

// ParentNode returns the node whose region owns b.
func (b *Block) ParentNode() *Node {
	if b.parent == nil {
		return nil
	}
	return b.parent.parent
}

// AddParam appends a formal parameter of type t.
func (b *Block) AddParam(t Type) *Value {
	v := &Value{Type: t, owner: b}
	b.Params = append(b.Params, v)
	return v
}

// ParamIndex returns the position of v in b's parameters, or -1.
func (b *Block) ParamIndex(v *Value) int {
	return slices.Index(b.Params, v)
}

// RemoveParam drops v from b's parameters and returns its former index,
// or -1 if v is not a parameter of b.
func (b *Block) RemoveParam(v *Value) int {
	i := b.ParamIndex(v)
	if i < 0 {
		return -1
	}
	b.Params = slices.Delete(b.Params, i, i+1)
	v.owner = nil
	return i
}

// Append attaches nodes at the end of b.
func (b *Block) Append(nodes ...*Node) {
	for _, n := range nodes {
		n.Detach()
		n.parent = b
		b.Nodes = append(b.Nodes, n)
	}
}

// Insert attaches n at position i.
func (b *Block) Insert(i int, n *Node) {
	n.Detach()
	n.parent = b
	b.Nodes = slices.Insert(b.Nodes, i, n)
}

// Index returns the position of n in b, or -1.
func (b *Block) Index(n *Node) int {
	return slices.Index(b.Nodes, n)
}

// Remove detaches n from b. It reports whether n was found.
func (b *Block) Remove(n *Node) bool {
	i := b.Index(n)
	if i < 0 {
		return false
	}
	b.Nodes = slices.Delete(b.Nodes, i, i+1)
	n.parent = nil
	return true
}

// Terminator returns the last node of b if it is a terminator.
func (b *Block) Terminator() *Node {
	if len(b.Nodes) == 0 {
		return nil
	}
	last := b.Nodes[len(b.Nodes)-1]
	if last.Kind.IsTerminator() {
		return last
	}
	return nil
}

// Walk visits root and its descendants in pre-order. Returning false from
// fn skips the children of the visited node.
func Walk(root *Node, fn func(*Node) bool) {
	if !fn(root) {
		return
	}
	for _, r := range root.Regions {
		for _, b := range r.Blocks {
			// Copy so fn may detach the node it visits.
			for _, child := range slices.Clone(b.Nodes) {
				Walk(child, fn)
			}
		}
	}
}

// Uses returns every node under root that takes v as an operand, in
// pre-order. A node using v twice appears once.
func Uses(root *Node, v *Value) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if slices.Contains(n.Operands, v) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ReplaceAllUses rewires every operand under root from old to repl.
func ReplaceAllUses(root *Node, old, repl *Value) {
	Walk(root, func(n *Node) bool {
		for i, op := range n.Operands {
			if op == old {
				n.Operands[i] = repl
			}
		}
		return true
	})
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}
