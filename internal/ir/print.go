package ir

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Numbering assigns print numbers to values in pre-order: a node's results
// first, then the parameters of each nested block before its nodes.
type Numbering struct {
	ids  map[*Value]int
	next int
}

// NumberValues numbers every value defined under root.
func NumberValues(root *Node) *Numbering {
	num := &Numbering{ids: map[*Value]int{}}
	num.visit(root)
	return num
}

func (num *Numbering) visit(n *Node) {
	for _, v := range n.Results {
		num.ID(v)
	}
	for _, r := range n.Regions {
		for _, b := range r.Blocks {
			for _, p := range b.Params {
				num.ID(p)
			}
			for _, child := range b.Nodes {
				num.visit(child)
			}
		}
	}
}

// ID returns v's number, assigning the next free one to values defined
// outside the numbered tree.
func (num *Numbering) ID(v *Value) int {
	if id, ok := num.ids[v]; ok {
		return id
	}
	id := num.next
	num.ids[v] = id
	num.next++
	return id
}

// Print writes the textual form of the tree rooted at n.
func Print(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	p := &printer{w: bw, num: NumberValues(n)}
	p.node(n, 0)
	return bw.Flush()
}

// String returns the textual form of the tree rooted at n.
func String(n *Node) string {
	var sb strings.Builder
	_ = Print(&sb, n)
	return sb.String()
}

type printer struct {
	w   *bufio.Writer
	num *Numbering
}

func (p *printer) ref(v *Value) string {
	return "%" + strconv.Itoa(p.num.ID(v))
}

func (p *printer) refs(vals []*Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = p.ref(v)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) node(n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	p.w.WriteString(indent)
	if len(n.Results) > 0 {
		p.w.WriteString(p.refs(n.Results))
		p.w.WriteString(" = ")
	}
	p.w.WriteString(string(n.Kind))
	if len(n.Operands) > 0 {
		fmt.Fprintf(p.w, "(%s)", p.refs(n.Operands))
	}
	if len(n.Attrs) > 0 {
		keys := make([]string, 0, len(n.Attrs))
		for k := range n.Attrs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + n.Attrs[k].String()
		}
		fmt.Fprintf(p.w, " {%s}", strings.Join(parts, ", "))
	}
	if len(n.Results) > 0 {
		types := make([]string, len(n.Results))
		for i, v := range n.Results {
			types[i] = v.Type.String()
		}
		p.w.WriteString(" : " + strings.Join(types, ", "))
	}
	if len(n.Regions) > 0 {
		p.w.WriteString(" (")
		for i, r := range n.Regions {
			if i > 0 {
				p.w.WriteString(", ")
			}
			p.w.WriteString("{\n")
			for _, b := range r.Blocks {
				p.block(b, depth+1)
			}
			p.w.WriteString(indent + "}")
		}
		p.w.WriteString(")")
	}
	p.w.WriteString("\n")
}

func (p *printer) block(b *Block, depth int) {
	if len(b.Params) > 0 {
		parts := make([]string, len(b.Params))
		for i, v := range b.Params {
			parts[i] = p.ref(v) + ": " + v.Type.String()
		}
		fmt.Fprintf(p.w, "%s^bb(%s):\n", strings.Repeat("  ", depth), strings.Join(parts, ", "))
	}
	for _, n := range b.Nodes {
		p.node(n, depth)
	}
}
