// Package datatree implements the hierarchical container exchanged through a
// pipe: each node carries an optional geometry payload and ordered children.
package datatree

import (
	"thepipe/internal/geometry"
	"thepipe/internal/pipeutil"
)

// Node is one element of an exchange tree. A nil Payload marks a pure
// grouping node.
type Node struct {
	Payload  geometry.Value
	Children []*Node
}

// New returns a node carrying payload and the given children.
func New(payload geometry.Value, children ...*Node) *Node {
	return &Node{Payload: payload, Children: children}
}

// Group returns a payload-less node wrapping children.
func Group(children ...*Node) *Node {
	return &Node{Children: children}
}

// Leaves wraps each value in its own node under a payload-less parent.
func Leaves(values ...geometry.Value) *Node {
	root := &Node{Children: make([]*Node, 0, len(values))}
	for _, v := range values {
		root.Children = append(root.Children, New(v))
	}
	return root
}

// Add appends children and returns n for chaining.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Equal compares two trees under the default tolerance.
func Equal(a, b *Node) bool {
	return EqualWithin(a, b, geometry.DefaultTolerance)
}

// EqualWithin compares payloads through the geometry capability and children
// as a multiset: equal counts and a one-to-one pairing of equal children.
// Two nil trees are equal.
func EqualWithin(a, b *Node, tol geometry.Tolerance) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !geometry.EqualWithin(a.Payload, b.Payload, tol) {
		return false
	}
	return pipeutil.EqualIgnoreOrder(a.Children, b.Children, func(x, y *Node) bool {
		return EqualWithin(x, y, tol)
	})
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// Depth returns the number of levels; a single node has depth 1.
func (n *Node) Depth() int {
	deepest := 0
	n.Walk(func(_ *Node, d int) bool {
		if d+1 > deepest {
			deepest = d + 1
		}
		return true
	})
	return deepest
}

// Clone copies the node structure. Payload values are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Payload: n.Payload}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Payloads returns every non-nil payload in depth-first order.
func (n *Node) Payloads() []geometry.Value {
	var out []geometry.Value
	n.Walk(func(node *Node, _ int) bool {
		if node.Payload != nil {
			out = append(out, node.Payload)
		}
		return true
	})
	return out
}

// Kinds counts payloads per kind.
func (n *Node) Kinds() map[geometry.Kind]int {
	counts := make(map[geometry.Kind]int)
	for _, p := range n.Payloads() {
		counts[p.Kind()]++
	}
	return counts
}
