package reports

import "sort"

// Expansion tracks which nodes are expanded. It lives outside the nodes so a
// forest can be shared while each view keeps its own state. Not safe for
// concurrent use.
type Expansion struct {
	ids map[string]struct{}
}

// NewExpansion returns an expansion set seeded with ids.
func NewExpansion(ids ...string) *Expansion {
	e := &Expansion{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		e.ids[id] = struct{}{}
	}
	return e
}

// Toggle expands a collapsed node or collapses an expanded one.
func (e *Expansion) Toggle(id string) {
	if e.ids == nil {
		e.ids = make(map[string]struct{})
	}
	if _, ok := e.ids[id]; ok {
		delete(e.ids, id)
		return
	}
	e.ids[id] = struct{}{}
}

// ExpandToLevel replaces the set with every node whose level is at most n.
func (e *Expansion) ExpandToLevel(f *Forest, n int) {
	e.ids = make(map[string]struct{})
	f.Walk(func(node *Node) {
		if node.Level <= n {
			e.ids[node.ID] = struct{}{}
		}
	})
}

// ExpandAll expands every node of the forest.
func (e *Expansion) ExpandAll(f *Forest) {
	e.ids = make(map[string]struct{}, f.Len())
	f.Walk(func(node *Node) {
		e.ids[node.ID] = struct{}{}
	})
}

// CollapseAll clears the set.
func (e *Expansion) CollapseAll() {
	e.ids = make(map[string]struct{})
}

// CollapseBranch collapses node and every descendant.
func (e *Expansion) CollapseBranch(node *Node) {
	if node == nil {
		return
	}
	delete(e.ids, node.ID)
	for _, c := range node.Children {
		e.CollapseBranch(c)
	}
}

// IsExpanded reports whether id is expanded.
func (e *Expansion) IsExpanded(id string) bool {
	if e == nil {
		return false
	}
	_, ok := e.ids[id]
	return ok
}

// Len returns the number of expanded ids.
func (e *Expansion) Len() int {
	if e == nil {
		return 0
	}
	return len(e.ids)
}

// IDs returns the expanded ids in sorted order.
func (e *Expansion) IDs() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (e *Expansion) Clone() *Expansion {
	return NewExpansion(e.IDs()...)
}

// VisibleRows flattens roots in pre-order, descending only into expanded nodes.
func VisibleRows(roots []*Node, e *Expansion) []*Node {
	rows := make([]*Node, 0, len(roots))
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			rows = append(rows, n)
			if e.IsExpanded(n.ID) {
				visit(n.Children)
			}
		}
	}
	visit(roots)
	return rows
}
