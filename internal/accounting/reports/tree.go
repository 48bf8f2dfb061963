package reports

import (
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/accounts"
)

// Node is an account in the chart of accounts tree.
type Node struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	NameLocalized *string            `json:"name_localized"`
	Level         int                `json:"level"`
	ParentID      *string            `json:"parent_id"`
	Status        accounts.Status    `json:"status"`
	Category      *string            `json:"category"`
	Children      []*Node            `json:"children,omitempty"`
	Amounts       accounting.Amounts `json:"amounts"`
	Rollup        accounting.Amounts `json:"rollup"`
}

// HasChildren reports whether the node has descendants.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// DisplayName returns the localized name when requested and available.
func (n *Node) DisplayName(localized bool) string {
	if localized && n.NameLocalized != nil && strings.TrimSpace(*n.NameLocalized) != "" {
		return *n.NameLocalized
	}
	return n.Name
}

// Forest is the ordered set of root nodes produced by Build.
type Forest struct {
	Roots []*Node `json:"roots"`
	// Orphans lists ids whose parent_id did not resolve and that were promoted to roots.
	Orphans []string `json:"orphans,omitempty"`
	// Duplicates lists ids that appeared more than once; the first row wins.
	Duplicates []string `json:"duplicates,omitempty"`

	index map[string]*Node
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

// Find looks up a node by id.
func (f *Forest) Find(id string) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	n, ok := f.index[id]
	return n, ok
}

// Walk visits every node in pre-order.
func (f *Forest) Walk(fn func(*Node)) {
	if f == nil {
		return
	}
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	visit(f.Roots)
}

// MaxLevel returns the deepest level present in the forest.
func (f *Forest) MaxLevel() int {
	max := 0
	f.Walk(func(n *Node) {
		if n.Level > max {
			max = n.Level
		}
	})
	return max
}

// CompareFunc orders account codes; negative when a sorts before b.
type CompareFunc func(a, b string) int

// Build links flat account rows into a forest sorted by code at every level.
// Rows without a resolvable parent become roots and are reported in Orphans.
func Build(rows []accounts.Account, amounts map[string]accounting.Amounts, cmp CompareFunc) *Forest {
	if cmp == nil {
		cmp = strings.Compare
	}
	f := &Forest{index: make(map[string]*Node, len(rows))}
	ordered := make([]*Node, 0, len(rows))
	for _, row := range rows {
		if _, seen := f.index[row.ID]; seen {
			f.Duplicates = append(f.Duplicates, row.ID)
			continue
		}
		level := row.Level
		if level < 1 {
			level = 1
		}
		n := &Node{
			ID:            row.ID,
			Code:          row.Code,
			Name:          row.Name,
			NameLocalized: row.NameLocalized,
			Level:         level,
			ParentID:      row.ParentID,
			Status:        row.Status,
			Category:      row.Category,
			Amounts:       amounts[row.ID],
		}
		f.index[n.ID] = n
		ordered = append(ordered, n)
	}

	for _, n := range ordered {
		if n.ParentID != nil && *n.ParentID != "" {
			if parent, ok := f.index[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
			f.Orphans = append(f.Orphans, n.ID)
		}
		f.Roots = append(f.Roots, n)
	}

	// Parent cycles leave nodes unreachable from any root; cut them loose.
	reached := make(map[string]bool, len(ordered))
	var mark func(n *Node)
	mark = func(n *Node) {
		if reached[n.ID] {
			return
		}
		reached[n.ID] = true
		for _, c := range n.Children {
			mark(c)
		}
	}
	for _, r := range f.Roots {
		mark(r)
	}
	for _, n := range ordered {
		if reached[n.ID] {
			continue
		}
		parent := f.index[*n.ParentID]
		parent.Children = removeChild(parent.Children, n)
		f.Roots = append(f.Roots, n)
		f.Orphans = append(f.Orphans, n.ID)
		mark(n)
	}

	sortNodes(f.Roots, cmp)
	return f
}

func removeChild(children []*Node, target *Node) []*Node {
	out := children[:0]
	for _, c := range children {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

func sortNodes(nodes []*Node, cmp CompareFunc) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return cmp(nodes[i].Code, nodes[j].Code) < 0
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortNodes(n.Children, cmp)
		}
	}
}
