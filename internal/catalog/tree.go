package catalog

import (
	"sort"
	"strings"

	"threadline/internal/domain"
)

// MaxDepth bounds every walk over the tree.
const MaxDepth = 64

// Node is one category in the arena. Parent and children are stored as
// plain ids and arena indexes.
type Node struct {
	ID           int64
	ParentID     int64
	Slug         string
	Name         string
	Level        int
	ProductCount int
	children     []int
}

// Tree is an immutable snapshot of the category hierarchy. It is safe for
// concurrent readers.
type Tree struct {
	nodes  []Node
	byID   map[int64]int
	bySlug map[string]int
	roots  []int
}

// CategoryNode is the nested shape handed to templates and JSON clients.
type CategoryNode struct {
	ID           int64          `json:"id"`
	Slug         string         `json:"slug"`
	Name         string         `json:"name"`
	Level        int            `json:"level"`
	ProductCount int            `json:"productCount"`
	Children     []CategoryNode `json:"children,omitempty"`
}

// FlatNode is a depth-first row, used by admin selects and tree search.
type FlatNode struct {
	ID           int64  `json:"id"`
	ParentID     int64  `json:"parentId"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Level        int    `json:"level"`
	ProductCount int    `json:"productCount"`
	Match        bool   `json:"match,omitempty"`
}

// Indent is a display prefix for select options.
func (f FlatNode) Indent() string {
	if f.Level <= 1 {
		return ""
	}
	return strings.Repeat("-- ", f.Level-1)
}

// NewTree builds the arena from a flat parent-id listing. Siblings are
// ordered by SortOrder then Name. Rows whose parent is missing are promoted
// to roots, and so is any row that can only be reached through a cycle.
func NewTree(flat []domain.Category) *Tree {
	rows := make([]domain.Category, len(flat))
	copy(rows, flat)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SortOrder != rows[j].SortOrder {
			return rows[i].SortOrder < rows[j].SortOrder
		}
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})

	t := &Tree{
		nodes:  make([]Node, 0, len(rows)),
		byID:   make(map[int64]int, len(rows)),
		bySlug: make(map[string]int, len(rows)),
	}
	for _, c := range rows {
		if _, dup := t.byID[c.ID]; dup {
			continue
		}
		slug := normSlug(c.Slug)
		if _, dup := t.bySlug[slug]; dup {
			continue
		}
		idx := len(t.nodes)
		t.nodes = append(t.nodes, Node{
			ID:           c.ID,
			ParentID:     c.ParentID,
			Slug:         c.Slug,
			Name:         c.Name,
			ProductCount: c.ProductCount,
		})
		t.byID[c.ID] = idx
		t.bySlug[slug] = idx
	}

	for i := range t.nodes {
		n := &t.nodes[i]
		p, ok := t.byID[n.ParentID]
		if n.ParentID == 0 || !ok || p == i {
			n.ParentID = 0
			t.roots = append(t.roots, i)
			continue
		}
		t.nodes[p].children = append(t.nodes[p].children, i)
	}

	t.assignLevels(t.roots)
	for i := range t.nodes {
		if t.nodes[i].Level != 0 {
			continue
		}
		// unreachable: part of a parent cycle
		t.detach(i)
		t.roots = append(t.roots, i)
		t.assignLevels([]int{i})
	}

	for _, r := range t.roots {
		t.sumCounts(r, 1)
	}
	return t
}

func normSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (t *Tree) assignLevels(from []int) {
	type item struct{ idx, level int }
	queue := make([]item, 0, len(from))
	for _, r := range from {
		queue = append(queue, item{r, 1})
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		n := &t.nodes[it.idx]
		if n.Level != 0 {
			continue
		}
		n.Level = it.level
		for _, c := range n.children {
			queue = append(queue, item{c, it.level + 1})
		}
	}
}

func (t *Tree) detach(idx int) {
	n := &t.nodes[idx]
	if p, ok := t.byID[n.ParentID]; ok {
		kids := t.nodes[p].children[:0]
		for _, c := range t.nodes[p].children {
			if c != idx {
				kids = append(kids, c)
			}
		}
		t.nodes[p].children = kids
	}
	n.ParentID = 0
}

// sumCounts turns direct product counts into subtree totals.
func (t *Tree) sumCounts(idx, depth int) int {
	n := &t.nodes[idx]
	if depth > MaxDepth {
		return n.ProductCount
	}
	total := n.ProductCount
	for _, c := range n.children {
		total += t.sumCounts(c, depth+1)
	}
	n.ProductCount = total
	return total
}

// Len is the number of categories in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

func (t *Tree) ByID(id int64) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

func (t *Tree) BySlug(slug string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	i, ok := t.bySlug[normSlug(slug)]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Roots returns the top-level categories in display order.
func (t *Tree) Roots() []Node {
	if t == nil {
		return nil
	}
	out := make([]Node, len(t.roots))
	for i, r := range t.roots {
		out[i] = t.nodes[r]
	}
	return out
}

// Children returns the direct children of id in display order.
func (t *Tree) Children(id int64) []Node {
	if t == nil {
		return nil
	}
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	out := make([]Node, len(t.nodes[i].children))
	for k, c := range t.nodes[i].children {
		out[k] = t.nodes[c]
	}
	return out
}

// walk visits idx and everything below it, depth-first, pre-order.
func (t *Tree) walk(idx int, fn func(idx, depth int)) {
	type frame struct{ idx, depth int }
	stack := []frame{{idx, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(f.idx, f.depth)
		if f.depth >= MaxDepth {
			continue
		}
		kids := t.nodes[f.idx].children
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, frame{kids[k], f.depth + 1})
		}
	}
}

// Descendants returns the ids below id, not including id itself.
func (t *Tree) Descendants(id int64) []int64 {
	if t == nil {
		return nil
	}
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	var out []int64
	t.walk(i, func(idx, depth int) {
		if depth > 0 {
			out = append(out, t.nodes[idx].ID)
		}
	})
	return out
}

// Ancestors returns the path from the root down to id's parent.
func (t *Tree) Ancestors(id int64) []Node {
	if t == nil {
		return nil
	}
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	var path []Node
	for d := 0; d < MaxDepth; d++ {
		p, ok := t.byID[t.nodes[i].ParentID]
		if t.nodes[i].ParentID == 0 || !ok {
			break
		}
		path = append(path, t.nodes[p])
		i = p
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// IDSet is a deduplicated set of category ids.
type IDSet map[int64]struct{}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	if len(s) == 0 {
		return nil
	}
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResolveCategoryIDs expands each selected slug to its own id plus the ids of
// all its descendants. Unknown slugs are ignored. An empty result means no
// category restriction only when slugs itself was empty; callers that need
// to tell the two apart check len(slugs).
func (t *Tree) ResolveCategoryIDs(slugs []string) IDSet {
	out := make(IDSet)
	if t == nil {
		return out
	}
	for _, s := range slugs {
		i, ok := t.bySlug[normSlug(s)]
		if !ok {
			continue
		}
		t.walk(i, func(idx, _ int) {
			out[t.nodes[idx].ID] = struct{}{}
		})
	}
	return out
}

// Nested returns the whole tree as owned nested values.
func (t *Tree) Nested() []CategoryNode {
	if t == nil {
		return nil
	}
	out := make([]CategoryNode, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, t.nest(r, 1))
	}
	return out
}

func (t *Tree) nest(idx, depth int) CategoryNode {
	n := t.nodes[idx]
	cn := CategoryNode{
		ID:           n.ID,
		Slug:         n.Slug,
		Name:         n.Name,
		Level:        n.Level,
		ProductCount: n.ProductCount,
	}
	if depth >= MaxDepth {
		return cn
	}
	for _, c := range n.children {
		cn.Children = append(cn.Children, t.nest(c, depth+1))
	}
	return cn
}

func (t *Tree) flat(idx int) FlatNode {
	n := t.nodes[idx]
	return FlatNode{
		ID:           n.ID,
		ParentID:     n.ParentID,
		Slug:         n.Slug,
		Name:         n.Name,
		Level:        n.Level,
		ProductCount: n.ProductCount,
	}
}

// Flatten lists every category depth-first with its level.
func (t *Tree) Flatten() []FlatNode {
	if t == nil {
		return nil
	}
	out := make([]FlatNode, 0, len(t.nodes))
	for _, r := range t.roots {
		t.walk(r, func(idx, _ int) {
			out = append(out, t.flat(idx))
		})
	}
	return out
}

// Search matches q case-insensitively against name and slug. Matches are
// returned depth-first together with their ancestors so the result still
// reads as a tree; only the matching rows have Match set.
func (t *Tree) Search(q string) []FlatNode {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return t.Flatten()
	}
	if t == nil {
		return nil
	}

	keep := make(map[int]bool)
	match := make(map[int]bool)
	for i, n := range t.nodes {
		if !strings.Contains(strings.ToLower(n.Name), q) && !strings.Contains(strings.ToLower(n.Slug), q) {
			continue
		}
		match[i] = true
		keep[i] = true
		cur := i
		for d := 0; d < MaxDepth; d++ {
			p, ok := t.byID[t.nodes[cur].ParentID]
			if t.nodes[cur].ParentID == 0 || !ok || keep[p] {
				break
			}
			keep[p] = true
			cur = p
		}
	}

	var out []FlatNode
	for _, r := range t.roots {
		t.walk(r, func(idx, _ int) {
			if !keep[idx] {
				return
			}
			f := t.flat(idx)
			f.Match = match[idx]
			out = append(out, f)
		})
	}
	return out
}
