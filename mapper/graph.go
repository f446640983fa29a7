package mapper

import (
	"reflect"
	"strings"

	"github.com/syssam/loom"
	"github.com/syssam/loom/schema"
)

// slot assigns the value at result index idx to a column.
type slot struct {
	idx int
	col *schema.Column
}

// node is one path of a result: the columns of one instance per row.
type node struct {
	path   string
	parent int // index of the parent node, -1 for the root
	rel    *schema.Relation
	entity *schema.Entity
	slots  []slot
	keys   []int // result index of each key column, nil if the key is not projected
}

// plan is the compiled column layout of a result. Parents precede their
// children in nodes.
type plan struct {
	nodes []*node
}

// compile resolves every column alias of a result against the entity graph
// rooted at root. Aliases of unknown columns are logged and skipped; paths
// that do not resolve to relations fail.
func (m *Mapper) compile(root *schema.Entity, columns []string) (*plan, error) {
	var (
		p      = &plan{nodes: []*node{{parent: -1, entity: root}}}
		byPath = map[string]int{"": 0}
	)
	for i, alias := range columns {
		path, name := splitAlias(alias)
		n, err := p.resolve(root, path, byPath)
		if err != nil {
			return nil, err
		}
		c, ok := n.entity.Column(name)
		if !ok {
			m.skip(alias, path, n.entity)
			continue
		}
		n.slots = append(n.slots, slot{idx: i, col: c})
	}
	for _, n := range p.nodes {
		n.keys = keyIndexes(n)
	}
	return p, nil
}

// resolve returns the node of path, adding the nodes of the path and of its
// missing prefixes.
func (p *plan) resolve(root *schema.Entity, path string, byPath map[string]int) (*node, error) {
	if i, ok := byPath[path]; ok {
		return p.nodes[i], nil
	}
	var (
		parent = 0
		owner  = root
		cur    string
	)
	for _, name := range strings.Split(path, ".") {
		if cur == "" {
			cur = name
		} else {
			cur += "." + name
		}
		if i, ok := byPath[cur]; ok {
			parent, owner = i, p.nodes[i].entity
			continue
		}
		rel, ok := owner.Relation(name)
		if !ok || rel.Target() == nil {
			return nil, loom.NewRelationNotFoundError(root.Table, path)
		}
		p.nodes = append(p.nodes, &node{path: cur, parent: parent, rel: rel, entity: rel.Target()})
		parent, owner = len(p.nodes)-1, rel.Target()
		byPath[cur] = parent
	}
	return p.nodes[parent], nil
}

func keyIndexes(n *node) []int {
	if len(n.entity.Keys) == 0 {
		return nil
	}
	keys := make([]int, len(n.entity.Keys))
	for i, k := range n.entity.Keys {
		keys[i] = -1
		for _, s := range n.slots {
			if s.col == k {
				keys[i] = s.idx
				break
			}
		}
		if keys[i] < 0 {
			return nil
		}
	}
	return keys
}

// edge is one link between two materialized instances.
type edge struct {
	parent, child any
	rel           *schema.Relation
}

// visit is one instance reached through one node.
type visit struct {
	obj  any
	node *node
}

// graph holds the instances materialized by one mapping call, keyed by
// entity and key, the nodes each instance was populated from, and the
// collection links already made.
type graph struct {
	arena  map[string]reflect.Value
	filled map[visit]struct{}
	edges  map[edge]struct{}
	row    []reflect.Value
}

func newGraph() *graph {
	return &graph{
		arena:  make(map[string]reflect.Value),
		filled: make(map[visit]struct{}),
		edges:  make(map[edge]struct{}),
	}
}

// add maps one row. It returns the root instance of the row, invalid if the
// root is a null placeholder. The root may be an instance first reached at a
// nested path of an earlier row.
func (g *graph) add(p *plan, values []any) (reflect.Value, error) {
	if cap(g.row) < len(p.nodes) {
		g.row = make([]reflect.Value, len(p.nodes))
	}
	row := g.row[:len(p.nodes)]
	clear(row)
	for i, n := range p.nodes {
		if n.parent >= 0 && !row[n.parent].IsValid() {
			continue
		}
		obj, err := g.materialize(n, values)
		if err != nil {
			return reflect.Value{}, err
		}
		if !obj.IsValid() {
			continue
		}
		row[i] = obj
		if n.parent >= 0 {
			g.link(row[n.parent], obj, n.rel)
		}
	}
	return row[0], nil
}

// materialize returns the instance of node n in this row. Rows sharing a key
// share the instance; it is populated from the first row reaching it through
// each node, so an instance first seen at a nested path gets the columns of
// the other paths it appears at later. A node
// with a NULL key column, or without projected columns, is a placeholder and
// yields an invalid value.
func (g *graph) materialize(n *node, values []any) (reflect.Value, error) {
	if len(n.slots) == 0 {
		return reflect.Value{}, nil
	}
	if n.keys == nil {
		if allNull(n, values) {
			return reflect.Value{}, nil
		}
		return populate(n, values)
	}
	key := make([]any, len(n.keys))
	for i, idx := range n.keys {
		if values[idx] == nil {
			return reflect.Value{}, nil
		}
		key[i] = values[idx]
	}
	ks := n.entity.KeyString(key)
	obj, ok := g.arena[ks]
	if !ok {
		obj = n.entity.New()
		g.arena[ks] = obj
	}
	v := visit{obj: obj.Interface(), node: n}
	if _, ok := g.filled[v]; ok {
		return obj, nil
	}
	g.filled[v] = struct{}{}
	if err := assign(n, obj, values); err != nil {
		return reflect.Value{}, err
	}
	return obj, nil
}

// link attaches child to parent through rel. Collection links are made once
// per (parent, child, relation).
func (g *graph) link(parent, child reflect.Value, rel *schema.Relation) {
	if !rel.Many() {
		rel.Set(parent.Elem(), child)
		return
	}
	e := edge{parent: parent.Interface(), child: child.Interface(), rel: rel}
	if _, ok := g.edges[e]; ok {
		return
	}
	g.edges[e] = struct{}{}
	rel.Append(parent.Elem(), child)
}

func populate(n *node, values []any) (reflect.Value, error) {
	obj := n.entity.New()
	if err := assign(n, obj, values); err != nil {
		return reflect.Value{}, err
	}
	return obj, nil
}

func assign(n *node, obj reflect.Value, values []any) error {
	for _, s := range n.slots {
		if err := s.col.Set(obj.Elem(), values[s.idx]); err != nil {
			return err
		}
	}
	return nil
}

func allNull(n *node, values []any) bool {
	for _, s := range n.slots {
		if values[s.idx] != nil {
			return false
		}
	}
	return true
}
