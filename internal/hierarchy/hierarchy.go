// Package hierarchy holds the immutable multi-parent dialect tree and answers
// the end-dialect and descendant queries the filter matcher needs. The tree is
// built once at startup and is safe for unsynchronized concurrent reads.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ErrConstruction indicates malformed dialect source data. Construction
// errors are fatal at startup: the hierarchy is foundational and read-only.
var ErrConstruction = errors.New("invalid dialect hierarchy")

// Node is one dialect in the tree. A node may have multiple parents: a
// dialect can be classified under more than one ancestor path.
type Node struct {
	Name     string
	Parents  []*Node
	Children []*Node
}

// Path is one root-to-node path, with a flattened string key
type Path struct {
	Steps []string
	Key   string
}

// Source is the raw nested dialect map: name -> nested Source (or nil for a
// leaf). Static configuration, typically decoded from YAML.
type Source map[string]any

// Hierarchy is the built dialect tree plus a by-name lookup table
type Hierarchy struct {
	nodes map[string]*Node
	roots []*Node
	log   zerolog.Logger
}

// Build constructs the hierarchy from the nested source map. A name already
// seen under another parent gets an additional parent link rather than a
// duplicate node. Cyclic source data is a construction error.
func Build(src Source, log zerolog.Logger) (*Hierarchy, error) {
	h := &Hierarchy{
		nodes: make(map[string]*Node),
		log:   log,
	}

	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.walk(name, src[name], nil, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hierarchy) walk(name string, children any, parent *Node, trail map[string]bool) error {
	if trail[name] {
		return fmt.Errorf("%w: cycle through %q", ErrConstruction, name)
	}

	node, seen := h.nodes[name]
	if !seen {
		node = &Node{Name: name}
		h.nodes[name] = node
	}
	if parent == nil {
		if !seen {
			h.roots = append(h.roots, node)
		}
	} else if !linked(parent, node) {
		parent.Children = append(parent.Children, node)
		node.Parents = append(node.Parents, parent)
	}

	childMap, err := asMap(children)
	if err != nil {
		return fmt.Errorf("%w: node %q: %v", ErrConstruction, name, err)
	}
	if len(childMap) == 0 {
		return nil
	}

	childNames := make([]string, 0, len(childMap))
	for child := range childMap {
		childNames = append(childNames, child)
	}
	sort.Strings(childNames)

	trail[name] = true
	for _, child := range childNames {
		if err := h.walk(child, childMap[child], node, trail); err != nil {
			return err
		}
	}
	delete(trail, name)
	return nil
}

func linked(parent, child *Node) bool {
	for _, c := range parent.Children {
		if c == child {
			return true
		}
	}
	return false
}

// asMap normalizes the child value of a source entry. YAML decodes nested
// maps as map[string]interface{}; nil marks a leaf.
func asMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case Source:
		return m, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("unexpected child value of type %T", v)
	}
}

// Contains reports whether name exists in the hierarchy
func (h *Hierarchy) Contains(name string) bool {
	_, ok := h.nodes[name]
	return ok
}

// Len returns the number of distinct dialects in the hierarchy
func (h *Hierarchy) Len() int { return len(h.nodes) }

// IsEndDialect reports whether name is the most specific dialect actually
// present in observed: true iff none of name's transitive children appear in
// the observed set. An unknown name is never an end dialect.
func (h *Hierarchy) IsEndDialect(name string, observed []string) bool {
	node, ok := h.nodes[name]
	if !ok {
		h.log.Warn().Str("dialect", name).Msg("dialect not in hierarchy")
		return false
	}
	obs := make(map[string]bool, len(observed))
	for _, o := range observed {
		obs[o] = true
	}
	found := false
	h.descend(node, func(child *Node) bool {
		if obs[child.Name] {
			found = true
			return false
		}
		return true
	})
	return !found
}

// SubDialectsOf returns every transitive descendant of name, depth-first.
// An unknown name yields an empty set.
func (h *Hierarchy) SubDialectsOf(name string) []string {
	node, ok := h.nodes[name]
	if !ok {
		h.log.Warn().Str("dialect", name).Msg("dialect not in hierarchy")
		return nil
	}
	var out []string
	h.descend(node, func(child *Node) bool {
		out = append(out, child.Name)
		return true
	})
	return out
}

// descend visits every distinct transitive descendant of node depth-first,
// stopping early when visit returns false.
func (h *Hierarchy) descend(node *Node, visit func(*Node) bool) {
	seen := map[*Node]bool{}
	var rec func(*Node) bool
	rec = func(n *Node) bool {
		for _, c := range n.Children {
			if seen[c] {
				continue
			}
			seen[c] = true
			if !visit(c) {
				return false
			}
			if !rec(c) {
				return false
			}
		}
		return true
	}
	rec(node)
}

// PathsOf returns every root-to-name path. A node with multiple parents maps
// to multiple paths; an unknown name maps to none.
func (h *Hierarchy) PathsOf(name string) []Path {
	node, ok := h.nodes[name]
	if !ok {
		h.log.Warn().Str("dialect", name).Msg("dialect not in hierarchy")
		return nil
	}
	steps := h.climb(node)
	paths := make([]Path, 0, len(steps))
	for _, s := range steps {
		paths = append(paths, Path{Steps: s, Key: strings.Join(s, " > ")})
	}
	return paths
}

func (h *Hierarchy) climb(node *Node) [][]string {
	if len(node.Parents) == 0 {
		return [][]string{{node.Name}}
	}
	var out [][]string
	for _, p := range node.Parents {
		for _, prefix := range h.climb(p) {
			steps := make([]string, 0, len(prefix)+1)
			steps = append(steps, prefix...)
			steps = append(steps, node.Name)
			out = append(out, steps)
		}
	}
	return out
}

// AnyDialectInPaths reports whether any of names appears as a step in any of
// the given paths.
func AnyDialectInPaths(names []string, paths []Path) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, p := range paths {
		for _, step := range p.Steps {
			if set[step] {
				return true
			}
		}
	}
	return false
}
