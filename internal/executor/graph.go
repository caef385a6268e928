package executor

import (
	"fmt"
	"sort"
	"strings"

	"recipeforge/internal/recipe"
	"recipeforge/internal/template"
)

type color int

const (
	white color = iota
	gray
	black
)

// Graph is the link dependency graph inferred textually from `{{ ... }}`
// occurrences (spec §4.6 step 2), used only for cycle detection: link
// order of execution is still the declared order.
type Graph struct {
	edges map[string][]string
}

// BuildGraph scans every link's string fields for `{{ OtherLink` mentions
// of any other link name and records an edge this -> OtherLink.
func BuildGraph(links []recipe.Link) *Graph {
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}

	g := &Graph{edges: make(map[string][]string, len(links))}
	for _, l := range links {
		text := flattenStrings(l.Raw)
		deps := template.References(text, names)
		filtered := deps[:0]
		for _, d := range deps {
			if d != l.Name {
				filtered = append(filtered, d)
			}
		}
		g.edges[l.Name] = filtered
	}
	return g
}

func flattenStrings(v any) string {
	var b strings.Builder
	flattenInto(&b, v)
	return b.String()
}

func flattenInto(b *strings.Builder, v any) {
	switch t := v.(type) {
	case string:
		b.WriteString(t)
		b.WriteByte(' ')
	case map[string]any:
		for _, sub := range t {
			flattenInto(b, sub)
		}
	case []any:
		for _, item := range t {
			flattenInto(b, item)
		}
	}
}

// DetectCycle runs three-colour DFS across the graph (spec §4.6 step 3),
// returning the cycle path ("A -> B -> A") on the first back-edge found.
func (g *Graph) DetectCycle() (string, bool) {
	colors := make(map[string]color, len(g.edges))
	var path []string

	var visit func(node string) (string, bool)
	visit = func(node string) (string, bool) {
		colors[node] = gray
		path = append(path, node)

		for _, dep := range g.edges[node] {
			switch colors[dep] {
			case gray:
				cyclePath := append(append([]string{}, path...), dep)
				return formatCycle(cyclePath), true
			case white:
				if cycle, found := visit(dep); found {
					return cycle, true
				}
			}
		}

		path = path[:len(path)-1]
		colors[node] = black
		return "", false
	}

	// Deterministic iteration order over the original declaration order
	// isn't tracked here, so sort for reproducible error messages.
	nodes := make([]string, 0, len(g.edges))
	for n := range g.edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, n := range nodes {
		if colors[n] == white {
			if cycle, found := visit(n); found {
				return cycle, true
			}
		}
	}
	return "", false
}

func formatCycle(path []string) string {
	// trim the path down to start at the repeated node.
	last := path[len(path)-1]
	for i, n := range path {
		if n == last {
			path = path[i:]
			break
		}
	}
	return strings.Join(path, " -> ")
}

// ErrCycle is a formatted fatal error reporting a detected dependency cycle.
func ErrCycle(path string) error {
	return fmt.Errorf("executor: dependency cycle detected: %s", path)
}
