package graph

import (
	"fmt"
	"sort"
)

// Graph is the causal economic DAG: variables as nodes, relationships as
// directed edges. Acyclicity is enforced at insertion time, so consumers
// (notably the propagation engine) never need to re-check it.
//
// Graph is not safe for concurrent mutation. Once built it is read-only
// and may be shared across concurrent propagation runs.
type Graph struct {
	variables     map[string]*Variable
	relationships map[edgeKey]*Relationship
	successors    map[string][]string
	predecessors  map[string][]string
}

type edgeKey struct {
	source, target string
}

// New creates an empty causal graph.
func New() *Graph {
	return &Graph{
		variables:     make(map[string]*Variable),
		relationships: make(map[edgeKey]*Relationship),
		successors:    make(map[string][]string),
		predecessors:  make(map[string][]string),
	}
}

// AddVariable registers a variable. Names must be unique.
func (g *Graph) AddVariable(v *Variable) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, exists := g.variables[v.Name]; exists {
		return fmt.Errorf("variable %q already exists", v.Name)
	}
	g.variables[v.Name] = v
	return nil
}

// AddRelationship registers a causal edge. Both endpoints must already
// exist, self-loops are rejected, and any edge that would close a cycle
// is refused so the graph stays a DAG.
func (g *Graph) AddRelationship(r *Relationship) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, ok := g.variables[r.Source]; !ok {
		return fmt.Errorf("source variable %q does not exist", r.Source)
	}
	if _, ok := g.variables[r.Target]; !ok {
		return fmt.Errorf("target variable %q does not exist", r.Target)
	}
	if r.Source == r.Target {
		return fmt.Errorf("self-loop on %q is not allowed", r.Source)
	}
	key := edgeKey{r.Source, r.Target}
	if _, exists := g.relationships[key]; exists {
		return fmt.Errorf("relationship %s->%s already exists", r.Source, r.Target)
	}
	if g.reachable(r.Target, r.Source) {
		return fmt.Errorf("relationship %s->%s would create a cycle", r.Source, r.Target)
	}

	g.relationships[key] = r
	g.successors[r.Source] = append(g.successors[r.Source], r.Target)
	g.predecessors[r.Target] = append(g.predecessors[r.Target], r.Source)
	return nil
}

// reachable reports whether to can be reached from from by following edges.
func (g *Graph) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.successors[n] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Variable looks up a variable by name.
func (g *Graph) Variable(name string) (*Variable, bool) {
	v, ok := g.variables[name]
	return v, ok
}

// Relationship looks up the edge from source to target.
func (g *Graph) Relationship(source, target string) (*Relationship, bool) {
	r, ok := g.relationships[edgeKey{source, target}]
	return r, ok
}

// RelationshipsInto returns all edges whose target is name, sorted by
// source for deterministic iteration.
func (g *Graph) RelationshipsInto(name string) []*Relationship {
	sources := append([]string(nil), g.predecessors[name]...)
	sort.Strings(sources)
	rels := make([]*Relationship, 0, len(sources))
	for _, src := range sources {
		rels = append(rels, g.relationships[edgeKey{src, name}])
	}
	return rels
}

// RelationshipsFrom returns all edges whose source is name, sorted by
// target for deterministic iteration.
func (g *Graph) RelationshipsFrom(name string) []*Relationship {
	targets := append([]string(nil), g.successors[name]...)
	sort.Strings(targets)
	rels := make([]*Relationship, 0, len(targets))
	for _, tgt := range targets {
		rels = append(rels, g.relationships[edgeKey{name, tgt}])
	}
	return rels
}

// VariableNames returns all variable names in sorted order.
func (g *Graph) VariableNames() []string {
	names := make([]string, 0, len(g.variables))
	for name := range g.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumVariables returns the number of variables in the graph.
func (g *Graph) NumVariables() int { return len(g.variables) }

// NumRelationships returns the number of edges in the graph.
func (g *Graph) NumRelationships() int { return len(g.relationships) }

// TopologicalOrder returns every variable ordered so that all causes
// precede their effects. Ties are broken lexicographically, which makes
// the order (and therefore propagation output) fully deterministic.
func (g *Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(g.variables))
	for name := range g.variables {
		indegree[name] = len(g.predecessors[name])
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.variables))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var unlocked []string
		for _, next := range g.successors[n] {
			indegree[next]--
			if indegree[next] == 0 {
				unlocked = append(unlocked, next)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}
	return order
}

// Ancestors returns every variable with a directed path into name.
func (g *Graph) Ancestors(name string) (map[string]bool, error) {
	if _, ok := g.variables[name]; !ok {
		return nil, fmt.Errorf("variable %q not found", name)
	}
	return g.walk(name, g.predecessors), nil
}

// Descendants returns every variable reachable from name.
func (g *Graph) Descendants(name string) (map[string]bool, error) {
	if _, ok := g.variables[name]; !ok {
		return nil, fmt.Errorf("variable %q not found", name)
	}
	return g.walk(name, g.successors), nil
}

func (g *Graph) walk(start string, adj map[string][]string) map[string]bool {
	result := make(map[string]bool)
	stack := append([]string(nil), adj[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if result[n] {
			continue
		}
		result[n] = true
		stack = append(stack, adj[n]...)
	}
	return result
}

// Summary holds aggregate statistics about the graph.
type Summary struct {
	NumVariables     int                  `json:"num_variables"`
	NumRelationships int                  `json:"num_relationships"`
	VariableTypes    map[VariableType]int `json:"variable_types"`
	Isolated         []string             `json:"isolated,omitempty"`
}

// Summarize computes aggregate statistics, including variables with no
// edges at all (usually a modelling mistake worth flagging).
func (g *Graph) Summarize() Summary {
	s := Summary{
		NumVariables:     len(g.variables),
		NumRelationships: len(g.relationships),
		VariableTypes:    make(map[VariableType]int),
	}
	for name, v := range g.variables {
		s.VariableTypes[v.Type]++
		if len(g.predecessors[name]) == 0 && len(g.successors[name]) == 0 {
			s.Isolated = append(s.Isolated, name)
		}
	}
	sort.Strings(s.Isolated)
	return s
}
