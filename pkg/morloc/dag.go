package morloc

import (
	"slices"
	"sort"
)

// AliasPair maps a name exported by the target module (Remote) to the name
// it is known by in the importer (Local).
type AliasPair struct {
	Remote EVar
	Local  EVar
}

// Edge is one resolved import: importer, target, and the alias map reduced
// from the import declaration.
type Edge struct {
	From    MVar
	To      MVar
	Aliases []AliasPair
}

// DAG is the resolved module graph. Order lists modules leaves-first, so a
// module always follows everything it imports.
type DAG struct {
	Modules map[MVar]*Module
	Root    MVar
	Order   []MVar
	Edges   map[MVar][]Edge // keyed by importer
}

// ResolveDAG builds the module dependency graph, reduces each import to an
// alias map, and verifies the graph is acyclic with a unique root.
func ResolveDAG(mods []*Module) (*DAG, error) {
	byName := make(map[MVar]*Module, len(mods))
	for _, m := range mods {
		byName[m.Name] = m
	}

	dag := &DAG{
		Modules: byName,
		Edges:   make(map[MVar][]Edge),
	}

	imported := make(map[MVar]bool)
	for _, m := range mods {
		for _, imp := range m.Imports {
			target, ok := byName[imp.From]
			if !ok {
				return nil, MissingModuleError{From: m.Name, Missing: imp.From}
			}
			aliases, err := resolveAliases(m.Name, imp, target)
			if err != nil {
				return nil, err
			}
			dag.Edges[m.Name] = append(dag.Edges[m.Name], Edge{
				From:    m.Name,
				To:      imp.From,
				Aliases: aliases,
			})
			imported[imp.From] = true
		}
	}

	var roots []MVar
	for _, m := range mods {
		if !imported[m.Name] {
			roots = append(roots, m.Name)
		}
	}
	if len(roots) != 1 {
		if len(roots) == 0 {
			// Every module is imported by some other module, so the graph
			// has no source and must contain a cycle.
			return nil, CyclicDependencyError{Modules: moduleNames(mods)}
		}
		sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
		return nil, NonUniqueRootError{Roots: roots}
	}
	dag.Root = roots[0]

	order, err := topoSort(mods, dag.Edges)
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// resolveAliases reduces one import declaration to its alias map. With no
// include list the map is the identity over the target's exports, minus any
// excluded names.
func resolveAliases(importer MVar, imp Import, target *Module) ([]AliasPair, error) {
	excluded := func(name EVar) bool {
		return slices.Contains(imp.Exclude, name)
	}

	if imp.Include == nil {
		var pairs []AliasPair
		for _, name := range target.Exports {
			if excluded(name) {
				continue
			}
			pairs = append(pairs, AliasPair{Remote: name, Local: name})
		}
		return pairs, nil
	}

	pairs := make([]AliasPair, 0, len(imp.Include))
	for _, term := range imp.Include {
		if excluded(term.Name) {
			return nil, ImportContradictionError{Module: importer, Name: term.Name}
		}
		if !slices.Contains(target.Exports, term.Name) {
			return nil, ImportMissingError{From: importer, Target: target.Name, Name: term.Name}
		}
		local := term.Alias
		if local == "" {
			local = term.Name
		}
		pairs = append(pairs, AliasPair{Remote: term.Name, Local: local})
	}
	return pairs, nil
}

// topoSort orders modules leaves-first by Kahn's algorithm. A nonempty
// remainder means the graph has a cycle.
func topoSort(mods []*Module, edges map[MVar][]Edge) ([]MVar, error) {
	// outDegree counts unprocessed imports per module.
	outDegree := make(map[MVar]int, len(mods))
	importers := make(map[MVar][]MVar)
	for _, m := range mods {
		outDegree[m.Name] = len(edges[m.Name])
		for _, e := range edges[m.Name] {
			importers[e.To] = append(importers[e.To], m.Name)
		}
	}

	var ready []MVar
	for _, m := range mods {
		if outDegree[m.Name] == 0 {
			ready = append(ready, m.Name)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []MVar
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, up := range importers[next] {
			outDegree[up]--
			if outDegree[up] == 0 {
				ready = append(ready, up)
			}
		}
	}

	if len(order) != len(mods) {
		var stuck []MVar
		for name, deg := range outDegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return stuck[i] < stuck[j] })
		return nil, CyclicDependencyError{Modules: stuck}
	}
	return order, nil
}

func moduleNames(mods []*Module) []MVar {
	names := make([]MVar, len(mods))
	for i, m := range mods {
		names[i] = m.Name
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
