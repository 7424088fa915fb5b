package morloc

import (
	"github.com/benbjohnson/immutable"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// Realization is one language-specific implementation of a term: the backend
// language, the symbol and file it is sourced from, and the concrete type
// when a concrete signature was given.
type Realization struct {
	Lang       string
	SourceName string
	SourcePath string
	Type       mtype.Type // nil when no concrete signature exists
}

// TermTypes bundles everything known about one term: its at-most-one general
// type, its concrete realizations, and its declaration bodies.
type TermTypes struct {
	General  mtype.Type
	Concrete []Realization
	Decls    []*ExprI
}

func (t TermTypes) empty() bool {
	return t.General == nil && len(t.Concrete) == 0 && len(t.Decls) == 0
}

// TermTable is the frozen output of signature unification: a per-module term
// scope and a global map from expression index to the term's types.
type TermTable struct {
	Scopes map[MVar]map[EVar]TermTypes
	Nodes  map[int]TermTypes
}

// Lookup returns the TermTypes recorded for an expression node.
func (t *TermTable) Lookup(index int) (TermTypes, bool) {
	tt, ok := t.Nodes[index]
	return tt, ok
}

// Scope returns a module's visible terms after import joining.
func (t *TermTable) Scope(mod MVar) map[EVar]TermTypes {
	return t.Scopes[mod]
}

// BuildTermTable partitions each module's body into signature, source, and
// declaration buckets, merges them into TermTypes records, joins scopes
// across imports via alias maps, and records a table entry for every
// expression node that refers to a term.
func BuildTermTable(dag *DAG) (*TermTable, error) {
	table := &TermTable{
		Scopes: make(map[MVar]map[EVar]TermTypes, len(dag.Modules)),
		Nodes:  make(map[int]TermTypes),
	}

	for _, name := range dag.Order {
		mod := dag.Modules[name]
		scope, err := moduleScope(mod)
		if err != nil {
			return nil, err
		}
		for _, edge := range dag.Edges[name] {
			for _, pair := range edge.Aliases {
				remote, ok := table.Scopes[edge.To][pair.Remote]
				if !ok {
					continue
				}
				merged, err := mergeTermTypes(pair.Local, scope[pair.Local], remote)
				if err != nil {
					return nil, err
				}
				scope[pair.Local] = merged
			}
		}
		for term, tt := range scope {
			tt.Concrete = coalesceRealizations(tt.Concrete)
			scope[term] = tt
		}
		if err := checkConcreteSources(scope); err != nil {
			return nil, err
		}
		table.Scopes[name] = scope
	}

	for _, name := range dag.Order {
		mod := dag.Modules[name]
		env := immutable.NewMap[string, TermTypes](nil)
		for term, tt := range table.Scopes[name] {
			env = env.Set(string(term), tt)
		}
		for _, node := range mod.Body {
			recordTermRefs(node, env, table.Nodes)
		}
	}

	return table, nil
}

// moduleScope collects the three buckets for every term declared directly in
// one module.
func moduleScope(mod *Module) (map[EVar]TermTypes, error) {
	scope := make(map[EVar]TermTypes)

	// Sources first, so concrete signatures have realizations to land on.
	for _, node := range mod.Body {
		src, ok := node.Expr.(SourceE)
		if !ok {
			continue
		}
		for _, sn := range src.Names {
			local := sn.Alias
			if local == "" {
				local = EVar(sn.Remote)
			}
			tt := scope[local]
			tt.Concrete = append(tt.Concrete, Realization{
				Lang:       src.Lang,
				SourceName: sn.Remote,
				SourcePath: src.Path,
			})
			scope[local] = tt
		}
	}

	for _, node := range mod.Body {
		switch e := node.Expr.(type) {
		case SigE:
			tt := scope[e.Name]
			if e.Lang == "" {
				if tt.General != nil {
					return nil, MultipleGeneralTypesError{Term: e.Name}
				}
				tt.General = e.Type
			} else {
				attached := false
				for i := range tt.Concrete {
					if tt.Concrete[i].Lang == e.Lang && tt.Concrete[i].Type == nil {
						tt.Concrete[i].Type = e.Type
						attached = true
						break
					}
				}
				if !attached {
					// Keep the realization placeholder; the source check
					// below rejects it if no source ever matches.
					tt.Concrete = append(tt.Concrete, Realization{
						Lang: e.Lang,
						Type: e.Type,
					})
				}
			}
			scope[e.Name] = tt
		case DeclE:
			tt := scope[e.Name]
			tt.Decls = append(tt.Decls, node)
			scope[e.Name] = tt
		}
	}

	return scope, nil
}

// mergeTermTypes joins a locally visible record with one imported under the
// same local name. General types go through the structural unifier.
func mergeTermTypes(term EVar, local, imported TermTypes) (TermTypes, error) {
	out := local
	if out.General == nil {
		out.General = imported.General
	} else if imported.General != nil {
		if _, err := mtype.Unify(out.General, imported.General); err != nil {
			return TermTypes{}, IncompatibleGeneralTypeError{Term: term, Inner: err}
		}
	}
	out.Concrete = append(out.Concrete, imported.Concrete...)
	out.Decls = append(out.Decls, imported.Decls...)
	return out, nil
}

// coalesceRealizations folds a signature-only placeholder onto a sourced
// realization of the same language when one exists, so an imported source
// and a local concrete signature form a single realization.
func coalesceRealizations(rs []Realization) []Realization {
	var out []Realization
	for _, r := range rs {
		if r.SourceName != "" {
			out = append(out, r)
		}
	}
	for _, r := range rs {
		if r.SourceName != "" {
			continue
		}
		attached := false
		for i := range out {
			if out[i].Lang == r.Lang && out[i].Type == nil {
				out[i].Type = r.Type
				attached = true
				break
			}
		}
		if !attached {
			out = append(out, r)
		}
	}
	return out
}

// checkConcreteSources rejects concrete signatures that never found a source
// in the merged scope.
func checkConcreteSources(scope map[EVar]TermTypes) error {
	for term, tt := range scope {
		for _, r := range tt.Concrete {
			if r.SourceName == "" {
				// A placeholder left by a signature with no source may still
				// be satisfied by a sourced realization of the same language
				// that arrived through an import.
				satisfied := false
				for _, other := range tt.Concrete {
					if other.Lang == r.Lang && other.SourceName != "" {
						satisfied = true
						break
					}
				}
				if !satisfied {
					return ConcreteWithoutSourceError{Term: term, Lang: r.Lang}
				}
			}
		}
	}
	return nil
}

// recordTermRefs walks an expression, recording the visible TermTypes for
// every variable reference. Binding introductions delete the shadowed term
// for the duration of the body's traversal.
func recordTermRefs(node *ExprI, env *immutable.Map[string, TermTypes], out map[int]TermTypes) {
	if node == nil {
		return
	}
	switch e := node.Expr.(type) {
	case VarE:
		if tt, ok := env.Get(string(e.Name)); ok && !tt.empty() {
			out[node.Index] = tt
		}
	case LamE:
		inner := env
		for _, p := range e.Params {
			inner = inner.Delete(string(p))
		}
		recordTermRefs(e.Body, inner, out)
	case DeclE:
		inner := env.Delete(string(e.Name))
		for _, w := range e.Where {
			if wd, ok := w.Expr.(DeclE); ok {
				inner = inner.Delete(string(wd.Name))
			}
		}
		recordTermRefs(e.Value, inner, out)
		for _, w := range e.Where {
			recordTermRefs(w, inner, out)
		}
	default:
		for _, c := range children(node) {
			recordTermRefs(c, env, out)
		}
	}
}
