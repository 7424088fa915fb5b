package morloc

import (
	"github.com/Zach1031/morloc/pkg/mtype"
)

// aliasDef is one `type V p… = t` right-hand side.
type aliasDef struct {
	Params []mtype.TVar
	Body   mtype.Type
}

// aliasTable maps alias names to their definitions within one module's view.
type aliasTable map[mtype.TVar]aliasDef

// Desugar resolves type aliases transitively across the DAG and substitutes
// them in every signature and annotation. Aliases propagate along import
// edges; a name visible through two paths must resolve to equivalent
// definitions. After substitution, surviving existentials collapse to their
// first default.
func Desugar(dag *DAG) error {
	tables := make(map[MVar]aliasTable, len(dag.Modules))

	for _, name := range dag.Order {
		mod := dag.Modules[name]
		table := make(aliasTable)

		// Aliases travel with module imports regardless of term include
		// lists; the type namespace has no selective import surface.
		for _, edge := range dag.Edges[name] {
			for alias, def := range tables[edge.To] {
				if err := mergeAlias(table, alias, def); err != nil {
					return err
				}
			}
		}

		for _, node := range mod.Body {
			decl, ok := node.Expr.(AliasE)
			if !ok {
				continue
			}
			def := aliasDef{Params: decl.Params, Body: decl.Type}
			if referencesAlias(def.Body, decl.Name) {
				return SelfRecursiveAliasError{Alias: decl.Name}
			}
			if err := mergeAlias(table, decl.Name, def); err != nil {
				return err
			}
		}
		tables[name] = table

		for _, node := range mod.Body {
			switch e := node.Expr.(type) {
			case SigE:
				t, err := expandAliases(e.Type, table, nil)
				if err != nil {
					return err
				}
				e.Type = mtype.ResolveExistentials(t)
				node.Expr = e
			case AliasE:
				t, err := expandAliases(e.Type, table, map[mtype.TVar]bool{e.Name: true})
				if err != nil {
					return err
				}
				e.Type = t
				node.Expr = e
			}
		}
		if err := desugarAnnotations(mod.Body, table); err != nil {
			return err
		}
	}
	return nil
}

func desugarAnnotations(nodes []*ExprI, table aliasTable) error {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if e, ok := node.Expr.(AnnE); ok {
			t, err := expandAliases(e.Type, table, nil)
			if err != nil {
				return err
			}
			e.Type = mtype.ResolveExistentials(t)
			node.Expr = e
		}
		if err := desugarAnnotations(children(node), table); err != nil {
			return err
		}
	}
	return nil
}

// mergeAlias reconciles a new definition with any existing one. Two
// definitions agree when they have the same arity and each body is a subtype
// of the other under a shared parameter prefix.
func mergeAlias(table aliasTable, name mtype.TVar, def aliasDef) error {
	existing, ok := table[name]
	if !ok {
		table[name] = def
		return nil
	}
	if len(existing.Params) != len(def.Params) {
		return ConflictingTypeAliasesError{Alias: name}
	}
	// Rename the new definition's parameters onto the existing ones so the
	// bodies are compared over a common prefix.
	subs := mtype.NewSubs()
	for i, p := range def.Params {
		subs[p] = mtype.Var{V: existing.Params[i]}
	}
	renamed := def.Body.Apply(subs)
	if !mtype.Equivalent(existing.Body, renamed) {
		return ConflictingTypeAliasesError{Alias: name}
	}
	return nil
}

// referencesAlias reports whether the alias name occurs anywhere in t.
func referencesAlias(t mtype.Type, name mtype.TVar) bool {
	switch tt := t.(type) {
	case mtype.Var:
		return tt.V == name
	case mtype.Forall:
		if tt.Binder == name {
			return false
		}
		return referencesAlias(tt.Body, name)
	case mtype.Exist:
		for _, d := range tt.Defaults {
			if referencesAlias(d, name) {
				return true
			}
		}
		return false
	case mtype.Func:
		for _, a := range tt.Args {
			if referencesAlias(a, name) {
				return true
			}
		}
		return referencesAlias(tt.Ret, name)
	case mtype.App:
		if tt.Name == name {
			return true
		}
		for _, a := range tt.Args {
			if referencesAlias(a, name) {
				return true
			}
		}
		return false
	case mtype.Record:
		for _, p := range tt.Params {
			if referencesAlias(p, name) {
				return true
			}
		}
		for _, f := range tt.Fields {
			if referencesAlias(f.Value, name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// expandAliases substitutes alias references in t, recursively expanding the
// substituted bodies. The expanding set guards against mutual recursion
// between aliases, which reduces to self-recursion after one expansion.
func expandAliases(t mtype.Type, table aliasTable, expanding map[mtype.TVar]bool) (mtype.Type, error) {
	lookup := func(v mtype.TVar) (aliasDef, mtype.TVar, bool) {
		if def, ok := table[v]; ok {
			return def, v, true
		}
		// A concrete type may refer to a general alias.
		if v.Lang != "" {
			general := mtype.TVar{Name: v.Name}
			if def, ok := table[general]; ok {
				return def, general, true
			}
		}
		return aliasDef{}, v, false
	}

	expand := func(key mtype.TVar, def aliasDef, args []mtype.Type) (mtype.Type, error) {
		if expanding[key] {
			return nil, SelfRecursiveAliasError{Alias: key}
		}
		if len(def.Params) != len(args) {
			return nil, BadTypeAliasParametersError{Alias: key, Want: len(def.Params), Got: len(args)}
		}
		subs := mtype.NewSubs()
		for i, p := range def.Params {
			subs[p] = args[i]
		}
		inner := map[mtype.TVar]bool{key: true}
		for k := range expanding {
			inner[k] = true
		}
		return expandAliases(def.Body.Apply(subs), table, inner)
	}

	switch tt := t.(type) {
	case mtype.Var:
		if def, key, ok := lookup(tt.V); ok {
			return expand(key, def, nil)
		}
		return t, nil
	case mtype.Forall:
		body, err := expandAliases(tt.Body, table, expanding)
		if err != nil {
			return nil, err
		}
		return mtype.Forall{Binder: tt.Binder, Body: body}, nil
	case mtype.Exist:
		defaults := make([]mtype.Type, len(tt.Defaults))
		for i, d := range tt.Defaults {
			expanded, err := expandAliases(d, table, expanding)
			if err != nil {
				return nil, err
			}
			defaults[i] = expanded
		}
		return mtype.Exist{V: tt.V, Defaults: defaults}, nil
	case mtype.Func:
		args := make([]mtype.Type, len(tt.Args))
		for i, a := range tt.Args {
			expanded, err := expandAliases(a, table, expanding)
			if err != nil {
				return nil, err
			}
			args[i] = expanded
		}
		ret, err := expandAliases(tt.Ret, table, expanding)
		if err != nil {
			return nil, err
		}
		return mtype.Func{Args: args, Ret: ret}, nil
	case mtype.App:
		args := make([]mtype.Type, len(tt.Args))
		for i, a := range tt.Args {
			expanded, err := expandAliases(a, table, expanding)
			if err != nil {
				return nil, err
			}
			args[i] = expanded
		}
		if def, key, ok := lookup(tt.Name); ok {
			return expand(key, def, args)
		}
		return mtype.App{Name: tt.Name, Args: args}, nil
	case mtype.Record:
		params := make([]mtype.Type, len(tt.Params))
		for i, p := range tt.Params {
			expanded, err := expandAliases(p, table, expanding)
			if err != nil {
				return nil, err
			}
			params[i] = expanded
		}
		fields := make([]mtype.Field, len(tt.Fields))
		for i, f := range tt.Fields {
			expanded, err := expandAliases(f.Value, table, expanding)
			if err != nil {
				return nil, err
			}
			fields[i] = mtype.Field{Key: f.Key, Value: expanded}
		}
		return mtype.Record{Tag: tt.Tag, Name: tt.Name, Params: params, Fields: fields}, nil
	default:
		return t, nil
	}
}
