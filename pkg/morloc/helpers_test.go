package morloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// Expression builders shared across the package tests. Each test owns an
// Indexer so node indices stay deterministic within a scenario.

func eVar(ix *Indexer, name string) *ExprI {
	return ix.New(VarE{Name: EVar(name)})
}

func eNum(ix *Indexer, raw string, v float64) *ExprI {
	return ix.New(NumE{Value: v, Raw: raw})
}

func eApp(ix *Indexer, fn *ExprI, args ...*ExprI) *ExprI {
	return ix.New(AppE{Fn: fn, Args: args})
}

func eLam(ix *Indexer, body *ExprI, params ...string) *ExprI {
	ps := make([]EVar, len(params))
	for i, p := range params {
		ps[i] = EVar(p)
	}
	return ix.New(LamE{Params: ps, Body: body})
}

func eDecl(ix *Indexer, name string, value *ExprI) *ExprI {
	return ix.New(DeclE{Name: EVar(name), Value: value})
}

func eSig(ix *Indexer, name, lang, typ string, props ...string) *ExprI {
	t := mustType(typ)
	return ix.New(SigE{Name: EVar(name), Lang: lang, Props: props, Type: t})
}

func eSource(ix *Indexer, lang, path string, names ...string) *ExprI {
	src := SourceE{Lang: lang, Path: path}
	for _, n := range names {
		src.Names = append(src.Names, SourceName{Remote: n, Alias: EVar(n)})
	}
	return ix.New(src)
}

func eSourceAs(ix *Indexer, lang, path, remote, alias string) *ExprI {
	return ix.New(SourceE{Lang: lang, Path: path, Names: []SourceName{{Remote: remote, Alias: EVar(alias)}}})
}

func eAlias(ix *Indexer, name, typ string, params ...string) *ExprI {
	a := AliasE{Name: mtype.TVar{Name: name}, Type: mustType(typ)}
	for _, p := range params {
		a.Params = append(a.Params, mtype.TVar{Name: p})
	}
	return ix.New(a)
}

func mustType(s string) mtype.Type {
	t, err := mtype.Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func exports(names ...string) []EVar {
	out := make([]EVar, len(names))
	for i, n := range names {
		out[i] = EVar(n)
	}
	return out
}

func includeAll(from string) Import {
	return Import{From: MVar(from)}
}

func include(from string, terms ...ImportTerm) Import {
	return Import{From: MVar(from), Include: terms}
}

func term(name string) ImportTerm {
	return ImportTerm{Name: EVar(name), Alias: EVar(name)}
}

func termAs(name, alias string) ImportTerm {
	return ImportTerm{Name: EVar(name), Alias: EVar(alias)}
}

func resolve(t *testing.T, mods ...*Module) *DAG {
	t.Helper()
	dag, err := ResolveDAG(mods)
	require.NoError(t, err)
	return dag
}

func buildTable(t *testing.T, dag *DAG) *TermTable {
	t.Helper()
	require.NoError(t, Desugar(dag))
	table, err := BuildTermTable(dag)
	require.NoError(t, err)
	return table
}
