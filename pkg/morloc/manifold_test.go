package morloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zach1031/morloc/pkg/mtype"
)

func buildAll(t *testing.T, mods ...*Module) []*Manifold {
	t.Helper()
	dag := resolve(t, mods...)
	table := buildTable(t, dag)
	var counter Counter
	ms, err := BuildManifolds(dag, table, &counter)
	require.NoError(t, err)
	return ms
}

func TestBuildManifolds(t *testing.T) {
	t.Run("trivial export of a literal", func(t *testing.T) {
		ix := &Indexer{}
		main := &Module{
			Name:    "Main",
			Exports: exports("x"),
			Body:    []*ExprI{eDecl(ix, "x", eNum(ix, "1", 1))},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 1)
		m := ms[0]
		assert.Equal(t, 0, m.ID)
		assert.Equal(t, EVar("x"), m.MorlocName)
		assert.True(t, m.Exported)
		assert.False(t, m.Called)
		assert.Empty(t, m.BoundVars)
		require.Len(t, m.Args, 1)
		data, ok := m.Args[0].(DataArg)
		require.True(t, ok)
		assert.Equal(t, NumE{Value: 1, Raw: "1"}, data.Value)
	})

	t.Run("identity function", func(t *testing.T) {
		ix := &Indexer{}
		main := &Module{
			Name:    "Main",
			Exports: exports("id"),
			Body: []*ExprI{
				eDecl(ix, "id", eLam(ix, eVar(ix, "x"), "x")),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 1)
		m := ms[0]
		assert.Equal(t, []EVar{"x"}, m.BoundVars)
		require.Len(t, m.Args, 1)
		pos, ok := m.Args[0].(PositionalArg)
		require.True(t, ok)
		assert.Equal(t, 0, pos.Index)
	})

	t.Run("cross-language composition", func(t *testing.T) {
		// h x = g (f x), f sourced from C, g from Python.
		ix := &Indexer{}
		inner := eApp(ix, eVar(ix, "f"), eVar(ix, "x"))
		body := eApp(ix, eVar(ix, "g"), inner)
		main := &Module{
			Name:    "Main",
			Exports: exports("h"),
			Body: []*ExprI{
				eSource(ix, "c", "lib.c", "f"),
				eSource(ix, "py", "lib.py", "g"),
				eSig(ix, "f", "", "Int -> Int"),
				eSig(ix, "g", "", "Int -> Int"),
				eSig(ix, "h", "", "Int -> Int"),
				eDecl(ix, "h", eLam(ix, body, "x")),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 2)

		root, child := ms[0], ms[1]
		assert.Equal(t, 0, root.ID)
		assert.Equal(t, 1, child.ID)
		assert.Equal(t, EVar("h"), root.MorlocName)
		assert.Equal(t, EVar("f"), child.MorlocName)
		assert.True(t, root.Exported)
		assert.False(t, root.Called)
		assert.True(t, child.Called)
		assert.Equal(t, root.ID, child.CallID)

		require.Len(t, root.Args, 1)
		call, ok := root.Args[0].(CallArg)
		require.True(t, ok)
		assert.Equal(t, child.ID, call.ID)

		require.Len(t, child.Args, 1)
		// Nested manifolds reference bound variables by name.
		name, ok := child.Args[0].(NameArg)
		require.True(t, ok)
		assert.Equal(t, EVar("x"), name.Name)

		assert.Equal(t, "py", root.Lang())
		assert.Equal(t, "c", child.Lang())
	})

	t.Run("args match abstract arity", func(t *testing.T) {
		ix := &Indexer{}
		body := eApp(ix, eVar(ix, "add"), eVar(ix, "x"), eVar(ix, "y"))
		main := &Module{
			Name:    "Main",
			Exports: exports("sum2"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "add"),
				eSig(ix, "add", "", "Int -> Int -> Int"),
				eDecl(ix, "sum2", eLam(ix, body, "x", "y")),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 1)
		assert.Equal(t, mtype.Arity(ms[0].AbstractType), len(ms[0].Args))
	})

	t.Run("every call argument is marked called", func(t *testing.T) {
		ix := &Indexer{}
		inner := eApp(ix, eVar(ix, "f"), eVar(ix, "x"))
		body := eApp(ix, eVar(ix, "g"), inner)
		main := &Module{
			Name:    "Main",
			Exports: exports("h"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "f", "g"),
				eDecl(ix, "h", eLam(ix, body, "x")),
			},
		}
		ms := buildAll(t, main)
		byID := make(map[int]*Manifold)
		for _, m := range ms {
			byID[m.ID] = m
		}
		for _, m := range ms {
			for _, arg := range m.Args {
				if call, ok := arg.(CallArg); ok {
					target, exists := byID[call.ID]
					require.True(t, exists)
					assert.True(t, target.Called)
				}
			}
		}
	})

	t.Run("ids are dense and pre-order", func(t *testing.T) {
		ix := &Indexer{}
		// two exports, nested applications
		h1 := eApp(ix, eVar(ix, "f"), eApp(ix, eVar(ix, "g"), eVar(ix, "x")))
		h2 := eApp(ix, eVar(ix, "g"), eVar(ix, "y"))
		main := &Module{
			Name:    "Main",
			Exports: exports("a", "b"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "f", "g"),
				eDecl(ix, "a", eLam(ix, h1, "x")),
				eDecl(ix, "b", eLam(ix, h2, "y")),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 3)
		for i, m := range ms {
			assert.Equal(t, i, m.ID)
		}
	})

	t.Run("sourced-only export becomes a re-export manifold", func(t *testing.T) {
		ix := &Indexer{}
		main := &Module{
			Name:    "Main",
			Exports: exports("f"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "f"),
				eSig(ix, "f", "", "Int -> Int"),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 1)
		m := ms[0]
		assert.True(t, m.Exported)
		assert.False(t, m.Defined)
		assert.False(t, m.Called)
		assert.Empty(t, m.Args)
		require.Len(t, m.Realizations, 1)
	})

	t.Run("aliased import keeps the local name", func(t *testing.T) {
		ixA := &Indexer{}
		a := &Module{
			Name:    "A",
			Exports: exports("foo"),
			Body:    []*ExprI{eSourceAs(ixA, "py", "lib.py", "pyfoo", "foo")},
		}
		ixM := &Indexer{}
		body := eApp(ixM, eVar(ixM, "bar"), eVar(ixM, "x"))
		main := &Module{
			Name:    "Main",
			Exports: exports("use"),
			Imports: []Import{include("A", termAs("foo", "bar"))},
			Body:    []*ExprI{eDecl(ixM, "use", eLam(ixM, body, "x"))},
		}
		ms := buildAll(t, main, a)
		require.Len(t, ms, 1)
		m := ms[0]
		assert.Equal(t, EVar("use"), m.MorlocName)
		assert.Equal(t, "pyfoo", m.SourceName("py"))
	})

	t.Run("unbound variable", func(t *testing.T) {
		ix := &Indexer{}
		main := &Module{
			Name:    "Main",
			Exports: exports("h"),
			Body: []*ExprI{
				eDecl(ix, "h", eLam(ix, eApp(ix, eVar(ix, "ghost"), eVar(ix, "x")), "x")),
			},
		}
		dag := resolve(t, main)
		table := buildTable(t, dag)
		var counter Counter
		_, err := BuildManifolds(dag, table, &counter)
		var want UnboundVariableError
		require.ErrorAs(t, err, &want)
		assert.Equal(t, EVar("ghost"), want.Name)
	})

	t.Run("lambda argument rejected", func(t *testing.T) {
		ix := &Indexer{}
		lam := eLam(ix, eVar(ix, "y"), "y")
		body := eApp(ix, eVar(ix, "f"), lam)
		main := &Module{
			Name:    "Main",
			Exports: exports("h"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "f"),
				eDecl(ix, "h", eLam(ix, body, "x")),
			},
		}
		dag := resolve(t, main)
		table := buildTable(t, dag)
		var counter Counter
		_, err := BuildManifolds(dag, table, &counter)
		var want LambdaArgumentError
		require.ErrorAs(t, err, &want)
	})

	t.Run("self-recursive declaration rejected", func(t *testing.T) {
		ix := &Indexer{}
		body := eApp(ix, eVar(ix, "loop"), eVar(ix, "x"))
		main := &Module{
			Name:    "Main",
			Exports: exports("loop"),
			Body:    []*ExprI{eDecl(ix, "loop", eLam(ix, body, "x"))},
		}
		dag := resolve(t, main)
		table := buildTable(t, dag)
		var counter Counter
		_, err := BuildManifolds(dag, table, &counter)
		var want RecursiveDeclarationError
		require.ErrorAs(t, err, &want)
	})

	t.Run("mutually recursive declarations rejected", func(t *testing.T) {
		ix := &Indexer{}
		even := eDecl(ix, "even", eLam(ix, eApp(ix, eVar(ix, "odd"), eVar(ix, "n")), "n"))
		odd := eDecl(ix, "odd", eLam(ix, eApp(ix, eVar(ix, "even"), eVar(ix, "n")), "n"))
		main := &Module{
			Name:    "Main",
			Exports: exports("even"),
			Body:    []*ExprI{even, odd},
		}
		dag := resolve(t, main)
		table := buildTable(t, dag)
		var counter Counter
		_, err := BuildManifolds(dag, table, &counter)
		var want RecursiveDeclarationError
		require.ErrorAs(t, err, &want)
	})

	t.Run("diagnostics accumulate across exports", func(t *testing.T) {
		ix := &Indexer{}
		main := &Module{
			Name:    "Main",
			Exports: exports("broken1", "broken2"),
			Body: []*ExprI{
				eDecl(ix, "broken1", eLam(ix, eApp(ix, eVar(ix, "ghost"), eVar(ix, "x")), "x")),
				eDecl(ix, "broken2", eLam(ix, eApp(ix, eVar(ix, "phantom"), eVar(ix, "x")), "x")),
			},
		}
		dag := resolve(t, main)
		table := buildTable(t, dag)
		var counter Counter
		_, err := BuildManifolds(dag, table, &counter)
		require.Error(t, err)

		var list *DiagnosticList
		require.ErrorAs(t, err, &list)
		assert.Len(t, list.Diags, 2)
	})

	t.Run("data argument passes literal through", func(t *testing.T) {
		ix := &Indexer{}
		body := eApp(ix, eVar(ix, "f"), eNum(ix, "42", 42))
		main := &Module{
			Name:    "Main",
			Exports: exports("h"),
			Body: []*ExprI{
				eSource(ix, "py", "lib.py", "f"),
				eDecl(ix, "h", eLam(ix, body)),
			},
		}
		ms := buildAll(t, main)
		require.Len(t, ms, 1)
		require.Len(t, ms[0].Args, 1)
		_, ok := ms[0].Args[0].(DataArg)
		assert.True(t, ok)
	})
}
