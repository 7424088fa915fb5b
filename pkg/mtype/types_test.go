package mtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tv(name string) TVar { return TVar{Name: name} }

func intT() Type    { return App{Name: tv("Int")} }
func strT() Type    { return App{Name: tv("Str")} }
func listT(e Type) Type {
	return App{Name: tv("List"), Args: []Type{e}}
}

func TestTypeString(t *testing.T) {
	cases := []struct {
		typ  Type
		want string
	}{
		{intT(), "Int"},
		{Var{V: tv("a")}, "a"},
		{Exist{V: tv("e")}, "?e"},
		{Func{Args: []Type{intT()}, Ret: intT()}, "Int -> Int"},
		{Func{Args: []Type{intT(), strT()}, Ret: strT()}, "Int -> Str -> Str"},
		{listT(Var{V: tv("a")}), "List a"},
		{
			Forall{Binder: tv("a"), Body: Func{Args: []Type{Var{V: tv("a")}}, Ret: Var{V: tv("a")}}},
			"forall a . a -> a",
		},
		{
			Func{Args: []Type{Func{Args: []Type{intT()}, Ret: intT()}}, Ret: intT()},
			"(Int -> Int) -> Int",
		},
		{
			Record{Name: tv("Person"), Fields: []Field{{Key: "name", Value: strT()}, {Key: "age", Value: intT()}}},
			"Person {name :: Str, age :: Int}",
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.typ.String())
	}
}

func TestParseRoundTrip(t *testing.T) {
	types := []Type{
		intT(),
		Var{V: tv("a")},
		Exist{V: tv("e")},
		Func{Args: []Type{intT(), strT()}, Ret: listT(intT())},
		Forall{Binder: tv("a"), Body: Func{Args: []Type{Var{V: tv("a")}}, Ret: Var{V: tv("a")}}},
		App{Name: tv("Map"), Args: []Type{strT(), listT(intT())}},
		Func{Args: []Type{Func{Args: []Type{intT()}, Ret: strT()}}, Ret: strT()},
		Record{Name: tv("Person"), Fields: []Field{{Key: "name", Value: strT()}}},
		Record{Tag: "table", Name: tv("Frame"), Fields: []Field{{Key: "xs", Value: listT(intT())}}},
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			parsed, err := Parse(typ.String())
			require.NoError(t, err)
			assert.True(t, typ.Eq(parsed), "parsed %s, want %s", parsed, typ)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, bad := range []string{"", "->", "Int ->", "(Int", "forall . a", "record Foo"} {
		_, err := Parse(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestArity(t *testing.T) {
	assert.Equal(t, 0, Arity(intT()))
	assert.Equal(t, 1, Arity(Func{Args: []Type{intT()}, Ret: intT()}))
	assert.Equal(t, 2, Arity(Forall{Binder: tv("a"), Body: Func{Args: []Type{Var{V: tv("a")}, intT()}, Ret: intT()}}))
}

func TestResolveExistentials(t *testing.T) {
	e := Exist{V: tv("e"), Defaults: []Type{intT(), strT()}}
	assert.True(t, intT().Eq(ResolveExistentials(e)))

	fn := Func{Args: []Type{e}, Ret: e}
	resolved := ResolveExistentials(fn)
	assert.True(t, Func{Args: []Type{intT()}, Ret: intT()}.Eq(resolved))

	// No defaults: left unsolved.
	bare := Exist{V: tv("u")}
	assert.True(t, bare.Eq(ResolveExistentials(bare)))
}

func TestUnify(t *testing.T) {
	t.Run("equal variables pass", func(t *testing.T) {
		_, err := Unify(Var{V: tv("a")}, Var{V: tv("a")})
		require.NoError(t, err)
	})

	t.Run("distinct variables conflict", func(t *testing.T) {
		_, err := Unify(Var{V: tv("a")}, Var{V: tv("b")})
		require.Error(t, err)
	})

	t.Run("existential absorbs concrete", func(t *testing.T) {
		subs, err := Unify(Exist{V: tv("e")}, intT())
		require.NoError(t, err)
		assert.True(t, intT().Eq(subs[tv("e")]))
	})

	t.Run("functions recurse componentwise", func(t *testing.T) {
		f1 := Func{Args: []Type{Exist{V: tv("e")}}, Ret: intT()}
		f2 := Func{Args: []Type{strT()}, Ret: intT()}
		subs, err := Unify(f1, f2)
		require.NoError(t, err)
		assert.True(t, strT().Eq(subs[tv("e")]))
	})

	t.Run("constructor mismatch", func(t *testing.T) {
		_, err := Unify(intT(), strT())
		require.Error(t, err)
		var ue UnificationError
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("arity mismatch", func(t *testing.T) {
		f1 := Func{Args: []Type{intT()}, Ret: intT()}
		f2 := Func{Args: []Type{intT(), intT()}, Ret: intT()}
		_, err := Unify(f1, f2)
		require.Error(t, err)
	})

	t.Run("quantifiers stripped", func(t *testing.T) {
		q := Forall{Binder: tv("a"), Body: Func{Args: []Type{Var{V: tv("a")}}, Ret: Var{V: tv("a")}}}
		plain := Func{Args: []Type{Var{V: tv("a")}}, Ret: Var{V: tv("a")}}
		_, err := Unify(q, plain)
		require.NoError(t, err)
	})
}

func TestSubtype(t *testing.T) {
	t.Run("identical concrete types", func(t *testing.T) {
		require.NoError(t, Subtype(intT(), intT()))
	})

	t.Run("variable instantiates", func(t *testing.T) {
		require.NoError(t, Subtype(Var{V: tv("a")}, intT()))
	})

	t.Run("consistent instantiation required", func(t *testing.T) {
		sub := Func{Args: []Type{Var{V: tv("a")}}, Ret: Var{V: tv("a")}}
		sup := Func{Args: []Type{intT()}, Ret: strT()}
		assert.Error(t, Subtype(sub, sup))
	})

	t.Run("equivalent under renamed binders", func(t *testing.T) {
		a := Forall{Binder: tv("a"), Body: listT(Var{V: tv("a")})}
		b := Forall{Binder: tv("b"), Body: listT(Var{V: tv("b")})}
		assert.True(t, Equivalent(a, b))
	})

	t.Run("different constructors not equivalent", func(t *testing.T) {
		assert.False(t, Equivalent(intT(), strT()))
	})
}

func TestSubsCompose(t *testing.T) {
	s1 := Subs{tv("a"): Var{V: tv("b")}}
	s2 := Subs{tv("b"): intT()}
	composed := s1.Compose(s2)
	assert.True(t, intT().Eq(composed[tv("a")]))
	assert.True(t, intT().Eq(composed[tv("b")]))
}
