// Package codegen renders the manifold graph into executable artifacts: one
// pool per backend language and a nexus dispatcher.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Zach1031/morloc/pkg/morloc"
)

// DispatchCase is one entry of a pool's dispatch tail.
type DispatchCase struct {
	ID     int
	Packer string // packer applied to the manifold's return value
}

// Grammar is the per-language emission strategy. Adding a backend language
// means implementing this interface and registering it.
type Grammar interface {
	Lang() string
	Extension() string

	Comment(text string) string
	Quote(s string) string
	Bool(b bool) string
	Unit() string
	Number(raw string) string
	List(items []string) string
	Tuple(items []string) string
	Record(keys, vals []string) string

	Indent() string
	Assign(lhs, rhs string) string
	Call(fn string, args []string) string
	Return(expr string) string
	FunctionDecl(name string, params, body []string) []string
	SourceImport(path string) string

	// Unpack and Pack wrap an expression with a deserializer or serializer
	// call. An empty function name falls back to the builtin helper.
	Unpack(fn, expr string) string
	Pack(fn, expr string) string

	// ForeignCall renders a blocking pool invocation capturing stdout.
	ForeignCall(executor, pool string, id int, args []string) string

	// Preamble renders the file header: runtime helpers and source imports.
	Preamble(sources []string) (string, error)

	// Dispatch renders the tail that reads argv[1] as a manifold ID and
	// dispatches to the matching wrapper.
	Dispatch(cases []DispatchCase) (string, error)
}

var grammars = map[string]Grammar{}

// Register installs a grammar under its language name.
func Register(g Grammar) {
	grammars[g.Lang()] = g
}

// GrammarFor looks up the grammar for a language.
func GrammarFor(lang string) (Grammar, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, morloc.UnknownLanguageError{Lang: lang}
	}
	return g, nil
}

// Languages returns the registered language names, sorted.
func Languages() []string {
	langs := make([]string, 0, len(grammars))
	for l := range grammars {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// PoolFile returns the conventional pool file name for a language.
func PoolFile(g Grammar) string {
	return "pool." + g.Extension()
}

// renderData renders a literal expression in the target language.
func renderData(g Grammar, e morloc.Expr) (string, error) {
	switch lit := e.(type) {
	case morloc.NumE:
		return g.Number(lit.Raw), nil
	case morloc.StrE:
		return g.Quote(lit.Value), nil
	case morloc.BoolE:
		return g.Bool(lit.Value), nil
	case morloc.UniE:
		return g.Unit(), nil
	case morloc.LstE:
		items, err := renderDataList(g, lit.Items)
		if err != nil {
			return "", err
		}
		return g.List(items), nil
	case morloc.TupE:
		items, err := renderDataList(g, lit.Items)
		if err != nil {
			return "", err
		}
		return g.Tuple(items), nil
	case morloc.RecE:
		keys := make([]string, len(lit.Fields))
		vals := make([]string, len(lit.Fields))
		for i, f := range lit.Fields {
			keys[i] = f.Key
			v, err := renderData(g, f.Value.Expr)
			if err != nil {
				return "", err
			}
			vals[i] = v
		}
		return g.Record(keys, vals), nil
	default:
		return "", morloc.Internal("literal of unexpected form %T", e)
	}
}

func renderDataList(g Grammar, nodes []*morloc.ExprI) ([]string, error) {
	items := make([]string, len(nodes))
	for i, n := range nodes {
		v, err := renderData(g, n.Expr)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

// manifoldFn names the wrapper function emitted for a manifold.
func manifoldFn(id int) string {
	return fmt.Sprintf("m%d", id)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
