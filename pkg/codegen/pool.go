package codegen

import (
	"fmt"

	"github.com/Zach1031/morloc/pkg/morloc"
	"github.com/Zach1031/morloc/pkg/mtype"
)

// Class is a manifold's role with respect to the language being emitted.
type Class int

const (
	// Uncalled manifolds produce no code in this pool.
	Uncalled Class = iota
	// Cis manifolds live in this language and get a wrapper function.
	Cis
	// Trans manifolds are called from this language but live elsewhere;
	// their invocation appears inline in the caller as a foreign call.
	Trans
	// Source manifolds re-export a foreign function directly to the nexus.
	Source
)

func (c Class) String() string {
	switch c {
	case Cis:
		return "cis"
	case Trans:
		return "trans"
	case Source:
		return "source"
	default:
		return "uncalled"
	}
}

// Classify determines a manifold's role for the pool of lang. Manifolds with
// no realization are language-neutral compositions and are homed in the
// default language.
func Classify(m *morloc.Manifold, lang, defaultLang string) Class {
	realized := m.RealizedIn(lang)
	if len(m.Realizations) == 0 {
		realized = lang == defaultLang
	}
	sourced := len(m.Realizations) > 0

	switch {
	case m.Exported && sourced && !m.Defined && len(m.Args) == 0 && realized:
		return Source
	case realized && (m.Called || m.Exported):
		return Cis
	case m.Called && !realized:
		return Trans
	default:
		return Uncalled
	}
}

// Pool is one rendered pool artifact.
type Pool struct {
	Lang string
	File string
	Code string
}

// EmitPool renders the pool for one language: a preamble with runtime
// helpers and source imports, one wrapper per Cis and Source manifold, and
// the dispatch tail.
func EmitPool(result *morloc.Result, lang, defaultLang string) (*Pool, error) {
	g, err := GrammarFor(lang)
	if err != nil {
		return nil, err
	}
	serial := result.Serial[lang]

	byID := make(map[int]*morloc.Manifold, len(result.Manifolds))
	for _, m := range result.Manifolds {
		byID[m.ID] = m
	}

	var body []string
	var cases []DispatchCase
	for _, m := range result.Manifolds {
		switch Classify(m, lang, defaultLang) {
		case Cis:
			lines, err := emitCis(g, result, serial, byID, m, lang)
			if err != nil {
				return nil, err
			}
			body = append(body, lines...)
			body = append(body, "")
			cases = append(cases, DispatchCase{ID: m.ID, Packer: packerName(serial, returnType(m, lang))})
		case Source:
			lines := emitSource(g, serial, m, lang)
			body = append(body, lines...)
			body = append(body, "")
			cases = append(cases, DispatchCase{ID: m.ID, Packer: packerName(serial, returnType(m, lang))})
		}
	}

	var sources []string
	if serial != nil {
		sources = append(sources, serial.Sources...)
	}
	sources = appendManifoldSources(sources, result.Manifolds, lang)

	preamble, err := g.Preamble(sources)
	if err != nil {
		return nil, err
	}
	dispatch, err := g.Dispatch(cases)
	if err != nil {
		return nil, err
	}

	code := preamble + "\n" + joinLines(body) + dispatch
	return &Pool{Lang: lang, File: PoolFile(g), Code: code}, nil
}

// emitCis renders one wrapper function for a manifold homed in this pool.
// Arguments arrive serialized; each is assigned to a fresh local, unpacked
// when it crosses a serialization boundary.
func emitCis(g Grammar, result *morloc.Result, serial *morloc.SerialMap, byID map[int]*morloc.Manifold, m *morloc.Manifold, lang string) ([]string, error) {
	params := make([]string, len(m.BoundVars))
	for i, v := range m.BoundVars {
		params[i] = string(v)
	}

	argTypes := manifoldArgTypes(m, lang)
	var lines []string
	locals := make([]string, len(m.Args))
	for i, arg := range m.Args {
		local := fmt.Sprintf("a%d", i)
		locals[i] = local
		var t mtype.Type
		if i < len(argTypes) {
			t = argTypes[i]
		}

		switch a := arg.(type) {
		case morloc.NameArg:
			lines = append(lines, g.Assign(local, g.Unpack(unpackerName(serial, t), string(a.Name))))
		case morloc.PositionalArg:
			if a.Index >= len(params) {
				return nil, morloc.Internal("positional argument %d outside bound variables of m%d", a.Index, m.ID)
			}
			lines = append(lines, g.Assign(local, g.Unpack(unpackerName(serial, t), params[a.Index])))
		case morloc.DataArg:
			rendered, err := renderData(g, a.Value)
			if err != nil {
				return nil, err
			}
			lines = append(lines, g.Assign(local, rendered))
		case morloc.CallArg:
			child, ok := byID[a.ID]
			if !ok {
				return nil, morloc.Internal("manifold m%d calls unknown manifold %d", m.ID, a.ID)
			}
			expr, err := emitCall(g, result, serial, child, t, lang)
			if err != nil {
				return nil, err
			}
			lines = append(lines, g.Assign(local, expr))
		case morloc.NestArg:
			lines = append(lines, g.Assign(local, string(a.Name)))
		default:
			return nil, morloc.Internal("argument of unexpected form %T", arg)
		}
	}

	src := m.SourceName(lang)
	switch {
	case src != "":
		lines = append(lines, g.Return(g.Call(src, locals)))
	case len(locals) == 1:
		// Pure forwarding: the identity composition or a literal.
		lines = append(lines, g.Return(locals[0]))
	case len(locals) == 0:
		lines = append(lines, g.Return(g.Unit()))
	default:
		lines = append(lines, g.Return(g.Tuple(locals)))
	}

	return g.FunctionDecl(manifoldFn(m.ID), params, lines), nil
}

// emitCall renders the invocation of a child manifold: a plain call when the
// child shares this pool, a foreign call through the child's executor when
// it crosses a language boundary.
func emitCall(g Grammar, result *morloc.Result, serial *morloc.SerialMap, child *morloc.Manifold, t mtype.Type, lang string) (string, error) {
	sameLang := child.RealizedIn(lang) || len(child.Realizations) == 0
	params := make([]string, len(child.BoundVars))
	for i, v := range child.BoundVars {
		params[i] = string(v)
	}
	if sameLang {
		return g.Call(manifoldFn(child.ID), params), nil
	}

	childLang := child.Lang()
	executor, err := result.Config.Executor(childLang)
	if err != nil {
		return "", err
	}
	childGrammar, err := GrammarFor(childLang)
	if err != nil {
		return "", err
	}
	foreign := g.ForeignCall(executor, PoolFile(childGrammar), child.ID, params)
	return g.Unpack(unpackerName(serial, t), foreign), nil
}

// emitSource renders the wrapper for a direct re-export of a sourced
// function: positional placeholders are unpacked and forwarded.
func emitSource(g Grammar, serial *morloc.SerialMap, m *morloc.Manifold, lang string) []string {
	n := mtype.Arity(concreteType(m, lang))
	if n == 0 {
		n = mtype.Arity(m.AbstractType)
	}
	argTypes := manifoldArgTypes(m, lang)

	params := make([]string, n)
	for i := range params {
		params[i] = fmt.Sprintf("x%d", i)
	}

	var lines []string
	locals := make([]string, n)
	for i := range params {
		locals[i] = fmt.Sprintf("a%d", i)
		var t mtype.Type
		if i < len(argTypes) {
			t = argTypes[i]
		}
		lines = append(lines, g.Assign(locals[i], g.Unpack(unpackerName(serial, t), params[i])))
	}
	lines = append(lines, g.Return(g.Call(m.SourceName(lang), locals)))

	return g.FunctionDecl(manifoldFn(m.ID), params, lines)
}

// concreteType returns the manifold's concrete type in lang, or nil.
func concreteType(m *morloc.Manifold, lang string) mtype.Type {
	for _, r := range m.Realizations {
		if r.Lang == lang && r.Type != nil {
			return r.Type
		}
	}
	return nil
}

// returnType is the type the dispatch tail packs before printing.
func returnType(m *morloc.Manifold, lang string) mtype.Type {
	t := concreteType(m, lang)
	if t == nil {
		t = m.AbstractType
	}
	if t == nil {
		return nil
	}
	_, body := mtype.StripQuantifiers(t)
	if fn, ok := body.(mtype.Func); ok {
		return fn.Ret
	}
	return body
}

// manifoldArgTypes lists the argument types of a manifold in lang,
// preferring the concrete realization over the abstract type.
func manifoldArgTypes(m *morloc.Manifold, lang string) []mtype.Type {
	t := concreteType(m, lang)
	if t == nil {
		t = m.AbstractType
	}
	if t == nil {
		return nil
	}
	_, body := mtype.StripQuantifiers(t)
	if fn, ok := body.(mtype.Func); ok {
		return fn.Args
	}
	return nil
}

func packerName(serial *morloc.SerialMap, t mtype.Type) string {
	if serial == nil {
		return ""
	}
	return serial.PackerFor(t)
}

func unpackerName(serial *morloc.SerialMap, t mtype.Type) string {
	if serial == nil {
		return ""
	}
	return serial.UnpackerFor(t)
}

// appendManifoldSources adds the source files of every realization in lang.
func appendManifoldSources(sources []string, manifolds []*morloc.Manifold, lang string) []string {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		seen[s] = true
	}
	for _, m := range manifolds {
		for _, r := range m.Realizations {
			if r.Lang == lang && r.SourcePath != "" && !seen[r.SourcePath] {
				seen[r.SourcePath] = true
				sources = append(sources, r.SourcePath)
			}
		}
	}
	return sources
}
