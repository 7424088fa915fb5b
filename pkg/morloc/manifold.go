package morloc

import (
	"slices"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// Arg is one argument of a manifold call site.
type Arg interface {
	isArg()
}

// NameArg references a bound variable of the enclosing composition.
type NameArg struct {
	Name EVar
}

// DataArg carries a literal, rendered by the target grammar at emission.
type DataArg struct {
	Value Expr
}

// PositionalArg is a positional input to the root manifold, supplied on the
// command line through the nexus.
type PositionalArg struct {
	Index int
}

// CallArg is the result of invoking another manifold.
type CallArg struct {
	ID int
}

// NestArg is a free variable passed through unchanged.
type NestArg struct {
	Name EVar
}

func (NameArg) isArg()       {}
func (DataArg) isArg()       {}
func (PositionalArg) isArg() {}
func (CallArg) isArg()       {}
func (NestArg) isArg()       {}

// Manifold is one code-generation unit: a call site with its own arguments,
// bound variables, language realizations, and classification flags.
type Manifold struct {
	ID           int
	CallID       int // ID of the calling manifold, -1 for roots
	AbstractType mtype.Type
	Realizations []Realization
	MorlocName   EVar
	Composition  EVar // root declaration this manifold belongs to
	Exported     bool
	Called       bool
	Defined      bool
	BoundVars    []EVar
	Args         []Arg
}

// Lang returns the manifold's language: the language of its first
// realization, or "" for a pure composition with no realization.
func (m *Manifold) Lang() string {
	if len(m.Realizations) == 0 {
		return ""
	}
	return m.Realizations[0].Lang
}

// SourceName returns the backend symbol the manifold wraps in the given
// language, or "" when it has no realization there.
func (m *Manifold) SourceName(lang string) string {
	for _, r := range m.Realizations {
		if r.Lang == lang {
			return r.SourceName
		}
	}
	return ""
}

// RealizedIn reports whether the manifold has a realization in lang.
func (m *Manifold) RealizedIn(lang string) bool {
	for _, r := range m.Realizations {
		if r.Lang == lang {
			return true
		}
	}
	return false
}

// Counter is the monotonic manifold ID supply. IDs are assigned once and
// never reused.
type Counter struct {
	next int
}

func (c *Counter) Next() int {
	id := c.next
	c.next++
	return id
}

// BuildManifolds walks every exported root declaration and flattens its call
// tree into manifolds with densely numbered pre-order IDs.
func BuildManifolds(dag *DAG, table *TermTable, counter *Counter) ([]*Manifold, error) {
	root := dag.Modules[dag.Root]
	scope := table.Scope(dag.Root)

	if err := checkRecursion(table); err != nil {
		return nil, err
	}

	b := &manifoldBuilder{
		table:   table,
		counter: counter,
		exports: root.Exports,
	}

	// Failures short-circuit per declaration but accumulate across the
	// export list, so one run reports every broken root.
	var diags DiagnosticList
	for _, name := range root.Exports {
		tt, ok := scope[name]
		if !ok {
			diags.Add(dag.Root, -1, UnboundVariableError{Name: name})
			continue
		}
		if err := b.buildRoot(name, tt); err != nil {
			diags.Add(dag.Root, -1, err)
		}
	}
	if err := diags.Err(); err != nil {
		return nil, err
	}

	return b.out, nil
}

type manifoldBuilder struct {
	table   *TermTable
	counter *Counter
	exports []EVar
	out     []*Manifold
}

func (b *manifoldBuilder) exported(name EVar) bool {
	return slices.Contains(b.exports, name)
}

// buildRoot handles one exported term of the root module. A sourced term
// with no declaration becomes a pure re-export manifold; a declared term's
// right-hand side is a lambda (a non-lambda counts as zero parameters) whose
// body must be an application, a variable, or a literal.
func (b *manifoldBuilder) buildRoot(name EVar, tt TermTypes) error {
	if len(tt.Decls) == 0 {
		if len(tt.Concrete) == 0 {
			return UnboundVariableError{Name: name}
		}
		m := &Manifold{
			ID:           b.counter.Next(),
			CallID:       -1,
			AbstractType: tt.General,
			Realizations: tt.Concrete,
			MorlocName:   name,
			Composition:  name,
			Exported:     true,
		}
		b.out = append(b.out, m)
		return nil
	}

	decl, ok := tt.Decls[0].Expr.(DeclE)
	if !ok {
		return Internal("declaration bucket for %s holds a non-declaration", name)
	}

	params, body := splitLambda(decl.Value)
	switch body.Expr.(type) {
	case AppE, VarE, NumE, StrE, BoolE, UniE, LstE, TupE, RecE:
	default:
		return NonLambdaRootError{Term: name}
	}

	_, err := b.buildNode(body, rootContext{
		composition: name,
		boundVars:   params,
		callerID:    -1,
		declared:    tt,
	})
	return err
}

// rootContext carries the composition-wide state threaded through the walk.
type rootContext struct {
	composition EVar
	boundVars   []EVar
	callerID    int
	declared    TermTypes
}

// buildNode emits the manifold for one application (or bare value at the
// root) and returns its ID.
func (b *manifoldBuilder) buildNode(node *ExprI, ctx rootContext) (int, error) {
	node = unwrapAnnotation(node)
	isRoot := ctx.callerID == -1

	switch e := node.Expr.(type) {
	case AppE:
		return b.buildApplication(e, ctx)

	case VarE:
		if isRoot && slices.Contains(ctx.boundVars, e.Name) {
			// Bare bound variable at the root: the identity composition.
			m := &Manifold{
				ID:           b.counter.Next(),
				CallID:       -1,
				AbstractType: ctx.declared.General,
				MorlocName:   ctx.composition,
				Composition:  ctx.composition,
				Exported:     b.exported(ctx.composition),
				Defined:      true,
				BoundVars:    ctx.boundVars,
				Args:         []Arg{PositionalArg{Index: slices.Index(ctx.boundVars, e.Name)}},
			}
			b.out = append(b.out, m)
			return m.ID, nil
		}
		// Bare term reference: zero-argument application.
		return b.buildApplication(AppE{Fn: node}, ctx)

	case NumE, StrE, BoolE, UniE, LstE, TupE, RecE:
		if !isRoot {
			return 0, Internal("literal manifold below the root in %s", ctx.composition)
		}
		m := &Manifold{
			ID:           b.counter.Next(),
			CallID:       -1,
			AbstractType: ctx.declared.General,
			MorlocName:   ctx.composition,
			Composition:  ctx.composition,
			Exported:     b.exported(ctx.composition),
			Defined:      true,
			BoundVars:    ctx.boundVars,
			Args:         []Arg{DataArg{Value: node.Expr}},
		}
		b.out = append(b.out, m)
		return m.ID, nil

	case LamE:
		return 0, LambdaArgumentError{Term: ctx.composition}

	default:
		return 0, Internal("unsupported expression form in composition %s", ctx.composition)
	}
}

// buildApplication allocates a manifold for one call site, then classifies
// and recurses into its arguments in order.
func (b *manifoldBuilder) buildApplication(app AppE, ctx rootContext) (int, error) {
	fn := unwrapAnnotation(app.Fn)
	fnVar, ok := fn.Expr.(VarE)
	if !ok {
		if _, isLam := fn.Expr.(LamE); isLam {
			return 0, LambdaArgumentError{Term: ctx.composition}
		}
		return 0, Internal("application head in %s is not a variable", ctx.composition)
	}

	tt, found := b.table.Lookup(fn.Index)
	if !found {
		return 0, UnboundVariableError{Name: fnVar.Name}
	}

	isRoot := ctx.callerID == -1
	m := &Manifold{
		ID:           b.counter.Next(),
		CallID:       ctx.callerID,
		AbstractType: tt.General,
		Realizations: tt.Concrete,
		MorlocName:   fnVar.Name,
		Composition:  ctx.composition,
		Exported:     isRoot && b.exported(ctx.composition),
		Called:       !isRoot,
		Defined:      len(tt.Decls) > 0,
		BoundVars:    ctx.boundVars,
	}
	if isRoot {
		m.MorlocName = ctx.composition
	}
	b.out = append(b.out, m)

	for _, argNode := range app.Args {
		arg, err := b.buildArgument(argNode, m, ctx)
		if err != nil {
			return 0, err
		}
		m.Args = append(m.Args, arg)
	}

	return m.ID, nil
}

// buildArgument classifies one argument expression: bound variable, free
// variable, literal, or nested application.
func (b *manifoldBuilder) buildArgument(node *ExprI, caller *Manifold, ctx rootContext) (Arg, error) {
	node = unwrapAnnotation(node)

	switch e := node.Expr.(type) {
	case VarE:
		if idx := slices.Index(ctx.boundVars, e.Name); idx >= 0 {
			if caller.CallID == -1 {
				return PositionalArg{Index: idx}, nil
			}
			return NameArg{Name: e.Name}, nil
		}
		if tt, found := b.table.Lookup(node.Index); found {
			if len(tt.Decls) == 0 && len(tt.Concrete) == 0 && tt.General != nil {
				return NestArg{Name: e.Name}, nil
			}
			// A term used as a value argument: pass it through by name.
			return NestArg{Name: e.Name}, nil
		}
		return nil, UnboundVariableError{Name: e.Name}

	case NumE, StrE, BoolE, UniE, LstE, TupE, RecE:
		return DataArg{Value: node.Expr}, nil

	case AppE:
		childCtx := ctx
		childCtx.callerID = caller.ID
		id, err := b.buildApplication(e, childCtx)
		if err != nil {
			return nil, err
		}
		return CallArg{ID: id}, nil

	case LamE:
		return nil, LambdaArgumentError{Term: ctx.composition}

	default:
		return nil, Internal("unsupported argument form in composition %s", ctx.composition)
	}
}

// splitLambda peels the lambda parameters off a declaration right-hand side.
// A non-lambda RHS is a zero-parameter composition.
func splitLambda(node *ExprI) ([]EVar, *ExprI) {
	node = unwrapAnnotation(node)
	if lam, ok := node.Expr.(LamE); ok {
		return lam.Params, lam.Body
	}
	return nil, node
}

func unwrapAnnotation(node *ExprI) *ExprI {
	for {
		ann, ok := node.Expr.(AnnE)
		if !ok {
			return node
		}
		node = ann.Value
	}
}

// checkRecursion rejects self- or mutually-recursive declarations. The walk
// follows declared-term references from each declaration body.
func checkRecursion(table *TermTable) error {
	// Collect declaration bodies by term, across every module scope.
	decls := make(map[EVar][]*ExprI)
	for _, scope := range table.Scopes {
		for term, tt := range scope {
			for _, d := range tt.Decls {
				if !slices.Contains(decls[term], d) {
					decls[term] = append(decls[term], d)
				}
			}
		}
	}

	refs := func(term EVar) []EVar {
		var out []EVar
		for _, d := range decls[term] {
			collectDeclRefs(d, decls, &out)
		}
		return out
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[EVar]int)
	var stack []EVar

	var visit func(term EVar) error
	visit = func(term EVar) error {
		switch state[term] {
		case visiting:
			// Trim the stack to the cycle entry point.
			start := slices.Index(stack, term)
			cycle := append(slices.Clone(stack[start:]), term)
			return RecursiveDeclarationError{Cycle: cycle}
		case done:
			return nil
		}
		state[term] = visiting
		stack = append(stack, term)
		for _, next := range refs(term) {
			if _, isDecl := decls[next]; !isDecl {
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[term] = done
		return nil
	}

	terms := make([]EVar, 0, len(decls))
	for term := range decls {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	for _, term := range terms {
		if err := visit(term); err != nil {
			return err
		}
	}
	return nil
}

// collectDeclRefs gathers variable references in a declaration body that
// name other declared terms.
func collectDeclRefs(node *ExprI, decls map[EVar][]*ExprI, out *[]EVar) {
	if node == nil {
		return
	}
	if v, ok := node.Expr.(VarE); ok {
		if _, isDecl := decls[v.Name]; isDecl && !slices.Contains(*out, v.Name) {
			*out = append(*out, v.Name)
		}
	}
	for _, c := range children(node) {
		collectDeclRefs(c, decls, out)
	}
}
