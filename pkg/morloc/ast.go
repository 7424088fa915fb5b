package morloc

import (
	"github.com/Zach1031/morloc/pkg/mtype"
)

// Module is one parsed morloc module as delivered by the parser collaborator.
type Module struct {
	Name    MVar
	Exports []EVar
	Imports []Import
	Body    []*ExprI
}

// Import is one import declaration: the target module, an optional include
// list (nil means the full export surface), an exclude list, and an optional
// module alias.
type Import struct {
	From    MVar
	Include []ImportTerm // nil imports everything the target exports
	Exclude []EVar
	Alias   MVar // "" if the module is not aliased
}

// ImportTerm is one entry of an include list. Alias equals Name when the
// term is imported under its own name.
type ImportTerm struct {
	Name  EVar
	Alias EVar
}

// ExprI is an indexed expression: a globally unique integer and the
// expression it labels. Indices key the term-type table.
type ExprI struct {
	Index int
	Expr  Expr
}

// Expr is the sum over all expression forms.
type Expr interface {
	isExpr()
}

// ExportE re-exports a term from the enclosing module.
type ExportE struct {
	Name EVar
}

// SourceE binds foreign functions from a backend-language file. Each name
// pairs the remote symbol with the local alias it is imported as.
type SourceE struct {
	Lang  string
	Path  string
	Names []SourceName
}

// SourceName pairs a remote function name with its local alias. Alias equals
// Remote when no alias was given.
type SourceName struct {
	Remote string
	Alias  EVar
}

// DeclE is a value declaration `v = e`, with optional where-clause
// declarations scoped to the body.
type DeclE struct {
	Name  EVar
	Value *ExprI
	Where []*ExprI
}

// SigE is a type signature `v :: t`. Lang is empty for the general type and
// names a backend language for a concrete realization. Props carries
// signature properties such as "pack" and "unpack".
type SigE struct {
	Name  EVar
	Lang  string
	Props []string
	Type  mtype.Type
}

// AliasE is a type alias declaration `type V p… = t`.
type AliasE struct {
	Name   mtype.TVar
	Params []mtype.TVar
	Type   mtype.Type
}

// VarE is a variable reference.
type VarE struct {
	Name EVar
}

// AccE is a record accessor `e.k`.
type AccE struct {
	Value *ExprI
	Key   string
}

// LstE is a list literal.
type LstE struct {
	Items []*ExprI
}

// TupE is a tuple literal.
type TupE struct {
	Items []*ExprI
}

// RecE is a record literal.
type RecE struct {
	Fields []RecField
}

type RecField struct {
	Key   string
	Value *ExprI
}

// LamE is a lambda. A zero-parameter lambda is a thunk.
type LamE struct {
	Params []EVar
	Body   *ExprI
}

// AppE is a function application. An empty argument list is a bare call.
type AppE struct {
	Fn   *ExprI
	Args []*ExprI
}

// AnnE is a type annotation `e :: t`.
type AnnE struct {
	Value *ExprI
	Type  mtype.Type
}

// NumE is a numeric literal. Raw preserves the source spelling for emission.
type NumE struct {
	Value float64
	Raw   string
}

type StrE struct {
	Value string
}

type BoolE struct {
	Value bool
}

type UniE struct{}

func (ExportE) isExpr() {}
func (SourceE) isExpr() {}
func (DeclE) isExpr()   {}
func (SigE) isExpr()    {}
func (AliasE) isExpr()  {}
func (VarE) isExpr()    {}
func (AccE) isExpr()    {}
func (LstE) isExpr()    {}
func (TupE) isExpr()    {}
func (RecE) isExpr()    {}
func (LamE) isExpr()    {}
func (AppE) isExpr()    {}
func (AnnE) isExpr()    {}
func (NumE) isExpr()    {}
func (StrE) isExpr()    {}
func (BoolE) isExpr()   {}
func (UniE) isExpr()    {}

// Indexer hands out expression indices on ingestion for parsers that do not
// assign their own. Indices are never reused.
type Indexer struct {
	next int
}

func (ix *Indexer) New(e Expr) *ExprI {
	node := &ExprI{Index: ix.next, Expr: e}
	ix.next++
	return node
}

// Reindex walks every expression of every module and assigns fresh indices
// to nodes still carrying the placeholder index -1.
func Reindex(mods []*Module) {
	next := 0
	var walk func(*ExprI)
	seen := func(n *ExprI) {
		if n.Index >= next {
			next = n.Index + 1
		}
	}
	var collect func(*ExprI)
	collect = func(n *ExprI) {
		if n == nil {
			return
		}
		seen(n)
		for _, c := range children(n) {
			collect(c)
		}
	}
	for _, m := range mods {
		for _, n := range m.Body {
			collect(n)
		}
	}
	walk = func(n *ExprI) {
		if n == nil {
			return
		}
		if n.Index < 0 {
			n.Index = next
			next++
		}
		for _, c := range children(n) {
			walk(c)
		}
	}
	for _, m := range mods {
		for _, n := range m.Body {
			walk(n)
		}
	}
}

// children returns the direct subexpressions of a node.
func children(n *ExprI) []*ExprI {
	switch e := n.Expr.(type) {
	case DeclE:
		out := []*ExprI{e.Value}
		return append(out, e.Where...)
	case AccE:
		return []*ExprI{e.Value}
	case LstE:
		return e.Items
	case TupE:
		return e.Items
	case RecE:
		out := make([]*ExprI, len(e.Fields))
		for i, f := range e.Fields {
			out[i] = f.Value
		}
		return out
	case LamE:
		return []*ExprI{e.Body}
	case AppE:
		out := []*ExprI{e.Fn}
		return append(out, e.Args...)
	case AnnE:
		return []*ExprI{e.Value}
	default:
		return nil
	}
}
