package mtype

import (
	"fmt"
	"strings"
)

// TVar names a type variable. Lang is empty for general types and holds a
// backend language name (e.g. "py", "r") for concrete realizations.
type TVar struct {
	Name string
	Lang string
}

func (v TVar) String() string {
	if v.Lang == "" {
		return v.Name
	}
	return v.Name + "@" + v.Lang
}

// Type is the sum over all morloc type forms.
type Type interface {
	fmt.Stringer

	// Apply substitutes free variables according to subs.
	Apply(Subs) Type

	// FreeVars returns the free type variables of the type.
	FreeVars() VarSet

	// Eq is structural equality.
	Eq(Type) bool
}

// Var is a type variable reference.
type Var struct {
	V TVar
}

func (t Var) Apply(subs Subs) Type {
	if r, ok := subs[t.V]; ok {
		return r
	}
	return t
}

func (t Var) FreeVars() VarSet { return NewVarSet(t.V) }

func (t Var) Eq(other Type) bool {
	o, ok := other.(Var)
	return ok && o.V == t.V
}

func (t Var) String() string { return t.V.String() }

// Forall is a universally quantified type with a single binder. Multi-variable
// quantification nests.
type Forall struct {
	Binder TVar
	Body   Type
}

func (t Forall) Apply(subs Subs) Type {
	inner := subs.Without(t.Binder)
	return Forall{Binder: t.Binder, Body: t.Body.Apply(inner)}
}

func (t Forall) FreeVars() VarSet {
	return t.Body.FreeVars().Remove(t.Binder)
}

func (t Forall) Eq(other Type) bool {
	o, ok := other.(Forall)
	return ok && o.Binder == t.Binder && t.Body.Eq(o.Body)
}

func (t Forall) String() string {
	binders := []string{}
	body := Type(t)
	for {
		f, ok := body.(Forall)
		if !ok {
			break
		}
		binders = append(binders, f.Binder.String())
		body = f.Body
	}
	return fmt.Sprintf("forall %s . %s", strings.Join(binders, " "), body)
}

// Exist is an unsolved existential variable carrying default instantiations.
// The first default is used when the existential survives desugaring.
type Exist struct {
	V        TVar
	Defaults []Type
}

func (t Exist) Apply(subs Subs) Type {
	if r, ok := subs[t.V]; ok {
		return r
	}
	ds := make([]Type, len(t.Defaults))
	for i, d := range t.Defaults {
		ds[i] = d.Apply(subs)
	}
	return Exist{V: t.V, Defaults: ds}
}

func (t Exist) FreeVars() VarSet {
	vs := NewVarSet(t.V)
	for _, d := range t.Defaults {
		vs = vs.Union(d.FreeVars())
	}
	return vs
}

func (t Exist) Eq(other Type) bool {
	o, ok := other.(Exist)
	if !ok || o.V != t.V || len(o.Defaults) != len(t.Defaults) {
		return false
	}
	for i := range t.Defaults {
		if !t.Defaults[i].Eq(o.Defaults[i]) {
			return false
		}
	}
	return true
}

func (t Exist) String() string { return "?" + t.V.String() }

// Func is an n-ary function type. A zero-argument function is a thunk.
type Func struct {
	Args []Type
	Ret  Type
}

func (t Func) Apply(subs Subs) Type {
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.Apply(subs)
	}
	return Func{Args: args, Ret: t.Ret.Apply(subs)}
}

func (t Func) FreeVars() VarSet {
	vs := t.Ret.FreeVars()
	for _, a := range t.Args {
		vs = vs.Union(a.FreeVars())
	}
	return vs
}

func (t Func) Eq(other Type) bool {
	o, ok := other.(Func)
	if !ok || len(o.Args) != len(t.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Eq(o.Args[i]) {
			return false
		}
	}
	return t.Ret.Eq(o.Ret)
}

func (t Func) String() string {
	parts := make([]string, 0, len(t.Args)+1)
	for _, a := range t.Args {
		parts = append(parts, parenthesize(a))
	}
	parts = append(parts, parenthesize(t.Ret))
	return strings.Join(parts, " -> ")
}

// App is an applied parameterized type: a head name and zero or more
// arguments. A bare concrete type (Int, String) is an App with no arguments.
type App struct {
	Name TVar
	Args []Type
}

func (t App) Apply(subs Subs) Type {
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.Apply(subs)
	}
	return App{Name: t.Name, Args: args}
}

func (t App) FreeVars() VarSet {
	vs := NewVarSet()
	for _, a := range t.Args {
		vs = vs.Union(a.FreeVars())
	}
	return vs
}

func (t App) Eq(other Type) bool {
	o, ok := other.(App)
	if !ok || o.Name != t.Name || len(o.Args) != len(t.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Eq(o.Args[i]) {
			return false
		}
	}
	return true
}

func (t App) String() string {
	if len(t.Args) == 0 {
		return t.Name.String()
	}
	parts := []string{t.Name.String()}
	for _, a := range t.Args {
		parts = append(parts, atomize(a))
	}
	return strings.Join(parts, " ")
}

// Field is one key/type pair in a record.
type Field struct {
	Key   string
	Value Type
}

// Record is a named record type: a constructor tag, a name, type parameters,
// and an ordered field list.
type Record struct {
	Tag    string
	Name   TVar
	Params []Type
	Fields []Field
}

func (t Record) Apply(subs Subs) Type {
	params := make([]Type, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.Apply(subs)
	}
	fields := make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = Field{Key: f.Key, Value: f.Value.Apply(subs)}
	}
	return Record{Tag: t.Tag, Name: t.Name, Params: params, Fields: fields}
}

func (t Record) FreeVars() VarSet {
	vs := NewVarSet()
	for _, p := range t.Params {
		vs = vs.Union(p.FreeVars())
	}
	for _, f := range t.Fields {
		vs = vs.Union(f.Value.FreeVars())
	}
	return vs
}

func (t Record) Eq(other Type) bool {
	o, ok := other.(Record)
	if !ok || o.Tag != t.Tag || o.Name != t.Name ||
		len(o.Params) != len(t.Params) || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Eq(o.Params[i]) {
			return false
		}
	}
	for i := range t.Fields {
		if t.Fields[i].Key != o.Fields[i].Key || !t.Fields[i].Value.Eq(o.Fields[i].Value) {
			return false
		}
	}
	return true
}

func (t Record) String() string {
	var sb strings.Builder
	if t.Tag != "" {
		sb.WriteString(t.Tag)
		sb.WriteString(" ")
	}
	sb.WriteString(t.Name.String())
	for _, p := range t.Params {
		sb.WriteString(" ")
		sb.WriteString(atomize(p))
	}
	sb.WriteString(" {")
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Key)
		sb.WriteString(" :: ")
		sb.WriteString(f.Value.String())
	}
	sb.WriteString("}")
	return sb.String()
}

// parenthesize wraps function types so arrows stay unambiguous.
func parenthesize(t Type) string {
	if _, ok := t.(Func); ok {
		return "(" + t.String() + ")"
	}
	return t.String()
}

// atomize wraps anything that is not a bare atom when it appears as a type
// argument.
func atomize(t Type) string {
	switch tt := t.(type) {
	case Var, Exist:
		return t.String()
	case App:
		if len(tt.Args) == 0 {
			return t.String()
		}
	}
	return "(" + t.String() + ")"
}

// Arity returns the number of arguments a value of this type accepts:
// quantifiers are stripped, function types report their argument count, and
// everything else is a value with arity zero.
func Arity(t Type) int {
	switch tt := t.(type) {
	case Forall:
		return Arity(tt.Body)
	case Func:
		return len(tt.Args)
	default:
		return 0
	}
}

// StripQuantifiers removes leading Forall binders, returning the binder list
// and the body.
func StripQuantifiers(t Type) ([]TVar, Type) {
	var binders []TVar
	for {
		f, ok := t.(Forall)
		if !ok {
			return binders, t
		}
		binders = append(binders, f.Binder)
		t = f.Body
	}
}

// ResolveExistentials replaces every existential that carries at least one
// default with its first default, recursively. Existentials with no defaults
// are left in place for the inference collaborator to solve.
func ResolveExistentials(t Type) Type {
	switch tt := t.(type) {
	case Exist:
		if len(tt.Defaults) > 0 {
			return ResolveExistentials(tt.Defaults[0])
		}
		return tt
	case Forall:
		return Forall{Binder: tt.Binder, Body: ResolveExistentials(tt.Body)}
	case Func:
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = ResolveExistentials(a)
		}
		return Func{Args: args, Ret: ResolveExistentials(tt.Ret)}
	case App:
		args := make([]Type, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = ResolveExistentials(a)
		}
		return App{Name: tt.Name, Args: args}
	case Record:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = ResolveExistentials(p)
		}
		fields := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = Field{Key: f.Key, Value: ResolveExistentials(f.Value)}
		}
		return Record{Tag: tt.Tag, Name: tt.Name, Params: params, Fields: fields}
	default:
		return t
	}
}
