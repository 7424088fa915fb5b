package mtype

import "fmt"

// UnificationError reports a structural conflict between two types.
type UnificationError struct {
	Left  Type
	Right Type
	Why   string
}

func (e UnificationError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s: %s", e.Left, e.Right, e.Why)
}

// Unify merges two general types. Equal variables pass through, existentials
// absorb non-existentials, function, applied, and record forms recurse
// componentwise. Anything else is a conflict.
func Unify(t1, t2 Type) (Subs, error) {
	// Quantifiers are stripped under a shared prefix: the unifier treats
	// bound variables as rigid names, which is sufficient for merging
	// signatures that were written against the same surface syntax.
	_, b1 := StripQuantifiers(t1)
	_, b2 := StripQuantifiers(t2)
	return unify(b1, b2)
}

func unify(t1, t2 Type) (Subs, error) {
	if e1, ok := t1.(Exist); ok {
		return bindExist(e1, t2)
	}
	if e2, ok := t2.(Exist); ok {
		return bindExist(e2, t1)
	}

	switch a := t1.(type) {
	case Var:
		if b, ok := t2.(Var); ok && a.V == b.V {
			return NewSubs(), nil
		}
		return nil, UnificationError{t1, t2, "variable mismatch"}

	case Func:
		b, ok := t2.(Func)
		if !ok {
			return nil, UnificationError{t1, t2, "function vs non-function"}
		}
		if len(a.Args) != len(b.Args) {
			return nil, UnificationError{t1, t2, "argument count mismatch"}
		}
		subs := NewSubs()
		for i := range a.Args {
			s, err := unify(a.Args[i].Apply(subs), b.Args[i].Apply(subs))
			if err != nil {
				return nil, err
			}
			subs = subs.Compose(s)
		}
		s, err := unify(a.Ret.Apply(subs), b.Ret.Apply(subs))
		if err != nil {
			return nil, err
		}
		return subs.Compose(s), nil

	case App:
		b, ok := t2.(App)
		if !ok {
			return nil, UnificationError{t1, t2, "constructor vs non-constructor"}
		}
		if a.Name != b.Name {
			return nil, UnificationError{t1, t2, "constructor mismatch"}
		}
		if len(a.Args) != len(b.Args) {
			return nil, UnificationError{t1, t2, "parameter count mismatch"}
		}
		subs := NewSubs()
		for i := range a.Args {
			s, err := unify(a.Args[i].Apply(subs), b.Args[i].Apply(subs))
			if err != nil {
				return nil, err
			}
			subs = subs.Compose(s)
		}
		return subs, nil

	case Record:
		b, ok := t2.(Record)
		if !ok {
			return nil, UnificationError{t1, t2, "record vs non-record"}
		}
		if a.Name != b.Name || len(a.Fields) != len(b.Fields) {
			return nil, UnificationError{t1, t2, "record shape mismatch"}
		}
		subs := NewSubs()
		for i := range a.Fields {
			if a.Fields[i].Key != b.Fields[i].Key {
				return nil, UnificationError{t1, t2, fmt.Sprintf("field %q vs %q", a.Fields[i].Key, b.Fields[i].Key)}
			}
			s, err := unify(a.Fields[i].Value.Apply(subs), b.Fields[i].Value.Apply(subs))
			if err != nil {
				return nil, err
			}
			subs = subs.Compose(s)
		}
		return subs, nil
	}

	return nil, UnificationError{t1, t2, "no unification rule"}
}

func bindExist(e Exist, t Type) (Subs, error) {
	if o, ok := t.(Exist); ok && o.V == e.V {
		return NewSubs(), nil
	}
	if t.FreeVars().Contains(e.V) {
		return nil, UnificationError{e, t, "occurs check failed"}
	}
	subs := NewSubs()
	subs[e.V] = t
	return subs, nil
}
