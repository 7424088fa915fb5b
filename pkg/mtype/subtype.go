package mtype

import "fmt"

// SubtypeError reports a failed subtyping judgement.
type SubtypeError struct {
	Sub   Type
	Super Type
	Why   string
}

func (e SubtypeError) Error() string {
	return fmt.Sprintf("%s is not a subtype of %s: %s", e.Sub, e.Super, e.Why)
}

// Subtype checks a <: b under a common quantifier prefix. Quantified
// variables on the supertype side are rigid; variables on the subtype side
// may instantiate to anything. Function types are contravariant in their
// arguments and covariant in their return.
func Subtype(a, b Type) error {
	_, err := subtype(a, b, NewSubs())
	return err
}

// Equivalent holds when each type is a subtype of the other. This is the
// reconciliation test for an alias imported through two paths.
func Equivalent(a, b Type) bool {
	return Subtype(a, b) == nil && Subtype(b, a) == nil
}

func subtype(a, b Type, subs Subs) (Subs, error) {
	a = a.Apply(subs)
	b = b.Apply(subs)

	if fa, ok := a.(Forall); ok {
		return subtype(fa.Body, b, subs)
	}
	if fb, ok := b.(Forall); ok {
		return subtype(a, fb.Body, subs)
	}

	if ea, ok := a.(Exist); ok {
		return bindExist(ea, b)
	}
	if eb, ok := b.(Exist); ok {
		return bindExist(eb, a)
	}

	if va, ok := a.(Var); ok {
		if vb, ok := b.(Var); ok {
			if va.V == vb.V {
				return subs, nil
			}
			// Distinct variables align positionally: record the pairing and
			// hold it for the rest of the judgement.
			if bound, seen := subs[va.V]; seen {
				if !bound.Eq(b) {
					return nil, SubtypeError{a, b, "variable bound twice"}
				}
				return subs, nil
			}
			next := subs.Compose(Subs{va.V: b})
			return next, nil
		}
		if bound, seen := subs[va.V]; seen {
			if !bound.Eq(b) {
				return nil, SubtypeError{a, b, "variable bound twice"}
			}
			return subs, nil
		}
		return subs.Compose(Subs{va.V: b}), nil
	}

	switch sa := a.(type) {
	case Func:
		sb, ok := b.(Func)
		if !ok {
			return nil, SubtypeError{a, b, "function vs non-function"}
		}
		if len(sa.Args) != len(sb.Args) {
			return nil, SubtypeError{a, b, "argument count mismatch"}
		}
		var err error
		for i := range sa.Args {
			// Contravariant argument position.
			subs, err = subtype(sb.Args[i], sa.Args[i], subs)
			if err != nil {
				return nil, err
			}
		}
		return subtype(sa.Ret, sb.Ret, subs)

	case App:
		sb, ok := b.(App)
		if !ok {
			return nil, SubtypeError{a, b, "constructor vs non-constructor"}
		}
		if sa.Name != sb.Name || len(sa.Args) != len(sb.Args) {
			return nil, SubtypeError{a, b, "constructor mismatch"}
		}
		var err error
		for i := range sa.Args {
			subs, err = subtype(sa.Args[i], sb.Args[i], subs)
			if err != nil {
				return nil, err
			}
		}
		return subs, nil

	case Record:
		sb, ok := b.(Record)
		if !ok {
			return nil, SubtypeError{a, b, "record vs non-record"}
		}
		if sa.Name != sb.Name || len(sa.Fields) != len(sb.Fields) {
			return nil, SubtypeError{a, b, "record shape mismatch"}
		}
		var err error
		for i := range sa.Fields {
			if sa.Fields[i].Key != sb.Fields[i].Key {
				return nil, SubtypeError{a, b, "field name mismatch"}
			}
			subs, err = subtype(sa.Fields[i].Value, sb.Fields[i].Value, subs)
			if err != nil {
				return nil, err
			}
		}
		return subs, nil
	}

	return nil, SubtypeError{a, b, "no subtyping rule"}
}
