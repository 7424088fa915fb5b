package morloc

import (
	"slices"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// SerialMap describes how one language moves data across its boundary: the
// type-specific packer and unpacker functions, the generic fallbacks, and
// the source files declaring them.
type SerialMap struct {
	Lang            string
	Packer          map[string]string // rendered domain type -> function name
	Unpacker        map[string]string
	GenericPacker   string
	GenericUnpacker string
	Sources         []string
}

// PackerFor returns the packer for a type, falling back to the generic one.
func (s *SerialMap) PackerFor(t mtype.Type) string {
	if t != nil {
		if name, ok := s.Packer[t.String()]; ok {
			return name
		}
	}
	return s.GenericPacker
}

// UnpackerFor returns the unpacker for a type, falling back to the generic
// one.
func (s *SerialMap) UnpackerFor(t mtype.Type) string {
	if t != nil {
		if name, ok := s.Unpacker[t.String()]; ok {
			return name
		}
	}
	return s.GenericUnpacker
}

// PlanSerial builds the serialization map for one language by scanning its
// signatures for the pack and unpack properties. The domain type is the
// first function argument. A packer whose domain, or an unpacker whose
// return type, is a bare variable or existential is generic. Each language
// must declare one generic packer and one generic unpacker.
func PlanSerial(lang string, dag *DAG) (*SerialMap, error) {
	sm := &SerialMap{
		Lang:     lang,
		Packer:   make(map[string]string),
		Unpacker: make(map[string]string),
	}

	// Local names of every serializer, so their defining sources can be
	// gathered afterwards.
	serializers := make(map[EVar]bool)

	for _, name := range dag.Order {
		mod := dag.Modules[name]
		for _, node := range mod.Body {
			sig, ok := node.Expr.(SigE)
			if !ok || sig.Lang != lang {
				continue
			}
			isPack := slices.Contains(sig.Props, "pack")
			isUnpack := slices.Contains(sig.Props, "unpack")
			if !isPack && !isUnpack {
				continue
			}
			domain, ok := sigDomain(sig.Type)
			if !ok {
				continue
			}
			serializers[sig.Name] = true
			fn := sourceNameFor(mod, lang, sig.Name)
			if fn == "" {
				fn = string(sig.Name)
			}
			generic := isGenericDomain(domain)
			if isUnpack {
				// An unpacker always reads a serialized string; whether it is
				// generic shows in the type it returns.
				_, body := mtype.StripQuantifiers(sig.Type)
				generic = isGenericDomain(body.(mtype.Func).Ret)
			}
			if generic {
				if isPack && sm.GenericPacker == "" {
					sm.GenericPacker = fn
				}
				if isUnpack && sm.GenericUnpacker == "" {
					sm.GenericUnpacker = fn
				}
				continue
			}
			key := domain.String()
			if isPack {
				sm.Packer[key] = fn
			}
			if isUnpack {
				sm.Unpacker[key] = fn
			}
		}
	}

	if sm.GenericPacker == "" {
		return nil, MissingSerializerError{Lang: lang, Kind: "packer"}
	}
	if sm.GenericUnpacker == "" {
		return nil, MissingSerializerError{Lang: lang, Kind: "unpacker"}
	}

	for _, name := range dag.Order {
		mod := dag.Modules[name]
		for _, node := range mod.Body {
			src, ok := node.Expr.(SourceE)
			if !ok || src.Lang != lang {
				continue
			}
			for _, sn := range src.Names {
				local := sn.Alias
				if local == "" {
					local = EVar(sn.Remote)
				}
				if serializers[local] && !slices.Contains(sm.Sources, src.Path) {
					sm.Sources = append(sm.Sources, src.Path)
				}
			}
		}
	}

	return sm, nil
}

// sigDomain returns the first argument type of a signature, stripping
// quantifiers. Non-function signatures have no domain.
func sigDomain(t mtype.Type) (mtype.Type, bool) {
	if t == nil {
		return nil, false
	}
	_, body := mtype.StripQuantifiers(t)
	fn, ok := body.(mtype.Func)
	if !ok || len(fn.Args) == 0 {
		return nil, false
	}
	return fn.Args[0], true
}

func isGenericDomain(t mtype.Type) bool {
	switch t.(type) {
	case mtype.Var, mtype.Exist:
		return true
	}
	return false
}

// sourceNameFor finds the backend symbol a local name is sourced from in
// one module.
func sourceNameFor(mod *Module, lang string, name EVar) string {
	for _, node := range mod.Body {
		src, ok := node.Expr.(SourceE)
		if !ok || src.Lang != lang {
			continue
		}
		for _, sn := range src.Names {
			local := sn.Alias
			if local == "" {
				local = EVar(sn.Remote)
			}
			if local == name {
				return sn.Remote
			}
		}
	}
	return ""
}
