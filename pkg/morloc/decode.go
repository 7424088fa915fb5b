package morloc

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// DecodeModules reads the parser collaborator's output: a JSON document
// holding the parsed module set. Types appear in their surface rendering and
// are read back through the type parser. Nodes without an index get one
// assigned on ingestion.
func DecodeModules(r io.Reader) ([]*Module, error) {
	var doc struct {
		Modules []jsonModule `json:"modules"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding module set: %w", err)
	}

	mods := make([]*Module, len(doc.Modules))
	for i, jm := range doc.Modules {
		m, err := jm.toModule()
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", jm.Name, err)
		}
		mods[i] = m
	}
	Reindex(mods)
	return mods, nil
}

type jsonModule struct {
	Name    string       `json:"name"`
	Exports []string     `json:"exports"`
	Imports []jsonImport `json:"imports"`
	Body    []jsonNode   `json:"body"`
}

type jsonImport struct {
	From    string           `json:"from"`
	Include []jsonImportTerm `json:"include"`
	Exclude []string         `json:"exclude"`
	Alias   string           `json:"alias"`
}

type jsonImportTerm struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

type jsonNode struct {
	Expr  string `json:"expr"`
	Index *int   `json:"index"`

	Name   string   `json:"name"`
	Lang   string   `json:"lang"`
	Path   string   `json:"path"`
	Key    string   `json:"key"`
	Type   string   `json:"type"`
	Props  []string `json:"props"`
	Params []string `json:"params"`

	Names  []jsonSourceName `json:"names"`
	Value  *jsonNode        `json:"value"`
	Fn     *jsonNode        `json:"fn"`
	Body   *jsonNode        `json:"body"`
	Where  []jsonNode       `json:"where"`
	Items  []jsonNode       `json:"items"`
	Args   []jsonNode       `json:"args"`
	Fields []jsonRecField   `json:"fields"`

	Num  string `json:"num"`
	Str  string `json:"str"`
	Bool bool   `json:"bool"`
}

type jsonSourceName struct {
	Remote string `json:"remote"`
	Alias  string `json:"alias"`
}

type jsonRecField struct {
	Key   string    `json:"key"`
	Value *jsonNode `json:"value"`
}

func (jm jsonModule) toModule() (*Module, error) {
	m := &Module{Name: MVar(jm.Name)}
	for _, e := range jm.Exports {
		m.Exports = append(m.Exports, EVar(e))
	}
	for _, ji := range jm.Imports {
		imp := Import{From: MVar(ji.From), Alias: MVar(ji.Alias)}
		for _, t := range ji.Include {
			alias := t.Alias
			if alias == "" {
				alias = t.Name
			}
			imp.Include = append(imp.Include, ImportTerm{Name: EVar(t.Name), Alias: EVar(alias)})
		}
		for _, x := range ji.Exclude {
			imp.Exclude = append(imp.Exclude, EVar(x))
		}
		m.Imports = append(m.Imports, imp)
	}
	for _, jn := range jm.Body {
		node, err := jn.toExpr()
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, node)
	}
	return m, nil
}

func (jn *jsonNode) toExpr() (*ExprI, error) {
	if jn == nil {
		return nil, nil
	}
	index := -1
	if jn.Index != nil {
		index = *jn.Index
	}
	wrap := func(e Expr) *ExprI {
		return &ExprI{Index: index, Expr: e}
	}

	switch jn.Expr {
	case "export":
		return wrap(ExportE{Name: EVar(jn.Name)}), nil

	case "source":
		src := SourceE{Lang: jn.Lang, Path: jn.Path}
		for _, n := range jn.Names {
			alias := n.Alias
			if alias == "" {
				alias = n.Remote
			}
			src.Names = append(src.Names, SourceName{Remote: n.Remote, Alias: EVar(alias)})
		}
		return wrap(src), nil

	case "decl":
		value, err := jn.Value.toExpr()
		if err != nil {
			return nil, err
		}
		decl := DeclE{Name: EVar(jn.Name), Value: value}
		for i := range jn.Where {
			w, err := jn.Where[i].toExpr()
			if err != nil {
				return nil, err
			}
			decl.Where = append(decl.Where, w)
		}
		return wrap(decl), nil

	case "sig":
		t, err := mtype.Parse(jn.Type)
		if err != nil {
			return nil, fmt.Errorf("signature for %s: %w", jn.Name, err)
		}
		return wrap(SigE{Name: EVar(jn.Name), Lang: jn.Lang, Props: jn.Props, Type: t}), nil

	case "type":
		t, err := mtype.Parse(jn.Type)
		if err != nil {
			return nil, fmt.Errorf("type alias %s: %w", jn.Name, err)
		}
		alias := AliasE{Name: mtype.TVar{Name: jn.Name, Lang: jn.Lang}, Type: t}
		for _, p := range jn.Params {
			alias.Params = append(alias.Params, mtype.TVar{Name: p})
		}
		return wrap(alias), nil

	case "var":
		return wrap(VarE{Name: EVar(jn.Name)}), nil

	case "acc":
		value, err := jn.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return wrap(AccE{Value: value, Key: jn.Key}), nil

	case "list":
		items, err := toExprList(jn.Items)
		if err != nil {
			return nil, err
		}
		return wrap(LstE{Items: items}), nil

	case "tuple":
		items, err := toExprList(jn.Items)
		if err != nil {
			return nil, err
		}
		return wrap(TupE{Items: items}), nil

	case "record":
		rec := RecE{}
		for _, f := range jn.Fields {
			v, err := f.Value.toExpr()
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, RecField{Key: f.Key, Value: v})
		}
		return wrap(rec), nil

	case "lam":
		body, err := jn.Body.toExpr()
		if err != nil {
			return nil, err
		}
		lam := LamE{Body: body}
		for _, p := range jn.Params {
			lam.Params = append(lam.Params, EVar(p))
		}
		return wrap(lam), nil

	case "app":
		fn, err := jn.Fn.toExpr()
		if err != nil {
			return nil, err
		}
		args, err := toExprList(jn.Args)
		if err != nil {
			return nil, err
		}
		return wrap(AppE{Fn: fn, Args: args}), nil

	case "ann":
		value, err := jn.Value.toExpr()
		if err != nil {
			return nil, err
		}
		t, err := mtype.Parse(jn.Type)
		if err != nil {
			return nil, err
		}
		return wrap(AnnE{Value: value, Type: t}), nil

	case "num":
		var f float64
		if _, err := fmt.Sscanf(jn.Num, "%g", &f); err != nil {
			return nil, fmt.Errorf("numeric literal %q: %w", jn.Num, err)
		}
		return wrap(NumE{Value: f, Raw: jn.Num}), nil

	case "str":
		return wrap(StrE{Value: jn.Str}), nil

	case "bool":
		return wrap(BoolE{Value: jn.Bool}), nil

	case "unit":
		return wrap(UniE{}), nil

	default:
		return nil, fmt.Errorf("unknown expression form %q", jn.Expr)
	}
}

func toExprList(nodes []jsonNode) ([]*ExprI, error) {
	out := make([]*ExprI, len(nodes))
	for i := range nodes {
		n, err := nodes[i].toExpr()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
