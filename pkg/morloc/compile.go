package morloc

import (
	"log/slog"
	"sort"
)

// Result is the frozen middle-end output handed to the emitters.
type Result struct {
	DAG       *DAG
	Table     *TermTable
	Manifolds []*Manifold
	Serial    map[string]*SerialMap // keyed by language
	Config    *Config
}

// Languages returns the sorted set of backend languages appearing in the
// manifold realizations.
func (r *Result) Languages() []string {
	seen := make(map[string]bool)
	for _, m := range r.Manifolds {
		for _, real := range m.Realizations {
			seen[real.Lang] = true
		}
	}
	langs := make([]string, 0, len(seen))
	for l := range seen {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Exported returns the root manifolds, in manifold ID order.
func (r *Result) Exported() []*Manifold {
	var out []*Manifold
	for _, m := range r.Manifolds {
		if m.Exported {
			out = append(out, m)
		}
	}
	return out
}

// ManifoldByID finds a manifold in the result list.
func (r *Result) ManifoldByID(id int) (*Manifold, bool) {
	for _, m := range r.Manifolds {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Compiler threads the monotonic ID counter and configuration through every
// pass. The middle end is single-threaded and deterministic.
type Compiler struct {
	Config  *Config
	Counter Counter
	Log     *slog.Logger
}

func NewCompiler(cfg *Config) *Compiler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Compiler{
		Config: cfg,
		Log:    slog.Default(),
	}
}

// Compile runs the middle end: DAG resolution, alias desugaring, the
// term-type table, the manifold walk, and serialization planning. The first
// fatal error aborts the run; nothing is emitted on failure.
func (c *Compiler) Compile(mods []*Module) (*Result, error) {
	Reindex(mods)

	dag, err := ResolveDAG(mods)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("module graph resolved", "root", dag.Root, "modules", len(dag.Order))

	if err := Desugar(dag); err != nil {
		return nil, err
	}

	table, err := BuildTermTable(dag)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("term table built", "nodes", len(table.Nodes))

	manifolds, err := BuildManifolds(dag, table, &c.Counter)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("manifolds built", "count", len(manifolds))

	result := &Result{
		DAG:       dag,
		Table:     table,
		Manifolds: manifolds,
		Serial:    make(map[string]*SerialMap),
		Config:    c.Config,
	}

	for _, lang := range result.Languages() {
		sm, err := PlanSerial(lang, dag)
		if err != nil {
			return nil, err
		}
		result.Serial[lang] = sm
	}

	return result, nil
}
