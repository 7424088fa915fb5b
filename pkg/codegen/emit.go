package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Zach1031/morloc/pkg/ioctx"
	"github.com/Zach1031/morloc/pkg/morloc"
)

// Artifacts is the rendered output of a compilation: the nexus and one pool
// per backend language.
type Artifacts struct {
	Nexus string
	Pools []*Pool
}

// Emit renders every artifact for a compiled result. Nothing touches disk
// here; rendering errors abort before any file is written.
func Emit(result *morloc.Result) (*Artifacts, error) {
	langs := result.Languages()
	defaultLang := pickDefaultLang(langs)

	if len(langs) == 0 {
		// Pure compositions with no sourced realizations still need a home.
		langs = []string{defaultLang}
	}

	arts := &Artifacts{}
	for _, lang := range langs {
		pool, err := EmitPool(result, lang, defaultLang)
		if err != nil {
			return nil, err
		}
		arts.Pools = append(arts.Pools, pool)
	}

	nexus, err := EmitNexus(result, defaultLang)
	if err != nil {
		return nil, err
	}
	arts.Nexus = nexus

	return arts, nil
}

// pickDefaultLang homes language-neutral manifolds: Python when available,
// otherwise the first language in play.
func pickDefaultLang(langs []string) string {
	for _, l := range langs {
		if l == "py" {
			return l
		}
	}
	if len(langs) > 0 {
		return langs[0]
	}
	return "py"
}

// WriteArtifacts writes the nexus and pools under dir, each marked
// executable. Pool writes run concurrently; any failure aborts the group.
func WriteArtifacts(ctx context.Context, dir string, arts *Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeExecutable(ctx, filepath.Join(dir, NexusFile), arts.Nexus)
	})
	for _, pool := range arts.Pools {
		g.Go(func() error {
			return writeExecutable(ctx, filepath.Join(dir, pool.File), pool.Code)
		})
	}
	return g.Wait()
}

func writeExecutable(ctx context.Context, path, code string) error {
	if err := os.WriteFile(path, []byte(code), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(ioctx.StdoutFromContext(ctx), "wrote %s\n", path)
	return nil
}
