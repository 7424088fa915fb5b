package morloc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cmd, err := cfg.Executor("py")
		require.NoError(t, err)
		assert.Equal(t, "python3", cmd)
		cmd, err = cfg.Executor("r")
		require.NoError(t, err)
		assert.Equal(t, "Rscript", cmd)
	})

	t.Run("missing executor", func(t *testing.T) {
		cfg := DefaultConfig()
		_, err := cfg.Executor("fortran")
		var want MissingExecutorError
		require.ErrorAs(t, err, &want)
		assert.Equal(t, "fortran", want.Lang)
	})

	t.Run("load from toml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "morloc.toml")
		require.NoError(t, os.WriteFile(path, []byte(
			"lib = \"/opt/morloc/lib\"\n\n[executors]\npy = \"python3.12\"\n",
		), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/opt/morloc/lib", cfg.Lib)
		cmd, err := cfg.Executor("py")
		require.NoError(t, err)
		assert.Equal(t, "python3.12", cmd)
	})

	t.Run("find walks up from nested directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "morloc.toml"), []byte(
			"[executors]\nr = \"Rscript-4.4\"\n",
		), 0o644))
		nested := filepath.Join(dir, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		cfg, err := FindConfig(nested)
		require.NoError(t, err)
		cmd, err := cfg.Executor("r")
		require.NoError(t, err)
		assert.Equal(t, "Rscript-4.4", cmd)
	})

	t.Run("find without a config returns defaults", func(t *testing.T) {
		cfg, err := FindConfig(t.TempDir())
		require.NoError(t, err)
		_, err = cfg.Executor("py")
		assert.NoError(t, err)
	})

	t.Run("MORLOC_LIB overrides lib", func(t *testing.T) {
		original := os.Getenv("MORLOC_LIB")
		defer os.Setenv("MORLOC_LIB", original)
		os.Setenv("MORLOC_LIB", "/env/lib")

		cfg, err := FindConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "/env/lib", cfg.Lib)
	})
}
