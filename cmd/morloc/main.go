package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/Zach1031/morloc/pkg/codegen"
	"github.com/Zach1031/morloc/pkg/ioctx"
	"github.com/Zach1031/morloc/pkg/morloc"
)

type cliConfig struct {
	Debug  bool
	OutDir string
}

func main() {
	var cfg cliConfig

	rootCmd := &cobra.Command{
		Use:   "morloc",
		Short: "morloc polyglot compiler",
		Long: `Morloc compiles typed polyglot compositions into a nexus dispatcher
and one pool of wrapper functions per backend language.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")

	makeCmd := &cobra.Command{
		Use:   "make <modules.json>",
		Short: "Compile a parsed module set into nexus and pools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMake(cmd.Context(), cfg, args[0])
		},
	}
	makeCmd.Flags().StringVarP(&cfg.OutDir, "output", "o", ".", "Directory for generated artifacts")

	checkCmd := &cobra.Command{
		Use:   "typecheck <modules.json>",
		Short: "Resolve imports, desugar aliases, and build the term table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cfg, args[0])
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <modules.json>",
		Short: "Print the manifold list for a compiled module set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), cfg, args[0])
		},
	}

	rootCmd.AddCommand(makeCmd, checkCmd, dumpCmd)

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func compile(cfg cliConfig, path string) (*morloc.Result, error) {
	logger := setupLogging(cfg.Debug)

	mods, err := loadModules(path)
	if err != nil {
		return nil, err
	}

	conf, err := morloc.FindConfig(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	compiler := morloc.NewCompiler(conf)
	compiler.Log = logger
	return compiler.Compile(mods)
}

func runMake(ctx context.Context, cfg cliConfig, path string) error {
	result, err := compile(cfg, path)
	if err != nil {
		return err
	}

	arts, err := codegen.Emit(result)
	if err != nil {
		return err
	}
	return codegen.WriteArtifacts(ctx, cfg.OutDir, arts)
}

func runCheck(ctx context.Context, cfg cliConfig, path string) error {
	result, err := compile(cfg, path)
	if err != nil {
		return err
	}
	out := ioctx.StdoutFromContext(ctx)
	for _, m := range result.Exported() {
		typeStr := "?"
		if m.AbstractType != nil {
			typeStr = m.AbstractType.String()
		}
		fmt.Fprintf(out, "%s :: %s\n", m.MorlocName, typeStr)
	}
	return nil
}

func runDump(ctx context.Context, cfg cliConfig, path string) error {
	result, err := compile(cfg, path)
	if err != nil {
		return err
	}
	out := ioctx.StdoutFromContext(ctx)
	for _, m := range result.Manifolds {
		fmt.Fprintf(out, "%# v\n", pretty.Formatter(m))
	}
	return nil
}

func loadModules(path string) ([]*morloc.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return morloc.DecodeModules(f)
}
