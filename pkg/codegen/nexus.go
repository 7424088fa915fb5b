package codegen

import (
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"

	"github.com/Zach1031/morloc/pkg/morloc"
	"github.com/Zach1031/morloc/pkg/mtype"
)

// NexusFile is the conventional nexus file name.
const NexusFile = "nexus.py"

// nexusCommand is one subcommand of the generated dispatcher.
type nexusCommand struct {
	Name     string
	Type     string
	Executor string
	Pool     string
	ID       int
	NArgs    int
}

var nexusTemplate = template.Must(template.New("nexus").Parse(`#!/usr/bin/env python3
"""Command line dispatcher for a compiled morloc program."""

import subprocess
import sys

COMMANDS = {
{{- range .Commands}}
    "{{.Name}}": {
        "type": {{printf "%q" .Type}},
        "executor": {{printf "%q" .Executor}},
        "pool": {{printf "%q" .Pool}},
        "id": {{.ID}},
        "nargs": {{.NArgs}},
    },
{{- end}}
}


def usage(out):
    out.write("Usage: {{.Prog}} <command> [arguments]\n")
    out.write("Exported commands:\n")
    for name, cmd in COMMANDS.items():
        out.write("  %s :: %s\n" % (name, cmd["type"]))


def main():
    if len(sys.argv) < 2:
        usage(sys.stderr)
        sys.exit(1)
    if sys.argv[1] in ("-h", "--help"):
        usage(sys.stdout)
        sys.exit(0)

    name = sys.argv[1]
    args = sys.argv[2:]
    cmd = COMMANDS.get(name)
    if cmd is None:
        sys.stderr.write("unknown command: %s\n" % name)
        usage(sys.stderr)
        sys.exit(1)
    if len(args) != cmd["nargs"]:
        sys.stderr.write(
            "%s takes %d arguments, got %d\n" % (name, cmd["nargs"], len(args))
        )
        sys.exit(1)

    result = subprocess.run(
        [cmd["executor"], cmd["pool"], str(cmd["id"])] + args
    )
    sys.exit(result.returncode)


if __name__ == "__main__":
    main()
`))

// EmitNexus renders the dispatcher script: one subcommand per exported root
// manifold, forwarding its arguments to the owning pool.
func EmitNexus(result *morloc.Result, defaultLang string) (string, error) {
	var commands []nexusCommand
	for _, m := range result.Exported() {
		lang := m.Lang()
		if lang == "" {
			lang = defaultLang
		}
		executor, err := result.Config.Executor(lang)
		if err != nil {
			return "", err
		}
		g, err := GrammarFor(lang)
		if err != nil {
			return "", err
		}
		typeStr := "?"
		if m.AbstractType != nil {
			typeStr = m.AbstractType.String()
		}
		nargs := len(m.BoundVars)
		if nargs == 0 && len(m.Args) == 0 {
			// Direct re-exports have no composition lambda; the argument
			// count comes from the function type.
			nargs = mtype.Arity(concreteType(m, lang))
			if nargs == 0 {
				nargs = mtype.Arity(m.AbstractType)
			}
		}
		commands = append(commands, nexusCommand{
			Name:     strcase.ToSnake(string(m.MorlocName)),
			Type:     typeStr,
			Executor: executor,
			Pool:     PoolFile(g),
			ID:       m.ID,
			NArgs:    nargs,
		})
	}

	var sb strings.Builder
	err := nexusTemplate.Execute(&sb, struct {
		Prog     string
		Commands []nexusCommand
	}{
		Prog:     "nexus.py",
		Commands: commands,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
