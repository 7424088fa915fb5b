package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// PythonGrammar emits Python 3 pools.
type PythonGrammar struct{}

func init() {
	Register(PythonGrammar{})
}

func (PythonGrammar) Lang() string      { return "py" }
func (PythonGrammar) Extension() string { return "py" }
func (PythonGrammar) Indent() string    { return "    " }

func (PythonGrammar) Comment(text string) string { return "# " + text }

func (PythonGrammar) Quote(s string) string { return strconv.Quote(s) }

func (PythonGrammar) Bool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (PythonGrammar) Unit() string { return "None" }

func (PythonGrammar) Number(raw string) string { return raw }

func (PythonGrammar) List(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func (PythonGrammar) Tuple(items []string) string {
	if len(items) == 1 {
		return "(" + items[0] + ",)"
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func (g PythonGrammar) Record(keys, vals []string) string {
	pairs := make([]string, len(keys))
	for i := range keys {
		pairs[i] = g.Quote(keys[i]) + ": " + vals[i]
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func (PythonGrammar) Assign(lhs, rhs string) string { return lhs + " = " + rhs }

func (PythonGrammar) Call(fn string, args []string) string {
	return fn + "(" + strings.Join(args, ", ") + ")"
}

func (PythonGrammar) Return(expr string) string { return "return " + expr }

func (g PythonGrammar) FunctionDecl(name string, params, body []string) []string {
	lines := []string{fmt.Sprintf("def %s(%s):", name, strings.Join(params, ", "))}
	if len(body) == 0 {
		body = []string{"pass"}
	}
	for _, b := range body {
		lines = append(lines, g.Indent()+b)
	}
	return lines
}

func (g PythonGrammar) SourceImport(path string) string {
	return fmt.Sprintf("exec(compile(open(%s).read(), %s, \"exec\"))", g.Quote(path), g.Quote(path))
}

func (g PythonGrammar) Unpack(fn, expr string) string {
	if fn == "" {
		fn = "_mlc_unpack"
	}
	return g.Call(fn, []string{expr})
}

func (g PythonGrammar) Pack(fn, expr string) string {
	if fn == "" {
		fn = "_mlc_pack"
	}
	return g.Call(fn, []string{expr})
}

func (g PythonGrammar) ForeignCall(executor, pool string, id int, args []string) string {
	return g.Call("_mlc_foreign", append([]string{
		g.Quote(executor),
		g.Quote(pool),
		strconv.Itoa(id),
	}, "["+strings.Join(args, ", ")+"]"))
}

var pyPreamble = template.Must(template.New("py-preamble").Parse(`#!/usr/bin/env python3

import json
import subprocess
import sys


def _mlc_unpack(x):
    return json.loads(x)


def _mlc_pack(x):
    return json.dumps(x)


def _mlc_foreign(cmd, pool, mid, args):
    result = subprocess.run(
        [cmd, pool, str(mid)] + [str(a) for a in args],
        capture_output=True,
        text=True,
    )
    if result.returncode != 0:
        sys.stderr.write(result.stderr)
        sys.exit(result.returncode)
    return result.stdout


def _mlc_run(thunk, mid):
    try:
        return thunk()
    except Exception as e:
        sys.stderr.write("error in manifold %d: %s\n" % (mid, e))
        sys.exit(1)

{{range .Sources}}
{{.}}
{{- end}}
`))

func (g PythonGrammar) Preamble(sources []string) (string, error) {
	imports := make([]string, len(sources))
	for i, p := range sources {
		imports[i] = g.SourceImport(p)
	}
	var sb strings.Builder
	if err := pyPreamble.Execute(&sb, struct{ Sources []string }{imports}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var pyDispatch = template.Must(template.New("py-dispatch").Parse(`
if __name__ == "__main__":
    if len(sys.argv) < 2:
        sys.stderr.write("internal error: no manifold id\n")
        sys.exit(1)
    mid = int(sys.argv[1])
    args = sys.argv[2:]
{{- range .Cases}}
    {{if .First}}if{{else}}elif{{end}} mid == {{.ID}}:
        sys.stdout.write({{.Packer}}(_mlc_run(lambda: m{{.ID}}(*args), {{.ID}})))
{{- end}}
    else:
        sys.stderr.write("internal error: unknown manifold id %d\n" % mid)
        sys.exit(1)
`))

type pyCase struct {
	ID     int
	Packer string
	First  bool
}

func (g PythonGrammar) Dispatch(cases []DispatchCase) (string, error) {
	if len(cases) == 0 {
		return "\nif __name__ == \"__main__\":\n" +
			"    sys.stderr.write(\"internal error: empty pool\\n\")\n" +
			"    sys.exit(1)\n", nil
	}
	rendered := make([]pyCase, len(cases))
	for i, c := range cases {
		packer := c.Packer
		if packer == "" {
			packer = "_mlc_pack"
		}
		rendered[i] = pyCase{ID: c.ID, Packer: packer, First: i == 0}
	}
	var sb strings.Builder
	if err := pyDispatch.Execute(&sb, struct{ Cases []pyCase }{rendered}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
