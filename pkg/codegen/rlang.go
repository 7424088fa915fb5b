package codegen

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// RGrammar emits R pools run through Rscript.
type RGrammar struct{}

func init() {
	Register(RGrammar{})
}

func (RGrammar) Lang() string      { return "r" }
func (RGrammar) Extension() string { return "R" }
func (RGrammar) Indent() string    { return "    " }

func (RGrammar) Comment(text string) string { return "# " + text }

func (RGrammar) Quote(s string) string { return strconv.Quote(s) }

func (RGrammar) Bool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (RGrammar) Unit() string { return "NULL" }

func (RGrammar) Number(raw string) string { return raw }

func (RGrammar) List(items []string) string {
	return "c(" + strings.Join(items, ", ") + ")"
}

func (RGrammar) Tuple(items []string) string {
	return "list(" + strings.Join(items, ", ") + ")"
}

func (RGrammar) Record(keys, vals []string) string {
	pairs := make([]string, len(keys))
	for i := range keys {
		pairs[i] = keys[i] + " = " + vals[i]
	}
	return "list(" + strings.Join(pairs, ", ") + ")"
}

func (RGrammar) Assign(lhs, rhs string) string { return lhs + " <- " + rhs }

func (RGrammar) Call(fn string, args []string) string {
	return fn + "(" + strings.Join(args, ", ") + ")"
}

func (RGrammar) Return(expr string) string { return expr }

func (g RGrammar) FunctionDecl(name string, params, body []string) []string {
	lines := []string{fmt.Sprintf("%s <- function(%s) {", name, strings.Join(params, ", "))}
	for _, b := range body {
		lines = append(lines, g.Indent()+b)
	}
	lines = append(lines, "}")
	return lines
}

func (g RGrammar) SourceImport(path string) string {
	return g.Call("source", []string{g.Quote(path)})
}

func (g RGrammar) Unpack(fn, expr string) string {
	if fn == "" {
		fn = ".mlc_unpack"
	}
	return g.Call(fn, []string{expr})
}

func (g RGrammar) Pack(fn, expr string) string {
	if fn == "" {
		fn = ".mlc_pack"
	}
	return g.Call(fn, []string{expr})
}

func (g RGrammar) ForeignCall(executor, pool string, id int, args []string) string {
	return g.Call(".mlc_foreign", append([]string{
		g.Quote(executor),
		g.Quote(pool),
		strconv.Itoa(id),
	}, "list("+strings.Join(args, ", ")+")"))
}

var rPreamble = template.Must(template.New("r-preamble").Parse(`#!/usr/bin/env Rscript

.mlc_unpack <- function(x) {
    jsonlite::fromJSON(x)
}

.mlc_pack <- function(x) {
    jsonlite::toJSON(x, auto_unbox = TRUE)
}

.mlc_foreign <- function(cmd, pool, mid, args) {
    out <- suppressWarnings(system2(
        cmd,
        c(pool, as.character(mid), vapply(args, as.character, character(1))),
        stdout = TRUE,
        stderr = ""
    ))
    status <- attr(out, "status")
    if (!is.null(status) && status != 0) {
        quit(save = "no", status = status)
    }
    paste(out, collapse = "\n")
}

.mlc_run <- function(thunk, mid) {
    tryCatch(thunk(), error = function(e) {
        message(sprintf("error in manifold %d: %s", mid, conditionMessage(e)))
        quit(save = "no", status = 1)
    })
}

{{range .Sources}}
{{.}}
{{- end}}
`))

func (g RGrammar) Preamble(sources []string) (string, error) {
	imports := make([]string, len(sources))
	for i, p := range sources {
		imports[i] = g.SourceImport(p)
	}
	var sb strings.Builder
	if err := rPreamble.Execute(&sb, struct{ Sources []string }{imports}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var rDispatch = template.Must(template.New("r-dispatch").Parse(`
.mlc_args <- commandArgs(trailingOnly = TRUE)
if (length(.mlc_args) < 1) {
    message("internal error: no manifold id")
    quit(save = "no", status = 1)
}
.mlc_mid <- as.integer(.mlc_args[[1]])
.mlc_rest <- as.list(.mlc_args[-1])
{{range .Cases -}}
{{if .First}}if{{else}}} else if{{end}} (.mlc_mid == {{.ID}}) {
    cat({{.Packer}}(.mlc_run(function() do.call(m{{.ID}}, .mlc_rest), {{.ID}})))
{{end -}}
} else {
    message(sprintf("internal error: unknown manifold id %d", .mlc_mid))
    quit(save = "no", status = 1)
}
`))

type rCase struct {
	ID     int
	Packer string
	First  bool
}

func (g RGrammar) Dispatch(cases []DispatchCase) (string, error) {
	if len(cases) == 0 {
		return "\nmessage(\"internal error: empty pool\")\nquit(save = \"no\", status = 1)\n", nil
	}
	rendered := make([]rCase, len(cases))
	for i, c := range cases {
		packer := c.Packer
		if packer == "" {
			packer = ".mlc_pack"
		}
		rendered[i] = rCase{ID: c.ID, Packer: packer, First: i == 0}
	}
	var sb strings.Builder
	if err := rDispatch.Execute(&sb, struct{ Cases []rCase }{rendered}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
