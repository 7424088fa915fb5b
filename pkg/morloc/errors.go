package morloc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/Zach1031/morloc/pkg/mtype"
)

// Diagnostic ties an error to the place it arose: the expression index when
// known, otherwise the enclosing module.
type Diagnostic struct {
	Index  int // -1 when unknown
	Module MVar
	Err    error
}

func (d Diagnostic) Error() string {
	switch {
	case d.Index >= 0 && d.Module != "":
		return fmt.Sprintf("%s (module %s, node %d)", d.Err, d.Module, d.Index)
	case d.Module != "":
		return fmt.Sprintf("%s (module %s)", d.Err, d.Module)
	default:
		return d.Err.Error()
	}
}

func (d Diagnostic) Unwrap() error { return d.Err }

// DiagnosticList collects several diagnostics so the user sees them at once.
// BuildManifolds adds one entry per exported root that fails; the walk of a
// single root stops at its first error, so diagnostics within one
// declaration are not accumulated.
type DiagnosticList struct {
	Diags []Diagnostic
}

func (l *DiagnosticList) Add(module MVar, index int, err error) {
	l.Diags = append(l.Diags, Diagnostic{Index: index, Module: module, Err: err})
}

func (l *DiagnosticList) Empty() bool { return len(l.Diags) == 0 }

func (l *DiagnosticList) Error() string {
	msgs := make([]string, len(l.Diags))
	for i, d := range l.Diags {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the collected diagnostics to errors.Is and errors.As.
func (l *DiagnosticList) Unwrap() []error {
	errs := make([]error, len(l.Diags))
	for i, d := range l.Diags {
		errs[i] = d
	}
	return errs
}

// Err returns the list as an error, or nil when nothing was collected.
func (l *DiagnosticList) Err() error {
	if l.Empty() {
		return nil
	}
	return l
}

// Import errors

type CyclicDependencyError struct {
	Modules []MVar
}

func (e CyclicDependencyError) Error() string {
	names := make([]string, len(e.Modules))
	for i, m := range e.Modules {
		names[i] = string(m)
	}
	return "cyclic module dependency among: " + strings.Join(names, ", ")
}

type MissingModuleError struct {
	From    MVar
	Missing MVar
}

func (e MissingModuleError) Error() string {
	return fmt.Sprintf("module %s imports %s, which was not provided", e.From, e.Missing)
}

type ImportContradictionError struct {
	Module MVar
	Name   EVar
}

func (e ImportContradictionError) Error() string {
	return fmt.Sprintf("module %s both includes and excludes %s", e.Module, e.Name)
}

type ImportMissingError struct {
	From   MVar
	Target MVar
	Name   EVar
}

func (e ImportMissingError) Error() string {
	return fmt.Sprintf("module %s imports %s from %s, but %s does not export it", e.From, e.Name, e.Target, e.Target)
}

type NonUniqueRootError struct {
	Roots []MVar
}

func (e NonUniqueRootError) Error() string {
	if len(e.Roots) == 0 {
		return "no root module: every module is imported by another"
	}
	names := make([]string, len(e.Roots))
	for i, m := range e.Roots {
		names[i] = string(m)
	}
	return "more than one root module: " + strings.Join(names, ", ")
}

// Type alias errors

type SelfRecursiveAliasError struct {
	Alias mtype.TVar
}

func (e SelfRecursiveAliasError) Error() string {
	return fmt.Sprintf("type alias %s refers to itself", e.Alias)
}

type BadTypeAliasParametersError struct {
	Alias mtype.TVar
	Want  int
	Got   int
}

func (e BadTypeAliasParametersError) Error() string {
	return fmt.Sprintf("type alias %s takes %d parameters, applied to %d", e.Alias, e.Want, e.Got)
}

type ConflictingTypeAliasesError struct {
	Alias mtype.TVar
}

func (e ConflictingTypeAliasesError) Error() string {
	return fmt.Sprintf("type alias %s has conflicting definitions across imports", e.Alias)
}

// Signature merge errors

type MultipleGeneralTypesError struct {
	Term EVar
}

func (e MultipleGeneralTypesError) Error() string {
	return fmt.Sprintf("term %s has more than one general type in scope", e.Term)
}

type ConcreteWithoutSourceError struct {
	Term EVar
	Lang string
}

func (e ConcreteWithoutSourceError) Error() string {
	return fmt.Sprintf("term %s has a %s signature but no %s source", e.Term, e.Lang, e.Lang)
}

type IncompatibleGeneralTypeError struct {
	Term  EVar
	Inner error
}

func (e IncompatibleGeneralTypeError) Error() string {
	return fmt.Sprintf("incompatible general types for %s: %s", e.Term, e.Inner)
}

func (e IncompatibleGeneralTypeError) Unwrap() error { return e.Inner }

// Tree shape errors

type NonLambdaRootError struct {
	Term EVar
}

func (e NonLambdaRootError) Error() string {
	return fmt.Sprintf("exported declaration %s must be a function definition or composition", e.Term)
}

type LambdaArgumentError struct {
	Term EVar
}

func (e LambdaArgumentError) Error() string {
	return fmt.Sprintf("anonymous function passed as an argument in %s; bind it to a name first", e.Term)
}

type UnboundVariableError struct {
	Name EVar
}

func (e UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable %s", e.Name)
}

type RecursiveDeclarationError struct {
	Cycle []EVar
}

func (e RecursiveDeclarationError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, v := range e.Cycle {
		names[i] = string(v)
	}
	return "recursive declarations are not supported: " + strings.Join(names, " -> ")
}

// Emission errors

type UnknownLanguageError struct {
	Lang string
}

func (e UnknownLanguageError) Error() string {
	return fmt.Sprintf("no grammar registered for language %q", e.Lang)
}

type MissingExecutorError struct {
	Lang string
}

func (e MissingExecutorError) Error() string {
	return fmt.Sprintf("no executor configured for language %q", e.Lang)
}

type MissingSerializerError struct {
	Lang string
	Kind string // "packer" or "unpacker"
}

func (e MissingSerializerError) Error() string {
	return fmt.Sprintf("language %q declares no generic %s", e.Lang, e.Kind)
}

// Internal wraps an invariant violation with a stack so users can report it
// as a compiler bug.
func Internal(format string, args ...any) error {
	return errors.WithStack(fmt.Errorf("internal compiler error: "+format, args...))
}
