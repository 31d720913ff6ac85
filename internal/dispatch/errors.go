package dispatch

import (
	"github.com/funvibe/fundis/internal/diagnostics"
	"github.com/funvibe/fundis/internal/typesystem"
)

// methodErrorReady is cleared only during early bootstrap, before the
// error machinery is usable; a dispatch failure then prints the argument
// information and aborts.
var methodErrorReady = true

// SetMethodErrorReady toggles the bootstrap fallback.
func SetMethodErrorReady(ready bool) { methodErrorReady = ready }

// MethodError is the no-method-matches failure, carrying the function
// value and the argument values.
type MethodError struct {
	F    typesystem.Object
	Args []typesystem.Object
}

func (e *MethodError) Error() string {
	return diagnostics.MethodErrorText(e.F.Inspect(), argTypeNames(e.Args))
}

// AmbiguousError reports a call landing on a recorded ambiguity that is
// reachable under the actual argument types.
type AmbiguousError struct {
	F          typesystem.Object
	Args       []typesystem.Object
	Candidates []*Method
}

func (e *AmbiguousError) Error() string {
	cands := make([]string, len(e.Candidates))
	for i, m := range e.Candidates {
		cands[i] = m.Name + m.Sig.String() + diagnostics.FuncLoc(m.File, m.Line)
	}
	return diagnostics.AmbiguousErrorText(e.F.Inspect(), argTypeNames(e.Args), cands)
}

func argTypeNames(args []typesystem.Object) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = typesystem.TypeOf(a).String()
	}
	return out
}

func methodError(f typesystem.Object, args []typesystem.Object, ambigWith []*Method) error {
	if !methodErrorReady {
		diagnostics.Abort(f.Inspect(), typesystem.InspectAll(args))
	}
	if len(ambigWith) > 0 {
		return &AmbiguousError{F: f, Args: args, Candidates: ambigWith}
	}
	return &MethodError{F: f, Args: args}
}
