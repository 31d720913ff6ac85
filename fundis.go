// Package fundis is a multiple-dispatch method table and call engine for
// dynamic language runtimes. A host defines generic functions, attaches
// method definitions keyed by parametric type signatures, and calls
// Apply; the engine finds the most specific matching definition, builds
// and caches a specialization, and keeps hot call sites down to a few
// pointer comparisons.
package fundis

import (
	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/dispatch"
	"github.com/funvibe/fundis/internal/typesystem"
)

// Re-exported core types. Hosts hold these; the internal packages do the
// work.
type (
	Object          = typesystem.Object
	Type            = typesystem.Type
	TCon            = typesystem.TCon
	TVar            = typesystem.TVar
	Signature       = typesystem.Signature
	Env             = typesystem.Env
	GenericFunction = dispatch.GenericFunction
	Method          = dispatch.Method
	MethodOpts      = dispatch.MethodOpts
	Specialization  = dispatch.Specialization
	BodyFunc        = dispatch.BodyFunc
	CodeObject      = dispatch.CodeObject
	MethodError     = dispatch.MethodError
	AmbiguousError  = dispatch.AmbiguousError
	Options         = config.Options
)

// Builtin types and value constructors.
var (
	Any      = typesystem.AnyType
	Number   = typesystem.NumberType
	Real     = typesystem.RealType
	Int      = typesystem.IntType
	Float64  = typesystem.FloatType
	Bool     = typesystem.BoolType
	String   = typesystem.StringType
	Function = typesystem.FunctionType
	DataType = typesystem.DataTypeType

	// AnyMarker annotates a declared slot that must never be specialized.
	AnyMarker = typesystem.AnyMarker
)

// RegisterType interns a nominal type under the given supertype.
func RegisterType(name string, super *TCon, abstract bool) *TCon {
	return typesystem.Register(name, super, abstract)
}

// Sig builds a signature from slot types.
func Sig(slots ...Type) *Signature { return typesystem.Sig(slots...) }

// SigWhere builds a signature binding type variables.
func SigWhere(tvars []*TVar, slots ...Type) *Signature {
	return typesystem.SigWhere(tvars, slots...)
}

// Vararg marks a trailing slot as accepting any number of elem values.
func Vararg(elem Type) Type { return &typesystem.Vararg{Elem: elem} }

// Union builds a union type.
func Union(terms ...Type) Type { return typesystem.MkUnion(terms...) }

// TypeOfType builds the selector Type{inner}.
func TypeOfType(inner Type) Type { return typesystem.MkTypeType(inner) }

// Boxed value constructors.
func IntValue(v int64) Object     { return &typesystem.Integer{Value: v} }
func FloatValue(v float64) Object { return &typesystem.Float{Value: v} }
func StringValue(v string) Object { return &typesystem.Str{Value: v} }
func BoolValue(v bool) Object     { return &typesystem.Boolean{Value: v} }
func TypeValue(t Type) Object     { return &typesystem.TypeObject{TypeVal: t} }

// NewFunction creates a generic function with an empty method table.
func NewFunction(name, module string) *GenericFunction {
	return dispatch.NewFunction(name, module)
}

// Define attaches a method to f.
func Define(f *GenericFunction, sig *Signature, body BodyFunc) *Method {
	return DefineWith(f, sig, body, MethodOpts{Module: f.MT.Module})
}

// DefineWith attaches a method with explicit attributes.
func DefineWith(f *GenericFunction, sig *Signature, body BodyFunc, opts MethodOpts) *Method {
	m := dispatch.NewMethod(f.Name, sig, body, opts)
	f.MT.Insert(m, nil)
	return m
}

// Apply dispatches f on args by their runtime types.
func Apply(f Object, args ...Object) (Object, error) {
	return dispatch.Apply(f, args...)
}

// ApplyAt dispatches with an explicit callsite token.
func ApplyAt(site uint32, f Object, args ...Object) (Object, error) {
	return dispatch.ApplyAt(site, f, args...)
}

// Invoke forces dispatch to the definition selected by sig instead of
// the most specific match for the argument types.
func Invoke(f Object, sig *Signature, args ...Object) (Object, error) {
	return dispatch.Invoke(f, sig, args...)
}

// CompileHint tries to build and compile a specialization covering sig.
func CompileHint(f Object, sig *Signature) bool {
	return dispatch.CompileHint(f, sig)
}

// Precompile sweeps inferred-but-uncompiled specializations; with all it
// also enumerates every method's union branches.
func Precompile(all bool) { dispatch.Precompile(all) }

// Hook installers.
func SetInferenceHook(h dispatch.InferenceHook) { dispatch.SetInferenceHook(h) }
func SetCompiler(h dispatch.CompilerHook)       { dispatch.SetCompiler(h) }
func SetMethodTracer(t dispatch.MethodTracer)   { dispatch.SetMethodTracer(t) }
func SetNewMethodTracer(t dispatch.NewMethodTracer) {
	dispatch.SetNewMethodTracer(t)
}
func SetLinfoTracer(t dispatch.LinfoTracer) { dispatch.SetLinfoTracer(t) }

// IsInPureContext reports whether a tracer callback is running.
func IsInPureContext() bool { return dispatch.IsInPureContext() }

// TypeInfBegin and TypeInfEnd expose the inferencer mutex to the hook.
func TypeInfBegin() { dispatch.TypeInfBegin() }
func TypeInfEnd()   { dispatch.TypeInfEnd() }

// LoadOptions reads engine options from a fundis.yaml, falling back to
// defaults when the file is absent, and installs them.
func LoadOptions(path string) (Options, error) {
	opts, err := config.LoadIfPresent(path)
	if err != nil {
		return opts, err
	}
	dispatch.SetOptions(opts)
	return opts, nil
}

// SetOptions installs engine options directly.
func SetOptions(opts Options) { dispatch.SetOptions(opts) }
