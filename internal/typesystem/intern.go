package typesystem

import (
	"sync"

	"github.com/funvibe/fundis/internal/config"
)

// The interner keeps one canonical *TCon per name and one canonical
// *TypeType per interned inner type, so the dispatch fast path can compare
// concrete types by pointer.

var (
	internMu  sync.Mutex
	tcons     = map[string]*TCon{}
	typeTypes = map[Type]*TypeType{}
)

// Register interns a nominal type constructor. Registering a name twice
// returns the original; the hierarchy is write-once.
func Register(name string, super *TCon, abstract bool) *TCon {
	internMu.Lock()
	defer internMu.Unlock()
	if t, ok := tcons[name]; ok {
		return t
	}
	t := &TCon{Name: name, Super: super, Abstract: abstract}
	tcons[name] = t
	return t
}

// Lookup returns the interned constructor for name, if any.
func Lookup(name string) (*TCon, bool) {
	internMu.Lock()
	defer internMu.Unlock()
	t, ok := tcons[name]
	return t, ok
}

// MkTypeType interns Type{inner}. Interning is keyed on the inner type, so
// two Type{Int} selectors are pointer-equal.
func MkTypeType(inner Type) *TypeType {
	internMu.Lock()
	defer internMu.Unlock()
	if t, ok := typeTypes[inner]; ok {
		return t
	}
	t := &TypeType{Inner: inner}
	typeTypes[inner] = t
	return t
}

// Builtin hierarchy. The numeric chain Int <: Real <: Number <: Any plus
// the siblings the dispatcher itself needs (Function, DataType, Tuple).
var (
	AnyType       = Register(config.AnyTypeName, nil, true)
	NumberType    = Register(config.NumberTypeName, AnyType, true)
	RealType      = Register(config.RealTypeName, NumberType, true)
	IntType       = Register(config.IntTypeName, RealType, false)
	FloatType     = Register(config.FloatTypeName, RealType, false)
	BoolType      = Register(config.BoolTypeName, AnyType, false)
	StringType    = Register(config.StringTypeName, AnyType, false)
	FunctionType  = Register(config.FunctionTypeName, AnyType, true)
	DataTypeType  = Register(config.DataTypeName, AnyType, false)
	UnionKindType = Register(config.UnionKindName, AnyType, false)
	TupleConType  = Register(config.TupleTypeName, AnyType, true)
)

// BottomType is the empty union; no value inhabits it.
var BottomType = &Union{}

// TypeTypeT is the generic selector Type{T} with T unconstrained. It is
// what Type{X} arguments widen to when the declaration is very general.
var TypeTypeT = MkTypeType(&TVar{Name: "T", Upper: AnyType})

// AnyTupleTypeType is Type{T<:Tuple}, the widening target for immediate
// tuple type arguments.
var AnyTupleTypeType = MkTypeType(&TVar{Name: "T", Upper: TupleConType})

// AnyMarker is the declared-slot annotation that suppresses specialization
// for a slot entirely. It behaves as Any in subtyping, intersection and
// signature matching; TypeEqual and EqualGeneric still tell the two apart.
var AnyMarker = Register("ANY", AnyType, true)

// NewFuncType interns the singleton concrete type of a named generic
// function, a subtype of Function.
func NewFuncType(name string) *TCon {
	return Register("typeof("+name+")", FunctionType, false)
}
