package typesystem

import (
	"fmt"
	"strconv"
)

// Object is the runtime value interface the dispatcher sees. Values only
// need to report their type and render themselves for diagnostics.
type Object interface {
	RuntimeType() Type
	Inspect() string
}

// TypeOf returns the runtime type of a value. For type values this is the
// kind, not the selector; WrapAsTypeOf gives the dispatch view.
func TypeOf(v Object) Type {
	return v.RuntimeType()
}

// WrapAsTypeOf returns the type used for v in an argument-type tuple:
// Type{X} when v is the type X itself, the runtime type otherwise.
func WrapAsTypeOf(v Object) Type {
	if tv, ok := v.(*TypeObject); ok {
		return MkTypeType(tv.TypeVal)
	}
	return v.RuntimeType()
}

// Integer is a boxed machine integer.
type Integer struct {
	Value int64
}

func (i *Integer) RuntimeType() Type { return IntType }
func (i *Integer) Inspect() string   { return strconv.FormatInt(i.Value, 10) }

// Float is a boxed 64-bit float.
type Float struct {
	Value float64
}

func (f *Float) RuntimeType() Type { return FloatType }
func (f *Float) Inspect() string   { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Str is a boxed string.
type Str struct {
	Value string
}

func (s *Str) RuntimeType() Type { return StringType }
func (s *Str) Inspect() string   { return strconv.Quote(s.Value) }

// Boolean is a boxed bool.
type Boolean struct {
	Value bool
}

func (b *Boolean) RuntimeType() Type { return BoolType }
func (b *Boolean) Inspect() string   { return strconv.FormatBool(b.Value) }

// TypeObject is a first-class type value. Its runtime type is the kind;
// argument-type tuples see it through WrapAsTypeOf as Type{X}.
type TypeObject struct {
	TypeVal Type
}

func (t *TypeObject) RuntimeType() Type {
	if k := KindOf(t.TypeVal); k != nil {
		return k
	}
	return DataTypeType
}
func (t *TypeObject) Inspect() string   { return t.TypeVal.String() }

// ArgTypeSignature computes the concrete argument-type tuple for a call.
func ArgTypeSignature(args []Object) *Signature {
	slots := make([]Type, len(args))
	for i, a := range args {
		slots[i] = WrapAsTypeOf(a)
	}
	return &Signature{Slots: slots}
}

// InspectAll renders arguments for error messages.
func InspectAll(args []Object) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprintf("%s::%s", a.Inspect(), TypeOf(a).String())
	}
	return out
}
