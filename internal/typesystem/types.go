// Package typesystem implements the parametric types the dispatcher
// matches on: nominal constructors with a single supertype edge, unions,
// varargs, type variables, and Type{X} selectors. The dispatch engine only
// consumes the predicate surface (Subtype, Intersect, MoreSpecific, ...);
// everything else here exists to make those predicates total.
package typesystem

import (
	"strings"
)

// Type is the interface for all types in the system.
type Type interface {
	String() string
	typ() // sealed
}

// TCon is a nominal type constructor. Identity is by pointer: every TCon
// is interned at registration, so pointer comparison is type equality.
type TCon struct {
	Name     string
	Super    *TCon // nil only for Any
	Abstract bool
}

func (t *TCon) typ() {}

func (t *TCon) String() string { return t.Name }

// Union is an untagged union of its terms. The empty union is the bottom
// type: no value inhabits it.
type Union struct {
	Terms []Type
}

func (t *Union) typ() {}

func (t *Union) String() string {
	parts := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		parts[i] = term.String()
	}
	return "Union{" + strings.Join(parts, ", ") + "}"
}

// Vararg marks a trailing signature slot accepting any number of
// arguments of type Elem. Only valid in final slot position.
type Vararg struct {
	Elem Type
}

func (t *Vararg) typ() {}

func (t *Vararg) String() string { return "Vararg{" + t.Elem.String() + "}" }

// TypeType is the selector Type{Inner}: the type whose only value is the
// type Inner itself. When Inner is a type variable it matches Type{X} for
// any X under the variable's bound.
type TypeType struct {
	Inner Type
}

func (t *TypeType) typ() {}

func (t *TypeType) String() string { return "Type{" + t.Inner.String() + "}" }

// TVar is a type variable bound in a method signature. Identity is by
// pointer; the same variable may occur in several slots.
type TVar struct {
	Name  string
	Upper Type // upper bound, AnyType if unconstrained
}

func (t *TVar) typ() {}

func (t *TVar) String() string { return t.Name }

// Tuple is an immediate tuple type. The dispatcher meets it only inside
// Type{Tuple{...}} arguments; signatures themselves use Signature.
type Tuple struct {
	Elems []Type
}

func (t *Tuple) typ() {}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "Tuple{" + strings.Join(parts, ", ") + "}"
}

// IsBottom reports whether t is the empty union.
func IsBottom(t Type) bool {
	u, ok := t.(*Union)
	return ok && len(u.Terms) == 0
}

// IsConcrete reports whether t is a leaf type: a value can have exactly
// this type at runtime.
func IsConcrete(t Type) bool {
	switch tt := t.(type) {
	case *TCon:
		return !tt.Abstract
	case *TypeType:
		// Type{X} is a leaf for any fully determined X.
		return !HasTypeVars(tt.Inner)
	case *Tuple:
		for _, e := range tt.Elems {
			if !IsConcrete(e) {
				return false
			}
		}
		return true
	}
	return false
}

// IsParametric reports whether t mentions a type variable or union.
func IsParametric(t Type) bool {
	switch tt := t.(type) {
	case *TVar, *Union:
		return true
	case *TypeType:
		return IsParametric(tt.Inner)
	case *Vararg:
		return IsParametric(tt.Elem)
	case *Tuple:
		for _, e := range tt.Elems {
			if IsParametric(e) {
				return true
			}
		}
	}
	return false
}

// IsVararg reports whether t is a vararg slot marker.
func IsVararg(t Type) bool {
	_, ok := t.(*Vararg)
	return ok
}

// IsUnion reports whether t is a non-empty union.
func IsUnion(t Type) bool {
	u, ok := t.(*Union)
	return ok && len(u.Terms) > 0
}

// IsTypeOfType reports whether t has the form Type{X}.
func IsTypeOfType(t Type) bool {
	_, ok := t.(*TypeType)
	return ok
}

// IsKind reports whether t is a type-of-a-type.
func IsKind(t Type) bool {
	return t == DataTypeType || t == UnionKindType
}

// KindOf returns the kind of the type t itself when selected as a value:
// nominal constructors and tuples are DataType, unions are the union
// kind, and a variable's kind is unknown (nil).
func KindOf(t Type) Type {
	switch t.(type) {
	case *Union:
		return UnionKindType
	case *TVar:
		return nil
	}
	return DataTypeType
}

// HasTypeVars reports whether t contains a type variable anywhere.
func HasTypeVars(t Type) bool {
	switch tt := t.(type) {
	case *TVar:
		return true
	case *Union:
		for _, term := range tt.Terms {
			if HasTypeVars(term) {
				return true
			}
		}
	case *Vararg:
		return HasTypeVars(tt.Elem)
	case *TypeType:
		return HasTypeVars(tt.Inner)
	case *Tuple:
		for _, e := range tt.Elems {
			if HasTypeVars(e) {
				return true
			}
		}
	}
	return false
}

// IsVeryGeneral reports whether a declared slot type is too general to be
// worth specializing a Type{X} argument against: Any, the generic Type{T},
// or a free variable bounded only by Any.
func IsVeryGeneral(t Type) bool {
	if t == nil || t == AnyType {
		return true
	}
	if tt, ok := t.(*TypeType); ok {
		if tv, ok := tt.Inner.(*TVar); ok {
			return tv.Upper == AnyType
		}
		return false
	}
	if tv, ok := t.(*TVar); ok {
		return tv.Upper == AnyType
	}
	return false
}

// MkUnion builds a union, flattening nested unions and collapsing the
// single-term case.
func MkUnion(terms ...Type) Type {
	flat := make([]Type, 0, len(terms))
	for _, t := range terms {
		if u, ok := t.(*Union); ok {
			flat = append(flat, u.Terms...)
		} else {
			flat = append(flat, t)
		}
	}
	dedup := flat[:0]
	for _, t := range flat {
		seen := false
		for _, d := range dedup {
			if TypeEqual(d, t) {
				seen = true
				break
			}
		}
		if !seen {
			dedup = append(dedup, t)
		}
	}
	if len(dedup) == 1 {
		return dedup[0]
	}
	return &Union{Terms: dedup}
}
