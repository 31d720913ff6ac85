package typesystem

import "strings"

// Signature is an ordered tuple of slot types, possibly ending with a
// vararg slot, plus the type variables bound in it. Immutable once
// published to a typemap.
type Signature struct {
	Slots []Type
	TVars []*TVar
}

// Sig builds a signature without type variables.
func Sig(slots ...Type) *Signature {
	return &Signature{Slots: slots}
}

// SigWhere builds a signature binding the given type variables.
func SigWhere(tvars []*TVar, slots ...Type) *Signature {
	return &Signature{Slots: slots, TVars: tvars}
}

// NParams is the number of declared slots, counting a vararg as one.
func (s *Signature) NParams() int { return len(s.Slots) }

// HasVararg reports whether the final slot is a vararg.
func (s *Signature) HasVararg() bool {
	n := len(s.Slots)
	return n > 0 && IsVararg(s.Slots[n-1])
}

// NonVarargArity is the number of fixed slots.
func (s *Signature) NonVarargArity() int {
	if s.HasVararg() {
		return len(s.Slots) - 1
	}
	return len(s.Slots)
}

// SlotAt returns the declared type governing argument position i, looking
// through a trailing vararg. Returns nil when i is out of range.
func (s *Signature) SlotAt(i int) Type {
	n := len(s.Slots)
	if n == 0 {
		return nil
	}
	if i < n-1 {
		return s.Slots[i]
	}
	if va, ok := s.Slots[n-1].(*Vararg); ok {
		return va.Elem
	}
	if i == n-1 {
		return s.Slots[i]
	}
	return nil
}

// AcceptsArity reports whether a call with n positional arguments can
// match this signature.
func (s *Signature) AcceptsArity(n int) bool {
	if s.HasVararg() {
		return n >= len(s.Slots)-1
	}
	return n == len(s.Slots)
}

// IsLeaf reports whether every slot is a concrete type free of variables,
// unions, varargs, and Type{} selectors. Leaf signatures admit the
// pointer-comparison fast path.
func (s *Signature) IsLeaf() bool {
	for _, t := range s.Slots {
		tc, ok := t.(*TCon)
		if !ok || tc.Abstract {
			return false
		}
	}
	return true
}

// HasTypeVars reports whether any slot mentions a type variable.
func (s *Signature) HasTypeVars() bool {
	for _, t := range s.Slots {
		if HasTypeVars(t) {
			return true
		}
	}
	return false
}

func (s *Signature) String() string {
	parts := make([]string, len(s.Slots))
	for i, t := range s.Slots {
		parts[i] = t.String()
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if len(s.TVars) > 0 {
		vars := make([]string, len(s.TVars))
		for i, tv := range s.TVars {
			if tv.Upper != nil && tv.Upper != AnyType {
				vars[i] = tv.Name + "<:" + tv.Upper.String()
			} else {
				vars[i] = tv.Name
			}
		}
		out += " where {" + strings.Join(vars, ", ") + "}"
	}
	return out
}

// WithSlots returns a copy of s with the given slot types and the same
// bound variables.
func (s *Signature) WithSlots(slots []Type) *Signature {
	return &Signature{Slots: slots, TVars: s.TVars}
}
