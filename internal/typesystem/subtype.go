package typesystem

// TypeEqual is structural type equality. Interned constructors compare by
// pointer; type variables compare by identity only.
func TypeEqual(a, b Type) bool {
	if a == b {
		return true
	}
	switch at := a.(type) {
	case *Union:
		bt, ok := b.(*Union)
		if !ok || len(at.Terms) != len(bt.Terms) {
			return false
		}
		for i := range at.Terms {
			if !TypeEqual(at.Terms[i], bt.Terms[i]) {
				return false
			}
		}
		return true
	case *Vararg:
		bt, ok := b.(*Vararg)
		return ok && TypeEqual(at.Elem, bt.Elem)
	case *TypeType:
		bt, ok := b.(*TypeType)
		return ok && TypeEqual(at.Inner, bt.Inner)
	case *Tuple:
		bt, ok := b.(*Tuple)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return false
		}
		for i := range at.Elems {
			if !TypeEqual(at.Elems[i], bt.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func tconChain(a *TCon, b *TCon) bool {
	for t := a; t != nil; t = t.Super {
		if t == b {
			return true
		}
	}
	return false
}

// Subtype reports a <: b. Free type variables are treated as their upper
// bounds on both sides; the relation is reflexive and transitive over the
// registered nominal hierarchy.
func Subtype(a, b Type) bool {
	if a == b {
		return true
	}
	if b == AnyType || b == AnyMarker {
		return true
	}
	if IsBottom(a) {
		return true
	}
	if IsBottom(b) {
		return false
	}

	// a union is a subtype when all of its terms are
	if au, ok := a.(*Union); ok {
		for _, term := range au.Terms {
			if !Subtype(term, b) {
				return false
			}
		}
		return true
	}
	// a variable stands for anything under its bound
	if av, ok := a.(*TVar); ok {
		return Subtype(upperOf(av), b)
	}

	switch bt := b.(type) {
	case *TCon:
		switch at := a.(type) {
		case *TCon:
			return tconChain(at, bt)
		case *TypeType:
			// Type{X} lands under X's kind; Type{T} with T free has no
			// determined kind and only falls under Any
			kind := KindOf(at.Inner)
			return kind != nil && tconChain(kind.(*TCon), bt)
		case *Tuple:
			return tconChain(TupleConType, bt)
		case *Vararg:
			return Subtype(at.Elem, bt)
		}
		return false
	case *Union:
		for _, term := range bt.Terms {
			if Subtype(a, term) {
				return true
			}
		}
		return false
	case *TVar:
		return Subtype(a, upperOf(bt))
	case *TypeType:
		at, ok := a.(*TypeType)
		if !ok {
			return false
		}
		if iv, ok := bt.Inner.(*TVar); ok {
			return Subtype(at.Inner, upperOf(iv))
		}
		// invariant in the selected type
		return TypeEqual(at.Inner, bt.Inner)
	case *Tuple:
		at, ok := a.(*Tuple)
		if !ok {
			return false
		}
		return slotsSubtype(at.Elems, bt.Elems)
	case *Vararg:
		return Subtype(a, bt.Elem)
	}
	return false
}

func upperOf(tv *TVar) Type {
	if tv.Upper == nil {
		return AnyType
	}
	return tv.Upper
}

// slotsSubtype compares ordered slot lists with vararg tails, the common
// core of tuple and signature covariance.
func slotsSubtype(as, bs []Type) bool {
	na, nb := len(as), len(bs)
	avar := na > 0 && IsVararg(as[na-1])
	bvar := nb > 0 && IsVararg(bs[nb-1])
	if !bvar {
		if avar || na != nb {
			return false
		}
	} else if avar {
		// both open: compare the fixed prefix then the elements
		if na-1 < nb-1 {
			return false
		}
	} else {
		if na < nb-1 {
			return false
		}
	}
	for i := 0; i < na; i++ {
		at := as[i]
		if va, ok := at.(*Vararg); ok {
			at = va.Elem
		}
		bt := slotTypeAt(bs, i)
		if bt == nil || !Subtype(at, bt) {
			return false
		}
	}
	// an open a must also fit every remaining declared slot of b
	if avar {
		elem := as[na-1].(*Vararg).Elem
		for i := na; i < nb; i++ {
			bt := slotTypeAt(bs, i)
			if bt == nil || !Subtype(elem, bt) {
				return false
			}
		}
	}
	return true
}

func slotTypeAt(slots []Type, i int) Type {
	n := len(slots)
	if n == 0 {
		return nil
	}
	if i < n-1 {
		return slots[i]
	}
	if va, ok := slots[n-1].(*Vararg); ok {
		return va.Elem
	}
	if i == n-1 {
		return slots[i]
	}
	return nil
}

// SigSubtype reports whether every ground instance of a matches b, with
// type variables approximated by their bounds.
func SigSubtype(a, b *Signature) bool {
	return slotsSubtype(a.Slots, b.Slots)
}

// MatchSig matches a ground argument-type signature tt against a declared
// signature, filling an Env for the declaration's type variables. It
// implements the "matched up to type-variable substitution" query mode.
func MatchSig(tt, decl *Signature) (Env, bool) {
	if !decl.AcceptsArity(len(tt.Slots)) {
		return nil, false
	}
	if tt.HasVararg() && !decl.HasVararg() {
		return nil, false
	}
	env := Env{}
	for i, at := range tt.Slots {
		if va, ok := at.(*Vararg); ok {
			at = va.Elem
		}
		dt := decl.SlotAt(i)
		if dt == nil {
			return nil, false
		}
		var ok bool
		env, ok = matchType(at, dt, env)
		if !ok {
			return nil, false
		}
	}
	return env, true
}

func matchType(a, d Type, env Env) (Env, bool) {
	if a == d {
		return env, true
	}
	switch dt := d.(type) {
	case *TVar:
		if prev, ok := env.Lookup(dt); ok {
			if TypeEqual(prev, a) {
				return env, true
			}
			return nil, false
		}
		if !Subtype(a, upperOf(dt)) {
			return nil, false
		}
		return env.With(dt, a), true
	case *TCon:
		if Subtype(a, dt) {
			return env, true
		}
		return nil, false
	case *Union:
		for _, term := range dt.Terms {
			if out, ok := matchType(a, term, env); ok {
				return out, true
			}
		}
		return nil, false
	case *TypeType:
		at, ok := a.(*TypeType)
		if !ok {
			return nil, false
		}
		return matchType(at.Inner, dt.Inner, env)
	case *Tuple:
		at, ok := a.(*Tuple)
		if !ok || len(at.Elems) != len(dt.Elems) {
			return nil, false
		}
		for i := range at.Elems {
			env, ok = matchType(at.Elems[i], dt.Elems[i], env)
			if !ok {
				return nil, false
			}
		}
		return env, true
	case *Vararg:
		return matchType(a, dt.Elem, env)
	}
	if Subtype(a, d) {
		return env, true
	}
	return nil, false
}
