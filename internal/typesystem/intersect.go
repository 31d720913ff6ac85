package typesystem

// Intersect computes a type covering exactly the values matched by both a
// and b, binding any type variables it meets into env. The result is
// BottomType when the intersection is empty. The computed meet is allowed
// to be conservative (a supertype of the true intersection) in the
// presence of variables bound on both sides.
func Intersect(a, b Type, env *Env) Type {
	if a == b {
		return a
	}
	if a == AnyType || a == AnyMarker {
		return b
	}
	if b == AnyType || b == AnyMarker {
		return a
	}
	if IsBottom(a) || IsBottom(b) {
		return BottomType
	}

	if av, ok := a.(*TVar); ok {
		return bindMeet(av, b, env)
	}
	if bv, ok := b.(*TVar); ok {
		return bindMeet(bv, a, env)
	}

	if au, ok := a.(*Union); ok {
		return unionMeet(au.Terms, b, env)
	}
	if bu, ok := b.(*Union); ok {
		return unionMeet(bu.Terms, a, env)
	}

	switch at := a.(type) {
	case *TCon:
		switch bt := b.(type) {
		case *TCon:
			if Subtype(at, bt) {
				return at
			}
			if Subtype(bt, at) {
				return bt
			}
			return BottomType
		case *TypeType:
			if Subtype(bt, at) {
				return bt
			}
			return BottomType
		case *Tuple:
			if tconChain(TupleConType, at) {
				return bt
			}
			return BottomType
		}
	case *TypeType:
		switch bt := b.(type) {
		case *TypeType:
			// the selected type is invariant: distinct determined
			// selectors are disjoint, variables meet through their bounds
			inner := Intersect(at.Inner, bt.Inner, env)
			if IsBottom(inner) {
				return BottomType
			}
			if !HasTypeVars(at.Inner) && !HasTypeVars(bt.Inner) && !TypeEqual(at.Inner, bt.Inner) {
				return BottomType
			}
			if TypeEqual(inner, at.Inner) {
				return at
			}
			return &TypeType{Inner: inner}
		case *TCon:
			if Subtype(at, bt) {
				return at
			}
			return BottomType
		}
	case *Tuple:
		switch bt := b.(type) {
		case *Tuple:
			if len(at.Elems) != len(bt.Elems) {
				return BottomType
			}
			elems := make([]Type, len(at.Elems))
			for i := range at.Elems {
				elems[i] = Intersect(at.Elems[i], bt.Elems[i], env)
				if IsBottom(elems[i]) {
					return BottomType
				}
			}
			return &Tuple{Elems: elems}
		case *TCon:
			if tconChain(TupleConType, bt) {
				return at
			}
			return BottomType
		}
	case *Vararg:
		if bt, ok := b.(*Vararg); ok {
			elem := Intersect(at.Elem, bt.Elem, env)
			if IsBottom(elem) {
				return BottomType
			}
			return &Vararg{Elem: elem}
		}
		return Intersect(at.Elem, b, env)
	}
	if bt, ok := b.(*Vararg); ok {
		return Intersect(a, bt.Elem, env)
	}
	return BottomType
}

func bindMeet(tv *TVar, other Type, env *Env) Type {
	if prev, ok := env.Lookup(tv); ok {
		return Intersect(prev, other, env)
	}
	meet := Intersect(upperOf(tv), other, env)
	if IsBottom(meet) {
		return BottomType
	}
	*env = env.With(tv, meet)
	return meet
}

func unionMeet(terms []Type, other Type, env *Env) Type {
	var kept []Type
	for _, term := range terms {
		ti := Intersect(term, other, env)
		if !IsBottom(ti) {
			kept = append(kept, ti)
		}
	}
	if len(kept) == 0 {
		return BottomType
	}
	return MkUnion(kept...)
}

// SigIntersect intersects two signatures slot-wise, expanding vararg tails
// as needed. Returns the intersection signature, the variable bindings,
// and whether the intersection is non-empty.
func SigIntersect(x, y *Signature) (*Signature, Env, bool) {
	nx, ny := x.NParams(), y.NParams()
	xvar, yvar := x.HasVararg(), y.HasVararg()

	// arity compatibility
	if !xvar && !yvar && nx != ny {
		return nil, nil, false
	}
	if xvar && !yvar && ny < nx-1 {
		return nil, nil, false
	}
	if yvar && !xvar && nx < ny-1 {
		return nil, nil, false
	}

	// the result's arity follows the closed side; two open tails stay open
	bothVar := xvar && yvar
	var n int
	switch {
	case bothVar:
		n = nx
		if ny > n {
			n = ny
		}
	case xvar:
		n = ny
	case yvar:
		n = nx
	default:
		n = nx
	}

	env := Env{}
	slots := make([]Type, 0, n)
	for i := 0; i < n; i++ {
		xt := slotTypeAt(x.Slots, i)
		yt := slotTypeAt(y.Slots, i)
		if xt == nil || yt == nil {
			return nil, nil, false
		}
		ti := Intersect(xt, yt, &env)
		if IsBottom(ti) {
			return nil, nil, false
		}
		if bothVar && i == n-1 {
			ti = &Vararg{Elem: ti}
		}
		slots = append(slots, ti)
	}

	tvars := make([]*TVar, 0, len(x.TVars)+len(y.TVars))
	tvars = append(tvars, x.TVars...)
	tvars = append(tvars, y.TVars...)
	return &Signature{Slots: slots, TVars: tvars}, env, true
}
