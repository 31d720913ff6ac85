package typesystem

// Instantiate substitutes the env bindings into t. Unbound variables are
// left in place.
func Instantiate(t Type, env Env) Type {
	switch tt := t.(type) {
	case *TVar:
		if b, ok := env.Lookup(tt); ok {
			return b
		}
		return tt
	case *Union:
		terms := make([]Type, len(tt.Terms))
		changed := false
		for i, term := range tt.Terms {
			terms[i] = Instantiate(term, env)
			changed = changed || terms[i] != term
		}
		if !changed {
			return tt
		}
		return MkUnion(terms...)
	case *Vararg:
		elem := Instantiate(tt.Elem, env)
		if elem == tt.Elem {
			return tt
		}
		return &Vararg{Elem: elem}
	case *TypeType:
		inner := Instantiate(tt.Inner, env)
		if inner == tt.Inner {
			return tt
		}
		return &TypeType{Inner: inner}
	case *Tuple:
		elems := make([]Type, len(tt.Elems))
		changed := false
		for i, e := range tt.Elems {
			elems[i] = Instantiate(e, env)
			changed = changed || elems[i] != e
		}
		if !changed {
			return tt
		}
		return &Tuple{Elems: elems}
	}
	return t
}

// InstantiateSig substitutes env into every slot of s. Variables that
// remain unbound keep the signature parametric.
func InstantiateSig(s *Signature, env Env) *Signature {
	slots := make([]Type, len(s.Slots))
	for i, t := range s.Slots {
		slots[i] = Instantiate(t, env)
	}
	var remaining []*TVar
	for _, tv := range s.TVars {
		if _, ok := env.Lookup(tv); !ok {
			remaining = append(remaining, tv)
		}
	}
	return &Signature{Slots: slots, TVars: remaining}
}
