package typesystem

// Env records the type-variable bindings produced by intersection or
// signature matching. It is a flat sequence alternating variable and
// binding, immutable once a match completes.
type Env []Type

// Lookup returns the binding for tv, if present.
func (e Env) Lookup(tv *TVar) (Type, bool) {
	for i := 0; i+1 < len(e); i += 2 {
		if e[i] == Type(tv) {
			return e[i+1], true
		}
	}
	return nil, false
}

// With returns e extended with tv bound to t. The receiver is not
// modified; sharing a prefix between alternatives is deliberate.
func (e Env) With(tv *TVar, t Type) Env {
	out := make(Env, len(e), len(e)+2)
	copy(out, e)
	return append(out, tv, t)
}

// Vars returns the bound variables in binding order.
func (e Env) Vars() []*TVar {
	out := make([]*TVar, 0, len(e)/2)
	for i := 0; i+1 < len(e); i += 2 {
		out = append(out, e[i].(*TVar))
	}
	return out
}

// HasUnboundVars reports whether any binding is itself a bare type
// variable, meaning the match did not fully determine the variable.
func (e Env) HasUnboundVars() bool {
	for i := 1; i < len(e); i += 2 {
		if _, ok := e[i].(*TVar); ok {
			return true
		}
	}
	return false
}
