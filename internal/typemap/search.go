package typemap

import (
	"github.com/funvibe/fundis/internal/typesystem"
)

// sigMatchFast compares argument runtime types against a leaf signature
// slot-by-slot by pointer. Valid only when IsLeafSig is set.
func sigMatchFast(args []typesystem.Object, sig *typesystem.Signature) bool {
	if len(args) != len(sig.Slots) {
		return false
	}
	for i, a := range args {
		if typesystem.TypeOf(a) != sig.Slots[i] {
			return false
		}
	}
	return true
}

// SigMatchFast is the exported fast-path probe used by the call-site
// inline cache.
func SigMatchFast(args []typesystem.Object, sig *typesystem.Signature) bool {
	return sigMatchFast(args, sig)
}

// sigMatchGeneral tests whether the argument tuple falls inside sig,
// honoring abstract and widened slots.
func sigMatchGeneral(args []typesystem.Object, sig *typesystem.Signature) bool {
	if !sig.AcceptsArity(len(args)) {
		return false
	}
	for i, a := range args {
		slot := sig.SlotAt(i)
		if slot == nil {
			return false
		}
		at := typesystem.WrapAsTypeOf(a)
		if at == slot {
			continue
		}
		if !typesystem.Subtype(at, slot) {
			return false
		}
	}
	return true
}

// AssocExact returns the first entry matching the runtime types of args,
// skipping entries rejected by their simplesig or excluded by a matching
// guard signature.
func (m *TypeMap) AssocExact(args []typesystem.Object) *Entry {
	n := m.node.Load()
	if n.level && m.offs < len(args) {
		probe := args[m.offs]
		if to, ok := probe.(*typesystem.TypeObject); ok {
			if c, ok := n.targ[to.TypeVal]; ok {
				if e := scanExact(c, args); e != nil {
					return e
				}
			}
		}
		if c, ok := n.arg1[typesystem.TypeOf(probe)]; ok {
			if e := scanExact(c, args); e != nil {
				return e
			}
		}
		return scanExact(n.linear, args)
	}
	return scanExact(n.linear, args)
}

func scanExact(c *chain, args []typesystem.Object) *Entry {
	for e := c.first(); e != nil; e = e.Next() {
		if e.IsLeafSig {
			if !sigMatchFast(args, e.Sig) {
				continue
			}
		} else {
			if e.SimpleSig != nil && !sigMatchGeneral(args, e.SimpleSig) {
				continue
			}
			if !sigMatchGeneral(args, e.Sig) {
				continue
			}
		}
		if guardMatch(e, args) {
			continue
		}
		return e
	}
	return nil
}

func guardCovers(e *Entry, sig *typesystem.Signature) bool {
	for _, g := range e.Guards {
		if _, ok := typesystem.MatchSig(sig, g); ok {
			return true
		}
	}
	return false
}

func guardMatch(e *Entry, args []typesystem.Object) bool {
	for _, g := range e.Guards {
		if sigMatchGeneral(args, g) {
			return true
		}
	}
	return false
}

// AssocByType resolves a signature query. Modes, per the container
// contract: exact requires a type-equal signature; subtype requires the
// entry's signature to cover sig (filling an Env for its type variables);
// with both off, a covering match is still preferred but an entry whose
// signature merely intersects sig is accepted as a fallback.
func (m *TypeMap) AssocByType(sig *typesystem.Signature, exact, subtype bool) (*Entry, typesystem.Env) {
	var best *Entry
	var bestEnv typesystem.Env
	var inexact *Entry
	for _, c := range m.relevantChains(sig) {
		for e := c.first(); e != nil; e = e.Next() {
			if exact {
				if typesystem.SigsEqualGeneric(e.Sig, sig) {
					return e, nil
				}
				continue
			}
			if env, ok := typesystem.MatchSig(sig, e.Sig); ok {
				if guardCovers(e, sig) {
					continue
				}
				if best == nil || typesystem.MoreSpecific(e.Sig, best.Sig) {
					best, bestEnv = e, env
				}
				continue
			}
			if !subtype && inexact == nil {
				if _, _, ok := typesystem.SigIntersect(sig, e.Sig); ok {
					inexact = e
				}
			}
		}
	}
	if best != nil {
		return best, bestEnv
	}
	if !subtype && !exact && inexact != nil {
		return inexact, nil
	}
	return nil, nil
}

// relevantChains narrows the search using the query's slot at offs when
// it is determined; abstract or missing slots fall back to every chain.
func (m *TypeMap) relevantChains(sig *typesystem.Signature) []*chain {
	n := m.node.Load()
	if !n.level {
		return []*chain{n.linear}
	}
	if m.offs < sig.NonVarargArity() {
		switch st := sig.Slots[m.offs].(type) {
		case *typesystem.TCon:
			if !st.Abstract {
				out := make([]*chain, 0, 2)
				if c, ok := n.arg1[st]; ok {
					out = append(out, c)
				}
				return append(out, n.linear)
			}
		case *typesystem.TypeType:
			if !typesystem.HasTypeVars(st.Inner) {
				out := make([]*chain, 0, 3)
				if c, ok := n.targ[st.Inner]; ok {
					out = append(out, c)
				}
				if kind := typesystem.KindOf(st.Inner); kind != nil {
					if c, ok := n.arg1[kind]; ok {
						out = append(out, c)
					}
				}
				return append(out, n.linear)
			}
		}
	}
	return m.chains()
}

// IntersectionVisit calls fn for every entry whose signature has a
// non-empty intersection with sig, passing the intersection and the
// variable bindings. Visiting order is concrete buckets, Type{X} buckets,
// then the linear tail, insertion order within each chain. Returning
// false stops the walk.
func (m *TypeMap) IntersectionVisit(sig *typesystem.Signature, fn func(e *Entry, isect *typesystem.Signature, env typesystem.Env) bool) {
	for _, c := range m.chains() {
		for e := c.first(); e != nil; e = e.Next() {
			isect, env, ok := typesystem.SigIntersect(sig, e.Sig)
			if !ok {
				continue
			}
			if !fn(e, isect, env) {
				return
			}
		}
	}
}

// Visit walks every entry. Returning false stops the walk.
func (m *TypeMap) Visit(fn func(e *Entry) bool) {
	for _, c := range m.chains() {
		for e := c.first(); e != nil; e = e.Next() {
			if !fn(e) {
				return
			}
		}
	}
}

// Invalidate unlinks every entry for which pred returns true, descending
// into both bucket maps and the linear tail. Writers must hold the
// engine's codegen lock; unlinked entries stay readable for racing
// lock-free readers.
func (m *TypeMap) Invalidate(pred func(e *Entry) bool) int {
	removed := 0
	for _, c := range m.chains() {
		var prev *Entry
		for e := c.first(); e != nil; e = e.Next() {
			if pred(e) {
				if prev == nil {
					c.head.Store(e.Next())
				} else {
					prev.next.Store(e.Next())
				}
				c.count--
				removed++
				continue
			}
			prev = e
		}
	}
	return removed
}
