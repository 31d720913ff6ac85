package typemap

import (
	"sync/atomic"

	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/typesystem"
)

// TypeMap stores (signature, payload) pairs ordered most-specific-first.
// Past a size threshold it converts to a two-level form discriminated on
// the slot at offset offs: one bucket map for concrete declared slot
// types, one for Type{X} slots keyed by X, and a linear tail for
// signatures not amenable to either split.
type TypeMap struct {
	offs int
	node atomic.Pointer[node]
}

type node struct {
	level bool

	// level form; maps are copy-on-write, republished on key insertion
	arg1 map[typesystem.Type]*chain
	targ map[typesystem.Type]*chain

	// linear tail; the only chain in the non-level form
	linear *chain
}

// New constructs an empty map discriminating on argument slot offs.
func New(offs int) *TypeMap {
	m := &TypeMap{offs: offs}
	n := &node{linear: &chain{}}
	m.node.Store(n)
	return m
}

// Offs returns the discrimination offset.
func (m *TypeMap) Offs() int { return m.offs }

// Len returns the number of entries. Writer-side only.
func (m *TypeMap) Len() int {
	n := m.node.Load()
	total := n.linear.count
	for _, c := range n.arg1 {
		total += c.count
	}
	for _, c := range n.targ {
		total += c.count
	}
	return total
}

// splitKey classifies sig for level discrimination: the concrete bucket
// key, the Type{X} bucket key, or neither.
func (m *TypeMap) splitKey(sig *typesystem.Signature) (arg1Key, targKey typesystem.Type) {
	if m.offs >= sig.NonVarargArity() {
		return nil, nil
	}
	slot := sig.Slots[m.offs]
	switch st := slot.(type) {
	case *typesystem.TCon:
		if !st.Abstract {
			return st, nil
		}
	case *typesystem.TypeType:
		// only interned selectors key a bucket; a structurally built
		// Type{Union{...}} would not be pointer-stable across queries
		if inner, ok := st.Inner.(*typesystem.TCon); ok {
			return nil, inner
		}
	}
	return nil, nil
}

// Insert adds (sig, payload) keeping more-specific signatures first. When
// an existing entry's signature is type-equal to sig the new entry takes
// its position and the old payload is returned. Writers must hold the
// engine's codegen lock.
func (m *TypeMap) Insert(sig *typesystem.Signature, simple *typesystem.Signature, guards []*typesystem.Signature, payload any) (*Entry, any) {
	e := &Entry{
		Sig:       sig,
		SimpleSig: simple,
		Guards:    guards,
		Payload:   payload,
		IsLeafSig: sig.IsLeaf() && len(sig.TVars) == 0,
	}
	n := m.node.Load()
	c := m.chainFor(n, sig, true)
	old := insertOrdered(c, e)
	if old == nil {
		m.maybeSplit()
	}
	return e, old
}

// chainFor picks (and on insert creates) the chain holding sig.
func (m *TypeMap) chainFor(n *node, sig *typesystem.Signature, create bool) *chain {
	if !n.level {
		return n.linear
	}
	a1, ta := m.splitKey(sig)
	switch {
	case a1 != nil:
		if c, ok := n.arg1[a1]; ok {
			return c
		}
		if !create {
			return nil
		}
		return m.addBucket(n, a1, true)
	case ta != nil:
		if c, ok := n.targ[ta]; ok {
			return c
		}
		if !create {
			return nil
		}
		return m.addBucket(n, ta, false)
	default:
		return n.linear
	}
}

// addBucket republishes the node with one more bucket. Copy-on-write so
// lock-free readers never observe a map mid-mutation.
func (m *TypeMap) addBucket(n *node, key typesystem.Type, concrete bool) *chain {
	c := &chain{}
	nn := &node{
		level:  true,
		arg1:   n.arg1,
		targ:   n.targ,
		linear: n.linear,
	}
	if concrete {
		nn.arg1 = make(map[typesystem.Type]*chain, len(n.arg1)+1)
		for k, v := range n.arg1 {
			nn.arg1[k] = v
		}
		nn.arg1[key] = c
	} else {
		nn.targ = make(map[typesystem.Type]*chain, len(n.targ)+1)
		for k, v := range n.targ {
			nn.targ[k] = v
		}
		nn.targ[key] = c
	}
	m.node.Store(nn)
	return c
}

// insertOrdered links e before the first entry it is more specific than,
// replacing a type-equal entry in place. Returns the replaced payload.
func insertOrdered(c *chain, e *Entry) any {
	var prev *Entry
	for cur := c.first(); cur != nil; cur = cur.Next() {
		if typesystem.SigsEqualGeneric(cur.Sig, e.Sig) {
			e.next.Store(cur.Next())
			publish(c, prev, e)
			return cur.Payload
		}
		if typesystem.MoreSpecific(e.Sig, cur.Sig) {
			e.next.Store(cur)
			publish(c, prev, e)
			c.count++
			return nil
		}
		prev = cur
	}
	publish(c, prev, e)
	c.count++
	return nil
}

func publish(c *chain, prev, e *Entry) {
	if prev == nil {
		c.head.Store(e)
	} else {
		prev.next.Store(e)
	}
}

// maybeSplit converts the linear form to the two-level form once the list
// outgrows the threshold and at least some entries are discriminable.
func (m *TypeMap) maybeSplit() {
	n := m.node.Load()
	if n.level || n.linear.count <= config.TypeMapLevelThreshold {
		return
	}
	discriminable := 0
	for e := n.linear.first(); e != nil; e = e.Next() {
		if a1, ta := m.splitKey(e.Sig); a1 != nil || ta != nil {
			discriminable++
		}
	}
	if discriminable == 0 {
		return
	}
	nn := &node{
		level:  true,
		arg1:   map[typesystem.Type]*chain{},
		targ:   map[typesystem.Type]*chain{},
		linear: &chain{},
	}
	// rebuild preserves per-chain order because the source list is walked
	// front to back
	for e := n.linear.first(); e != nil; e = e.Next() {
		ne := &Entry{
			Sig:       e.Sig,
			SimpleSig: e.SimpleSig,
			Guards:    e.Guards,
			Payload:   e.Payload,
			IsLeafSig: e.IsLeafSig,
		}
		var c *chain
		a1, ta := m.splitKey(e.Sig)
		switch {
		case a1 != nil:
			if c = nn.arg1[a1]; c == nil {
				c = &chain{}
				nn.arg1[a1] = c
			}
		case ta != nil:
			if c = nn.targ[ta]; c == nil {
				c = &chain{}
				nn.targ[ta] = c
			}
		default:
			c = nn.linear
		}
		appendEntry(c, ne)
	}
	m.node.Store(nn)
}

func appendEntry(c *chain, e *Entry) {
	var prev *Entry
	for cur := c.first(); cur != nil; cur = cur.Next() {
		prev = cur
	}
	publish(c, prev, e)
	c.count++
}

// chains returns every chain in visit order: concrete buckets, Type{X}
// buckets, then the linear tail. Bucket iteration is keyed-map order;
// callers needing global specificity must not rely on cross-chain order.
func (m *TypeMap) chains() []*chain {
	n := m.node.Load()
	if !n.level {
		return []*chain{n.linear}
	}
	out := make([]*chain, 0, len(n.arg1)+len(n.targ)+1)
	for _, c := range n.arg1 {
		out = append(out, c)
	}
	for _, c := range n.targ {
		out = append(out, c)
	}
	out = append(out, n.linear)
	return out
}
