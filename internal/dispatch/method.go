// Package dispatch implements the per-function method table, the
// specialization cache, definition-time ambiguity analysis, and the
// generic-apply entry with its call-site inline cache.
package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// BodyFunc is an uncompiled method body. Static parameter bindings are
// passed as data so the shared unspecialized fallback can serve any
// concrete signature of the method.
type BodyFunc func(sparams typesystem.Env, args []typesystem.Object) typesystem.Object

// Method is one user-supplied definition of a generic function.
// Identity is by pointer; signatures that are type-equal still belong to
// distinct Methods.
type Method struct {
	ID     uuid.UUID
	Name   string
	Module string
	File   string
	Line   int

	Sig  *typesystem.Signature
	Body BodyFunc

	// Table is the owning method table, set at insertion.
	Table *MethodTable

	// IsStaged suppresses all cache-signature widening.
	IsStaged bool
	// Traced makes every new specialization visit the method tracer.
	Traced bool
	// Called is a bitmask of argument positions the body invokes as a
	// callable; clear bits allow the Function-slot despecialization.
	Called uint32
	// NeedsSParamData marks bodies that reference static parameters at
	// runtime; their fallback must carry the bindings as data.
	NeedsSParamData bool

	// ambig is the list of methods this one is pairwise-ambiguous with.
	// Written under the codegen lock, read lock-free during dispatch.
	ambig atomic.Pointer[[]*Method]

	// specializations maps concrete signature to Specialization; the
	// at-most-one-build store behind the dispatch caches.
	specializations *typemap.TypeMap

	// invokes is the private cache for the explicit invoke() pathway.
	invokes     *typemap.TypeMap
	invokesOnce sync.Once

	// template is the shared unspecialized form of this method.
	template     *Specialization
	templateOnce sync.Once

	// unspecialized memoizes the sparam-carrying fallback decision.
	unspecializedTried bool
	unspecialized      *Specialization
}

// MethodOpts carries the optional definition attributes.
type MethodOpts struct {
	Module          string
	File            string
	Line            int
	IsStaged        bool
	Traced          bool
	Called          uint32
	NeedsSParamData bool
}

// NewMethod builds a definition; it is inert until inserted into a table.
func NewMethod(name string, sig *typesystem.Signature, body BodyFunc, opts MethodOpts) *Method {
	return &Method{
		ID:              uuid.New(),
		Name:            name,
		Module:          opts.Module,
		File:            opts.File,
		Line:            opts.Line,
		Sig:             sig,
		Body:            body,
		IsStaged:        opts.IsStaged,
		Traced:          opts.Traced,
		Called:          opts.Called,
		NeedsSParamData: opts.NeedsSParamData,
		specializations: typemap.New(0),
	}
}

// AmbigList returns the current ambiguity partners.
func (m *Method) AmbigList() []*Method {
	if p := m.ambig.Load(); p != nil {
		return *p
	}
	return nil
}

// setAmbig replaces the partner list. Codegen lock held.
func (m *Method) setAmbig(list []*Method) {
	m.ambig.Store(&list)
}

// addAmbig records a new partner. Codegen lock held.
func (m *Method) addAmbig(other *Method) {
	list := append(sortedMethods(m.AmbigList()), other)
	m.setAmbig(uniqueMethods(list))
}

// Invokes returns the private invoke() cache, created on first use.
func (m *Method) Invokes() *typemap.TypeMap {
	m.invokesOnce.Do(func() {
		m.invokes = typemap.New(0)
	})
	return m.invokes
}

// Template returns the shared unspecialized specialization: the method's
// own signature with no static parameters bound.
func (m *Method) Template() *Specialization {
	m.templateOnce.Do(func() {
		m.template = newSpecialization(m, m.Sig, nil)
	})
	return m.template
}

// HasCallAmbiguities reports whether some recorded ambiguity partner's
// signature also covers part of tt, making the ambiguity reachable for
// this call.
func (m *Method) HasCallAmbiguities(tt *typesystem.Signature) bool {
	for _, other := range m.AmbigList() {
		if _, _, ok := typesystem.SigIntersect(other.Sig, tt); ok {
			return true
		}
	}
	return false
}

// reachableAmbiguities returns the partners whose signatures intersect tt.
func (m *Method) reachableAmbiguities(tt *typesystem.Signature) []*Method {
	var out []*Method
	for _, other := range m.AmbigList() {
		if _, _, ok := typesystem.SigIntersect(other.Sig, tt); ok {
			out = append(out, other)
		}
	}
	return out
}
