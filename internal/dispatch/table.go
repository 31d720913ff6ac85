package dispatch

import (
	"sync"

	"github.com/funvibe/fundis/internal/log"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// MethodTable owns a generic function's definitions and its dispatch
// cache. Defs is ordered most-specific-first; Cache maps concrete
// signatures to specializations.
type MethodTable struct {
	Name   string
	Module string

	Defs  *typemap.TypeMap
	Cache *typemap.TypeMap

	// MaxArgs is the largest non-vararg arity among the definitions;
	// vararg specializations are truncated against it.
	MaxArgs int

	// KwSorter is the sibling function handling keyword sorting, when
	// the frontend created one.
	KwSorter *GenericFunction
}

// tableRegistry lets the hook-installation and precompile sweeps reach
// every live table.
var (
	tableRegistryMu sync.Mutex
	tableRegistry   []*MethodTable
)

// NewMethodTable constructs and registers an empty table.
func NewMethodTable(name, module string) *MethodTable {
	mt := &MethodTable{
		Name:   name,
		Module: module,
		Defs:   typemap.New(0),
		Cache:  typemap.New(0),
	}
	tableRegistryMu.Lock()
	tableRegistry = append(tableRegistry, mt)
	tableRegistryMu.Unlock()
	return mt
}

func eachTable(fn func(*MethodTable)) {
	tableRegistryMu.Lock()
	tables := make([]*MethodTable, len(tableRegistry))
	copy(tables, tableRegistry)
	tableRegistryMu.Unlock()
	for _, mt := range tables {
		fn(mt)
	}
}

// GenericFunction is the callable value. It carries its own singleton
// concrete type so dispatch can treat functions as ordinary arguments.
type GenericFunction struct {
	Name string
	MT   *MethodTable

	typ *typesystem.TCon
}

// NewFunction creates a generic function with an empty method table.
func NewFunction(name, module string) *GenericFunction {
	return &GenericFunction{
		Name: name,
		MT:   NewMethodTable(name, module),
		typ:  typesystem.NewFuncType(name),
	}
}

func (f *GenericFunction) RuntimeType() typesystem.Type { return f.typ }
func (f *GenericFunction) Inspect() string              { return f.Name }

// Insert adds a method definition and runs the ambiguity and shadowing
// analysis. An optional simplesig is stored for faster rejection.
func (mt *MethodTable) Insert(m *Method, simple *typesystem.Signature) {
	codegenMu.Lock()

	m.Table = mt
	entry, old := mt.Defs.Insert(m.Sig, simple, nil, m)
	var shadowed []*Method
	if old != nil {
		oldm := old.(*Method)
		// the displaced method's unrelated ambiguities carry over
		m.setAmbig(uniqueMethods(sortedMethods(append(m.AmbigList(), oldm.AmbigList()...))))
		if Options().OverwriteWarnings {
			warnOverwrite(mt, m, oldm)
		}
		shadowed = []*Method{oldm}
	} else {
		shadowed = checkAmbiguousMatches(mt, entry, m)
	}
	if len(shadowed) > 0 {
		invalidateConflicting(mt.Cache, m.Sig, shadowed)
	}
	if na := m.Sig.NonVarargArity(); na > mt.MaxArgs {
		mt.MaxArgs = na
	}
	codegenMu.Unlock()

	fireNewMethodTracer(m)
}

// LookupByArgs is the dispatch path: exact probe over the cache, then the
// full by-type lookup with caching on.
func (mt *MethodTable) LookupByArgs(args []typesystem.Object) (*Specialization, []*Method) {
	if entry := mt.Cache.AssocExact(args); entry != nil {
		return entry.Payload.(*Specialization), nil
	}
	tt := typesystem.ArgTypeSignature(args)
	if Options().TraceDispatch {
		log.DefaultLogger.Debug("slow-path dispatch", "section", "dispatch", "fn", mt.Name, "sig", tt.String())
	}
	return mt.assocByType(tt, true, false)
}

// LookupByType resolves a signature query. cache controls whether a
// fresh specialization is recorded in the dispatch cache; inexact admits
// matches that cover only part of the query. An inexact hit that is
// ambiguous under the query is rejected.
func (mt *MethodTable) LookupByType(sig *typesystem.Signature, cache, inexact bool) *Specialization {
	if entry, _ := mt.Cache.AssocByType(sig, false, true); entry != nil {
		return entry.Payload.(*Specialization)
	}
	sp, _ := mt.assocByType(sig, cache, inexact)
	return sp
}

// Exists reports whether some definition covers sig.
func (mt *MethodTable) Exists(sig *typesystem.Signature) bool {
	return mt.LookupByType(sig, false, false) != nil
}

// assocByType consults the definitions, builds (and optionally caches) a
// specialization. The second result lists the ambiguity partners when
// the lookup failed because the match is ambiguous under sig.
func (mt *MethodTable) assocByType(tt *typesystem.Signature, cache, inexact bool) (*Specialization, []*Method) {
	entry, env := mt.Defs.AssocByType(tt, false, !inexact)
	if entry == nil {
		return nil, nil
	}
	m := entry.Payload.(*Method)
	if partners := m.reachableAmbiguities(tt); len(partners) > 0 {
		return nil, append([]*Method{m}, partners...)
	}
	sig := joinTSig(tt, entry.Sig)
	if !cache {
		// uncached probes get a free-standing specialization
		return newSpecialization(m, sig, env), nil
	}
	return cacheMethod(mt, mt.Cache, sig, tt, entry, env), nil
}
