package dispatch

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// CodeObject is the generated-code handle a compiler hook installs on a
// specialization. Invoke receives the bound static parameters as data.
type CodeObject struct {
	Invoke BodyFunc
	Native bool
}

// Specialization is a Method concretized at a particular signature,
// optionally carrying generated code.
type Specialization struct {
	ID  uuid.UUID
	Def *Method

	// SpecTypes is the (possibly widened) concrete signature this
	// specialization serves.
	SpecTypes *typesystem.Signature

	// SParams holds the static-parameter bindings inferred during the
	// defining intersection.
	SParams typesystem.Env

	code        atomic.Pointer[CodeObject]
	inferred    atomic.Bool
	inInference atomic.Bool

	// fallback is the shared unspecialized form dispatched to while this
	// specialization has no code.
	fallback atomic.Pointer[Specialization]
}

func newSpecialization(m *Method, sig *typesystem.Signature, env typesystem.Env) *Specialization {
	return &Specialization{
		ID:        uuid.New(),
		Def:       m,
		SpecTypes: sig,
		SParams:   env,
	}
}

// Code returns the generated code handle, or nil before compilation.
func (s *Specialization) Code() *CodeObject { return s.code.Load() }

// SetCode publishes generated code. The linfo tracer fires afterwards.
func (s *Specialization) SetCode(c *CodeObject) {
	s.code.Store(c)
	if c != nil {
		fireLinfoTracer(s)
	}
}

// Inferred reports whether the inference hook has processed s.
func (s *Specialization) Inferred() bool { return s.inferred.Load() }

// MarkInferred is called by the inference machinery on success.
func (s *Specialization) MarkInferred() { s.inferred.Store(true) }

// InInference reports whether the hook is currently running on s.
func (s *Specialization) InInference() bool { return s.inInference.Load() }

// Call runs the specialization: generated code when present, otherwise
// the unspecialized fallback, otherwise the method body itself.
func (s *Specialization) Call(args []typesystem.Object) typesystem.Object {
	if c := s.code.Load(); c != nil {
		return c.Invoke(s.SParams, args)
	}
	fb := s.Fallback()
	if fb != nil && fb != s {
		if c := fb.code.Load(); c != nil {
			return c.Invoke(s.SParams, args)
		}
	}
	return s.Def.Body(s.SParams, args)
}

// Fallback resolves the shared unspecialized specialization for s. When
// the defining method's body references static parameters, the fallback
// is a specialization of the template that receives the sparam values as
// data; otherwise the template itself serves.
func (s *Specialization) Fallback() *Specialization {
	if fb := s.fallback.Load(); fb != nil {
		return fb
	}
	m := s.Def
	var fb *Specialization
	if len(s.SParams) > 0 && m.NeedsSParamData {
		codegenMu.Lock()
		if !m.unspecializedTried {
			m.unspecializedTried = true
			m.unspecialized = newSpecialization(m, m.Sig, s.SParams)
		}
		fb = m.unspecialized
		codegenMu.Unlock()
	}
	if fb == nil {
		fb = m.Template()
	}
	s.fallback.Store(fb)
	return fb
}

// getSpecialization is the at-most-one-build store: an existing
// specialization with a type-equal signature is reused once it has code;
// otherwise a fresh one is inserted in its place. Codegen lock held.
func getSpecialization(m *Method, sig *typesystem.Signature, env typesystem.Env) *Specialization {
	if entry, _ := m.specializations.AssocByType(sig, true, false); entry != nil {
		sp := entry.Payload.(*Specialization)
		if sp.Code() != nil {
			return sp
		}
	}
	// no code yet: build fresh; the insert replaces the type-equal entry
	sp := newSpecialization(m, sig, env)
	m.specializations.Insert(sig, nil, nil, sp)
	return sp
}

// LookupSpecialization returns the cached specialization for a
// type-equal signature, or nil.
func LookupSpecialization(m *Method, sig *typesystem.Signature) *Specialization {
	if entry, _ := m.specializations.AssocByType(sig, true, false); entry != nil {
		return entry.Payload.(*Specialization)
	}
	return nil
}

// EachSpecialization visits every recorded specialization of m.
func EachSpecialization(m *Method, fn func(*Specialization) bool) {
	m.specializations.Visit(func(e *typemap.Entry) bool {
		return fn(e.Payload.(*Specialization))
	})
}
