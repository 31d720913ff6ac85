package dispatch

import (
	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/log"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// getSpecialization1 is the compile-time lookup: resolve sig to a single
// definition, build its specialization, run inference and the compiler
// on it. Returns nil when sig is not a variable-free leaf signature, no
// unique method matches, or the match is ambiguous under sig.
func getSpecialization1(mt *MethodTable, sig *typesystem.Signature) *Specialization {
	if !sig.IsLeaf() || sig.HasTypeVars() {
		return nil
	}
	sp := mt.LookupByType(sig, true, true)
	if sp == nil {
		return nil
	}
	if sp.Def.HasCallAmbiguities(sig) {
		return nil
	}
	codegenMu.Lock()
	if !sp.Inferred() {
		typeInfer(sp, false)
	}
	var err error
	if sp.Code() == nil {
		err = compileSpec(sp)
	}
	codegenMu.Unlock()
	if err != nil {
		log.DefaultLogger.Warn("precompile failed", "section", "precompile", "err", err)
		return nil
	}
	return sp
}

// CompileHint tries to build and compile a specialization covering sig.
// Idempotent: a second call finds the cached specialization.
func CompileHint(f typesystem.Object, sig *typesystem.Signature) bool {
	gf, ok := f.(*GenericFunction)
	if !ok {
		return false
	}
	return getSpecialization1(gf.MT, sig) != nil
}

// Precompile sweeps inferred-but-uncompiled specializations through the
// compiler. With all set it first enumerates every method, compiling a
// representative specialization per leaf branch of its union-typed slots
// and per union-bounded type variable.
func Precompile(all bool) {
	if all || Options().Compile == config.CompileAll {
		eachTable(func(mt *MethodTable) {
			mt.Defs.Visit(func(e *typemap.Entry) bool {
				if m, ok := e.Payload.(*Method); ok {
					compileAllTVarUnion(mt, m)
				}
				return true
			})
		})
	}
	eachTable(func(mt *MethodTable) {
		mt.Defs.Visit(func(e *typemap.Entry) bool {
			m, ok := e.Payload.(*Method)
			if !ok {
				return true
			}
			EachSpecialization(m, func(sp *Specialization) bool {
				if sp.Inferred() && sp.Code() == nil {
					codegenMu.Lock()
					err := compileSpec(sp)
					codegenMu.Unlock()
					if err != nil {
						log.DefaultLogger.Warn("precompile failed", "section", "precompile", "err", err)
					}
				}
				return true
			})
			return true
		})
	})
}

// compileAllTVarUnion expands union-bounded type variables into their
// members, then hands each ground signature to the union-slot expansion.
func compileAllTVarUnion(mt *MethodTable, m *Method) {
	if len(m.Sig.TVars) == 0 {
		compileAllUnion(mt, m.Sig)
		return
	}
	options := make([][]typesystem.Type, len(m.Sig.TVars))
	for i, tv := range m.Sig.TVars {
		if u, ok := tv.Upper.(*typesystem.Union); ok && len(u.Terms) > 0 {
			options[i] = u.Terms
		} else if tv.Upper != nil && typesystem.IsConcrete(tv.Upper) {
			options[i] = []typesystem.Type{tv.Upper}
		} else {
			// an unconstrained variable has no finite enumeration
			return
		}
	}
	idx := make([]int, len(options))
	for {
		env := typesystem.Env{}
		for i, tv := range m.Sig.TVars {
			env = env.With(tv, options[i][idx[i]])
		}
		inst := typesystem.InstantiateSig(m.Sig, env)
		if !inst.HasTypeVars() {
			compileAllUnion(mt, inst)
		}
		carry := len(options) - 1
		for carry >= 0 {
			idx[carry]++
			if idx[carry] < len(options[carry]) {
				break
			}
			idx[carry] = 0
			carry--
		}
		if carry < 0 {
			return
		}
	}
}

// compileAllUnion iterates the cartesian product of union members across
// sig's slots, compiling every signature that becomes a leaf.
func compileAllUnion(mt *MethodTable, sig *typesystem.Signature) {
	var unionSlots []int
	for i, t := range sig.Slots {
		if typesystem.IsUnion(t) {
			unionSlots = append(unionSlots, i)
		}
	}
	if len(unionSlots) == 0 {
		getSpecialization1(mt, sig)
		return
	}
	idx := make([]int, len(unionSlots))
	for {
		slots := make([]typesystem.Type, len(sig.Slots))
		copy(slots, sig.Slots)
		for k, si := range unionSlots {
			slots[si] = sig.Slots[si].(*typesystem.Union).Terms[idx[k]]
		}
		getSpecialization1(mt, &typesystem.Signature{Slots: slots})
		carry := len(unionSlots) - 1
		for carry >= 0 {
			idx[carry]++
			if idx[carry] < len(sig.Slots[unionSlots[carry]].(*typesystem.Union).Terms) {
				break
			}
			idx[carry] = 0
			carry--
		}
		if carry < 0 {
			return
		}
	}
}
