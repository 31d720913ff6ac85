package dispatch

import (
	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// joinTSig repairs the argument-type tuple after intersection: a slot
// holding Type{X} where the definition actually matched on the kind is
// replaced by the kind, so the cache key reflects what matched.
func joinTSig(tt *typesystem.Signature, decl *typesystem.Signature) *typesystem.Signature {
	var newSlots []typesystem.Type
	for i, elt := range tt.Slots {
		et, ok := elt.(*typesystem.TypeType)
		if !ok {
			continue
		}
		declI := decl.SlotAt(i)
		if declI == nil {
			continue
		}
		kind := typesystem.KindOf(et.Inner)
		if kind == nil {
			continue
		}
		if typesystem.Subtype(kind, declI) && !typesystem.Subtype(typesystem.TypeTypeT, declI) {
			// matched as ::DataType, not as ::Type{...}; cache it that way
			if newSlots == nil {
				newSlots = make([]typesystem.Type, len(tt.Slots))
				copy(newSlots, tt.Slots)
			}
			newSlots[i] = kind
		}
	}
	if newSlots == nil {
		return tt
	}
	return tt.WithSlots(newSlots)
}

// cacheMethod builds the cached specialization for one dispatch miss:
// widen slots where specialization would be wasted, truncate unbounded
// varargs against the table's max arity, collect guard signatures for
// the definitions the widened entry would otherwise swallow, and insert
// the result.
func cacheMethod(mt *MethodTable, cache *typemap.TypeMap, sig, tt *typesystem.Signature,
	defEntry *typemap.Entry, env typesystem.Env) *Specialization {

	codegenMu.Lock()

	decl := defEntry.Sig
	definition := defEntry.Payload.(*Method)
	isStaged := definition.IsStaged

	needGuards := false
	hasNewParams := false
	makeSimpleSig := false

	newSlots := make([]typesystem.Type, len(sig.Slots))
	copy(newSlots, sig.Slots)

	for i, elt := range sig.Slots {
		declI := decl.SlotAt(i)

		if (sig != tt && !typesystem.TypeEqual(elt, tt.Slots[i])) || typesystem.IsKind(elt) {
			// kind slots always need guard entries
			needGuards = true
			continue
		}
		if isStaged {
			continue
		}

		// avoid specializing on an immediate tuple type argument unless
		// the declaration asked for ::Type{...}
		if et, ok := elt.(*typesystem.TypeType); ok {
			if _, isTuple := et.Inner.(*typesystem.Tuple); isTuple &&
				(!typesystem.Subtype(declI, typesystem.TypeTypeT) || typesystem.IsKind(declI)) {
				newSlots[i] = typesystem.AnyTupleTypeType
				hasNewParams = true
				needGuards = true
				continue
			}
		}

		notCalledFunc := i < 8 && definition.Called&(1<<uint(i)) == 0 &&
			typesystem.Subtype(elt, typesystem.FunctionType)

		switch {
		case declI == typesystem.AnyMarker:
			// never specialize slots marked ANY
			newSlots[i] = typesystem.AnyType
			hasNewParams = true
			needGuards = true

		case notCalledFunc && isCallableDecl(declI):
			// despecialize a function-valued argument the body never calls
			newSlots[i] = typesystem.FunctionType
			makeSimpleSig = true
			hasNewParams = true
			needGuards = true

		case isNestedTypeType(elt) && nestedNeedsWidening(elt, declI):
			newSlots[i] = widenNestedTypeType(decl, i)
			hasNewParams = true
			needGuards = true

		case typesystem.IsTypeOfType(elt) && typesystem.IsVeryGeneral(declI) && !typesystem.HasTypeVars(declI):
			// every type X brings its own Type{X}; an Any-ish slot would
			// specialize without bound
			newSlots[i] = typesystem.TypeTypeT
			hasNewParams = true
			needGuards = true
		}
	}

	// for vararg methods, only specialize up to the table's max arity
	if !isStaged && len(newSlots) > mt.MaxArgs && decl.HasVararg() {
		nspec := mt.MaxArgs + config.VarargSpecSlack
		limited := make([]typesystem.Type, nspec)
		copy(limited, newSlots[:nspec-1])
		lastType := newSlots[nspec-2]
		allSubtypes := true
		for _, t := range newSlots[nspec-1:] {
			if !typesystem.Subtype(t, lastType) {
				allSubtypes = false
				break
			}
		}
		if allSubtypes {
			if isNestedTypeType(lastType) {
				lastType = typesystem.TypeTypeT
			}
			limited[nspec-1] = &typesystem.Vararg{Elem: lastType}
		} else {
			lastDecl := decl.Slots[decl.NParams()-1]
			limited[nspec-1] = typesystem.Instantiate(lastDecl, env)
		}
		newSlots = limited
		hasNewParams = true
		// the widened signature is more general than the given arguments;
		// guard entries redirect the conflicting corners back to a miss
		needGuards = true
	}

	cacheWithOrig := false
	widened := sig
	if hasNewParams {
		widened = &typesystem.Signature{Slots: newSlots}
	}

	var guards []*typesystem.Signature
	if needGuards {
		conflicts := 0
		mt.Defs.IntersectionVisit(widened, func(e *typemap.Entry, isect *typesystem.Signature, ienv typesystem.Env) bool {
			if ienv.HasUnboundVars() {
				// distinguishing a guard from the widened signature would
				// need type-variable matching, which the cache match
				// cannot do
				cacheWithOrig = true
				return false
			}
			if e.Payload.(*Method) != definition {
				conflicts++
				if conflicts > config.MaxUnspecializedConflicts {
					cacheWithOrig = true
					return false
				}
				guards = append(guards, e.Sig)
			}
			return true
		})
		if cacheWithOrig {
			guards = nil
		}
	}

	// the specialization itself is always built on the widened signature
	newMeth := getSpecialization(definition, widened, env)

	key := widened
	var simple *typesystem.Signature
	if cacheWithOrig {
		// cache under the original tuple; the join-repaired signature
		// only serves as a rejection filter
		key = tt
		if !typesystem.SigsEqualGeneric(tt, sig) {
			simple = sig
		}
	} else if makeSimpleSig {
		simple = simplifyFunctionSlots(key)
	}
	cache.Insert(key, simple, guards, newMeth)

	if mode := Options().Compile; !newMeth.Inferred() && !newMeth.InInference() &&
		(mode == config.CompileOn || mode == config.CompileAll) &&
		!isMacroName(definition.Name) {
		typeInfer(newMeth, false)
	}

	codegenMu.Unlock()

	if definition.Traced {
		fireMethodTracer(newMeth)
	}
	return newMeth
}

func isCallableDecl(declI typesystem.Type) bool {
	if declI == typesystem.AnyType || declI == typesystem.FunctionType {
		return true
	}
	u, ok := declI.(*typesystem.Union)
	return ok && len(u.Terms) == 2 &&
		typesystem.Subtype(typesystem.FunctionType, u) &&
		typesystem.Subtype(typesystem.DataTypeType, u)
}

func isNestedTypeType(t typesystem.Type) bool {
	tt, ok := t.(*typesystem.TypeType)
	if !ok {
		return false
	}
	_, ok = tt.Inner.(*typesystem.TypeType)
	return ok
}

func nestedNeedsWidening(elt, declI typesystem.Type) bool {
	inner := elt.(*typesystem.TypeType).Inner.(*typesystem.TypeType)
	if _, tripleNested := inner.Inner.(*typesystem.TypeType); tripleNested {
		return true
	}
	return declI == nil || !typesystem.HasTypeVars(declI)
}

// widenNestedTypeType caches a Type{Type{...}} argument as Type{T}
// bounded by the declaration, avoiding unbounded selector nesting.
func widenNestedTypeType(decl *typesystem.Signature, i int) typesystem.Type {
	if i < decl.NParams() {
		declT := decl.Slots[i]
		if va, ok := declT.(*typesystem.Vararg); ok {
			declT = va.Elem
		}
		var env typesystem.Env
		di := typesystem.Intersect(declT, typesystem.TypeTypeT, &env)
		if typesystem.IsKind(di) || typesystem.IsBottom(di) {
			return typesystem.TypeTypeT
		}
		return di
	}
	return typesystem.TypeTypeT
}

// simplifyFunctionSlots builds the coarser rejection signature with the
// despecialized Function slots relaxed to Any.
func simplifyFunctionSlots(sig *typesystem.Signature) *typesystem.Signature {
	slots := make([]typesystem.Type, len(sig.Slots))
	copy(slots, sig.Slots)
	for i, t := range slots {
		if t == typesystem.FunctionType {
			slots[i] = typesystem.AnyType
		}
	}
	return &typesystem.Signature{Slots: slots}
}

func isMacroName(name string) bool {
	return len(name) > 0 && name[0] == config.MacroSigil
}
