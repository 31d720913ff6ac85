package dispatch

import (
	"bytes"
	"sort"

	"github.com/xtgo/set"

	"github.com/funvibe/fundis/internal/diagnostics"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// byID orders methods by their identity for set operations.
type byID []*Method

func (s byID) Len() int      { return len(s) }
func (s byID) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byID) Less(i, j int) bool {
	return bytes.Compare(s[i].ID[:], s[j].ID[:]) < 0
}

func sortedMethods(ms []*Method) []*Method {
	out := make([]*Method, len(ms))
	copy(out, ms)
	sort.Sort(byID(out))
	return out
}

func uniqueMethods(ms []*Method) []*Method {
	sort.Sort(byID(ms))
	n := set.Uniq(byID(ms))
	return ms[:n]
}

// checkAmbiguousMatches runs right after newentry lands in defs. For
// every prior definition whose signature intersects the new one it
// decides: properly ordered, covered by a third definition, or
// ambiguous. Definitions appearing after the new entry whose domains
// overlap are returned as shadowed. Codegen lock held.
//
// The relative priority of two signatures over an intersection I is
// unambiguous when the one earlier in the ordered list is more specific,
// or when the later one equals I outright, or when a third definition
// covers I.
func checkAmbiguousMatches(mt *MethodTable, newentry *typemap.Entry, m *Method) []*Method {
	var shadowed []*Method
	after := false
	nsig := m.Sig
	mt.Defs.IntersectionVisit(nsig, func(old *typemap.Entry, isect *typesystem.Signature, env typesystem.Env) bool {
		if old == newentry {
			after = true
			return true
		}
		oldm, ok := old.Payload.(*Method)
		if !ok {
			return true
		}
		osig := old.Sig

		earlier, later := osig, nsig
		if after {
			earlier, later = nsig, osig
		}
		// the later definition owning the whole intersection is the
		// morespecific fallback case; not an ambiguity
		if !typesystem.SigsEqualGeneric(isect, later) &&
			!typesystem.MoreSpecific(earlier, later) &&
			!coveredByThird(mt, isect, newentry, old) {
			m.addAmbig(oldm)
			oldm.addAmbig(m)
			if Options().EagerAmbiguityPrinting {
				diagnostics.WarnAmbiguous(
					m.Name+nsig.String(), diagnostics.FuncLoc(m.File, m.Line),
					oldm.Name+osig.String(), diagnostics.FuncLoc(oldm.File, oldm.Line),
					isect.String(),
				)
			}
		}
		if after {
			// part of the old definition's domain now overlaps m
			shadowed = append(shadowed, oldm)
		}
		return true
	})
	return uniqueMethods(shadowed)
}

// coveredByThird reports whether some definition other than the two
// parties matches the whole intersection.
func coveredByThird(mt *MethodTable, isect *typesystem.Signature, a, b *typemap.Entry) bool {
	entry, _ := mt.Defs.AssocByType(isect, false, true)
	return entry != nil && entry != a && entry != b
}

// invalidateConflicting unlinks every cached specialization whose
// defining method is shadowed and whose signature overlaps the new
// definition. Codegen lock held.
func invalidateConflicting(cache *typemap.TypeMap, nsig *typesystem.Signature, shadowed []*Method) {
	cache.Invalidate(func(e *typemap.Entry) bool {
		sp, ok := e.Payload.(*Specialization)
		if !ok {
			return false
		}
		found := false
		for _, s := range shadowed {
			if s == sp.Def {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		_, _, overlaps := typesystem.SigIntersect(nsig, e.Sig)
		return overlaps
	})
	flushCallCache(func(sp *Specialization) bool {
		for _, s := range shadowed {
			if s == sp.Def {
				_, _, overlaps := typesystem.SigIntersect(nsig, sp.SpecTypes)
				return overlaps
			}
		}
		return false
	})
}

func warnOverwrite(mt *MethodTable, m, oldm *Method) {
	diagnostics.WarnOverwrite(
		m.Name+m.Sig.String(),
		oldm.Module,
		diagnostics.FuncLoc(oldm.File, oldm.Line),
		m.Module,
		diagnostics.FuncLoc(m.File, m.Line),
	)
}
