package dispatch

import (
	"runtime"
	"sync/atomic"

	"github.com/funvibe/fundis/internal/config"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

// The process-wide call-site inline cache: an open-addressed array of
// typemap entry pointers probed by four hashes of the callsite token,
// plus a 2-bit round-robin counter choosing the victim slot on install.
// Slots hold only leaf entries without simplesig or guards, so a stale
// read still names a correct specialization.
var (
	callCache [config.NCallCache]atomic.Pointer[typemap.Entry]
	pickWhich [config.NCallCache]atomic.Uint32
)

// int32HashFast mixes a callsite identifier into a well-distributed
// 32-bit value.
func int32HashFast(x uintptr) uint32 {
	h := uint64(x) * 0x9E3779B97F4A7C15
	return uint32(h >> 32)
}

// Apply dispatches f on args, deriving a callsite token from the
// caller's program counter.
func Apply(f typesystem.Object, args ...typesystem.Object) (typesystem.Object, error) {
	pc, _, _, _ := runtime.Caller(1)
	return applyAt(int32HashFast(pc), f, args)
}

// ApplyAt dispatches with an explicit callsite token, for hosts that
// already track call sites (bytecode PCs, instruction ids).
func ApplyAt(site uint32, f typesystem.Object, args ...typesystem.Object) (typesystem.Object, error) {
	return applyAt(site, f, args)
}

func applyAt(callsite uint32, f typesystem.Object, args []typesystem.Object) (typesystem.Object, error) {
	gf, isGeneric := f.(*GenericFunction)
	if !isGeneric {
		return nil, methodError(f, args, nil)
	}
	nargs := len(args)
	const mask = config.NCallCache - 1
	idx := [4]uint32{
		callsite & mask,
		(callsite >> 8) & mask,
		(callsite >> 16) & mask,
		(callsite>>24 | callsite<<8) & mask,
	}

	// fast path: four probes, each a handful of pointer comparisons; the
	// owning-table check keeps colliding callsites of distinct functions
	// from cross-dispatching
	var entry *typemap.Entry
	for i := 0; i < 4; i++ {
		if e := callCache[idx[i]].Load(); e != nil &&
			e.Payload.(*Specialization).Def.Table == gf.MT &&
			e.Sig.NParams() == nargs && typemap.SigMatchFast(args, e.Sig) {
			entry = e
			break
		}
	}

	if entry == nil {
		entry = gf.MT.Cache.AssocExact(args)
		if entry != nil && entry.IsLeafSig && entry.SimpleSig == nil && len(entry.Guards) == 0 {
			// install where pick_which points, slightly randomizing the slot
			which := pickWhich[idx[0]].Add(1)
			callCache[idx[which&3]].Store(entry)
		}
		if entry == nil {
			// full miss: consult the definitions, possibly building and
			// inferring a fresh specialization
			sp, ambigWith := gf.MT.LookupByArgs(args)
			if sp == nil {
				return nil, methodError(f, args, ambigWith)
			}
			return sp.Call(args), nil
		}
	}

	return entry.Payload.(*Specialization).Call(args), nil
}

// Invoke dispatches to the definition selected by sig rather than by the
// argument types, caching inside that method's private invokes map so
// the shared dispatch cache stays unpolluted. The argument types are
// assumed to be a subtype of sig.
func Invoke(f typesystem.Object, sig *typesystem.Signature, args ...typesystem.Object) (typesystem.Object, error) {
	gf, ok := f.(*GenericFunction)
	if !ok {
		return nil, methodError(f, args, nil)
	}
	entry, _ := gf.MT.Defs.AssocByType(sig, false, true)
	if entry == nil {
		return nil, methodError(f, args, nil)
	}
	m := entry.Payload.(*Method)

	if e := m.Invokes().AssocExact(args); e != nil {
		return e.Payload.(*Specialization).Call(args), nil
	}

	tt := typesystem.ArgTypeSignature(args)
	env, ok := typesystem.MatchSig(tt, m.Sig)
	if !ok {
		return nil, methodError(f, args, nil)
	}
	jsig := joinTSig(tt, m.Sig)
	sp := cacheMethod(gf.MT, m.Invokes(), jsig, tt, entry, env)
	return sp.Call(args), nil
}

// CallCacheStats reports inline-cache occupancy, mirroring the profile
// counter layout: total occupied slots and the pick_which distribution.
func CallCacheStats() (occupied int, pickDist [4]int) {
	for i := 0; i < config.NCallCache; i++ {
		if callCache[i].Load() != nil {
			occupied++
		}
		pickDist[pickWhich[i].Load()&3]++
	}
	return occupied, pickDist
}

// ResetCallCache clears the process-wide inline cache; tests use it to
// isolate callsite state.
func ResetCallCache() {
	for i := 0; i < config.NCallCache; i++ {
		callCache[i].Store(nil)
		pickWhich[i].Store(0)
	}
}

// flushCallCache clears inline-cache slots whose specialization was just
// invalidated, so a later call at the same site re-misses into the
// rebuilt table cache.
func flushCallCache(pred func(*Specialization) bool) {
	for i := 0; i < config.NCallCache; i++ {
		if e := callCache[i].Load(); e != nil {
			if sp, ok := e.Payload.(*Specialization); ok && pred(sp) {
				callCache[i].Store(nil)
			}
		}
	}
}
