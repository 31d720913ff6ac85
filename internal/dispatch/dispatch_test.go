package dispatch

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/fundis/internal/diagnostics"
	"github.com/funvibe/fundis/internal/typemap"
	"github.com/funvibe/fundis/internal/typesystem"
)

func intObj(v int64) typesystem.Object     { return &typesystem.Integer{Value: v} }
func floatObj(v float64) typesystem.Object { return &typesystem.Float{Value: v} }
func strObj(v string) typesystem.Object    { return &typesystem.Str{Value: v} }

// defineConst attaches a method returning a fixed integer.
func defineConst(f *GenericFunction, sig *typesystem.Signature, ret int64) *Method {
	m := NewMethod(f.Name, sig, func(_ typesystem.Env, _ []typesystem.Object) typesystem.Object {
		return intObj(ret)
	}, MethodOpts{Module: "test"})
	f.MT.Insert(m, nil)
	return m
}

func callValue(t *testing.T, f *GenericFunction, args ...typesystem.Object) int64 {
	t.Helper()
	res, err := Apply(f, args...)
	require.NoError(t, err)
	return res.(*typesystem.Integer).Value
}

// S1: exact leaf dispatch.
func TestExactLeafDispatch(t *testing.T) {
	f := NewFunction("s1f", "test")
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.IntType), 1)
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.RealType), 2)

	assert.Equal(t, int64(1), callValue(t, f, intObj(3), intObj(4)))
	assert.Equal(t, 1, f.MT.Cache.Len(), "one call populates exactly one cache entry")
}

// S2: specificity.
func TestSpecificity(t *testing.T) {
	f := NewFunction("s2f", "test")
	defineConst(f, typesystem.Sig(typesystem.RealType, typesystem.RealType), 10) // A
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.IntType), 20)   // B

	assert.Equal(t, int64(20), callValue(t, f, intObj(2), intObj(3)))
	assert.Equal(t, int64(10), callValue(t, f, floatObj(2.0), floatObj(3.0)))
	assert.Equal(t, 2, f.MT.Cache.Len())
}

// S3: ambiguity, then resolution by a covering definition.
func TestAmbiguity(t *testing.T) {
	g := NewFunction("s3g", "test")
	mx := defineConst(g, typesystem.Sig(typesystem.IntType, typesystem.AnyType), 1)
	my := defineConst(g, typesystem.Sig(typesystem.AnyType, typesystem.IntType), 2)

	_, err := Apply(g, intObj(1), intObj(2))
	require.Error(t, err)
	var ambig *AmbiguousError
	require.ErrorAs(t, err, &ambig)

	assert.Contains(t, mx.AmbigList(), my)
	assert.Contains(t, my.AmbigList(), mx)

	defineConst(g, typesystem.Sig(typesystem.IntType, typesystem.IntType), 3)
	assert.Equal(t, int64(3), callValue(t, g, intObj(1), intObj(2)))

	// the recorded relation survives resolution
	assert.Contains(t, mx.AmbigList(), my)
	assert.Contains(t, my.AmbigList(), mx)

	// off the shared intersection the outer methods still dispatch
	assert.Equal(t, int64(1), callValue(t, g, intObj(1), strObj("x")))
	assert.Equal(t, int64(2), callValue(t, g, strObj("x"), intObj(1)))
}

// S4: overwriting a definition invalidates its cached specializations.
func TestOverwriteInvalidates(t *testing.T) {
	var buf bytes.Buffer
	diagnostics.SetOutput(&buf)
	defer diagnostics.SetOutput(os.Stderr)

	h := NewFunction("s4h", "test")
	defineConst(h, typesystem.Sig(typesystem.IntType), 1)
	assert.Equal(t, int64(1), callValue(t, h, intObj(5)))
	require.Equal(t, 1, h.MT.Cache.Len())

	m2 := defineConst(h, typesystem.Sig(typesystem.IntType), 2)
	assert.Equal(t, 0, h.MT.Cache.Len(), "the shadowed specialization must be unlinked")
	assert.Contains(t, buf.String(), "overwritten")

	assert.Equal(t, int64(2), callValue(t, h, intObj(5)))
	e := h.MT.Cache.AssocExact([]typesystem.Object{intObj(5)})
	require.NotNil(t, e)
	assert.Same(t, m2, e.Payload.(*Specialization).Def)
}

// S5: vararg truncation against the table's max arity.
func TestVarargTruncation(t *testing.T) {
	k := NewFunction("s5k", "test")
	defineConst(k, typesystem.Sig(&typesystem.Vararg{Elem: typesystem.AnyType}), 7)
	k.MT.MaxArgs = 2

	assert.Equal(t, int64(7), callValue(t, k, intObj(1), intObj(2), intObj(3), intObj(4)))
	require.Equal(t, 1, k.MT.Cache.Len())

	var cached *typesystem.Signature
	k.MT.Cache.Visit(func(e *typemap.Entry) bool {
		cached = e.Sig
		return false
	})
	require.NotNil(t, cached)
	assert.LessOrEqual(t, cached.NParams(), 4)
	assert.True(t, cached.HasVararg(), "the truncated tail must be a vararg slot")

	// homogeneous wider calls hit the same entry
	assert.Equal(t, int64(7), callValue(t, k, intObj(9), intObj(8), intObj(7), intObj(6), intObj(5)))
	assert.Equal(t, 1, k.MT.Cache.Len(), "the widened entry absorbs longer homogeneous calls")
}

// S6: invoke dispatches to the selected definition and caches privately.
func TestInvoke(t *testing.T) {
	p := NewFunction("s6p", "test")
	mReal := defineConst(p, typesystem.Sig(typesystem.RealType), 100)
	defineConst(p, typesystem.Sig(typesystem.IntType), 200)

	assert.Equal(t, int64(200), callValue(t, p, intObj(3)))

	res, err := Invoke(p, typesystem.Sig(typesystem.RealType), intObj(3))
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.(*typesystem.Integer).Value)

	assert.Equal(t, 1, p.MT.Cache.Len(), "invoke must not touch the shared cache")
	assert.Equal(t, 1, mReal.Invokes().Len(), "invoke caches inside the selected method")
}

// Property 1: ground instances reach their most specific definition.
func TestGroundInstanceSelection(t *testing.T) {
	f := NewFunction("prop1f", "test")
	defineConst(f, typesystem.Sig(typesystem.NumberType, typesystem.NumberType), 1)
	mid := defineConst(f, typesystem.Sig(typesystem.RealType, typesystem.RealType), 2)
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.IntType), 3)

	assert.Equal(t, int64(3), callValue(t, f, intObj(1), intObj(1)))
	assert.Equal(t, int64(2), callValue(t, f, floatObj(1), floatObj(1)))

	e := f.MT.Cache.AssocExact([]typesystem.Object{floatObj(1), floatObj(1)})
	require.NotNil(t, e)
	assert.Same(t, mid, e.Payload.(*Specialization).Def)
}

// Property 2: an inexact lookup under a reachable ambiguity returns none.
func TestInexactLookupRejectsAmbiguity(t *testing.T) {
	g := NewFunction("prop2g", "test")
	defineConst(g, typesystem.Sig(typesystem.IntType, typesystem.AnyType), 1)
	defineConst(g, typesystem.Sig(typesystem.AnyType, typesystem.IntType), 2)

	sp := g.MT.LookupByType(typesystem.Sig(typesystem.IntType, typesystem.IntType), false, true)
	assert.Nil(t, sp, "ambiguous inexact lookups return none")

	sp = g.MT.LookupByType(typesystem.Sig(typesystem.IntType, typesystem.StringType), false, true)
	assert.NotNil(t, sp, "off the intersection the lookup succeeds")
}

// Property 3: a covering redefinition reroutes an already-cached call.
func TestShadowingInvalidates(t *testing.T) {
	f := NewFunction("prop3f", "test")
	defineConst(f, typesystem.Sig(typesystem.RealType), 1)
	assert.Equal(t, int64(1), callValue(t, f, intObj(5)))

	m2 := defineConst(f, typesystem.Sig(typesystem.IntType), 2)
	assert.Equal(t, int64(2), callValue(t, f, intObj(5)))

	e := f.MT.Cache.AssocExact([]typesystem.Object{intObj(5)})
	require.NotNil(t, e)
	assert.Same(t, m2, e.Payload.(*Specialization).Def)
}

// Property 5: definitions round-trip through an exact query.
func TestDefsExactRoundTrip(t *testing.T) {
	f := NewFunction("prop5f", "test")
	sigs := []*typesystem.Signature{
		typesystem.Sig(typesystem.IntType),
		typesystem.Sig(typesystem.RealType, typesystem.StringType),
		typesystem.Sig(&typesystem.Vararg{Elem: typesystem.NumberType}),
	}
	for _, s := range sigs {
		defineConst(f, s, 1)
	}
	for _, s := range sigs {
		e, _ := f.MT.Defs.AssocByType(s, true, false)
		require.NotNil(t, e, "definition %s must be found exactly", s)
		assert.True(t, typesystem.SigsEqualGeneric(e.Sig, s))
	}
}

// Property 6: the fast path and the slow path agree.
func TestFastPathEquivalence(t *testing.T) {
	ResetCallCache()
	f := NewFunction("prop6f", "test")
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.IntType), 1)
	defineConst(f, typesystem.Sig(typesystem.RealType, typesystem.RealType), 2)

	const site = uint32(0xBEEF)
	cold, err := ApplyAt(site, f, intObj(1), intObj(2))
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		warm, err := ApplyAt(site, f, intObj(1), intObj(2))
		require.NoError(t, err)
		assert.Equal(t, cold, warm)
	}
	// alternating argument types through the same site
	for i := 0; i < 8; i++ {
		res, err := ApplyAt(site, f, floatObj(1), floatObj(2))
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.(*typesystem.Integer).Value)
		res, err = ApplyAt(site, f, intObj(1), intObj(2))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.(*typesystem.Integer).Value)
	}
}

func TestCallSiteCacheDoesNotCrossFunctions(t *testing.T) {
	ResetCallCache()
	f := NewFunction("crossf", "test")
	g := NewFunction("crossg", "test")
	defineConst(f, typesystem.Sig(typesystem.IntType), 1)
	defineConst(g, typesystem.Sig(typesystem.IntType), 2)

	const site = uint32(0xABCD)
	res, err := ApplyAt(site, f, intObj(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.(*typesystem.Integer).Value)

	res, err = ApplyAt(site, g, intObj(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.(*typesystem.Integer).Value, "a colliding site must not leak another function's entry")
}

func TestNoMethodError(t *testing.T) {
	f := NewFunction("errf", "test")
	defineConst(f, typesystem.Sig(typesystem.IntType), 1)

	_, err := Apply(f, strObj("nope"))
	require.Error(t, err)
	var me *MethodError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Error(), "no method matching")

	_, err = Apply(strObj("not callable"))
	require.Error(t, err)
}

func TestMaxArgsTracksDefinitions(t *testing.T) {
	f := NewFunction("maxargs", "test")
	defineConst(f, typesystem.Sig(typesystem.IntType), 1)
	assert.Equal(t, 1, f.MT.MaxArgs)
	defineConst(f, typesystem.Sig(typesystem.IntType, typesystem.IntType, typesystem.IntType), 2)
	assert.Equal(t, 3, f.MT.MaxArgs)
	defineConst(f, typesystem.Sig(typesystem.IntType, &typesystem.Vararg{Elem: typesystem.AnyType}), 3)
	assert.Equal(t, 3, f.MT.MaxArgs, "a vararg tail does not raise the max arity")
}
