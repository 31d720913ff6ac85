package typesystem

import (
	"testing"
)

func TestIntersectNominal(t *testing.T) {
	var env Env
	if got := Intersect(IntType, RealType, &env); got != IntType {
		t.Errorf("Int ∩ Real = %v, want Int", got)
	}
	if got := Intersect(RealType, IntType, &env); got != IntType {
		t.Errorf("Real ∩ Int = %v, want Int", got)
	}
	if got := Intersect(IntType, StringType, &env); !IsBottom(got) {
		t.Errorf("Int ∩ String should be empty, got %v", got)
	}
	if got := Intersect(AnyType, StringType, &env); got != StringType {
		t.Errorf("Any ∩ String = %v, want String", got)
	}
}

func TestIntersectUnion(t *testing.T) {
	var env Env
	u := MkUnion(IntType, StringType)
	if got := Intersect(u, NumberType, &env); got != IntType {
		t.Errorf("Union{Int, String} ∩ Number = %v, want Int", got)
	}
	if got := Intersect(u, BoolType, &env); !IsBottom(got) {
		t.Errorf("Union{Int, String} ∩ Bool should be empty, got %v", got)
	}
}

func TestIntersectBindsVars(t *testing.T) {
	tv := &TVar{Name: "T", Upper: RealType}
	var env Env
	got := Intersect(IntType, tv, &env)
	if got != IntType {
		t.Fatalf("Int ∩ T<:Real = %v, want Int", got)
	}
	if b, ok := env.Lookup(tv); !ok || b != IntType {
		t.Errorf("T should be bound to Int, got %v", b)
	}
}

func TestSigIntersect(t *testing.T) {
	tests := []struct {
		name  string
		x, y  *Signature
		empty bool
		slots []Type
	}{
		{"disjoint slot", Sig(IntType, IntType), Sig(StringType, IntType), true, nil},
		{"meet", Sig(IntType, AnyType), Sig(AnyType, IntType), false, []Type{IntType, IntType}},
		{"arity", Sig(IntType), Sig(IntType, IntType), true, nil},
		{"vararg absorbs", Sig(&Vararg{Elem: AnyType}), Sig(IntType, IntType), false, []Type{IntType, IntType}},
	}
	for _, tt := range tests {
		isect, _, ok := SigIntersect(tt.x, tt.y)
		if tt.empty {
			if ok {
				t.Errorf("%s: expected empty intersection, got %s", tt.name, isect)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: expected non-empty intersection", tt.name)
			continue
		}
		if len(isect.Slots) != len(tt.slots) {
			t.Errorf("%s: intersection %s has %d slots, want %d", tt.name, isect, len(isect.Slots), len(tt.slots))
			continue
		}
		for i, want := range tt.slots {
			if !TypeEqual(isect.Slots[i], want) {
				t.Errorf("%s: slot %d = %v, want %v", tt.name, i, isect.Slots[i], want)
			}
		}
	}
}

func TestSigIntersectBothVararg(t *testing.T) {
	isect, _, ok := SigIntersect(Sig(&Vararg{Elem: RealType}), Sig(IntType, &Vararg{Elem: NumberType}))
	if !ok {
		t.Fatalf("expected non-empty intersection")
	}
	if !isect.HasVararg() {
		t.Errorf("two open tails should intersect to an open tail, got %s", isect)
	}
}

func TestMoreSpecific(t *testing.T) {
	tests := []struct {
		name string
		a, b *Signature
		want bool
	}{
		{"narrower wins", Sig(IntType, IntType), Sig(RealType, RealType), true},
		{"wider loses", Sig(RealType, RealType), Sig(IntType, IntType), false},
		{"incomparable", Sig(IntType, AnyType), Sig(AnyType, IntType), false},
		{"incomparable reverse", Sig(AnyType, IntType), Sig(IntType, AnyType), false},
		{"irreflexive", Sig(IntType), Sig(IntType), false},
		{"closed beats open", Sig(IntType, IntType), Sig(IntType, &Vararg{Elem: IntType}), true},
	}
	for _, tt := range tests {
		if got := MoreSpecific(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: MoreSpecific(%s, %s) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMoreSpecificDiagonal(t *testing.T) {
	tv := &TVar{Name: "T", Upper: AnyType}
	diag := SigWhere([]*TVar{tv}, tv, tv)
	anys := Sig(AnyType, AnyType)
	if !MoreSpecific(diag, anys) {
		t.Errorf("(T, T) constrains harder than (Any, Any)")
	}
	if MoreSpecific(anys, diag) {
		t.Errorf("(Any, Any) must not be more specific than (T, T)")
	}
}

func TestEqualGeneric(t *testing.T) {
	tv1 := &TVar{Name: "T", Upper: AnyType}
	tv2 := &TVar{Name: "S", Upper: AnyType}
	tv3 := &TVar{Name: "U", Upper: AnyType}

	if !SigsEqualGeneric(
		SigWhere([]*TVar{tv1}, tv1, tv1),
		SigWhere([]*TVar{tv3}, tv3, tv3),
	) {
		t.Errorf("(T, T) and (U, U) are equal up to renaming")
	}
	if SigsEqualGeneric(
		SigWhere([]*TVar{tv1, tv2}, tv1, tv2),
		SigWhere([]*TVar{tv3}, tv3, tv3),
	) {
		t.Errorf("(T, S) must not equal (U, U): the mapping is not a bijection")
	}
	if !SigsEqualGeneric(Sig(IntType, RealType), Sig(IntType, RealType)) {
		t.Errorf("ground signatures compare structurally")
	}
}

func TestInstantiate(t *testing.T) {
	tv := &TVar{Name: "T", Upper: AnyType}
	env := Env{}.With(tv, IntType)

	sig := InstantiateSig(SigWhere([]*TVar{tv}, tv, &Vararg{Elem: tv}), env)
	if sig.Slots[0] != IntType {
		t.Errorf("slot 0 = %v, want Int", sig.Slots[0])
	}
	va, ok := sig.Slots[1].(*Vararg)
	if !ok || va.Elem != IntType {
		t.Errorf("slot 1 = %v, want Vararg{Int}", sig.Slots[1])
	}
	if len(sig.TVars) != 0 {
		t.Errorf("a fully bound signature keeps no variables")
	}
}
