package typesystem

import (
	"testing"
)

func TestNominalChain(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"Int<:Real", IntType, RealType, true},
		{"Int<:Number", IntType, NumberType, true},
		{"Int<:Any", IntType, AnyType, true},
		{"Real<:Int fails", RealType, IntType, false},
		{"String<:Number fails", StringType, NumberType, false},
		{"Float<:Real", FloatType, RealType, true},
		{"reflexive", IntType, IntType, true},
		{"Bool<:Any", BoolType, AnyType, true},
	}
	for _, tt := range tests {
		if got := Subtype(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Subtype(%s, %s) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestUnionSubtype(t *testing.T) {
	intOrStr := MkUnion(IntType, StringType)

	if !Subtype(IntType, intOrStr) {
		t.Errorf("Int should be a subtype of Union{Int, String}")
	}
	if !Subtype(intOrStr, AnyType) {
		t.Errorf("a union is a subtype of Any")
	}
	if Subtype(intOrStr, IntType) {
		t.Errorf("Union{Int, String} is not a subtype of Int")
	}
	if !Subtype(MkUnion(IntType, FloatType), RealType) {
		t.Errorf("Union{Int, Float64} should be a subtype of Real")
	}
	if !Subtype(BottomType, IntType) {
		t.Errorf("the empty union is a subtype of everything")
	}
}

func TestTypeTypeSubtype(t *testing.T) {
	tInt := MkTypeType(IntType)
	tReal := MkTypeType(RealType)

	if !Subtype(tInt, DataTypeType) {
		t.Errorf("Type{Int} is a value of the kind")
	}
	if !Subtype(tInt, AnyType) {
		t.Errorf("Type{Int} <: Any")
	}
	if Subtype(tInt, tReal) {
		t.Errorf("the selected type is invariant: Type{Int} is not <: Type{Real}")
	}
	if !Subtype(tInt, TypeTypeT) {
		t.Errorf("Type{Int} should match the generic Type{T}")
	}
	if Subtype(IntType, tInt) {
		t.Errorf("Int is not a Type{Int} value")
	}
}

func TestTVarSubtype(t *testing.T) {
	tv := &TVar{Name: "T", Upper: RealType}
	if !Subtype(tv, NumberType) {
		t.Errorf("a variable acts as its upper bound on the left")
	}
	if Subtype(tv, IntType) {
		t.Errorf("T<:Real is not under Int")
	}
	if !Subtype(IntType, tv) {
		t.Errorf("Int should fall under T<:Real")
	}
}

func TestSigSubtype(t *testing.T) {
	tests := []struct {
		name string
		a, b *Signature
		want bool
	}{
		{"exact", Sig(IntType, IntType), Sig(IntType, IntType), true},
		{"widening", Sig(IntType, IntType), Sig(RealType, RealType), true},
		{"narrowing fails", Sig(RealType, RealType), Sig(IntType, IntType), false},
		{"arity mismatch", Sig(IntType), Sig(IntType, IntType), false},
		{"fixed under vararg", Sig(IntType, IntType, IntType), Sig(&Vararg{Elem: RealType}), true},
		{"vararg not under fixed", Sig(&Vararg{Elem: IntType}), Sig(IntType, IntType), false},
		{"vararg under wider vararg", Sig(IntType, &Vararg{Elem: IntType}), Sig(&Vararg{Elem: RealType}), true},
		{"short fixed misses vararg min", Sig(IntType), Sig(IntType, IntType, &Vararg{Elem: IntType}), false},
	}
	for _, tt := range tests {
		if got := SigSubtype(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: SigSubtype(%s, %s) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatchSigBindsVars(t *testing.T) {
	tv := &TVar{Name: "T", Upper: AnyType}
	decl := SigWhere([]*TVar{tv}, tv, tv)

	env, ok := MatchSig(Sig(IntType, IntType), decl)
	if !ok {
		t.Fatalf("(Int, Int) should match (T, T)")
	}
	if b, _ := env.Lookup(tv); b != IntType {
		t.Errorf("T should be bound to Int, got %v", b)
	}

	if _, ok := MatchSig(Sig(IntType, StringType), decl); ok {
		t.Errorf("(Int, String) must not match (T, T)")
	}
}

func TestMatchSigTypeType(t *testing.T) {
	tv := &TVar{Name: "T", Upper: AnyType}
	decl := SigWhere([]*TVar{tv}, MkTypeType(tv))

	env, ok := MatchSig(Sig(MkTypeType(IntType)), decl)
	if !ok {
		t.Fatalf("Type{Int} should match Type{T}")
	}
	if b, _ := env.Lookup(tv); b != IntType {
		t.Errorf("T should be bound to Int through the selector, got %v", b)
	}
}

func TestInternerIdentity(t *testing.T) {
	a := Register("Int", nil, false)
	if a != IntType {
		t.Errorf("re-registering a name must return the canonical constructor")
	}
	if MkTypeType(IntType) != MkTypeType(IntType) {
		t.Errorf("Type{Int} should intern to a single pointer")
	}
}

func TestLeafSignatures(t *testing.T) {
	if !Sig(IntType, StringType).IsLeaf() {
		t.Errorf("(Int, String) is a leaf signature")
	}
	if Sig(RealType).IsLeaf() {
		t.Errorf("an abstract slot is not a leaf")
	}
	if Sig(IntType, &Vararg{Elem: IntType}).IsLeaf() {
		t.Errorf("a vararg slot is not a leaf")
	}
	if Sig(MkTypeType(IntType)).IsLeaf() {
		t.Errorf("a Type{} slot is not a leaf")
	}
}
