package types

import "testing"

func testHierarchy() *Hierarchy {
	h := NewHierarchy()
	h.AddClass("num")
	h.AddClass("int", "num")
	h.AddClass("double", "num")
	h.AddClass("String", "Comparable")
	h.AddClass("Comparable")
	h.AddClass("Future")

	return h
}

func TestEqual(t *testing.T) {
	if !Equal(NewInterface("int"), NewInterface("int")) {
		t.Error("identical interface types should be equal")
	}

	if Equal(NewInterface("int"), NewInterface("int").AsNullable()) {
		t.Error("int and int? should not be equal")
	}

	if Equal(NewInterface("List", NewInterface("int")), NewInterface("List", NewInterface("num"))) {
		t.Error("List<int> and List<num> should not be equal")
	}

	if !Equal(NewFutureOr(NewInterface("int")), NewFutureOr(NewInterface("int"))) {
		t.Error("identical FutureOr types should be equal")
	}
}

func TestNonNull(t *testing.T) {
	str := NewInterface("String")

	if got := str.AsNullable().NonNull(); !Equal(got, str) {
		t.Errorf("NonNull(String?) = %s, want String", got)
	}

	if got := Null.NonNull(); !Equal(got, Never) {
		t.Errorf("NonNull(Null) = %s, want Never", got)
	}

	if got := str.NonNull(); got != str {
		t.Error("NonNull of a non-nullable type should return it unchanged")
	}
}

func TestHierarchySubtyping(t *testing.T) {
	h := testHierarchy()
	intT := NewInterface("int")
	numT := NewInterface("num")
	strT := NewInterface("String")

	tests := []struct {
		name string
		sub  *Type
		sup  *Type
		want bool
	}{
		{"reflexive", intT, intT, true},
		{"declared edge", intT, numT, true},
		{"reverse edge", numT, intT, false},
		{"unrelated", intT, strT, false},
		{"everything below Object?", strT, NullableObject, true},
		{"class below Object", strT, Object, true},
		{"Never bottom", Never, strT, true},
		{"Null below nullable", Null, strT.AsNullable(), true},
		{"Null not below non-nullable", Null, strT, false},
		{"T below T?", strT, strT.AsNullable(), true},
		{"T? not below T", strT.AsNullable(), strT, false},
		{"nullable below nullable super", intT.AsNullable(), numT.AsNullable(), true},
		{"dynamic only below tops", Dynamic, strT, false},
		{"dynamic below Object?", Dynamic, NullableObject, true},
		{"covariant args", NewInterface("List", intT), NewInterface("List", numT), true},
		{"contra args rejected", NewInterface("List", numT), NewInterface("List", intT), false},
		{"int below FutureOr<num>", intT, NewFutureOr(numT), true},
		{"Future<int> below FutureOr<num>", NewFuture(intT), NewFutureOr(numT), true},
		{"FutureOr<int> below FutureOr<num>", NewFutureOr(intT), NewFutureOr(numT), true},
		{"FutureOr<int> not below num", NewFutureOr(intT), numT, false},
		{"function below Function", NewFunction(Void), NewInterface("Function"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := h.IsSubtype(test.sub, test.sup); got != test.want {
				t.Errorf("IsSubtype(%s, %s) = %v, want %v", test.sub, test.sup, got, test.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ      *Type
		expected string
	}{
		{NewInterface("int"), "int"},
		{NewInterface("String").AsNullable(), "String?"},
		{NewInterface("Map", NewInterface("String"), NewInterface("int")), "Map<String, int>"},
		{NewFutureOr(NewInterface("int")), "FutureOr<int>"},
		{NewFunction(Void, NewInterface("int")), "void Function(int)"},
		{Never, "Never"},
		{Dynamic, "dynamic"},
	}

	for _, test := range tests {
		if got := test.typ.String(); got != test.expected {
			t.Errorf("String() = %q, want %q", got, test.expected)
		}
	}
}
