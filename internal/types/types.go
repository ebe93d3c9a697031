// Package types defines the static type representation consumed by the
// Lumen flow analysis engine. Types form a closed set of kinds so that
// promotion and nullability logic can match exhaustively; the engine never
// computes bounds or performs inference, it only compares types through the
// subtype oracle.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a type.
type Kind int

const (
	KindInterface Kind = iota
	KindFunction
	KindTypeParameter
	KindNever
	KindNull
	KindDynamic
	KindVoid
	KindFutureOr
)

func (k Kind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindFunction:
		return "function"
	case KindTypeParameter:
		return "type parameter"
	case KindNever:
		return "Never"
	case KindNull:
		return "Null"
	case KindDynamic:
		return "dynamic"
	case KindVoid:
		return "void"
	case KindFutureOr:
		return "FutureOr"
	default:
		return "unknown"
	}
}

// Type is an immutable type value. The zero value is not a valid type; use
// the constructors below. Nullable marks the `T?` variant of the underlying
// type and is meaningless for Null, dynamic and void, which already admit
// null.
type Type struct {
	Kind     Kind
	Name     string  // interface or type parameter name
	Args     []*Type // interface type arguments; FutureOr operand is Args[0]
	Params   []*Type // function parameter types
	Result   *Type   // function result type
	Nullable bool
}

// Interned sentinel types. These are recognizable by pointer identity as
// well as by Equal; the flow engine treats them as opaque values otherwise.
var (
	Object         = &Type{Kind: KindInterface, Name: "Object"}
	NullableObject = &Type{Kind: KindInterface, Name: "Object", Nullable: true}
	Null           = &Type{Kind: KindNull, Name: "Null"}
	Never          = &Type{Kind: KindNever, Name: "Never"}
	Dynamic        = &Type{Kind: KindDynamic, Name: "dynamic"}
	Void           = &Type{Kind: KindVoid, Name: "void"}
)

// NewInterface creates an interface type with the given type arguments.
func NewInterface(name string, args ...*Type) *Type {
	return &Type{Kind: KindInterface, Name: name, Args: args}
}

// NewTypeParameter creates a reference to a declared type parameter.
func NewTypeParameter(name string) *Type {
	return &Type{Kind: KindTypeParameter, Name: name}
}

// NewFunction creates a function type.
func NewFunction(result *Type, params ...*Type) *Type {
	return &Type{Kind: KindFunction, Name: "Function", Params: params, Result: result}
}

// NewFutureOr creates FutureOr<operand>.
func NewFutureOr(operand *Type) *Type {
	return &Type{Kind: KindFutureOr, Name: "FutureOr", Args: []*Type{operand}}
}

// NewFuture creates Future<operand>.
func NewFuture(operand *Type) *Type {
	return &Type{Kind: KindInterface, Name: "Future", Args: []*Type{operand}}
}

// FutureOrOperand returns T for FutureOr<T>, or nil when the type is not a
// FutureOr.
func (t *Type) FutureOrOperand() *Type {
	if t.Kind != KindFutureOr || len(t.Args) != 1 {
		return nil
	}

	return t.Args[0]
}

// AsNullable returns the `T?` variant of this type. Null, dynamic and void
// are returned unchanged.
func (t *Type) AsNullable() *Type {
	switch t.Kind {
	case KindNull, KindDynamic, KindVoid:
		return t
	}

	if t.Nullable {
		return t
	}

	clone := *t
	clone.Nullable = true

	return &clone
}

// NonNull strips nullability: `T?` becomes T, Null becomes Never. Types
// that do not admit null are returned unchanged.
func (t *Type) NonNull() *Type {
	if t.Kind == KindNull {
		return Never
	}

	if !t.Nullable {
		return t
	}

	clone := *t
	clone.Nullable = false

	return &clone
}

// AdmitsNull reports whether a value of this type may be null. This drives
// both the implicit-null-return rule for missing-return findings and the
// null/notNull split of expression analysis.
func (t *Type) AdmitsNull() bool {
	switch t.Kind {
	case KindNull, KindDynamic, KindVoid:
		return true
	case KindFutureOr:
		return t.Nullable || t.Args[0].AdmitsNull()
	default:
		return t.Nullable
	}
}

// IsTop reports whether every type is a subtype of t.
func (t *Type) IsTop() bool {
	switch t.Kind {
	case KindDynamic, KindVoid:
		return true
	case KindInterface:
		return t.Name == "Object" && t.Nullable && len(t.Args) == 0
	case KindFutureOr:
		return t.Args[0].IsTop()
	default:
		return false
	}
}

// Equal reports structural equality of two types.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}

	if a == nil || b == nil {
		return false
	}

	if a.Kind != b.Kind || a.Name != b.Name || a.Nullable != b.Nullable {
		return false
	}

	if len(a.Args) != len(b.Args) || len(a.Params) != len(b.Params) {
		return false
	}

	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}

	for i := range a.Params {
		if !Equal(a.Params[i], b.Params[i]) {
			return false
		}
	}

	return Equal(a.Result, b.Result)
}

// String renders the type in source notation.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	var sb strings.Builder

	switch t.Kind {
	case KindFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.String()
		}

		fmt.Fprintf(&sb, "%s Function(%s)", t.Result, strings.Join(params, ", "))
	case KindFutureOr:
		fmt.Fprintf(&sb, "FutureOr<%s>", t.Args[0])
	default:
		sb.WriteString(t.Name)

		if len(t.Args) > 0 {
			args := make([]string, len(t.Args))
			for i, a := range t.Args {
				args[i] = a.String()
			}

			fmt.Fprintf(&sb, "<%s>", strings.Join(args, ", "))
		}
	}

	if t.Nullable {
		sb.WriteByte('?')
	}

	return sb.String()
}
