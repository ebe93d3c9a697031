package types

// Oracle answers subtype questions. The flow engine is generic over this
// interface: it consumes yes/no answers and never inspects the subtype
// lattice itself. Implementations must be deterministic for a fixed
// hierarchy, since analysis results are required to be reproducible.
type Oracle interface {
	// IsSubtype reports whether t is a subtype of s.
	IsSubtype(t, s *Type) bool
}

// Hierarchy is a table-driven Oracle over declared supertype edges. It
// implements the standard nullability axioms (Never is a bottom, Null is
// below every nullable type, T below T?) plus nominal interface subtyping
// with covariant type arguments. It exists for tests and tooling; the real
// front end supplies its own oracle.
type Hierarchy struct {
	supertypes map[string][]string
}

// NewHierarchy creates a hierarchy in which every class is a subtype of
// Object.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{supertypes: make(map[string][]string)}
}

// AddClass declares a class and its direct supertypes. Object need not be
// listed; every class reaches it implicitly.
func (h *Hierarchy) AddClass(name string, supers ...string) {
	h.supertypes[name] = append(h.supertypes[name], supers...)
}

// IsSubtype reports whether t is a subtype of s.
func (h *Hierarchy) IsSubtype(t, s *Type) bool {
	if Equal(t, s) {
		return true
	}

	if t == nil || s == nil {
		return false
	}

	// Bottom and top.
	if t.Kind == KindNever {
		return true
	}

	if s.IsTop() {
		return true
	}

	if s.Kind == KindNever {
		return false
	}

	// dynamic is only below top types, handled above.
	if t.Kind == KindDynamic || t.Kind == KindVoid {
		return false
	}

	// Null is below exactly the types that admit null.
	if t.Kind == KindNull {
		return s.AdmitsNull()
	}

	// T? <: S requires both T <: S and Null <: S.
	if t.Nullable {
		return s.AdmitsNull() && h.IsSubtype(t.NonNull(), s.NonNull())
	}

	// FutureOr<A> <: S iff A <: S and Future<A> <: S.
	if op := t.FutureOrOperand(); op != nil {
		return h.IsSubtype(op, s) && h.IsSubtype(NewFuture(op), s)
	}

	// T <: FutureOr<B> iff T <: B or T <: Future<B>.
	if op := s.FutureOrOperand(); op != nil {
		return h.IsSubtype(t, op) || h.IsSubtype(t, NewFuture(op))
	}

	// T <: S? reduces to T <: S for non-null T.
	if s.Nullable {
		return h.IsSubtype(t, s.NonNull())
	}

	switch t.Kind {
	case KindFunction:
		return s.Kind == KindInterface && (s.Name == "Object" || s.Name == "Function") && len(s.Args) == 0
	case KindTypeParameter:
		// Without bound information a type parameter is only below itself
		// and Object; Equal handled the former.
		return s.Kind == KindInterface && s.Name == "Object" && len(s.Args) == 0
	case KindInterface:
		if s.Kind != KindInterface {
			return false
		}

		return h.interfaceSubtype(t, s, make(map[string]bool))
	default:
		return false
	}
}

func (h *Hierarchy) interfaceSubtype(t, s *Type, seen map[string]bool) bool {
	if t.Name == s.Name {
		if len(t.Args) != len(s.Args) {
			return false
		}

		for i := range t.Args {
			if !h.IsSubtype(t.Args[i], s.Args[i]) {
				return false
			}
		}

		return true
	}

	if s.Name == "Object" && len(s.Args) == 0 {
		return true
	}

	if seen[t.Name] {
		return false
	}
	seen[t.Name] = true

	// Declared edges erase type arguments; the test hierarchies used with
	// this oracle only relate generic classes at identical names.
	for _, super := range h.supertypes[t.Name] {
		if h.interfaceSubtype(NewInterface(super), s, seen) {
			return true
		}
	}

	return false
}
