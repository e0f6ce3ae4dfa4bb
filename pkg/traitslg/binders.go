package traitslg

// Binders wraps a value of type T under an ordered list of variable kinds.
// Body's BoundVar(0, k) refers to the k-th entry of ParameterKinds. Binders
// are introduced by entering a quantifier: existential binders open fresh
// inference variables in the current universe, universal binders open a new
// universe and fresh placeholders.
type Binders[T any] struct {
	ParameterKinds []ParameterKind
	Value          T
}

// NewBinders wraps value under the given parameter kinds.
func NewBinders[T any](kinds []ParameterKind, value T) Binders[T] {
	return Binders[T]{ParameterKinds: kinds, Value: value}
}

// Len returns the number of binder slots.
func (b Binders[T]) Len() int { return len(b.ParameterKinds) }

// Canonical is like Binders, but the binders are inference variables
// extracted from a concrete state rather than written by hand: the body
// contains no free inference variables, only BoundVars referring to the
// extracted prefix. Canonical values are snapshots: they outlive the
// inference table that produced them and may be re-instantiated into any
// fresh table.
type Canonical[T any] struct {
	Binders Binders[T]
}

func (c Canonical[T]) Kinds() []ParameterKind { return c.Binders.ParameterKinds }
func (c Canonical[T]) Value() T               { return c.Binders.Value }

// UniverseMap records how a Canonical value's occurring universes were
// compacted into a dense 0..N prefix by u_canonicalize, so that answers
// produced against the compacted universes can be mapped back to the
// caller's original universes.
type UniverseMap struct {
	// ToCompacted maps an original universe to its compacted index.
	ToCompacted map[UniverseIndex]UniverseIndex
	// ToOriginal is the inverse mapping, indexed by compacted index.
	ToOriginal []UniverseIndex
}

// Map translates an original universe into its compacted counterpart. If
// the universe was never seen, it maps to universe 0 (the root is always
// index 0 in both spaces).
func (m UniverseMap) Map(u UniverseIndex) UniverseIndex {
	if c, ok := m.ToCompacted[u]; ok {
		return c
	}
	return Root
}

// MapBack translates a compacted universe index back to its original
// universe. Out-of-range indices map to Root.
func (m UniverseMap) MapBack(u UniverseIndex) UniverseIndex {
	if int(u) < len(m.ToOriginal) {
		return m.ToOriginal[u]
	}
	return Root
}

// UCanonical is a Canonical value whose occurring universes have been
// compacted to a dense 0..N prefix, suitable as a table key: two goals that
// differ only in the concrete (but not the relative) numbering of their
// universes hash and compare equal.
type UCanonical[T any] struct {
	Canonical   Canonical[T]
	UniverseMap UniverseMap
}

func (u UCanonical[T]) Kinds() []ParameterKind { return u.Canonical.Kinds() }
func (u UCanonical[T]) Value() T               { return u.Canonical.Value() }
