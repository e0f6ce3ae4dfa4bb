// Package traitslg implements the core logic solver of a Prolog-style prover
// for a Rust-like trait system: a term model with DeBruijn-indexed binders, a
// union-find inference table over universe-tagged variables, a structural
// unifier, and two resolution engines (SLG tabling and a recursive
// fixed-point solver) that answer goals of the form "does T satisfy Tr?".
//
// The package follows the concurrency and ownership idioms of a tabled
// logic-programming engine: terms are interned and immutable after
// construction, inference tables exclusively own their union-find state, and
// the SLG forest exclusively owns its tables and strands.
package traitslg

import "fmt"

// UniverseIndex is a non-negative universe level. The root universe is 0;
// universes grow monotonically as new universal (forall) binders open.
type UniverseIndex uint32

// Root is the outermost universe, containing no placeholders.
const Root UniverseIndex = 0

// Next returns the universe one level deeper than u.
func (u UniverseIndex) Next() UniverseIndex { return u + 1 }

// CanReach reports whether a value living in universe u may be referenced
// from a binding site whose variable lives in universe other (i.e. u <= other).
func (u UniverseIndex) CanReach(other UniverseIndex) bool { return u <= other }

// DebruijnIndex counts binders crossed between a use site and the binder
// that introduces it; 0 refers to the nearest enclosing binder.
type DebruijnIndex uint32

// INNERMOST refers to the nearest-enclosing binder.
const INNERMOST DebruijnIndex = 0

// Shifted returns the index as seen from outer_binder additional binders out.
func (d DebruijnIndex) Shifted(by uint32) DebruijnIndex { return d + DebruijnIndex(by) }

// BoundVar names one slot of the nearest-enclosing binder at a given depth.
type BoundVar struct {
	Debruijn DebruijnIndex
	Index    uint32
}

func (b BoundVar) String() string { return fmt.Sprintf("^%d.%d", b.Debruijn, b.Index) }

// Shifted returns b as seen from `by` additional binders out, leaving the
// slot position unchanged.
func (b BoundVar) Shifted(by uint32) BoundVar {
	return BoundVar{Debruijn: b.Debruijn.Shifted(by), Index: b.Index}
}

// Placeholder is a skolemized universal variable: concrete, but tagged with
// the universe it was introduced in. It can never unify with a variable of a
// strictly lower universe (the "skolem escape" check).
type Placeholder struct {
	Universe UniverseIndex
	Index    uint32
}

func (p Placeholder) String() string { return fmt.Sprintf("!%d.%d", p.Universe, p.Index) }

// InferenceVar is an opaque handle into exactly one InferenceTable's
// union-find state. It may be bound exactly once.
type InferenceVar struct {
	id uint64
}

func (v InferenceVar) String() string { return fmt.Sprintf("?%d", v.id) }

// ParameterKind distinguishes the three kinds of generic parameters. It is
// preserved by every fold/substitution/unification operation.
type ParameterKind int

const (
	TyKind ParameterKind = iota
	LifetimeKind
	ConstKind
)

func (k ParameterKind) String() string {
	switch k {
	case TyKind:
		return "type"
	case LifetimeKind:
		return "lifetime"
	case ConstKind:
		return "const"
	default:
		return "unknown"
	}
}

// TraitID and AdtID are opaque interned identifiers for trait and
// struct/enum declarations, supplied by the program environment.
type TraitID uint32
type AdtID uint32

// TyTag enumerates the closed set of type variants. New variants must be
// added here, in Ty's fields, and in every fold/visit switch: the point of
// a closed enumeration is that a missing case is caught at construction,
// not silently ignored at traversal time.
type TyTag int

const (
	TyApply TyTag = iota // Apply(name, substitution): e.g. Vec<T>, Foo
	TyBound               // a BoundVar reference
	TyInferVar            // an inference variable
	TyPlaceholderVar       // a skolemized placeholder
	TyAliasVar             // <T as Tr>::Item, deferred to normalization
	TyFnPointer            // fn(A,B) -> C
)

// Ty is a type term. Exactly one of the fields matching Tag is meaningful;
// keeping the sum in a single struct makes Ty a comparable, internable
// value (no interface boxing needed for the common cases).
type Ty struct {
	Tag TyTag

	// TyApply
	ApplyName string
	ApplySubst []Parameter

	// TyBound
	Bound BoundVar

	// TyInferVar
	InferVar InferenceVar

	// TyPlaceholderVar
	Placeholder Placeholder

	// TyAliasVar
	Alias *AliasTy

	// TyFnPointer
	FnPtr *FnPointer
}

// AliasTy is a projection `<Self as Trait<P..>>::AssocName`.
type AliasTy struct {
	TraitID  TraitID
	AssocName string
	Substitution []Parameter
}

// FnPointer is a function-pointer type, universally quantified over
// NumBinders additional lifetime parameters (`for<'a> fn(&'a T) -> U`).
// BoundVars inside Substitution at depth 0 refer to those lifetimes before
// referring to anything bound further out.
type FnPointer struct {
	ABI        string
	Safe       bool
	Variadic   bool
	NumBinders uint32
	Substitution []Parameter // argument types followed by the return type
}

func NewTyApply(name string, subst ...Parameter) Ty {
	return Ty{Tag: TyApply, ApplyName: name, ApplySubst: subst}
}
func NewTyBound(b BoundVar) Ty             { return Ty{Tag: TyBound, Bound: b} }
func NewTyInferVar(v InferenceVar) Ty      { return Ty{Tag: TyInferVar, InferVar: v} }
func NewTyPlaceholder(p Placeholder) Ty    { return Ty{Tag: TyPlaceholderVar, Placeholder: p} }
func NewTyAlias(a AliasTy) Ty              { return Ty{Tag: TyAliasVar, Alias: &a} }
func NewTyFnPointer(f FnPointer) Ty        { return Ty{Tag: TyFnPointer, FnPtr: &f} }

func (t Ty) String() string {
	switch t.Tag {
	case TyApply:
		if len(t.ApplySubst) == 0 {
			return t.ApplyName
		}
		return fmt.Sprintf("%s<%s>", t.ApplyName, joinParams(t.ApplySubst))
	case TyBound:
		return t.Bound.String()
	case TyInferVar:
		return t.InferVar.String()
	case TyPlaceholderVar:
		return t.Placeholder.String()
	case TyAliasVar:
		return t.Alias.String()
	case TyFnPointer:
		f := t.FnPtr
		return fmt.Sprintf("fn:%s:%v:%v:%d(%s)", f.ABI, f.Safe, f.Variadic, f.NumBinders, joinParams(f.Substitution))
	default:
		return "<ty?>"
	}
}

// LtTag enumerates the closed set of lifetime variants.
type LtTag int

const (
	LtBound LtTag = iota
	LtInferVar
	LtPlaceholderVar
	LtStatic
)

// Lifetime is a lifetime term.
type Lifetime struct {
	Tag         LtTag
	Bound       BoundVar
	InferVar    InferenceVar
	Placeholder Placeholder
}

func NewLtBound(b BoundVar) Lifetime          { return Lifetime{Tag: LtBound, Bound: b} }
func NewLtInferVar(v InferenceVar) Lifetime   { return Lifetime{Tag: LtInferVar, InferVar: v} }
func NewLtPlaceholder(p Placeholder) Lifetime { return Lifetime{Tag: LtPlaceholderVar, Placeholder: p} }
func StaticLifetime() Lifetime                { return Lifetime{Tag: LtStatic} }

func (l Lifetime) String() string {
	switch l.Tag {
	case LtBound:
		return "'" + l.Bound.String()
	case LtInferVar:
		return "'" + l.InferVar.String()
	case LtPlaceholderVar:
		return "'" + l.Placeholder.String()
	case LtStatic:
		return "'static"
	default:
		return "'?"
	}
}

// Const is a const-generic term. The core only needs to preserve its kind
// and carry it through folds/unification; it never evaluates constants.
type Const struct {
	Tag      TyTag // reuses TyBound/TyInferVar/TyPlaceholderVar/TyApply (as a literal value holder)
	Bound    BoundVar
	InferVar InferenceVar
	Placeholder Placeholder
	Value    interface{} // concrete literal, when Tag == TyApply
}

func (c Const) String() string {
	switch c.Tag {
	case TyBound:
		return c.Bound.String()
	case TyInferVar:
		return c.InferVar.String()
	case TyPlaceholderVar:
		return c.Placeholder.String()
	default:
		return fmt.Sprintf("%v", c.Value)
	}
}

// Parameter is a kind-tagged generic argument: a Ty, a Lifetime, or a Const.
// The kind is preserved across every fold, substitution, and unification
// step; mixing kinds at a substitution site is a programming error (panic),
// never a NoSolution.
type Parameter struct {
	Kind ParameterKind
	Ty   Ty
	Lt   Lifetime
	Ct   Const
}

func ParamTy(t Ty) Parameter       { return Parameter{Kind: TyKind, Ty: t} }
func ParamLifetime(l Lifetime) Parameter { return Parameter{Kind: LifetimeKind, Lt: l} }
func ParamConst(c Const) Parameter { return Parameter{Kind: ConstKind, Ct: c} }

func (p Parameter) String() string {
	switch p.Kind {
	case TyKind:
		return p.Ty.String()
	case LifetimeKind:
		return p.Lt.String()
	case ConstKind:
		return p.Ct.String()
	default:
		return "<param?>"
	}
}

func joinParams(ps []Parameter) string {
	s := ""
	for i, p := range ps {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}
