package traitslg

import "fmt"

// UnificationResult carries the side effects of a successful unification
// that are not recorded directly in the InferenceTable: deferred subgoals
// (an alias-vs-anything unification becomes a Normalize subgoal rather than
// being resolved in place) and outlives constraints.
type UnificationResult struct {
	Goals       []Goal
	Constraints []Constraint
}

func (r *UnificationResult) addGoal(g Goal)         { r.Goals = append(r.Goals, g) }
func (r *UnificationResult) addConstraint(c Constraint) { r.Constraints = append(r.Constraints, c) }

// Unifier performs structural unification against one InferenceTable. It
// holds no state of its own beyond the table and the interner; a fresh
// Unifier per call is cheap.
type Unifier struct {
	Table    *InferenceTable
	Interner *Interner
}

// NewUnifier returns a Unifier bound to table, using interner to dedup the
// values it binds into the table (the interner is optional; a nil interner
// simply skips deduplication).
func NewUnifier(table *InferenceTable, interner *Interner) *Unifier {
	return &Unifier{Table: table, Interner: interner}
}

func (u *Unifier) internTy(t Ty) Ty {
	if u.Interner == nil {
		return t
	}
	return u.Interner.InternTy(t)
}

func (u *Unifier) internLifetime(l Lifetime) Lifetime {
	if u.Interner == nil {
		return l
	}
	return u.Interner.InternLifetime(l)
}

func (u *Unifier) internConst(c Const) Const {
	if u.Interner == nil {
		return c
	}
	return u.Interner.InternConst(c)
}

// UnifyTy attempts to make a and b equal, mutating the table and appending
// to result. It returns ErrNoSolution (never panics) when the two types are
// structurally incompatible: rigid type mismatch is a disproof, not a bug.
// Kind mismatches (a Ty unified against what the caller thinks is a
// Lifetime) are a caller error and panic; UnifyTy itself only ever compares
// two Ty values.
func (u *Unifier) UnifyTy(result *UnificationResult, a, b Ty) error {
	a = u.resolveTy(a)
	b = u.resolveTy(b)

	switch {
	case a.Tag == TyInferVar && b.Tag == TyInferVar:
		u.Table.UnifyVars(a.InferVar, b.InferVar)
		return nil
	case a.Tag == TyInferVar:
		return u.bindVarTy(a.InferVar, b)
	case b.Tag == TyInferVar:
		return u.bindVarTy(b.InferVar, a)
	case a.Tag == TyAliasVar || b.Tag == TyAliasVar:
		// Projections are never unified structurally: defer to normalization.
		// The caller (the solver) is responsible for discharging this goal by
		// normalizing the alias and re-unifying the result.
		if a.Tag == TyAliasVar {
			result.addGoal(NewDomainGoal(Normalize(*a.Alias, b)))
		} else {
			result.addGoal(NewDomainGoal(Normalize(*b.Alias, a)))
		}
		return nil
	}

	if a.Tag != b.Tag {
		return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
	}

	switch a.Tag {
	case TyBound:
		if a.Bound != b.Bound {
			return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
		}
		return nil
	case TyPlaceholderVar:
		if a.Placeholder != b.Placeholder {
			return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
		}
		return nil
	case TyApply:
		if a.ApplyName != b.ApplyName || len(a.ApplySubst) != len(b.ApplySubst) {
			return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
		}
		for i := range a.ApplySubst {
			if err := u.UnifyParameter(result, a.ApplySubst[i], b.ApplySubst[i]); err != nil {
				return err
			}
		}
		return nil
	case TyFnPointer:
		af, bf := a.FnPtr, b.FnPtr
		if af.ABI != bf.ABI || af.Safe != bf.Safe || af.Variadic != bf.Variadic || af.NumBinders != bf.NumBinders {
			return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
		}
		if len(af.Substitution) != len(bf.Substitution) {
			return fmt.Errorf("%w: %s vs %s", ErrNoSolution, a, b)
		}
		for i := range af.Substitution {
			if err := u.UnifyParameter(result, af.Substitution[i], bf.Substitution[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		panic("traitslg: UnifyTy: unreachable tag")
	}
}

// UnifyLifetime makes a and b equal, or (if both are concrete and distinct)
// records an outlives Constraint rather than failing: two distinct rigid
// lifetimes are never a unification failure in this model, only a
// side-condition for the caller to eventually discharge.
func (u *Unifier) UnifyLifetime(result *UnificationResult, a, b Lifetime) error {
	a = u.resolveLifetime(a)
	b = u.resolveLifetime(b)

	switch {
	case a.Tag == LtInferVar && b.Tag == LtInferVar:
		u.Table.UnifyVars(a.InferVar, b.InferVar)
		return nil
	case a.Tag == LtInferVar:
		u.Table.BindLifetime(a.InferVar, u.internLifetime(b))
		return nil
	case b.Tag == LtInferVar:
		u.Table.BindLifetime(b.InferVar, u.internLifetime(a))
		return nil
	case a == b:
		return nil
	case a.Tag == LtStatic:
		// 'static outlives everything; there is no useful reverse obligation,
		// so only the one direction is recorded.
		result.addConstraint(Constraint{Long: b, Short: a})
		return nil
	case b.Tag == LtStatic:
		result.addConstraint(Constraint{Long: a, Short: b})
		return nil
	default:
		result.addConstraint(Constraint{Long: a, Short: b})
		result.addConstraint(Constraint{Long: b, Short: a})
		return nil
	}
}

// UnifyConst makes a and b equal. Const values are never evaluated, only
// compared: two distinct concrete values never unify.
func (u *Unifier) UnifyConst(result *UnificationResult, a, b Const) error {
	if a.Tag == TyInferVar {
		if bound, ok := u.Table.ProbeConst(a.InferVar); ok {
			return u.UnifyConst(result, bound, b)
		}
	}
	if b.Tag == TyInferVar {
		if bound, ok := u.Table.ProbeConst(b.InferVar); ok {
			return u.UnifyConst(result, a, bound)
		}
	}
	switch {
	case a.Tag == TyInferVar && b.Tag == TyInferVar:
		u.Table.UnifyVars(a.InferVar, b.InferVar)
		return nil
	case a.Tag == TyInferVar:
		u.Table.BindConst(a.InferVar, u.internConst(b))
		return nil
	case b.Tag == TyInferVar:
		u.Table.BindConst(b.InferVar, u.internConst(a))
		return nil
	case a.Tag == TyBound:
		if a.Bound != b.Bound {
			return fmt.Errorf("%w: const %s vs %s", ErrNoSolution, a, b)
		}
		return nil
	case a.Tag == TyPlaceholderVar:
		if a.Placeholder != b.Placeholder {
			return fmt.Errorf("%w: const %s vs %s", ErrNoSolution, a, b)
		}
		return nil
	default:
		if a.Value != b.Value {
			return fmt.Errorf("%w: const %v vs %v", ErrNoSolution, a.Value, b.Value)
		}
		return nil
	}
}

// UnifyParameter dispatches to UnifyTy/UnifyLifetime/UnifyConst, panicking
// if the two parameters carry different kinds: a mismatch the clause
// selection and substitution machinery should have already ruled out.
func (u *Unifier) UnifyParameter(result *UnificationResult, a, b Parameter) error {
	if a.Kind != b.Kind {
		panic("traitslg: UnifyParameter: kind mismatch")
	}
	switch a.Kind {
	case TyKind:
		return u.UnifyTy(result, a.Ty, b.Ty)
	case LifetimeKind:
		return u.UnifyLifetime(result, a.Lt, b.Lt)
	default:
		return u.UnifyConst(result, a.Ct, b.Ct)
	}
}

// UnifyTraitRef unifies two trait references of the same TraitID,
// parameter-wise.
func (u *Unifier) UnifyTraitRef(result *UnificationResult, a, b TraitRef) error {
	if a.TraitID != b.TraitID || len(a.Substitution) != len(b.Substitution) {
		return fmt.Errorf("%w: trait ref mismatch", ErrNoSolution)
	}
	for i := range a.Substitution {
		if err := u.UnifyParameter(result, a.Substitution[i], b.Substitution[i]); err != nil {
			return err
		}
	}
	return nil
}

// UnifyWhereClause unifies two where-clauses of the same shape.
func (u *Unifier) UnifyWhereClause(result *UnificationResult, a, b WhereClause) error {
	if a.Tag != b.Tag {
		return fmt.Errorf("%w: where-clause shape mismatch", ErrNoSolution)
	}
	switch a.Tag {
	case WhereImplemented:
		return u.UnifyTraitRef(result, a.Trait, b.Trait)
	case WhereAliasEq:
		if a.Alias.TraitID != b.Alias.TraitID || a.Alias.AssocName != b.Alias.AssocName {
			return fmt.Errorf("%w: alias mismatch", ErrNoSolution)
		}
		if len(a.Alias.Substitution) != len(b.Alias.Substitution) {
			return fmt.Errorf("%w: alias substitution arity mismatch", ErrNoSolution)
		}
		for i := range a.Alias.Substitution {
			if err := u.UnifyParameter(result, a.Alias.Substitution[i], b.Alias.Substitution[i]); err != nil {
				return err
			}
		}
		return u.UnifyTy(result, a.Ty, b.Ty)
	default:
		panic("traitslg: UnifyWhereClause: unreachable tag")
	}
}

// UnifyDomainGoal unifies two domain goals of the same shape, the step that
// matches a candidate clause's consequent against the goal it is being used
// to prove.
func (u *Unifier) UnifyDomainGoal(result *UnificationResult, a, b DomainGoal) error {
	if a.Tag != b.Tag {
		return fmt.Errorf("%w: domain goal shape mismatch", ErrNoSolution)
	}
	switch a.Tag {
	case DomainHolds, DomainLocalImplAllowed:
		return u.UnifyTraitRef(result, a.Trait, b.Trait)
	case DomainObjectSafe:
		if a.Trait.TraitID != b.Trait.TraitID {
			return fmt.Errorf("%w: object-safe trait mismatch", ErrNoSolution)
		}
		return nil
	case DomainWellFormed:
		if a.WhereClause != nil && b.WhereClause != nil {
			return u.UnifyWhereClause(result, *a.WhereClause, *b.WhereClause)
		}
		if a.WhereClause == nil && b.WhereClause == nil {
			return u.UnifyTraitRef(result, a.Trait, b.Trait)
		}
		return fmt.Errorf("%w: well-formed shape mismatch", ErrNoSolution)
	case DomainFromEnv:
		return u.UnifyWhereClause(result, *a.WhereClause, *b.WhereClause)
	case DomainNormalize:
		if a.Alias.TraitID != b.Alias.TraitID || a.Alias.AssocName != b.Alias.AssocName {
			return fmt.Errorf("%w: normalize alias mismatch", ErrNoSolution)
		}
		if len(a.Alias.Substitution) != len(b.Alias.Substitution) {
			return fmt.Errorf("%w: normalize alias arity mismatch", ErrNoSolution)
		}
		for i := range a.Alias.Substitution {
			if err := u.UnifyParameter(result, a.Alias.Substitution[i], b.Alias.Substitution[i]); err != nil {
				return err
			}
		}
		return u.UnifyTy(result, a.NormalizeTo, b.NormalizeTo)
	default:
		panic("traitslg: UnifyDomainGoal: unreachable tag")
	}
}

// bindVarTy binds v to ty after an occurs check and a universe ("skolem
// escape") check: ty must not mention v itself, and every placeholder it
// mentions must live in a universe v can see.
func (u *Unifier) bindVarTy(v InferenceVar, ty Ty) error {
	if occursInTy(u.Table, v, ty) {
		return fmt.Errorf("%w: occurs check failed for %s in %s", ErrNoSolution, v, ty)
	}
	varUniverse := u.Table.Universe(v)
	if esc, ok := escapingPlaceholderTy(ty, varUniverse); ok {
		return fmt.Errorf("%w: placeholder %s escapes universe of %s", ErrNoSolution, esc, v)
	}
	u.Table.BindTy(v, u.internTy(ty))
	return nil
}

func (u *Unifier) resolveTy(t Ty) Ty {
	for t.Tag == TyInferVar {
		bound, ok := u.Table.ProbeTy(t.InferVar)
		if !ok {
			return t
		}
		t = bound
	}
	return t
}

func (u *Unifier) resolveLifetime(l Lifetime) Lifetime {
	for l.Tag == LtInferVar {
		bound, ok := u.Table.ProbeLifetime(l.InferVar)
		if !ok {
			return l
		}
		l = bound
	}
	return l
}

func occursInTy(t *InferenceTable, v InferenceVar, ty Ty) bool {
	switch ty.Tag {
	case TyInferVar:
		if ty.InferVar == v {
			return true
		}
		if bound, ok := t.ProbeTy(ty.InferVar); ok {
			return occursInTy(t, v, bound)
		}
		return false
	case TyApply:
		return occursInParams(t, v, ty.ApplySubst)
	case TyAliasVar:
		return occursInParams(t, v, ty.Alias.Substitution)
	case TyFnPointer:
		return occursInParams(t, v, ty.FnPtr.Substitution)
	default:
		return false
	}
}

func occursInParams(t *InferenceTable, v InferenceVar, ps []Parameter) bool {
	for _, p := range ps {
		if p.Kind == TyKind && occursInTy(t, v, p.Ty) {
			return true
		}
	}
	return false
}

// escapingPlaceholderTy returns the first placeholder (type or lifetime)
// reachable from ty whose universe is not visible from universe u, if any,
// for the universe-escape check.
func escapingPlaceholderTy(ty Ty, u UniverseIndex) (Placeholder, bool) {
	switch ty.Tag {
	case TyPlaceholderVar:
		if !ty.Placeholder.Universe.CanReach(u) {
			return ty.Placeholder, true
		}
		return Placeholder{}, false
	case TyApply:
		return escapingPlaceholderParams(ty.ApplySubst, u)
	case TyAliasVar:
		return escapingPlaceholderParams(ty.Alias.Substitution, u)
	case TyFnPointer:
		return escapingPlaceholderParams(ty.FnPtr.Substitution, u)
	default:
		return Placeholder{}, false
	}
}

func escapingPlaceholderParams(ps []Parameter, u UniverseIndex) (Placeholder, bool) {
	for _, p := range ps {
		switch p.Kind {
		case TyKind:
			if ph, ok := escapingPlaceholderTy(p.Ty, u); ok {
				return ph, true
			}
		case LifetimeKind:
			if p.Lt.Tag == LtPlaceholderVar && !p.Lt.Placeholder.Universe.CanReach(u) {
				return p.Lt.Placeholder, true
			}
		}
	}
	return Placeholder{}, false
}
