package traitslg

// This file implements could-match clause selection: a cheap, one-sided
// structural filter that discards clauses whose consequent provably cannot
// match the goal at hand, without running full unification. A clause
// survives the walk unless some rigid position (Apply name, TraitID,
// AssocName, Placeholder identity) is provably different. Anything
// involving a variable on either side is assumed to match: could-match is
// conservative, never exact.

// CandidateClauses returns every clause, drawn from both the ambient
// Environment and the ProgramEnvironment's trait/impl database, whose
// consequent could-matches goal. Environment clauses come first, matching
// resolution order. Callers still run full unification on each candidate;
// this only prunes cheaply. ErrFloundered propagates from the program
// environment when the candidate set is not enumerable for this goal.
func CandidateClauses(env Environment, penv ProgramEnvironment, goal DomainGoal) ([]ProgramClause, error) {
	var out []ProgramClause
	for _, c := range env.Clauses {
		if couldMatchDomainGoal(c.Implication.Value.Consequent, goal) {
			out = append(out, c)
		}
	}
	program, err := penv.ClausesFor(goal)
	if err != nil {
		return nil, err
	}
	for _, c := range program {
		if couldMatchDomainGoal(c.Implication.Value.Consequent, goal) {
			out = append(out, c)
		}
	}
	return out, nil
}

func couldMatchDomainGoal(pattern, goal DomainGoal) bool {
	if pattern.Tag != goal.Tag {
		return false
	}
	switch pattern.Tag {
	case DomainHolds, DomainLocalImplAllowed:
		return couldMatchTraitRef(pattern.Trait, goal.Trait)
	case DomainObjectSafe:
		return pattern.Trait.TraitID == goal.Trait.TraitID
	case DomainWellFormed:
		if pattern.WhereClause != nil && goal.WhereClause != nil {
			return couldMatchWhereClause(*pattern.WhereClause, *goal.WhereClause)
		}
		if pattern.WhereClause == nil && goal.WhereClause == nil {
			return couldMatchTraitRef(pattern.Trait, goal.Trait)
		}
		return false
	case DomainFromEnv:
		return couldMatchWhereClause(*pattern.WhereClause, *goal.WhereClause)
	case DomainNormalize:
		return pattern.Alias.TraitID == goal.Alias.TraitID && pattern.Alias.AssocName == goal.Alias.AssocName
	default:
		return true
	}
}

func couldMatchWhereClause(pattern, goal WhereClause) bool {
	if pattern.Tag != goal.Tag {
		return false
	}
	switch pattern.Tag {
	case WhereImplemented:
		return couldMatchTraitRef(pattern.Trait, goal.Trait)
	case WhereAliasEq:
		return pattern.Alias.TraitID == goal.Alias.TraitID && pattern.Alias.AssocName == goal.Alias.AssocName
	default:
		return true
	}
}

func couldMatchTraitRef(pattern, goal TraitRef) bool {
	if pattern.TraitID != goal.TraitID || len(pattern.Substitution) != len(goal.Substitution) {
		return false
	}
	for i := range pattern.Substitution {
		if !couldMatchParameter(pattern.Substitution[i], goal.Substitution[i]) {
			return false
		}
	}
	return true
}

func couldMatchParameter(pattern, goal Parameter) bool {
	if pattern.Kind != goal.Kind {
		return false
	}
	if pattern.Kind != TyKind {
		// Lifetimes and consts never rule out a clause at this stage; a
		// mismatch there surfaces later as a regular unification failure
		// (lifetimes) or a disproof (consts), not as a could-match exclusion.
		return true
	}
	return couldMatchTy(pattern.Ty, goal.Ty)
}

func couldMatchTy(pattern, goal Ty) bool {
	// An unresolved variable on either side cannot be ruled out yet.
	if pattern.Tag == TyBound || pattern.Tag == TyInferVar {
		return true
	}
	if goal.Tag == TyBound || goal.Tag == TyInferVar {
		return true
	}
	switch pattern.Tag {
	case TyApply:
		if goal.Tag != TyApply || pattern.ApplyName != goal.ApplyName || len(pattern.ApplySubst) != len(goal.ApplySubst) {
			return false
		}
		for i := range pattern.ApplySubst {
			if !couldMatchParameter(pattern.ApplySubst[i], goal.ApplySubst[i]) {
				return false
			}
		}
		return true
	case TyPlaceholderVar:
		return goal.Tag == TyPlaceholderVar && pattern.Placeholder == goal.Placeholder
	default:
		// Aliases and fn-pointers are never used as rigid discriminators in
		// clause consequents here; don't rule them out.
		return true
	}
}
