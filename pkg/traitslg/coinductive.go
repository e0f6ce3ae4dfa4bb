package traitslg

// IsCoinductiveGoal classifies a domain goal as coinductive or inductive.
// A coinductive goal discovered to depend on itself (directly or through a
// chain of coinductive goals) is treated as proved by assumption, the way
// an auto-trait impl or a WellFormed check tolerates self-reference; an
// inductive cycle instead floors out as unprovable.
func IsCoinductiveGoal(d DomainGoal, penv ProgramEnvironment) bool {
	switch d.Tag {
	case DomainWellFormed:
		return true
	case DomainHolds:
		return penv.IsCoinductiveTrait(d.Trait.TraitID)
	default:
		return false
	}
}

// IsCoinductiveGoalTree reports whether every DomainGoal leaf directly
// visible at the root of g (through And/Implies/quantifiers, but not through
// Not, which always starts a fresh inductive context) is coinductive. A
// mixed conjunction is treated as inductive: coinductive cycle handling only
// applies when the whole derivation is coinductive.
func IsCoinductiveGoalTree(g Goal, penv ProgramEnvironment) bool {
	switch g.Tag {
	case GoalDomain:
		return IsCoinductiveGoal(g.Domain, penv)
	case GoalForAll, GoalExists:
		return IsCoinductiveGoalTree(g.Binder.Value, penv)
	case GoalImplies:
		return IsCoinductiveGoalTree(*g.Inner, penv)
	case GoalAnd:
		if len(g.Conjuncts) == 0 {
			return true
		}
		for _, c := range g.Conjuncts {
			if !IsCoinductiveGoalTree(c, penv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
