package traitslg

// This file extends SubstTy/SubstLifetime/SubstConst's binder-aware
// substitution up through TraitRef/WhereClause/DomainGoal/Goal, needed to
// instantiate a universally quantified ProgramClause (open its Binders with
// fresh existential variables) and to enter a GoalForAll/GoalExists
// quantifier during proof search.

func SubstTraitRef(r TraitRef, subst []Parameter, depth uint32) TraitRef {
	return TraitRef{TraitID: r.TraitID, Substitution: substParamsAt(r.Substitution, subst, depth)}
}

func SubstAliasTy(a AliasTy, subst []Parameter, depth uint32) AliasTy {
	return AliasTy{TraitID: a.TraitID, AssocName: a.AssocName, Substitution: substParamsAt(a.Substitution, subst, depth)}
}

func SubstWhereClause(w WhereClause, subst []Parameter, depth uint32) WhereClause {
	switch w.Tag {
	case WhereImplemented:
		return Implemented(SubstTraitRef(w.Trait, subst, depth))
	case WhereAliasEq:
		return AliasEq(SubstAliasTy(w.Alias, subst, depth), substTyAt(w.Ty, subst, depth))
	default:
		return w
	}
}

func SubstDomainGoal(d DomainGoal, subst []Parameter, depth uint32) DomainGoal {
	switch d.Tag {
	case DomainHolds:
		return Holds(SubstTraitRef(d.Trait, subst, depth))
	case DomainLocalImplAllowed:
		return LocalImplAllowed(SubstTraitRef(d.Trait, subst, depth))
	case DomainObjectSafe:
		return d
	case DomainWellFormed:
		if d.WhereClause != nil {
			return WellFormedWhereClause(SubstWhereClause(*d.WhereClause, subst, depth))
		}
		return WellFormedTrait(SubstTraitRef(d.Trait, subst, depth))
	case DomainFromEnv:
		return FromEnv(SubstWhereClause(*d.WhereClause, subst, depth))
	case DomainNormalize:
		return Normalize(SubstAliasTy(d.Alias, subst, depth), substTyAt(d.NormalizeTo, subst, depth))
	default:
		return d
	}
}

// SubstGoal substitutes subst (closed at depth 0) throughout g, shifting
// subst's contents in by depth on each BoundVar match and decrementing
// deeper BoundVars, exactly as SubstTy does, but walking the full Goal tree
// and entering one more binder level (depth+1) under GoalForAll/GoalExists.
func SubstGoal(g Goal, subst []Parameter, depth uint32) Goal {
	switch g.Tag {
	case GoalForAll:
		inner := SubstGoal(g.Binder.Value, subst, depth+1)
		b := NewBinders(g.Binder.ParameterKinds, inner)
		return NewForAllGoal(b)
	case GoalExists:
		inner := SubstGoal(g.Binder.Value, subst, depth+1)
		b := NewBinders(g.Binder.ParameterKinds, inner)
		return NewExistsGoal(b)
	case GoalImplies:
		hyps := make([]WhereClause, len(g.Hypotheses))
		for i, h := range g.Hypotheses {
			hyps[i] = SubstWhereClause(h, subst, depth)
		}
		return NewImpliesGoal(hyps, SubstGoal(*g.Inner, subst, depth))
	case GoalAnd:
		conjuncts := make([]Goal, len(g.Conjuncts))
		for i, c := range g.Conjuncts {
			conjuncts[i] = SubstGoal(c, subst, depth)
		}
		return Goal{Tag: GoalAnd, Conjuncts: conjuncts}
	case GoalNot:
		return NewNotGoal(SubstGoal(*g.Inner, subst, depth))
	case GoalUnify:
		return NewUnifyGoal(substParamAt(g.LHS, subst, depth), substParamAt(g.RHS, subst, depth))
	case GoalDomain:
		return NewDomainGoal(SubstDomainGoal(g.Domain, subst, depth))
	default:
		return g
	}
}

// InstantiateClause opens clause's binder with fresh existential inference
// variables in universe u, returning the instantiated implication.
func InstantiateClause(table *InferenceTable, clause ProgramClause, u UniverseIndex) ProgramClauseImplication {
	kinds := clause.Implication.ParameterKinds
	if len(kinds) == 0 {
		return clause.Implication.Value
	}
	params := make([]Parameter, len(kinds))
	for i, k := range kinds {
		switch k {
		case TyKind:
			params[i] = ParamTy(NewTyInferVar(table.NewVarTy(u)))
		case LifetimeKind:
			params[i] = ParamLifetime(NewLtInferVar(table.NewVarLifetime(u)))
		default:
			params[i] = ParamConst(Const{Tag: TyInferVar, InferVar: table.NewVarConst(u)})
		}
	}
	impl := clause.Implication.Value
	conditions := make([]Goal, len(impl.Conditions))
	for i, c := range impl.Conditions {
		conditions[i] = SubstGoal(c, params, 0)
	}
	return ProgramClauseImplication{
		Consequent: SubstDomainGoal(impl.Consequent, params, 0),
		Conditions: conditions,
	}
}
