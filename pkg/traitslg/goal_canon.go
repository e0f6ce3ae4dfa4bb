package traitslg

import "sort"

// This file generalizes CanonicalizeTy/InstantiateCanonicalTy (infer_table.go)
// and FreeInferenceVars (fold.go) from a bare Ty up to a whole Goal, the way
// the forest needs to turn a live InEnvironment<Goal> into a table key:
// deep-normalize it, replace every distinct free inference variable with a
// BoundVar (alpha-equivalent goals canonicalize identically), then compact
// its occurring universes to a dense 0..N prefix.

func freeWhereClauseInferenceVars(w WhereClause, seen map[InferenceVar]bool, out []InferenceVar) []InferenceVar {
	switch w.Tag {
	case WhereImplemented:
		return freeParamsInferenceVars(w.Trait.Substitution, seen, out)
	case WhereAliasEq:
		out = freeParamsInferenceVars(w.Alias.Substitution, seen, out)
		return freeParamsInferenceVars([]Parameter{ParamTy(w.Ty)}, seen, out)
	default:
		return out
	}
}

func freeDomainGoalInferenceVars(d DomainGoal, seen map[InferenceVar]bool, out []InferenceVar) []InferenceVar {
	switch d.Tag {
	case DomainHolds, DomainLocalImplAllowed, DomainObjectSafe:
		return freeParamsInferenceVars(d.Trait.Substitution, seen, out)
	case DomainWellFormed:
		if d.WhereClause != nil {
			return freeWhereClauseInferenceVars(*d.WhereClause, seen, out)
		}
		return freeParamsInferenceVars(d.Trait.Substitution, seen, out)
	case DomainFromEnv:
		return freeWhereClauseInferenceVars(*d.WhereClause, seen, out)
	case DomainNormalize:
		out = freeParamsInferenceVars(d.Alias.Substitution, seen, out)
		return freeParamsInferenceVars([]Parameter{ParamTy(d.NormalizeTo)}, seen, out)
	default:
		return out
	}
}

func freeGoalInferenceVars(g Goal, seen map[InferenceVar]bool, out []InferenceVar) []InferenceVar {
	switch g.Tag {
	case GoalForAll, GoalExists:
		return freeGoalInferenceVars(g.Binder.Value, seen, out)
	case GoalImplies:
		for _, h := range g.Hypotheses {
			out = freeWhereClauseInferenceVars(h, seen, out)
		}
		return freeGoalInferenceVars(*g.Inner, seen, out)
	case GoalAnd:
		for _, c := range g.Conjuncts {
			out = freeGoalInferenceVars(c, seen, out)
		}
		return out
	case GoalNot:
		return freeGoalInferenceVars(*g.Inner, seen, out)
	case GoalUnify:
		out = freeParamsInferenceVars([]Parameter{g.LHS}, seen, out)
		return freeParamsInferenceVars([]Parameter{g.RHS}, seen, out)
	case GoalDomain:
		return freeDomainGoalInferenceVars(g.Domain, seen, out)
	default:
		return out
	}
}

// FreeInferenceVarsGoal lists the distinct free inference variables reachable
// from g, in first-occurrence (left-to-right, outside-in) order.
func FreeInferenceVarsGoal(g Goal) []InferenceVar {
	return freeGoalInferenceVars(g, map[InferenceVar]bool{}, nil)
}

func canonicalizeWhereClauseAt(w WhereClause, index map[InferenceVar]uint32, depth uint32) WhereClause {
	switch w.Tag {
	case WhereImplemented:
		return Implemented(TraitRef{TraitID: w.Trait.TraitID, Substitution: canonicalizeParamsAt(w.Trait.Substitution, index, depth)})
	case WhereAliasEq:
		subst := canonicalizeParamsAt(w.Alias.Substitution, index, depth)
		ty := canonicalizeParamsAt([]Parameter{ParamTy(w.Ty)}, index, depth)[0].Ty
		return AliasEq(AliasTy{TraitID: w.Alias.TraitID, AssocName: w.Alias.AssocName, Substitution: subst}, ty)
	default:
		return w
	}
}

func canonicalizeDomainGoalAt(d DomainGoal, index map[InferenceVar]uint32, depth uint32) DomainGoal {
	switch d.Tag {
	case DomainHolds:
		return Holds(TraitRef{TraitID: d.Trait.TraitID, Substitution: canonicalizeParamsAt(d.Trait.Substitution, index, depth)})
	case DomainLocalImplAllowed:
		return LocalImplAllowed(TraitRef{TraitID: d.Trait.TraitID, Substitution: canonicalizeParamsAt(d.Trait.Substitution, index, depth)})
	case DomainObjectSafe:
		return d
	case DomainWellFormed:
		if d.WhereClause != nil {
			return WellFormedWhereClause(canonicalizeWhereClauseAt(*d.WhereClause, index, depth))
		}
		return WellFormedTrait(TraitRef{TraitID: d.Trait.TraitID, Substitution: canonicalizeParamsAt(d.Trait.Substitution, index, depth)})
	case DomainFromEnv:
		return FromEnv(canonicalizeWhereClauseAt(*d.WhereClause, index, depth))
	case DomainNormalize:
		subst := canonicalizeParamsAt(d.Alias.Substitution, index, depth)
		to := canonicalizeParamsAt([]Parameter{ParamTy(d.NormalizeTo)}, index, depth)[0].Ty
		return Normalize(AliasTy{TraitID: d.Alias.TraitID, AssocName: d.Alias.AssocName, Substitution: subst}, to)
	default:
		return d
	}
}

func canonicalizeGoalAt(g Goal, index map[InferenceVar]uint32, depth uint32) Goal {
	switch g.Tag {
	case GoalForAll:
		inner := canonicalizeGoalAt(g.Binder.Value, index, depth+1)
		return NewForAllGoal(NewBinders(g.Binder.ParameterKinds, inner))
	case GoalExists:
		inner := canonicalizeGoalAt(g.Binder.Value, index, depth+1)
		return NewExistsGoal(NewBinders(g.Binder.ParameterKinds, inner))
	case GoalImplies:
		hyps := make([]WhereClause, len(g.Hypotheses))
		for i, h := range g.Hypotheses {
			hyps[i] = canonicalizeWhereClauseAt(h, index, depth)
		}
		return NewImpliesGoal(hyps, canonicalizeGoalAt(*g.Inner, index, depth))
	case GoalAnd:
		conj := make([]Goal, len(g.Conjuncts))
		for i, c := range g.Conjuncts {
			conj[i] = canonicalizeGoalAt(c, index, depth)
		}
		return Goal{Tag: GoalAnd, Conjuncts: conj}
	case GoalNot:
		return NewNotGoal(canonicalizeGoalAt(*g.Inner, index, depth))
	case GoalUnify:
		lhs := canonicalizeParamsAt([]Parameter{g.LHS}, index, depth)[0]
		rhs := canonicalizeParamsAt([]Parameter{g.RHS}, index, depth)[0]
		return NewUnifyGoal(lhs, rhs)
	case GoalDomain:
		return NewDomainGoal(canonicalizeDomainGoalAt(g.Domain, index, depth))
	default:
		return g
	}
}

// CanonicalizeGoal replaces every variable in vars with the BoundVar at its
// index, the Goal analogue of CanonicalizeTy.
func CanonicalizeGoal(g Goal, vars []InferenceVar) Goal {
	index := make(map[InferenceVar]uint32, len(vars))
	for i, v := range vars {
		index[v] = uint32(i)
	}
	return canonicalizeGoalAt(g, index, 0)
}

// NormalizeDeepDomainGoal resolves every bound inference variable reachable
// from d, leaving only free variables and placeholders, the DomainGoal
// analogue of InferenceTable.NormalizeDeepTy.
func (t *InferenceTable) NormalizeDeepDomainGoal(d DomainGoal) DomainGoal {
	switch d.Tag {
	case DomainHolds:
		return Holds(TraitRef{TraitID: d.Trait.TraitID, Substitution: t.normalizeDeepParams(d.Trait.Substitution)})
	case DomainLocalImplAllowed:
		return LocalImplAllowed(TraitRef{TraitID: d.Trait.TraitID, Substitution: t.normalizeDeepParams(d.Trait.Substitution)})
	case DomainObjectSafe:
		return d
	case DomainWellFormed:
		if d.WhereClause != nil {
			return WellFormedWhereClause(t.normalizeDeepWhereClause(*d.WhereClause))
		}
		return WellFormedTrait(TraitRef{TraitID: d.Trait.TraitID, Substitution: t.normalizeDeepParams(d.Trait.Substitution)})
	case DomainFromEnv:
		return FromEnv(t.normalizeDeepWhereClause(*d.WhereClause))
	case DomainNormalize:
		subst := t.normalizeDeepParams(d.Alias.Substitution)
		to := t.NormalizeDeepTy(d.NormalizeTo)
		return Normalize(AliasTy{TraitID: d.Alias.TraitID, AssocName: d.Alias.AssocName, Substitution: subst}, to)
	default:
		return d
	}
}

func (t *InferenceTable) normalizeDeepWhereClause(w WhereClause) WhereClause {
	switch w.Tag {
	case WhereImplemented:
		return Implemented(TraitRef{TraitID: w.Trait.TraitID, Substitution: t.normalizeDeepParams(w.Trait.Substitution)})
	case WhereAliasEq:
		subst := t.normalizeDeepParams(w.Alias.Substitution)
		return AliasEq(AliasTy{TraitID: w.Alias.TraitID, AssocName: w.Alias.AssocName, Substitution: subst}, t.NormalizeDeepTy(w.Ty))
	default:
		return w
	}
}

// CanonicalizeGoal deep-normalizes d (as a Goal wrapping a DomainGoal), then
// closes over its free inference variables, returning the Canonical value
// and the variables it closed over, in binder order.
func (t *InferenceTable) CanonicalizeGoal(d DomainGoal) (Canonical[Goal], []InferenceVar) {
	normalized := NewDomainGoal(t.NormalizeDeepDomainGoal(d))
	vars := FreeInferenceVarsGoal(normalized)
	kinds := make([]ParameterKind, len(vars))
	for i, v := range vars {
		kinds[i] = t.cells[t.root(v)].kind
	}
	body := CanonicalizeGoal(normalized, vars)
	return Canonical[Goal]{Binders: NewBinders(kinds, body)}, vars
}

// InstantiateCanonicalGoal opens c with fresh inference variables in universe
// u, the Goal analogue of InstantiateCanonicalTy. The returned variables are
// in binder-slot order, so callers can read an answer substitution back off
// them after solving.
func (t *InferenceTable) InstantiateCanonicalGoal(c Canonical[Goal], u UniverseIndex) (Goal, []InferenceVar) {
	params, vars := openExistential(t, c.Kinds(), u)
	return SubstGoal(c.Value(), params, 0), vars
}

// openExistential introduces one fresh inference variable per binder kind in
// universe u, returning both the variables and the parameter list that wraps
// them, ready to substitute into a binder body.
func openExistential(t *InferenceTable, kinds []ParameterKind, u UniverseIndex) ([]Parameter, []InferenceVar) {
	params := make([]Parameter, len(kinds))
	vars := make([]InferenceVar, len(kinds))
	for i, k := range kinds {
		switch k {
		case TyKind:
			vars[i] = t.NewVarTy(u)
			params[i] = ParamTy(NewTyInferVar(vars[i]))
		case LifetimeKind:
			vars[i] = t.NewVarLifetime(u)
			params[i] = ParamLifetime(NewLtInferVar(vars[i]))
		default:
			vars[i] = t.NewVarConst(u)
			params[i] = ParamConst(Const{Tag: TyInferVar, InferVar: vars[i]})
		}
	}
	return params, vars
}

// varParameter wraps an inference variable of the given kind as a Parameter.
func varParameter(kind ParameterKind, v InferenceVar) Parameter {
	switch kind {
	case TyKind:
		return ParamTy(NewTyInferVar(v))
	case LifetimeKind:
		return ParamLifetime(NewLtInferVar(v))
	default:
		return ParamConst(Const{Tag: TyInferVar, InferVar: v})
	}
}

// NormalizeDeepGoal resolves every bound inference variable reachable from g,
// the full-Goal analogue of NormalizeDeepDomainGoal.
func (t *InferenceTable) NormalizeDeepGoal(g Goal) Goal {
	switch g.Tag {
	case GoalForAll:
		return NewForAllGoal(NewBinders(g.Binder.ParameterKinds, t.NormalizeDeepGoal(g.Binder.Value)))
	case GoalExists:
		return NewExistsGoal(NewBinders(g.Binder.ParameterKinds, t.NormalizeDeepGoal(g.Binder.Value)))
	case GoalImplies:
		hyps := make([]WhereClause, len(g.Hypotheses))
		for i, h := range g.Hypotheses {
			hyps[i] = t.normalizeDeepWhereClause(h)
		}
		return NewImpliesGoal(hyps, t.NormalizeDeepGoal(*g.Inner))
	case GoalAnd:
		conj := make([]Goal, len(g.Conjuncts))
		for i, c := range g.Conjuncts {
			conj[i] = t.NormalizeDeepGoal(c)
		}
		return Goal{Tag: GoalAnd, Conjuncts: conj}
	case GoalNot:
		return NewNotGoal(t.NormalizeDeepGoal(*g.Inner))
	case GoalUnify:
		lhs := t.normalizeDeepParams([]Parameter{g.LHS})[0]
		rhs := t.normalizeDeepParams([]Parameter{g.RHS})[0]
		return NewUnifyGoal(lhs, rhs)
	case GoalDomain:
		return NewDomainGoal(t.NormalizeDeepDomainGoal(g.Domain))
	default:
		return g
	}
}

// CanonicalizeFullGoal deep-normalizes g, then closes over its free inference
// variables, generalizing CanonicalizeGoal from DomainGoal leaves to whole
// goal trees. The returned variables align with the canonical binder slots.
func (t *InferenceTable) CanonicalizeFullGoal(g Goal) (Canonical[Goal], []InferenceVar) {
	normalized := t.NormalizeDeepGoal(g)
	vars := FreeInferenceVarsGoal(normalized)
	kinds := make([]ParameterKind, len(vars))
	for i, v := range vars {
		kinds[i] = t.cells[t.root(v)].kind
	}
	body := CanonicalizeGoal(normalized, vars)
	return Canonical[Goal]{Binders: NewBinders(kinds, body)}, vars
}

func placeholderUniversesTy(ty Ty, seen map[UniverseIndex]bool, out []UniverseIndex) []UniverseIndex {
	switch ty.Tag {
	case TyPlaceholderVar:
		if !seen[ty.Placeholder.Universe] {
			seen[ty.Placeholder.Universe] = true
			out = append(out, ty.Placeholder.Universe)
		}
		return out
	case TyApply:
		return placeholderUniversesParams(ty.ApplySubst, seen, out)
	case TyAliasVar:
		return placeholderUniversesParams(ty.Alias.Substitution, seen, out)
	case TyFnPointer:
		return placeholderUniversesParams(ty.FnPtr.Substitution, seen, out)
	default:
		return out
	}
}

func placeholderUniversesParams(ps []Parameter, seen map[UniverseIndex]bool, out []UniverseIndex) []UniverseIndex {
	for _, p := range ps {
		switch p.Kind {
		case TyKind:
			out = placeholderUniversesTy(p.Ty, seen, out)
		case LifetimeKind:
			if p.Lt.Tag == LtPlaceholderVar && !seen[p.Lt.Placeholder.Universe] {
				seen[p.Lt.Placeholder.Universe] = true
				out = append(out, p.Lt.Placeholder.Universe)
			}
		case ConstKind:
			if p.Ct.Tag == TyPlaceholderVar && !seen[p.Ct.Placeholder.Universe] {
				seen[p.Ct.Placeholder.Universe] = true
				out = append(out, p.Ct.Placeholder.Universe)
			}
		}
	}
	return out
}

func placeholderUniversesGoal(g Goal, seen map[UniverseIndex]bool, out []UniverseIndex) []UniverseIndex {
	switch g.Tag {
	case GoalForAll, GoalExists:
		return placeholderUniversesGoal(g.Binder.Value, seen, out)
	case GoalImplies:
		return placeholderUniversesGoal(*g.Inner, seen, out)
	case GoalAnd:
		for _, c := range g.Conjuncts {
			out = placeholderUniversesGoal(c, seen, out)
		}
		return out
	case GoalNot:
		return placeholderUniversesGoal(*g.Inner, seen, out)
	case GoalUnify:
		out = placeholderUniversesParams([]Parameter{g.LHS}, seen, out)
		return placeholderUniversesParams([]Parameter{g.RHS}, seen, out)
	case GoalDomain:
		return placeholderUniversesDomainGoal(g.Domain, seen, out)
	default:
		return out
	}
}

func placeholderUniversesDomainGoal(d DomainGoal, seen map[UniverseIndex]bool, out []UniverseIndex) []UniverseIndex {
	switch d.Tag {
	case DomainHolds, DomainLocalImplAllowed, DomainObjectSafe:
		return placeholderUniversesParams(d.Trait.Substitution, seen, out)
	case DomainWellFormed:
		if d.WhereClause != nil {
			return placeholderUniversesWhereClause(*d.WhereClause, seen, out)
		}
		return placeholderUniversesParams(d.Trait.Substitution, seen, out)
	case DomainFromEnv:
		return placeholderUniversesWhereClause(*d.WhereClause, seen, out)
	case DomainNormalize:
		out = placeholderUniversesParams(d.Alias.Substitution, seen, out)
		return placeholderUniversesParams([]Parameter{ParamTy(d.NormalizeTo)}, seen, out)
	default:
		return out
	}
}

func placeholderUniversesWhereClause(w WhereClause, seen map[UniverseIndex]bool, out []UniverseIndex) []UniverseIndex {
	switch w.Tag {
	case WhereImplemented:
		return placeholderUniversesParams(w.Trait.Substitution, seen, out)
	case WhereAliasEq:
		out = placeholderUniversesParams(w.Alias.Substitution, seen, out)
		return placeholderUniversesParams([]Parameter{ParamTy(w.Ty)}, seen, out)
	default:
		return out
	}
}

func remapUniverseTy(ty Ty, m map[UniverseIndex]UniverseIndex) Ty {
	switch ty.Tag {
	case TyPlaceholderVar:
		return NewTyPlaceholder(Placeholder{Universe: m[ty.Placeholder.Universe], Index: ty.Placeholder.Index})
	case TyApply:
		return NewTyApply(ty.ApplyName, remapUniverseParams(ty.ApplySubst, m)...)
	case TyAliasVar:
		return NewTyAlias(AliasTy{TraitID: ty.Alias.TraitID, AssocName: ty.Alias.AssocName, Substitution: remapUniverseParams(ty.Alias.Substitution, m)})
	case TyFnPointer:
		f := *ty.FnPtr
		f.Substitution = remapUniverseParams(f.Substitution, m)
		return NewTyFnPointer(f)
	default:
		return ty
	}
}

func remapUniverseParams(ps []Parameter, m map[UniverseIndex]UniverseIndex) []Parameter {
	if len(ps) == 0 {
		return ps
	}
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		switch p.Kind {
		case TyKind:
			out[i] = ParamTy(remapUniverseTy(p.Ty, m))
		case LifetimeKind:
			if p.Lt.Tag == LtPlaceholderVar {
				out[i] = ParamLifetime(NewLtPlaceholder(Placeholder{Universe: m[p.Lt.Placeholder.Universe], Index: p.Lt.Placeholder.Index}))
			} else {
				out[i] = p
			}
		case ConstKind:
			if p.Ct.Tag == TyPlaceholderVar {
				c := p.Ct
				c.Placeholder.Universe = m[c.Placeholder.Universe]
				out[i] = ParamConst(c)
			} else {
				out[i] = p
			}
		}
	}
	return out
}

func remapUniverseWhereClause(w WhereClause, m map[UniverseIndex]UniverseIndex) WhereClause {
	switch w.Tag {
	case WhereImplemented:
		return Implemented(TraitRef{TraitID: w.Trait.TraitID, Substitution: remapUniverseParams(w.Trait.Substitution, m)})
	case WhereAliasEq:
		subst := remapUniverseParams(w.Alias.Substitution, m)
		return AliasEq(AliasTy{TraitID: w.Alias.TraitID, AssocName: w.Alias.AssocName, Substitution: subst}, remapUniverseTy(w.Ty, m))
	default:
		return w
	}
}

func remapUniverseDomainGoal(d DomainGoal, m map[UniverseIndex]UniverseIndex) DomainGoal {
	switch d.Tag {
	case DomainHolds:
		return Holds(TraitRef{TraitID: d.Trait.TraitID, Substitution: remapUniverseParams(d.Trait.Substitution, m)})
	case DomainLocalImplAllowed:
		return LocalImplAllowed(TraitRef{TraitID: d.Trait.TraitID, Substitution: remapUniverseParams(d.Trait.Substitution, m)})
	case DomainObjectSafe:
		return d
	case DomainWellFormed:
		if d.WhereClause != nil {
			return WellFormedWhereClause(remapUniverseWhereClause(*d.WhereClause, m))
		}
		return WellFormedTrait(TraitRef{TraitID: d.Trait.TraitID, Substitution: remapUniverseParams(d.Trait.Substitution, m)})
	case DomainFromEnv:
		return FromEnv(remapUniverseWhereClause(*d.WhereClause, m))
	case DomainNormalize:
		subst := remapUniverseParams(d.Alias.Substitution, m)
		return Normalize(AliasTy{TraitID: d.Alias.TraitID, AssocName: d.Alias.AssocName, Substitution: subst}, remapUniverseTy(d.NormalizeTo, m))
	default:
		return d
	}
}

func remapUniverseGoal(g Goal, m map[UniverseIndex]UniverseIndex) Goal {
	switch g.Tag {
	case GoalForAll:
		return NewForAllGoal(NewBinders(g.Binder.ParameterKinds, remapUniverseGoal(g.Binder.Value, m)))
	case GoalExists:
		return NewExistsGoal(NewBinders(g.Binder.ParameterKinds, remapUniverseGoal(g.Binder.Value, m)))
	case GoalImplies:
		hyps := make([]WhereClause, len(g.Hypotheses))
		for i, h := range g.Hypotheses {
			hyps[i] = remapUniverseWhereClause(h, m)
		}
		return NewImpliesGoal(hyps, remapUniverseGoal(*g.Inner, m))
	case GoalAnd:
		conj := make([]Goal, len(g.Conjuncts))
		for i, c := range g.Conjuncts {
			conj[i] = remapUniverseGoal(c, m)
		}
		return Goal{Tag: GoalAnd, Conjuncts: conj}
	case GoalNot:
		return NewNotGoal(remapUniverseGoal(*g.Inner, m))
	case GoalUnify:
		return NewUnifyGoal(remapUniverseParams([]Parameter{g.LHS}, m)[0], remapUniverseParams([]Parameter{g.RHS}, m)[0])
	case GoalDomain:
		return NewDomainGoal(remapUniverseDomainGoal(g.Domain, m))
	default:
		return g
	}
}

// UCanonicalizeGoal compacts c's occurring universes to a dense 0..N prefix,
// the Goal analogue of u_canonicalize: two tables whose goals differ only in
// the concrete (not relative) numbering of their universes collide on the
// same key.
func UCanonicalizeGoal(c Canonical[Goal]) UCanonical[Goal] {
	universes := placeholderUniversesGoal(c.Value(), map[UniverseIndex]bool{}, nil)
	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })

	toCompacted := map[UniverseIndex]UniverseIndex{Root: Root}
	toOriginal := []UniverseIndex{Root}
	next := UniverseIndex(1)
	for _, u := range universes {
		if u == Root {
			continue
		}
		if _, ok := toCompacted[u]; ok {
			continue
		}
		toCompacted[u] = next
		toOriginal = append(toOriginal, u)
		next++
	}

	body := remapUniverseGoal(c.Value(), toCompacted)
	return UCanonical[Goal]{
		Canonical:   Canonical[Goal]{Binders: NewBinders(c.Kinds(), body)},
		UniverseMap: UniverseMap{ToCompacted: toCompacted, ToOriginal: toOriginal},
	}
}
