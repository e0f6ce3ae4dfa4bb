package traitslg

// This file holds the binder-aware traversal primitives every quantified
// term needs: shifting a term under a freshly entered binder, substituting
// a closed-at-depth-0 parameter list for its BoundVars, canonicalizing free
// inference variables into BoundVars, and deep-normalizing alias
// projections. Every operation is kind-preserving: a Ty slot only ever
// receives a Ty, never a Lifetime.

// ShiftTy returns t as seen from `by` additional binders further out: every
// BoundVar occurring free in t has its Debruijn index increased by `by`.
// Bound occurrences that refer to binders inside t itself are untouched,
// since they are not free at t's root.
func ShiftTy(t Ty, by uint32) Ty {
	if by == 0 {
		return t
	}
	return shiftTyAt(t, by, 0)
}

func shiftTyAt(t Ty, by, depth uint32) Ty {
	switch t.Tag {
	case TyBound:
		if uint32(t.Bound.Debruijn) < depth {
			return t
		}
		return NewTyBound(BoundVar{Debruijn: t.Bound.Debruijn.Shifted(by), Index: t.Bound.Index})
	case TyApply:
		return NewTyApply(t.ApplyName, shiftParamsAt(t.ApplySubst, by, depth)...)
	case TyAliasVar:
		return NewTyAlias(AliasTy{
			TraitID:      t.Alias.TraitID,
			AssocName:    t.Alias.AssocName,
			Substitution: shiftParamsAt(t.Alias.Substitution, by, depth),
		})
	case TyFnPointer:
		return NewTyFnPointer(FnPointer{
			ABI:          t.FnPtr.ABI,
			Safe:         t.FnPtr.Safe,
			Variadic:     t.FnPtr.Variadic,
			NumBinders:   t.FnPtr.NumBinders,
			Substitution: shiftParamsAt(t.FnPtr.Substitution, by, depth+1),
		})
	default: // TyInferVar, TyPlaceholderVar: no BoundVar to shift
		return t
	}
}

// ShiftLifetime is the Lifetime analogue of ShiftTy.
func ShiftLifetime(l Lifetime, by uint32) Lifetime { return shiftLifetimeAt(l, by, 0) }

func shiftLifetimeAt(l Lifetime, by, depth uint32) Lifetime {
	if l.Tag != LtBound || uint32(l.Bound.Debruijn) < depth {
		return l
	}
	return NewLtBound(BoundVar{Debruijn: l.Bound.Debruijn.Shifted(by), Index: l.Bound.Index})
}

// ShiftConst is the Const analogue of ShiftTy.
func ShiftConst(c Const, by uint32) Const { return shiftConstAt(c, by, 0) }

func shiftConstAt(c Const, by, depth uint32) Const {
	if c.Tag != TyBound || uint32(c.Bound.Debruijn) < depth {
		return c
	}
	c.Bound = BoundVar{Debruijn: c.Bound.Debruijn.Shifted(by), Index: c.Bound.Index}
	return c
}

func shiftParamAt(p Parameter, by, depth uint32) Parameter {
	switch p.Kind {
	case TyKind:
		return ParamTy(shiftTyAt(p.Ty, by, depth))
	case LifetimeKind:
		return ParamLifetime(shiftLifetimeAt(p.Lt, by, depth))
	default:
		return ParamConst(shiftConstAt(p.Ct, by, depth))
	}
}

func shiftParamsAt(ps []Parameter, by, depth uint32) []Parameter {
	if len(ps) == 0 {
		return ps
	}
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		out[i] = shiftParamAt(p, by, depth)
	}
	return out
}

// SubstTy replaces every BoundVar at Debruijn depth 0 (relative to t's own
// root) with the matching entry of subst, indexed by BoundVar.Index, and
// decrements every deeper BoundVar's Debruijn index by one to account for
// the eliminated binder. subst entries are themselves closed at depth 0, so
// they are shifted in by the current recursion depth before substitution -
// this is what lets substitution commute correctly under nested binders.
func SubstTy(t Ty, subst []Parameter) Ty { return substTyAt(t, subst, 0) }

func substTyAt(t Ty, subst []Parameter, depth uint32) Ty {
	switch t.Tag {
	case TyBound:
		d := uint32(t.Bound.Debruijn)
		switch {
		case d < depth:
			return t
		case d == depth:
			p := subst[t.Bound.Index]
			if p.Kind != TyKind {
				panic("traitslg: substitution kind mismatch: expected type parameter")
			}
			return ShiftTy(p.Ty, depth)
		default:
			return NewTyBound(BoundVar{Debruijn: DebruijnIndex(d - 1), Index: t.Bound.Index})
		}
	case TyApply:
		return NewTyApply(t.ApplyName, substParamsAt(t.ApplySubst, subst, depth)...)
	case TyAliasVar:
		return NewTyAlias(AliasTy{
			TraitID:      t.Alias.TraitID,
			AssocName:    t.Alias.AssocName,
			Substitution: substParamsAt(t.Alias.Substitution, subst, depth),
		})
	case TyFnPointer:
		return NewTyFnPointer(FnPointer{
			ABI:          t.FnPtr.ABI,
			Safe:         t.FnPtr.Safe,
			Variadic:     t.FnPtr.Variadic,
			NumBinders:   t.FnPtr.NumBinders,
			Substitution: substParamsAt(t.FnPtr.Substitution, subst, depth+1),
		})
	default:
		return t
	}
}

// SubstLifetime is the Lifetime analogue of SubstTy.
func SubstLifetime(l Lifetime, subst []Parameter) Lifetime { return substLifetimeAt(l, subst, 0) }

func substLifetimeAt(l Lifetime, subst []Parameter, depth uint32) Lifetime {
	if l.Tag != LtBound {
		return l
	}
	d := uint32(l.Bound.Debruijn)
	switch {
	case d < depth:
		return l
	case d == depth:
		p := subst[l.Bound.Index]
		if p.Kind != LifetimeKind {
			panic("traitslg: substitution kind mismatch: expected lifetime parameter")
		}
		return ShiftLifetime(p.Lt, depth)
	default:
		return NewLtBound(BoundVar{Debruijn: DebruijnIndex(d - 1), Index: l.Bound.Index})
	}
}

// SubstConst is the Const analogue of SubstTy.
func SubstConst(c Const, subst []Parameter) Const { return substConstAt(c, subst, 0) }

func substConstAt(c Const, subst []Parameter, depth uint32) Const {
	if c.Tag != TyBound {
		return c
	}
	d := uint32(c.Bound.Debruijn)
	switch {
	case d < depth:
		return c
	case d == depth:
		p := subst[c.Bound.Index]
		if p.Kind != ConstKind {
			panic("traitslg: substitution kind mismatch: expected const parameter")
		}
		return ShiftConst(p.Ct, depth)
	default:
		c.Bound = BoundVar{Debruijn: DebruijnIndex(d - 1), Index: c.Bound.Index}
		return c
	}
}

func substParamAt(p Parameter, subst []Parameter, depth uint32) Parameter {
	switch p.Kind {
	case TyKind:
		return ParamTy(substTyAt(p.Ty, subst, depth))
	case LifetimeKind:
		return ParamLifetime(substLifetimeAt(p.Lt, subst, depth))
	default:
		return ParamConst(substConstAt(p.Ct, subst, depth))
	}
}

func substParamsAt(ps []Parameter, subst []Parameter, depth uint32) []Parameter {
	if len(ps) == 0 {
		return ps
	}
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		out[i] = substParamAt(p, subst, depth)
	}
	return out
}

// InstantiateTy opens one binder of kinds by substituting params for the
// BoundVars it introduces; len(params) must equal len(b.ParameterKinds) and
// each entry's Kind must match the corresponding ParameterKind. This is how
// a universal binder is instantiated with fresh placeholders, or an
// existential binder with fresh inference variables.
func InstantiateTy(b Binders[Ty], params []Parameter) Ty {
	if len(params) != len(b.ParameterKinds) {
		panic("traitslg: instantiate: parameter count mismatch")
	}
	return SubstTy(b.Value, params)
}

// freeTyInferenceVars appends every InferenceVar occurring free in t to out,
// in order of first occurrence, skipping duplicates via seen.
func freeTyInferenceVars(t Ty, seen map[InferenceVar]bool, out []InferenceVar) []InferenceVar {
	switch t.Tag {
	case TyInferVar:
		if !seen[t.InferVar] {
			seen[t.InferVar] = true
			out = append(out, t.InferVar)
		}
	case TyApply:
		out = freeParamsInferenceVars(t.ApplySubst, seen, out)
	case TyAliasVar:
		out = freeParamsInferenceVars(t.Alias.Substitution, seen, out)
	case TyFnPointer:
		out = freeParamsInferenceVars(t.FnPtr.Substitution, seen, out)
	}
	return out
}

func freeParamsInferenceVars(ps []Parameter, seen map[InferenceVar]bool, out []InferenceVar) []InferenceVar {
	for _, p := range ps {
		switch p.Kind {
		case TyKind:
			out = freeTyInferenceVars(p.Ty, seen, out)
		case LifetimeKind:
			if p.Lt.Tag == LtInferVar && !seen[p.Lt.InferVar] {
				seen[p.Lt.InferVar] = true
				out = append(out, p.Lt.InferVar)
			}
		case ConstKind:
			if p.Ct.Tag == TyInferVar && !seen[p.Ct.InferVar] {
				seen[p.Ct.InferVar] = true
				out = append(out, p.Ct.InferVar)
			}
		}
	}
	return out
}

// FreeInferenceVars returns every distinct InferenceVar occurring free in t,
// in order of first occurrence. Used by the canonicalizer to build the
// BoundVar substitution that replaces them.
func FreeInferenceVars(t Ty) []InferenceVar {
	return freeTyInferenceVars(t, map[InferenceVar]bool{}, nil)
}

// CanonicalizeTy replaces every free InferenceVar in t with a BoundVar
// indexed by its position in vars (which must list exactly the result of
// FreeInferenceVars(t), in the same order), producing a closed term suitable
// for wrapping in a Canonical[Ty].
func CanonicalizeTy(t Ty, vars []InferenceVar) Ty {
	index := make(map[InferenceVar]uint32, len(vars))
	for i, v := range vars {
		index[v] = uint32(i)
	}
	return canonicalizeTyAt(t, index, 0)
}

func canonicalizeTyAt(t Ty, index map[InferenceVar]uint32, depth uint32) Ty {
	switch t.Tag {
	case TyInferVar:
		if i, ok := index[t.InferVar]; ok {
			return NewTyBound(BoundVar{Debruijn: DebruijnIndex(depth), Index: i})
		}
		return t
	case TyApply:
		return NewTyApply(t.ApplyName, canonicalizeParamsAt(t.ApplySubst, index, depth)...)
	case TyAliasVar:
		return NewTyAlias(AliasTy{
			TraitID:      t.Alias.TraitID,
			AssocName:    t.Alias.AssocName,
			Substitution: canonicalizeParamsAt(t.Alias.Substitution, index, depth),
		})
	case TyFnPointer:
		return NewTyFnPointer(FnPointer{
			ABI:          t.FnPtr.ABI,
			Safe:         t.FnPtr.Safe,
			Variadic:     t.FnPtr.Variadic,
			NumBinders:   t.FnPtr.NumBinders,
			Substitution: canonicalizeParamsAt(t.FnPtr.Substitution, index, depth+1),
		})
	default:
		return t
	}
}

func canonicalizeParamsAt(ps []Parameter, index map[InferenceVar]uint32, depth uint32) []Parameter {
	if len(ps) == 0 {
		return ps
	}
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		switch p.Kind {
		case TyKind:
			out[i] = ParamTy(canonicalizeTyAt(p.Ty, index, depth))
		case LifetimeKind:
			if p.Lt.Tag == LtInferVar {
				if idx, ok := index[p.Lt.InferVar]; ok {
					out[i] = ParamLifetime(NewLtBound(BoundVar{Debruijn: DebruijnIndex(depth), Index: idx}))
					continue
				}
			}
			out[i] = p
		case ConstKind:
			if p.Ct.Tag == TyInferVar {
				if idx, ok := index[p.Ct.InferVar]; ok {
					c := p.Ct
					c.Tag = TyBound
					c.Bound = BoundVar{Debruijn: DebruijnIndex(depth), Index: idx}
					out[i] = ParamConst(c)
					continue
				}
			}
			out[i] = p
		}
	}
	return out
}

// AliasNormalizer resolves a projection to its normalized form, reporting
// whether normalization made progress. The inference table and environment
// supply the concrete lookup; DeepNormalizeTy only drives the fixed-point
// recursion over the surrounding structure.
type AliasNormalizer interface {
	NormalizeAlias(AliasTy) (Ty, bool)
}

// DeepNormalizeTy rewrites every TyAliasVar reachable from t to its
// normalized form, recursively, until no further progress is made or depth
// exceeds a generous bound (guards against a pathological alias cycle
// slipping past the caller's own termination budget).
func DeepNormalizeTy(t Ty, n AliasNormalizer) Ty {
	const maxRounds = 64
	for round := 0; round < maxRounds; round++ {
		next, changed := deepNormalizeOnce(t, n)
		if !changed {
			return next
		}
		t = next
	}
	return t
}

func deepNormalizeOnce(t Ty, n AliasNormalizer) (Ty, bool) {
	switch t.Tag {
	case TyAliasVar:
		normalizedSubst, subChanged := deepNormalizeParamsOnce(t.Alias.Substitution, n)
		alias := AliasTy{TraitID: t.Alias.TraitID, AssocName: t.Alias.AssocName, Substitution: normalizedSubst}
		if resolved, ok := n.NormalizeAlias(alias); ok {
			return resolved, true
		}
		if subChanged {
			return NewTyAlias(alias), true
		}
		return t, false
	case TyApply:
		subst, changed := deepNormalizeParamsOnce(t.ApplySubst, n)
		if !changed {
			return t, false
		}
		return NewTyApply(t.ApplyName, subst...), true
	case TyFnPointer:
		subst, changed := deepNormalizeParamsOnce(t.FnPtr.Substitution, n)
		if !changed {
			return t, false
		}
		return NewTyFnPointer(FnPointer{
			ABI: t.FnPtr.ABI, Safe: t.FnPtr.Safe, Variadic: t.FnPtr.Variadic,
			NumBinders: t.FnPtr.NumBinders, Substitution: subst,
		}), true
	default:
		return t, false
	}
}

func deepNormalizeParamsOnce(ps []Parameter, n AliasNormalizer) ([]Parameter, bool) {
	if len(ps) == 0 {
		return ps, false
	}
	out := make([]Parameter, len(ps))
	changed := false
	for i, p := range ps {
		if p.Kind == TyKind {
			nt, c := deepNormalizeOnce(p.Ty, n)
			out[i] = ParamTy(nt)
			changed = changed || c
		} else {
			out[i] = p
		}
	}
	return out, changed
}
