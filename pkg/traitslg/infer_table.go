package traitslg

import "fmt"

// Constraint records a side condition produced during unification that is
// not itself a yes/no fact: currently only region outlives constraints
// (`'a: 'b`). Constraints ride along on a Solution rather than being
// solved inline.
type Constraint struct {
	Long  Lifetime
	Short Lifetime
}

func (c Constraint) String() string { return fmt.Sprintf("%s: %s", c.Long, c.Short) }

// cell is one slot of the table's union-find forest. A root cell (parent ==
// its own index) is either unbound (free, with a recorded universe) or
// bound to a concrete value of the matching kind.
type cell struct {
	kind     ParameterKind
	universe UniverseIndex
	parent   int
	bound    bool
	ty       Ty
	lt       Lifetime
	ct       Const
}

// InferenceTable owns a union-find forest of inference variables, with a
// snapshot stack for cheap rollback of speculative unification. A table is
// exclusively owned by one query's solving process; it is never shared
// across goroutines without external synchronization (the SLG forest and the
// recursive solver each hold exactly one live table per in-flight branch).
type InferenceTable struct {
	cells       []cell
	constraints []Constraint
	snapshots   [][]cell
}

// NewInferenceTable returns an empty table.
func NewInferenceTable() *InferenceTable {
	return &InferenceTable{}
}

func (t *InferenceTable) newVar(kind ParameterKind, universe UniverseIndex) InferenceVar {
	idx := len(t.cells)
	t.cells = append(t.cells, cell{kind: kind, universe: universe, parent: idx})
	return InferenceVar{id: uint64(idx)}
}

// NewVarTy introduces a fresh, unbound type variable in universe u.
func (t *InferenceTable) NewVarTy(u UniverseIndex) InferenceVar { return t.newVar(TyKind, u) }

// NewVarLifetime introduces a fresh, unbound lifetime variable in universe u.
func (t *InferenceTable) NewVarLifetime(u UniverseIndex) InferenceVar { return t.newVar(LifetimeKind, u) }

// NewVarConst introduces a fresh, unbound const variable in universe u.
func (t *InferenceTable) NewVarConst(u UniverseIndex) InferenceVar { return t.newVar(ConstKind, u) }

func (t *InferenceTable) find(idx int) int {
	for t.cells[idx].parent != idx {
		t.cells[idx].parent = t.cells[t.cells[idx].parent].parent
		idx = t.cells[idx].parent
	}
	return idx
}

func (t *InferenceTable) root(v InferenceVar) int { return t.find(int(v.id)) }

// Universe returns the universe of v's current union-find representative.
func (t *InferenceTable) Universe(v InferenceVar) UniverseIndex {
	return t.cells[t.root(v)].universe
}

// ProbeTy reports the bound value of v, if any, following union-find to the
// representative cell. ok is false for a free variable.
func (t *InferenceTable) ProbeTy(v InferenceVar) (ty Ty, ok bool) {
	c := t.cells[t.root(v)]
	return c.ty, c.bound
}

// ProbeLifetime is the Lifetime analogue of ProbeTy.
func (t *InferenceTable) ProbeLifetime(v InferenceVar) (lt Lifetime, ok bool) {
	c := t.cells[t.root(v)]
	return c.lt, c.bound
}

// ProbeConst is the Const analogue of ProbeTy.
func (t *InferenceTable) ProbeConst(v InferenceVar) (ct Const, ok bool) {
	c := t.cells[t.root(v)]
	return c.ct, c.bound
}

// BindTy binds v to ty. Binding an already-bound variable is a programming
// error (the unifier must probe before binding) and panics.
func (t *InferenceTable) BindTy(v InferenceVar, ty Ty) {
	r := t.root(v)
	if t.cells[r].kind != TyKind {
		panic("traitslg: BindTy on a non-type inference variable")
	}
	if t.cells[r].bound {
		panic("traitslg: double-bind of inference variable " + v.String())
	}
	t.cells[r].bound = true
	t.cells[r].ty = ty
}

// BindLifetime is the Lifetime analogue of BindTy.
func (t *InferenceTable) BindLifetime(v InferenceVar, lt Lifetime) {
	r := t.root(v)
	if t.cells[r].kind != LifetimeKind {
		panic("traitslg: BindLifetime on a non-lifetime inference variable")
	}
	if t.cells[r].bound {
		panic("traitslg: double-bind of inference variable " + v.String())
	}
	t.cells[r].bound = true
	t.cells[r].lt = lt
}

// BindConst is the Const analogue of BindTy.
func (t *InferenceTable) BindConst(v InferenceVar, ct Const) {
	r := t.root(v)
	if t.cells[r].kind != ConstKind {
		panic("traitslg: BindConst on a non-const inference variable")
	}
	if t.cells[r].bound {
		panic("traitslg: double-bind of inference variable " + v.String())
	}
	t.cells[r].bound = true
	t.cells[r].ct = ct
}

// UnifyVars merges two unbound variables of the same kind into one
// equivalence class, keeping the lower (more restrictive) universe as the
// representative's universe so later placeholder-escape checks stay sound.
// It panics if either variable is already bound: the unifier always probes
// before delegating to UnifyVars.
func (t *InferenceTable) UnifyVars(a, b InferenceVar) {
	ra, rb := t.root(a), t.root(b)
	if ra == rb {
		return
	}
	if t.cells[ra].bound || t.cells[rb].bound {
		panic("traitslg: UnifyVars called on a bound variable")
	}
	if t.cells[ra].kind != t.cells[rb].kind {
		panic("traitslg: UnifyVars kind mismatch")
	}
	if t.cells[rb].universe < t.cells[ra].universe {
		ra, rb = rb, ra
	}
	t.cells[rb].parent = ra
}

// AddConstraint records a side constraint (currently only region outlives)
// in the table's accumulator, for DrainConstraints to hand back. The solver
// engines take outlives constraints from UnificationResult, not from here.
func (t *InferenceTable) AddConstraint(c Constraint) { t.constraints = append(t.constraints, c) }

// DrainConstraints returns and clears all constraints recorded so far.
func (t *InferenceTable) DrainConstraints() []Constraint {
	out := t.constraints
	t.constraints = nil
	return out
}

// Clone returns an independent copy of the table. The clone and the receiver
// share no mutable state, so one strand can explore an answer path without
// disturbing its siblings. Pending snapshots are not carried over; a clone
// starts with a clean snapshot stack.
func (t *InferenceTable) Clone() *InferenceTable {
	cells := make([]cell, len(t.cells))
	copy(cells, t.cells)
	constraints := make([]Constraint, len(t.constraints))
	copy(constraints, t.constraints)
	return &InferenceTable{cells: cells, constraints: constraints}
}

// VarKind returns the parameter kind v was created with.
func (t *InferenceTable) VarKind(v InferenceVar) ParameterKind {
	return t.cells[t.root(v)].kind
}

// Snapshot saves the table's variable bindings; the constraint accumulator
// is not saved. A matching Rollback restores the bindings;
// a matching Commit discards the saved copy and keeps the mutations. Callers
// must balance every Snapshot with exactly one Rollback or Commit, in LIFO
// order.
func (t *InferenceTable) Snapshot() {
	saved := make([]cell, len(t.cells))
	copy(saved, t.cells)
	t.snapshots = append(t.snapshots, saved)
}

// Rollback restores the variable bindings saved by the matching Snapshot.
func (t *InferenceTable) Rollback() {
	n := len(t.snapshots)
	if n == 0 {
		panic("traitslg: Rollback without a matching Snapshot")
	}
	t.cells = t.snapshots[n-1]
	t.snapshots = t.snapshots[:n-1]
}

// Commit discards the matching Snapshot, keeping all mutations made since.
func (t *InferenceTable) Commit() {
	n := len(t.snapshots)
	if n == 0 {
		panic("traitslg: Commit without a matching Snapshot")
	}
	t.snapshots = t.snapshots[:n-1]
}

// NormalizeDeepTy resolves every bound inference variable reachable from t,
// recursively, leaving only genuinely free variables and placeholders. It
// does not touch alias projections; that is DeepNormalizeTy's job, driven by
// a caller that can resolve aliases against a program environment.
func (t *InferenceTable) NormalizeDeepTy(ty Ty) Ty {
	switch ty.Tag {
	case TyInferVar:
		if bound, ok := t.ProbeTy(ty.InferVar); ok {
			return t.NormalizeDeepTy(bound)
		}
		return ty
	case TyApply:
		return NewTyApply(ty.ApplyName, t.normalizeDeepParams(ty.ApplySubst)...)
	case TyAliasVar:
		return NewTyAlias(AliasTy{
			TraitID:      ty.Alias.TraitID,
			AssocName:    ty.Alias.AssocName,
			Substitution: t.normalizeDeepParams(ty.Alias.Substitution),
		})
	case TyFnPointer:
		return NewTyFnPointer(FnPointer{
			ABI: ty.FnPtr.ABI, Safe: ty.FnPtr.Safe, Variadic: ty.FnPtr.Variadic,
			NumBinders: ty.FnPtr.NumBinders, Substitution: t.normalizeDeepParams(ty.FnPtr.Substitution),
		})
	default:
		return ty
	}
}

// NormalizeDeepLifetime resolves a bound lifetime variable, if any.
func (t *InferenceTable) NormalizeDeepLifetime(lt Lifetime) Lifetime {
	if lt.Tag == LtInferVar {
		if bound, ok := t.ProbeLifetime(lt.InferVar); ok {
			return t.NormalizeDeepLifetime(bound)
		}
	}
	return lt
}

func (t *InferenceTable) normalizeDeepParams(ps []Parameter) []Parameter {
	if len(ps) == 0 {
		return ps
	}
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		switch p.Kind {
		case TyKind:
			out[i] = ParamTy(t.NormalizeDeepTy(p.Ty))
		case LifetimeKind:
			out[i] = ParamLifetime(t.NormalizeDeepLifetime(p.Lt))
		default:
			out[i] = p
		}
	}
	return out
}

// CanonicalizeTy deep-normalizes ty, then replaces each distinct free
// inference variable with a BoundVar, returning the resulting Canonical
// value together with the list of variables it closed over (in binder
// order, matching Canonical.Kinds()).
func (t *InferenceTable) CanonicalizeTy(ty Ty) (Canonical[Ty], []InferenceVar) {
	normalized := t.NormalizeDeepTy(ty)
	vars := FreeInferenceVars(normalized)
	kinds := make([]ParameterKind, len(vars))
	for i, v := range vars {
		kinds[i] = t.cells[t.root(v)].kind
	}
	body := CanonicalizeTy(normalized, vars)
	return Canonical[Ty]{Binders: NewBinders(kinds, body)}, vars
}

// InstantiateCanonicalTy opens c with fresh inference variables, one per
// binder slot, each introduced in universe u, and returns the instantiated
// type along with the fresh variables created (in slot order).
func (t *InferenceTable) InstantiateCanonicalTy(c Canonical[Ty], u UniverseIndex) (Ty, []InferenceVar) {
	kinds := c.Kinds()
	vars := make([]InferenceVar, len(kinds))
	params := make([]Parameter, len(kinds))
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
			ct := Const{Tag: TyInferVar, InferVar: vars[i]}
			params[i] = ParamConst(ct)
		}
	}
	return InstantiateTy(c.Binders, params), vars
}

// InstantiateCanonicalTyWithPlaceholders opens c with fresh placeholders in
// a freshly raised universe, the way a universally quantified goal is
// entered during proof search (skolemization).
func (t *InferenceTable) InstantiateCanonicalTyWithPlaceholders(c Canonical[Ty], nextUniverse *UniverseIndex, nextIndex *uint32) Ty {
	u := *nextUniverse
	*nextUniverse = u.Next()
	kinds := c.Kinds()
	params := make([]Parameter, len(kinds))
	for i, k := range kinds {
		ph := Placeholder{Universe: u, Index: *nextIndex}
		*nextIndex++
		switch k {
		case TyKind:
			params[i] = ParamTy(NewTyPlaceholder(ph))
		case LifetimeKind:
			params[i] = ParamLifetime(NewLtPlaceholder(ph))
		default:
			params[i] = ParamConst(Const{Tag: TyPlaceholderVar, Placeholder: ph})
		}
	}
	return InstantiateTy(c.Binders, params)
}
