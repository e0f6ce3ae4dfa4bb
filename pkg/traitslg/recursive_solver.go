package traitslg

import (
	"context"
	"sync"
)

// RecursiveConfig holds the recursive engine's budgets.
type RecursiveConfig struct {
	// MaxDepth bounds goal-tree recursion; exceeding it yields CannotProve.
	MaxDepth int
	// MaxFixpointRounds bounds re-evaluation of a goal whose derivation
	// cycled before its tentative answer stabilizes.
	MaxFixpointRounds int
}

// DefaultRecursiveConfig returns the budgets used when the caller does not
// override them.
func DefaultRecursiveConfig() RecursiveConfig {
	return RecursiveConfig{MaxDepth: 128, MaxFixpointRounds: 16}
}

// cacheEntry is one memoized domain-goal outcome: the solution kind plus,
// for Unique, the canonical answer substitution and its constraints.
type cacheEntry struct {
	kind        SolutionKind
	kinds       []ParameterKind
	subst       []Parameter
	constraints []Constraint
}

// resultCache is the recursive solver's shared memo. It is the only state
// shared across Solve calls; the critical sections are strictly the map
// insert and lookup, and losing a race costs only a harmless recomputation
// (results are equal modulo alpha-renaming).
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResultCache() *resultCache {
	return &resultCache{entries: map[string]cacheEntry{}}
}

func (c *resultCache) get(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *resultCache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// RecursiveSolver is the alternative engine: a depth-bounded fixed-point
// search with a shared result cache and a per-invocation stack of
// in-progress goals. It trades the forest's full answer enumeration for a
// single Solution per goal.
type RecursiveSolver struct {
	penv     ProgramEnvironment
	cfg      RecursiveConfig
	cache    *resultCache
	interner *Interner
	trace    tracer
}

// NewRecursiveSolver returns a recursive solver over penv with its own
// result cache.
func NewRecursiveSolver(penv ProgramEnvironment, cfg RecursiveConfig) *RecursiveSolver {
	return &RecursiveSolver{
		penv:     penv,
		cfg:      cfg,
		cache:    newResultCache(),
		interner: NewInterner(),
		trace:    newTracer(nil),
	}
}

// recFrame is one in-progress goal on the per-invocation stack.
type recFrame struct {
	key         string
	coinductive bool
	cycled      bool
	tentative   cacheEntry
}

// recState is the per-Solve mutable context: the cancellation handle, the
// goal stack, the constraint accumulator, and the universe/placeholder
// counters.
type recState struct {
	ctx             context.Context
	stack           []*recFrame
	constraints     []Constraint
	universe        UniverseIndex
	nextPlaceholder uint32
}

func (st *recState) openUniversal(kinds []ParameterKind) []Parameter {
	params := make([]Parameter, len(kinds))
	for i, k := range kinds {
		ph := Placeholder{Universe: st.universe, Index: st.nextPlaceholder}
		st.nextPlaceholder++
		switch k {
		case TyKind:
			params[i] = ParamTy(NewTyPlaceholder(ph))
		case LifetimeKind:
			params[i] = ParamLifetime(NewLtPlaceholder(ph))
		default:
			params[i] = ParamConst(Const{Tag: TyPlaceholderVar, Placeholder: ph})
		}
	}
	return params
}

// Solve resolves goal against env, returning a single Solution. Root-level
// existential binders are peeled first so their instantiations surface in
// the answer substitution. ctx is observed between resolution rounds;
// cancellation surfaces as CannotProve, like an exhausted depth budget.
func (r *RecursiveSolver) Solve(ctx context.Context, env Environment, goal Goal) Solution {
	if ctx == nil {
		ctx = context.Background()
	}
	infer := NewInferenceTable()
	st := &recState{ctx: ctx, universe: env.Universe}

	root := goal
	var rootVars []InferenceVar
	for root.Tag == GoalExists {
		params, vars := openExistential(infer, root.Binder.ParameterKinds, st.universe)
		rootVars = append(rootVars, vars...)
		root = SubstGoal(root.Binder.Value, params, 0)
	}

	kind := r.solveGoal(st, env, root, infer, 0)
	if kind != SolutionUnique {
		return Solution{Kind: kind}
	}

	subst := make([]Parameter, len(rootVars))
	for i, v := range rootVars {
		switch infer.VarKind(v) {
		case TyKind:
			subst[i] = ParamTy(infer.NormalizeDeepTy(NewTyInferVar(v)))
		case LifetimeKind:
			subst[i] = ParamLifetime(infer.NormalizeDeepLifetime(NewLtInferVar(v)))
		default:
			ct := Const{Tag: TyInferVar, InferVar: v}
			if bound, ok := infer.ProbeConst(v); ok {
				ct = bound
			}
			subst[i] = ParamConst(ct)
		}
	}
	constraints := make([]Constraint, 0, len(st.constraints))
	seen := map[string]bool{}
	for _, c := range st.constraints {
		resolved := Constraint{
			Long:  infer.NormalizeDeepLifetime(c.Long),
			Short: infer.NormalizeDeepLifetime(c.Short),
		}
		if key := resolved.String(); !seen[key] {
			seen[key] = true
			constraints = append(constraints, resolved)
		}
	}

	collect := append([]Parameter(nil), subst...)
	for _, c := range constraints {
		collect = append(collect, ParamLifetime(c.Long), ParamLifetime(c.Short))
	}
	residual := freeParamsInferenceVars(collect, map[InferenceVar]bool{}, nil)
	kinds := make([]ParameterKind, len(residual))
	index := make(map[InferenceVar]uint32, len(residual))
	for i, v := range residual {
		kinds[i] = infer.VarKind(v)
		index[v] = uint32(i)
	}
	canonSubst := canonicalizeParamsAt(subst, index, 0)
	canonConstraints := make([]Constraint, len(constraints))
	for i, c := range constraints {
		canonConstraints[i] = Constraint{
			Long:  canonicalizeLifetimeVar(c.Long, index),
			Short: canonicalizeLifetimeVar(c.Short, index),
		}
	}

	return Solution{
		Kind:        SolutionUnique,
		Subst:       Canonical[[]Parameter]{Binders: NewBinders(kinds, canonSubst)},
		Constraints: canonConstraints,
	}
}

// combineConjunct folds one conjunct's outcome into a running conjunction
// kind. NoSolution is definitive; CannotProve outranks Ambiguous.
func combineConjunct(acc, k SolutionKind) SolutionKind {
	switch {
	case acc == SolutionNoSolution || k == SolutionNoSolution:
		return SolutionNoSolution
	case acc == SolutionCannotProve || k == SolutionCannotProve:
		return SolutionCannotProve
	case acc == SolutionAmbiguous || k == SolutionAmbiguous:
		return SolutionAmbiguous
	default:
		return SolutionUnique
	}
}

func (r *RecursiveSolver) solveGoal(st *recState, env Environment, g Goal, infer *InferenceTable, depth int) SolutionKind {
	if depth > r.cfg.MaxDepth || st.ctx.Err() != nil {
		return SolutionCannotProve
	}
	switch g.Tag {
	case GoalAnd:
		kind := SolutionUnique
		for _, c := range g.Conjuncts {
			kind = combineConjunct(kind, r.solveGoal(st, env, c, infer, depth+1))
			if kind == SolutionNoSolution {
				return SolutionNoSolution
			}
		}
		return kind
	case GoalExists:
		params, _ := openExistential(infer, g.Binder.ParameterKinds, st.universe)
		return r.solveGoal(st, env, SubstGoal(g.Binder.Value, params, 0), infer, depth+1)
	case GoalForAll:
		st.universe = st.universe.Next()
		params := st.openUniversal(g.Binder.ParameterKinds)
		inner := Environment{Clauses: env.Clauses, Universe: st.universe}
		return r.solveGoal(st, inner, SubstGoal(g.Binder.Value, params, 0), infer, depth+1)
	case GoalImplies:
		return r.solveGoal(st, env.Extend(ElaborateHypotheses(g.Hypotheses)), *g.Inner, infer, depth+1)
	case GoalNot:
		infer.Snapshot()
		k := r.solveGoal(st, env, *g.Inner, infer, depth+1)
		infer.Rollback()
		switch k {
		case SolutionNoSolution:
			return SolutionUnique
		case SolutionUnique:
			return SolutionNoSolution
		default:
			return SolutionAmbiguous
		}
	case GoalUnify:
		var res UnificationResult
		u := NewUnifier(infer, r.interner)
		if err := u.UnifyParameter(&res, g.LHS, g.RHS); err != nil {
			return SolutionNoSolution
		}
		st.constraints = append(st.constraints, res.Constraints...)
		kind := SolutionUnique
		for _, sub := range res.Goals {
			kind = combineConjunct(kind, r.solveGoal(st, env, sub, infer, depth+1))
			if kind == SolutionNoSolution {
				return SolutionNoSolution
			}
		}
		return kind
	case GoalCannotProve:
		return SolutionCannotProve
	case GoalDomain:
		return r.solveDomain(st, env, g.Domain, infer, depth)
	default:
		panic("traitslg: solveGoal: unreachable goal tag")
	}
}

func (r *RecursiveSolver) solveDomain(st *recState, env Environment, d DomainGoal, infer *InferenceTable, depth int) SolutionKind {
	canonical, vars := infer.CanonicalizeGoal(d)
	ucanon := UCanonicalizeGoal(canonical)
	key := tableKey(env, ucanon)

	if e, ok := r.cache.get(key); ok {
		return r.applyEntry(st, env, infer, vars, e, depth)
	}
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i].key == key {
			for j := i; j < len(st.stack); j++ {
				st.stack[j].cycled = true
			}
			return st.stack[i].tentative.kind
		}
	}

	frame := &recFrame{key: key, coinductive: IsCoinductiveGoal(d, r.penv)}
	if frame.coinductive {
		frame.tentative = cacheEntry{kind: SolutionUnique}
	} else {
		frame.tentative = cacheEntry{kind: SolutionNoSolution}
	}
	st.stack = append(st.stack, frame)

	var entry cacheEntry
	for round := 0; ; round++ {
		entry = r.resolveDomain(st, env, d, infer, vars, depth)
		if !frame.cycled || entry.kind == frame.tentative.kind || round >= r.cfg.MaxFixpointRounds {
			break
		}
		frame.tentative = entry
		frame.cycled = false
	}
	st.stack = st.stack[:len(st.stack)-1]

	// Caching mid-cycle would freeze a tentative answer, and caching under a
	// cancelled context would poison later solves with CannotProve; only
	// commit when no outer frame is still iterating and the work ran to its
	// natural end.
	cacheable := st.ctx.Err() == nil
	for _, fr := range st.stack {
		if fr.cycled {
			cacheable = false
			break
		}
	}
	if cacheable {
		r.cache.put(key, entry)
	}
	return r.applyEntry(st, env, infer, vars, entry, depth)
}

// resolveDomain runs one resolution round: try every could-match clause
// under a snapshot, solve its conditions recursively, and fold the per-clause
// outcomes into a single entry. Bindings never leak out of this function;
// applyEntry re-establishes the winning substitution afterwards.
func (r *RecursiveSolver) resolveDomain(st *recState, env Environment, d DomainGoal, infer *InferenceTable, vars []InferenceVar, depth int) cacheEntry {
	candidates, err := CandidateClauses(env, r.penv, d)
	if err != nil {
		return cacheEntry{kind: SolutionCannotProve}
	}

	var hits []cacheEntry
	seen := map[string]bool{}
	sawAmbiguous := false
	sawCannotProve := false

	for _, clause := range candidates {
		infer.Snapshot()
		consBefore := len(st.constraints)

		impl := InstantiateClause(infer, clause, st.universe)
		var res UnificationResult
		u := NewUnifier(infer, r.interner)
		if err := u.UnifyDomainGoal(&res, impl.Consequent, d); err != nil {
			infer.Rollback()
			continue
		}
		st.constraints = append(st.constraints, res.Constraints...)

		kind := SolutionUnique
		goals := append(append([]Goal(nil), impl.Conditions...), res.Goals...)
		for _, g := range goals {
			kind = combineConjunct(kind, r.solveGoal(st, env, g, infer, depth+1))
			if kind == SolutionNoSolution {
				break
			}
		}

		switch kind {
		case SolutionUnique:
			hit := r.readAnswer(st, infer, vars, consBefore)
			if key := SubstKey(hit.subst); !seen[key] {
				seen[key] = true
				hits = append(hits, hit)
			}
		case SolutionAmbiguous:
			sawAmbiguous = true
		case SolutionCannotProve:
			sawCannotProve = true
		}

		st.constraints = st.constraints[:consBefore]
		infer.Rollback()
	}

	switch {
	case len(hits) == 1 && !sawAmbiguous:
		return hits[0]
	case len(hits) > 1 || sawAmbiguous:
		return cacheEntry{kind: SolutionAmbiguous}
	case sawCannotProve:
		return cacheEntry{kind: SolutionCannotProve}
	default:
		return cacheEntry{kind: SolutionNoSolution}
	}
}

// readAnswer canonicalizes the current binding of the goal's free variables
// together with the constraints this clause contributed.
func (r *RecursiveSolver) readAnswer(st *recState, infer *InferenceTable, vars []InferenceVar, consBefore int) cacheEntry {
	subst := make([]Parameter, len(vars))
	for i, v := range vars {
		switch infer.VarKind(v) {
		case TyKind:
			subst[i] = ParamTy(infer.NormalizeDeepTy(NewTyInferVar(v)))
		case LifetimeKind:
			subst[i] = ParamLifetime(infer.NormalizeDeepLifetime(NewLtInferVar(v)))
		default:
			ct := Const{Tag: TyInferVar, InferVar: v}
			if bound, ok := infer.ProbeConst(v); ok {
				ct = bound
			}
			subst[i] = ParamConst(ct)
		}
	}
	constraints := make([]Constraint, 0, len(st.constraints)-consBefore)
	for _, c := range st.constraints[consBefore:] {
		constraints = append(constraints, Constraint{
			Long:  infer.NormalizeDeepLifetime(c.Long),
			Short: infer.NormalizeDeepLifetime(c.Short),
		})
	}

	collect := append([]Parameter(nil), subst...)
	for _, c := range constraints {
		collect = append(collect, ParamLifetime(c.Long), ParamLifetime(c.Short))
	}
	residual := freeParamsInferenceVars(collect, map[InferenceVar]bool{}, nil)
	kinds := make([]ParameterKind, len(residual))
	index := make(map[InferenceVar]uint32, len(residual))
	for i, v := range residual {
		kinds[i] = infer.VarKind(v)
		index[v] = uint32(i)
	}
	canonConstraints := make([]Constraint, len(constraints))
	for i, c := range constraints {
		canonConstraints[i] = Constraint{
			Long:  canonicalizeLifetimeVar(c.Long, index),
			Short: canonicalizeLifetimeVar(c.Short, index),
		}
	}
	canonSubst := canonicalizeParamsAt(subst, index, 0)
	for i := range canonSubst {
		canonSubst[i] = r.interner.InternParameter(canonSubst[i])
	}
	return cacheEntry{
		kind:        SolutionUnique,
		kinds:       kinds,
		subst:       canonSubst,
		constraints: canonConstraints,
	}
}

// applyEntry replays a memoized Unique answer against the live inference
// table, binding the goal's free variables and re-raising its constraints.
func (r *RecursiveSolver) applyEntry(st *recState, env Environment, infer *InferenceTable, vars []InferenceVar, e cacheEntry, depth int) SolutionKind {
	if e.kind != SolutionUnique {
		return e.kind
	}
	params, _ := openExistential(infer, e.kinds, st.universe)
	u := NewUnifier(infer, r.interner)
	var res UnificationResult
	for i, v := range vars {
		val := substParamAt(e.subst[i], params, 0)
		if err := u.UnifyParameter(&res, varParameter(infer.VarKind(v), v), val); err != nil {
			return SolutionNoSolution
		}
	}
	for _, c := range e.constraints {
		st.constraints = append(st.constraints, Constraint{
			Long:  substLifetimeAt(c.Long, params, 0),
			Short: substLifetimeAt(c.Short, params, 0),
		})
	}
	st.constraints = append(st.constraints, res.Constraints...)
	kind := SolutionUnique
	for _, g := range res.Goals {
		kind = combineConjunct(kind, r.solveGoal(st, env, g, infer, depth+1))
		if kind == SolutionNoSolution {
			return SolutionNoSolution
		}
	}
	return kind
}
