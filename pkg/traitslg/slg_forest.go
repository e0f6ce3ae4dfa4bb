package traitslg

import (
	"context"

	"go.uber.org/zap"
)

// ForestConfig holds the SLG engine's termination budgets. Exceeding the
// per-table answer or step budget flounders the table (CannotProve at the
// top, or Ambiguous if the table already holds answers); exceeding AnswerLimit at the root collapses to Ambiguous with no
// guidance, since enumerating every instantiation stopped being useful.
type ForestConfig struct {
	// MaxTableAnswers bounds the answers any single table may accumulate.
	MaxTableAnswers int
	// AnswerLimit bounds how many root answers aggregation will inspect.
	AnswerLimit int
	// MaxDepth bounds the table stack (implication depth).
	MaxDepth int
	// MaxStrandSteps bounds the strand steps spent per solving round.
	MaxStrandSteps int
}

// DefaultForestConfig returns the budgets used when the caller does not
// override them.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		MaxTableAnswers: 256,
		AnswerLimit:     10,
		MaxDepth:        128,
		MaxStrandSteps:  10000,
	}
}

// unlinked marks "no dependence on any in-progress table".
const unlinked = int(^uint(0) >> 1)

// Forest is the SLG tabling engine: the set of tables reachable from a root
// goal, plus the stack of tables currently being solved, each stamped with a
// depth-first number for cycle classification. A Forest is exclusively owned
// by one Solve call and solved by one goroutine.
type Forest struct {
	penv        ProgramEnvironment
	cfg         ForestConfig
	interner    *Interner
	trace       tracer
	ctx         context.Context
	tables      map[string]*Table
	stack       []*Table
	answerEpoch int
}

// NewForest returns an empty forest over penv. logger may be nil.
func NewForest(penv ProgramEnvironment, cfg ForestConfig, logger *zap.Logger) *Forest {
	return newForest(penv, cfg, NewInterner(), newTracer(logger))
}

func newForest(penv ProgramEnvironment, cfg ForestConfig, in *Interner, tr tracer) *Forest {
	return &Forest{
		penv:     penv,
		cfg:      cfg,
		interner: in,
		trace:    tr,
		ctx:      context.Background(),
		tables:   map[string]*Table{},
	}
}

// SolveRoot canonicalizes goal, solves its table to exhaustion, and
// aggregates the answer set into a Solution. Root-level existential binders
// are peeled first so their instantiations surface in the answer
// substitution. ctx is observed between strand steps; cancellation
// flounders the in-progress table, surfacing as CannotProve.
func (f *Forest) SolveRoot(ctx context.Context, env Environment, goal Goal) Solution {
	if ctx == nil {
		ctx = context.Background()
	}
	f.ctx = ctx
	infer := NewInferenceTable()
	root := goal
	for root.Tag == GoalExists {
		params, _ := openExistential(infer, root.Binder.ParameterKinds, env.Universe)
		root = SubstGoal(root.Binder.Value, params, 0)
	}
	canonical, _ := infer.CanonicalizeFullGoal(root)
	ucanon := UCanonicalizeGoal(canonical)
	t := f.getOrCreate(env, ucanon)
	f.solveTable(t)
	return f.aggregate(t)
}

func (f *Forest) getOrCreate(env Environment, u UCanonical[Goal]) *Table {
	key := tableKey(env, u)
	if t, ok := f.tables[key]; ok {
		return t
	}
	body := u.Canonical.Value()
	t := &Table{
		key:         key,
		goal:        u.Canonical,
		env:         env,
		maxUniverse: maxGoalUniverse(body),
		coinductive: IsCoinductiveGoalTree(body, f.penv),
		answerKeys:  map[string]bool{},
	}
	f.tables[key] = t
	f.trace.tableCreated(key)
	return t
}

func maxGoalUniverse(g Goal) UniverseIndex {
	max := Root
	for _, u := range placeholderUniversesGoal(g, map[UniverseIndex]bool{}, nil) {
		if u > max {
			max = u
		}
	}
	return max
}

// solveTable drives t as far as it can go, returning the lowest depth-first
// number of any in-progress table t's derivation still depends on (unlinked
// when none). Tables with no such dependence are completed; tables inside an
// unfinished cycle stay provisional and resume when re-entered.
func (f *Forest) solveTable(t *Table) int {
	if t.completed {
		return unlinked
	}
	if t.onStack {
		return t.dfn
	}
	if len(f.stack) >= f.cfg.MaxDepth || f.ctx.Err() != nil {
		t.floundered = true
		t.completed = true
		f.trace.floundered(t.key)
		return unlinked
	}

	t.dfn = len(f.stack) + 1
	t.onStack = true
	f.stack = append(f.stack, t)
	f.seed(t)

	minLink := unlinked
	for {
		t.strands = append(t.strands, t.blocked...)
		t.blocked = nil
		epochBefore := f.answerEpoch
		if link := f.runStrands(t); link < minLink {
			minLink = link
		}
		if t.floundered || len(t.blocked) == 0 {
			break
		}
		if f.answerEpoch == epochBefore {
			// a full round added no answer anywhere: the suspended strands
			// can never be resumed, so the fixed point has been reached
			break
		}
	}

	f.stack = f.stack[:len(f.stack)-1]
	t.onStack = false

	if minLink >= t.dfn {
		t.blocked = nil
		t.strands = nil
		t.completed = true
		f.dischargeDelayed(t)
		return unlinked
	}
	return minLink
}

// seed populates a fresh table's strands. Domain-goal tables get one strand
// per could-match clause whose consequent unifies with the goal; any other
// goal shape gets a single strand that decomposes the goal structurally.
func (f *Forest) seed(t *Table) {
	if t.seeded {
		return
	}
	t.seeded = true
	if t.goal.Value().Tag == GoalDomain {
		f.seedDomain(t)
		return
	}
	infer := NewInferenceTable()
	goal, vars := infer.InstantiateCanonicalGoal(t.goal, t.maxUniverse)
	t.strands = append(t.strands, &Strand{
		infer:    infer,
		goalVars: vars,
		universe: t.maxUniverse,
		ex: ExClause{
			Subgoals: []Literal{{Positive: true, Env: t.env, Goal: goal}},
		},
	})
}

func (f *Forest) seedDomain(t *Table) {
	probe := NewInferenceTable()
	probeGoal, _ := probe.InstantiateCanonicalGoal(t.goal, t.maxUniverse)
	candidates, err := CandidateClauses(t.env, f.penv, probeGoal.Domain)
	if err != nil {
		t.floundered = true
		f.trace.floundered(t.key)
		return
	}
	for _, clause := range candidates {
		infer := NewInferenceTable()
		goal, vars := infer.InstantiateCanonicalGoal(t.goal, t.maxUniverse)
		impl := InstantiateClause(infer, clause, t.maxUniverse)
		var res UnificationResult
		u := NewUnifier(infer, f.interner)
		if err := u.UnifyDomainGoal(&res, impl.Consequent, goal.Domain); err != nil {
			continue
		}
		lits := make([]Literal, 0, len(impl.Conditions)+len(res.Goals))
		for _, c := range impl.Conditions {
			lits = append(lits, Literal{Positive: true, Env: t.env, Goal: c})
		}
		for _, g := range res.Goals {
			lits = append(lits, Literal{Positive: true, Env: t.env, Goal: g})
		}
		t.strands = append(t.strands, &Strand{
			infer:    infer,
			goalVars: vars,
			universe: t.maxUniverse,
			ex:       ExClause{Subgoals: lits, Constraints: res.Constraints},
		})
	}
}

// runStrands advances t's work list until it drains, strands suspend, or a
// budget trips. It returns the lowest DFN of any on-stack table the
// suspended strands are waiting on.
func (f *Forest) runStrands(t *Table) int {
	minLink := unlinked
	steps := 0
	for len(t.strands) > 0 {
		steps++
		if steps > f.cfg.MaxStrandSteps || len(t.answers) > f.cfg.MaxTableAnswers || f.ctx.Err() != nil {
			t.floundered = true
			t.strands = nil
			f.trace.floundered(t.key)
			break
		}
		s := t.strands[0]
		t.strands = t.strands[1:]
		f.trace.strandAdvanced(t.key, steps)
		res, link, last := f.step(t, s)
		if link < minLink {
			minLink = link
		}
		switch res {
		case stepBlocked:
			t.blocked = append(t.blocked, last)
		case stepFlounder:
			t.floundered = true
			t.strands = nil
			f.trace.floundered(t.key)
		}
	}
	return minLink
}

type stepResult int

const (
	stepContinue stepResult = iota
	stepDead
	stepBlocked
	stepAnswer
	stepFlounder
)

// step advances one strand until it produces an answer, dies, suspends, or
// flounders its table. Compound goals are decomposed in place; domain goals
// suspend the strand on a subgoal table. The returned strand is whichever
// clone was live when the step ended; a suspended strand must be re-enqueued
// under that identity, not the one the caller popped.
func (f *Forest) step(t *Table, s *Strand) (stepResult, int, *Strand) {
	minLink := unlinked
	for {
		if s.selected != nil {
			res, link, next := f.advanceSelected(t, s)
			if link < minLink {
				minLink = link
			}
			if res == stepContinue {
				s = next
				continue
			}
			return res, minLink, s
		}

		i := s.ex.selectIndex()
		if i < 0 {
			f.produceAnswer(t, s)
			return stepAnswer, minLink, s
		}
		lit := s.ex.Subgoals[i]
		if !lit.Positive {
			res, link := f.stepNegative(s, i, lit)
			if link < minLink {
				minLink = link
			}
			if res != stepContinue {
				return res, minLink, s
			}
			continue
		}

		switch lit.Goal.Tag {
		case GoalAnd:
			lits := make([]Literal, len(lit.Goal.Conjuncts))
			for j, c := range lit.Goal.Conjuncts {
				lits[j] = Literal{Positive: true, Env: lit.Env, Goal: c}
			}
			s.ex.replaceSubgoal(i, lits...)
		case GoalExists:
			params, _ := openExistential(s.infer, lit.Goal.Binder.ParameterKinds, s.universe)
			s.ex.Subgoals[i] = Literal{
				Positive: true,
				Env:      lit.Env,
				Goal:     SubstGoal(lit.Goal.Binder.Value, params, 0),
			}
		case GoalForAll:
			s.universe = s.universe.Next()
			params := s.openUniversal(lit.Goal.Binder.ParameterKinds)
			env := Environment{Clauses: lit.Env.Clauses, Universe: s.universe}
			s.ex.Subgoals[i] = Literal{
				Positive: true,
				Env:      env,
				Goal:     SubstGoal(lit.Goal.Binder.Value, params, 0),
			}
		case GoalImplies:
			env := lit.Env.Extend(ElaborateHypotheses(lit.Goal.Hypotheses))
			s.ex.Subgoals[i] = Literal{Positive: true, Env: env, Goal: *lit.Goal.Inner}
		case GoalNot:
			s.ex.Subgoals[i] = Literal{Positive: false, Env: lit.Env, Goal: *lit.Goal.Inner}
		case GoalUnify:
			var res UnificationResult
			u := NewUnifier(s.infer, f.interner)
			if err := u.UnifyParameter(&res, lit.Goal.LHS, lit.Goal.RHS); err != nil {
				return stepDead, minLink, s
			}
			s.ex.removeSubgoal(i)
			for _, g := range res.Goals {
				s.ex.Subgoals = append(s.ex.Subgoals, Literal{Positive: true, Env: lit.Env, Goal: g})
			}
			s.ex.Constraints = append(s.ex.Constraints, res.Constraints...)
		case GoalCannotProve:
			return stepFlounder, minLink, s
		case GoalDomain:
			canonical, vars := s.infer.CanonicalizeGoal(lit.Goal.Domain)
			ucanon := UCanonicalizeGoal(canonical)
			sub := f.getOrCreate(lit.Env, ucanon)
			s.selected = &SelectedSubgoal{
				SubgoalIndex: i,
				TableKey:     sub.key,
				Vars:         vars,
				Universes:    ucanon.UniverseMap,
			}
		default:
			panic("traitslg: step: unreachable goal tag")
		}
	}
}

// advanceSelected moves a strand paused on a subgoal: consume the subgoal
// table's next answer (continuing in a clone while the original waits for
// further answers), assume the subgoal inside a coinductive cycle, suspend
// on an inductive cycle, or die when the table is exhausted.
func (f *Forest) advanceSelected(t *Table, s *Strand) (stepResult, int, *Strand) {
	sel := s.selected
	sub := f.tables[sel.TableKey]
	minLink := unlinked

	if sub.onStack {
		if sub.dfn < minLink {
			minLink = sub.dfn
		}
		if f.coinductiveSegment(sub.dfn) {
			f.trace.cycleDetected(sub.key, true)
			s.ex.Delayed = append(s.ex.Delayed, sub.key)
			s.ex.removeSubgoal(sel.SubgoalIndex)
			s.selected = nil
			return stepContinue, minLink, s
		}
		f.trace.cycleDetected(sub.key, false)
		if sel.AnswerIndex >= len(sub.answers) {
			return stepBlocked, minLink, nil
		}
	} else {
		if !sub.completed {
			if link := f.solveTable(sub); link < minLink {
				minLink = link
			}
		}
		if sub.floundered {
			return stepFlounder, minLink, nil
		}
		if sel.AnswerIndex >= len(sub.answers) {
			if sub.completed {
				return stepDead, minLink, nil
			}
			return stepBlocked, minLink, nil
		}
	}

	ans := sub.answers[sel.AnswerIndex]
	cont := s.clone()
	sel.AnswerIndex++
	t.strands = append(t.strands, s)
	if err := f.applyAnswer(cont, sel, ans); err != nil {
		return stepDead, minLink, nil
	}
	cont.ex.removeSubgoal(sel.SubgoalIndex)
	return stepContinue, minLink, cont
}

// coinductiveSegment reports whether every table on the stack from dfn
// upward is coinductive, the condition for a cycle to be resolved by
// assumption rather than suspension.
func (f *Forest) coinductiveSegment(fromDFN int) bool {
	for i := fromDFN - 1; i < len(f.stack); i++ {
		if !f.stack[i].coinductive {
			return false
		}
	}
	return true
}

// stepNegative discharges a negative literal. The negated goal's table is
// solved to exhaustion first: no answers means the negation holds; a ground
// answer refutes it; anything murkier (floundering, open cycles, answers
// against an under-instantiated goal) degrades to ambiguity.
func (f *Forest) stepNegative(s *Strand, i int, lit Literal) (stepResult, int) {
	canonical, vars := s.infer.CanonicalizeFullGoal(lit.Goal)
	ucanon := UCanonicalizeGoal(canonical)
	sub := f.getOrCreate(lit.Env, ucanon)

	if sub.onStack {
		s.ex.Ambiguous = true
		s.ex.removeSubgoal(i)
		return stepContinue, sub.dfn
	}
	minLink := unlinked
	if !sub.completed {
		if link := f.solveTable(sub); link < minLink {
			minLink = link
		}
	}
	switch {
	case !sub.completed || sub.floundered:
		s.ex.Ambiguous = true
		s.ex.removeSubgoal(i)
	case len(sub.answers) == 0:
		s.ex.removeSubgoal(i)
	case len(vars) == 0:
		return stepDead, minLink
	default:
		s.ex.Ambiguous = true
		s.ex.removeSubgoal(i)
	}
	return stepContinue, minLink
}

// applyAnswer unifies a strand's subgoal variables with one answer of the
// subgoal's table, translating the answer out of the table's compacted
// universe numbering first.
func (f *Forest) applyAnswer(s *Strand, sel *SelectedSubgoal, ans Answer) error {
	params, _ := openExistential(s.infer, ans.Kinds, s.universe)
	back := answerBackMap(sel.Universes, ans)

	u := NewUnifier(s.infer, f.interner)
	var res UnificationResult
	for i, v := range sel.Vars {
		val := substParamAt(ans.Subst[i], params, 0)
		val = remapUniverseParams([]Parameter{val}, back)[0]
		if err := u.UnifyParameter(&res, varParameter(s.infer.VarKind(v), v), val); err != nil {
			return err
		}
	}
	for _, c := range ans.Constraints {
		s.ex.Constraints = append(s.ex.Constraints, remapAnswerConstraint(c, params, back))
	}
	s.ex.Constraints = append(s.ex.Constraints, res.Constraints...)
	s.ex.Delayed = append(s.ex.Delayed, ans.Delayed...)
	if ans.Ambiguous {
		s.ex.Ambiguous = true
	}
	for _, g := range res.Goals {
		s.ex.Subgoals = append(s.ex.Subgoals, Literal{Positive: true, Env: s.ex.Subgoals[sel.SubgoalIndex].Env, Goal: g})
	}
	return nil
}

// answerBackMap builds a total placeholder-universe translation for one
// answer: universes the subgoal table compacted map back to the caller's
// originals, universes the table introduced internally stay as they are.
func answerBackMap(um UniverseMap, ans Answer) map[UniverseIndex]UniverseIndex {
	us := placeholderUniversesParams(ans.Subst, map[UniverseIndex]bool{}, nil)
	for _, c := range ans.Constraints {
		for _, lt := range []Lifetime{c.Long, c.Short} {
			if lt.Tag == LtPlaceholderVar {
				us = append(us, lt.Placeholder.Universe)
			}
		}
	}
	m := map[UniverseIndex]UniverseIndex{Root: Root}
	for _, u := range us {
		if int(u) < len(um.ToOriginal) {
			m[u] = um.ToOriginal[u]
		} else {
			m[u] = u
		}
	}
	return m
}

func remapAnswerConstraint(c Constraint, params []Parameter, back map[UniverseIndex]UniverseIndex) Constraint {
	long := substLifetimeAt(c.Long, params, 0)
	short := substLifetimeAt(c.Short, params, 0)
	if long.Tag == LtPlaceholderVar {
		if u, ok := back[long.Placeholder.Universe]; ok {
			long.Placeholder.Universe = u
		}
	}
	if short.Tag == LtPlaceholderVar {
		if u, ok := back[short.Placeholder.Universe]; ok {
			short.Placeholder.Universe = u
		}
	}
	return Constraint{Long: long, Short: short}
}

// produceAnswer reads the completed strand's substitution off its goal
// variables, canonicalizes it together with its constraints, and adds it to
// the table's answer set.
func (f *Forest) produceAnswer(t *Table, s *Strand) {
	subst := make([]Parameter, len(s.goalVars))
	for i, v := range s.goalVars {
		switch s.infer.VarKind(v) {
		case TyKind:
			subst[i] = ParamTy(s.infer.NormalizeDeepTy(NewTyInferVar(v)))
		case LifetimeKind:
			subst[i] = ParamLifetime(s.infer.NormalizeDeepLifetime(NewLtInferVar(v)))
		default:
			ct := Const{Tag: TyInferVar, InferVar: v}
			if bound, ok := s.infer.ProbeConst(v); ok {
				ct = bound
			}
			subst[i] = ParamConst(ct)
		}
	}

	constraints := make([]Constraint, 0, len(s.ex.Constraints))
	seenConstraints := map[string]bool{}
	for _, c := range s.ex.Constraints {
		resolved := Constraint{
			Long:  s.infer.NormalizeDeepLifetime(c.Long),
			Short: s.infer.NormalizeDeepLifetime(c.Short),
		}
		if key := resolved.String(); !seenConstraints[key] {
			seenConstraints[key] = true
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
		kinds[i] = s.infer.VarKind(v)
		index[v] = uint32(i)
	}
	canonSubst := canonicalizeParamsAt(subst, index, 0)
	for i := range canonSubst {
		canonSubst[i] = f.interner.InternParameter(canonSubst[i])
	}
	canonConstraints := make([]Constraint, len(constraints))
	for i, c := range constraints {
		canonConstraints[i] = Constraint{
			Long:  canonicalizeLifetimeVar(c.Long, index),
			Short: canonicalizeLifetimeVar(c.Short, index),
		}
	}

	a := Answer{
		Kinds:       kinds,
		Subst:       canonSubst,
		Constraints: canonConstraints,
		Delayed:     dedupStrings(s.ex.Delayed),
		Ambiguous:   s.ex.Ambiguous,
	}
	a.key = answerKey(a)
	if t.addAnswer(a) {
		f.answerEpoch++
	}
}

func canonicalizeLifetimeVar(l Lifetime, index map[InferenceVar]uint32) Lifetime {
	if l.Tag == LtInferVar {
		if i, ok := index[l.InferVar]; ok {
			return NewLtBound(BoundVar{Debruijn: INNERMOST, Index: i})
		}
	}
	return l
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// dischargeDelayed settles the coinductive assumptions riding on a completed
// table's answers. An answer assuming its own table is justified by its own
// membership in the answer set; an answer assuming another table survives
// unless that table finished with an empty answer set.
func (f *Forest) dischargeDelayed(t *Table) {
	kept := t.answers[:0]
	for _, a := range t.answers {
		ok := true
		for _, key := range a.Delayed {
			if key == t.key {
				continue
			}
			if sub, found := f.tables[key]; found && sub.completed && len(sub.answers) == 0 {
				ok = false
				break
			}
		}
		if ok {
			a.Delayed = nil
			kept = append(kept, a)
		}
	}
	t.answers = kept
}

// aggregate collapses a root table's answer set into a Solution.
func (f *Forest) aggregate(t *Table) Solution {
	if len(t.answers) == 0 {
		if t.floundered {
			return Solution{Kind: SolutionCannotProve}
		}
		return Solution{Kind: SolutionNoSolution}
	}
	if t.floundered || len(t.answers) > f.cfg.AnswerLimit {
		return Solution{Kind: SolutionAmbiguous}
	}
	if len(t.answers) == 1 {
		a := t.answers[0]
		subst := Canonical[[]Parameter]{Binders: NewBinders(a.Kinds, a.Subst)}
		if a.Ambiguous {
			return Solution{Kind: SolutionAmbiguous, Guidance: &subst}
		}
		return Solution{
			Kind:        SolutionUnique,
			Subst:       subst,
			Constraints: a.Constraints,
		}
	}
	return Solution{Kind: SolutionAmbiguous}
}
