package traitslg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForestMemoizesTables(t *testing.T) {
	penv := cloneProgram()
	f := NewForest(penv, DefaultForestConfig(), nil)
	env := NewEnvironment()

	g := holdsGoal(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))
	first := f.SolveRoot(context.Background(), env, g)
	require.Equal(t, SolutionUnique, first.Kind)
	tablesAfterFirst := len(f.tables)

	// The same root against the same forest reuses every completed table.
	second := f.SolveRoot(context.Background(), env, g)
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, tablesAfterFirst, len(f.tables))

	// A different root that shares subgoals only adds its own table.
	third := f.SolveRoot(context.Background(), env, holdsGoal(cloneID, NewTyApply("Foo")))
	assert.Equal(t, SolutionUnique, third.Kind)
	assert.Equal(t, tablesAfterFirst, len(f.tables), "Foo: Clone was already a subgoal table")
}

func TestForestAnswerEnumeration(t *testing.T) {
	// Three ground facts: the open goal enumerates all of them and
	// aggregation reports ambiguity.
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	for _, name := range []string{"A", "B", "C"} {
		penv.AddImpl(cloneID, factClause(cloneID, NewTyApply(name)))
	}

	f := NewForest(penv, DefaultForestConfig(), nil)
	goal := NewExistsGoal(NewBinders([]ParameterKind{TyKind}, holdsGoal(cloneID, bound0(0))))
	sol := f.SolveRoot(context.Background(), NewEnvironment(), goal)
	assert.Equal(t, SolutionAmbiguous, sol.Kind)

	root := f.tables[rootTableKey(t, f, NewEnvironment(), goal)]
	require.NotNil(t, root)
	assert.Len(t, root.answers, 3, "answers accumulate in production order")
}

// rootTableKey recomputes the key SolveRoot derives for a goal.
func rootTableKey(t *testing.T, f *Forest, env Environment, goal Goal) string {
	t.Helper()
	infer := NewInferenceTable()
	g := goal
	for g.Tag == GoalExists {
		params, _ := openExistential(infer, g.Binder.ParameterKinds, env.Universe)
		g = SubstGoal(g.Binder.Value, params, 0)
	}
	canonical, _ := infer.CanonicalizeFullGoal(g)
	return tableKey(env, UCanonicalizeGoal(canonical))
}

func TestForestAnswerBudgetFlounders(t *testing.T) {
	// Vec<Vec<...Foo>>: the open Clone goal has unboundedly many answers;
	// a tight budget must surface as Ambiguous or CannotProve rather than
	// divergence.
	penv := cloneProgram()
	cfg := DefaultForestConfig()
	cfg.MaxTableAnswers = 4

	f := NewForest(penv, cfg, nil)
	goal := NewExistsGoal(NewBinders([]ParameterKind{TyKind}, holdsGoal(cloneID, bound0(0))))
	sol := f.SolveRoot(context.Background(), NewEnvironment(), goal)
	assert.Contains(t, []SolutionKind{SolutionAmbiguous, SolutionCannotProve}, sol.Kind)
	assert.NotEqual(t, SolutionUnique, sol.Kind)
}

func TestForestDepthBudget(t *testing.T) {
	penv := cloneProgram()
	cfg := DefaultForestConfig()
	cfg.MaxDepth = 2

	f := NewForest(penv, cfg, nil)
	deep := NewTyApply("Vec", ParamTy(NewTyApply("Vec", ParamTy(NewTyApply("Vec", ParamTy(NewTyApply("Foo")))))))
	sol := f.SolveRoot(context.Background(), NewEnvironment(), holdsGoal(cloneID, deep))
	assert.Equal(t, SolutionCannotProve, sol.Kind)
}

func TestForestAnswerLimitAggregatesAmbiguous(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	for _, name := range []string{"A", "B", "C", "D"} {
		penv.AddImpl(cloneID, factClause(cloneID, NewTyApply(name)))
	}
	cfg := DefaultForestConfig()
	cfg.AnswerLimit = 2

	f := NewForest(penv, cfg, nil)
	goal := NewExistsGoal(NewBinders([]ParameterKind{TyKind}, holdsGoal(cloneID, bound0(0))))
	sol := f.SolveRoot(context.Background(), NewEnvironment(), goal)
	assert.Equal(t, SolutionAmbiguous, sol.Kind)
	assert.Nil(t, sol.Guidance)
}

func TestMutualCoinductiveCycle(t *testing.T) {
	// Two coinductive traits that each require the other: both hold.
	aID, bID := TraitID(21), TraitID(22)
	unit := NewTyApply("Unit")
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(aID, "A", true)
	penv.DeclareTrait(bID, "B", true)
	penv.AddImpl(aID, NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(aID, unit)),
		Conditions: []Goal{holdsGoal(bID, unit)},
	}))
	penv.AddImpl(bID, NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(bID, unit)),
		Conditions: []Goal{holdsGoal(aID, unit)},
	}))

	f := NewForest(penv, DefaultForestConfig(), nil)
	sol := f.SolveRoot(context.Background(), NewEnvironment(), holdsGoal(aID, unit))
	assert.Equal(t, SolutionUnique, sol.Kind)
}

func TestMixedCycleIsInductive(t *testing.T) {
	// A coinductive trait depending on itself through an inductive one
	// leaves the cycle inductive: nothing holds.
	aID, bID := TraitID(23), TraitID(24)
	unit := NewTyApply("Unit")
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(aID, "A", true)
	penv.DeclareTrait(bID, "B", false)
	penv.AddImpl(aID, NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(aID, unit)),
		Conditions: []Goal{holdsGoal(bID, unit)},
	}))
	penv.AddImpl(bID, NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(bID, unit)),
		Conditions: []Goal{holdsGoal(aID, unit)},
	}))

	f := NewForest(penv, DefaultForestConfig(), nil)
	sol := f.SolveRoot(context.Background(), NewEnvironment(), holdsGoal(aID, unit))
	assert.Equal(t, SolutionNoSolution, sol.Kind)
}

func TestNegativeFlounderIsAmbiguous(t *testing.T) {
	// not { A: Send } with A unknown: the negated goal flounders, which
	// degrades the negation to ambiguity rather than an answer.
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")

	f := NewForest(penv, DefaultForestConfig(), nil)
	goal := NewExistsGoal(NewBinders(
		[]ParameterKind{TyKind},
		NewNotGoal(holdsGoal(sendID, bound0(0))),
	))
	sol := f.SolveRoot(context.Background(), NewEnvironment(), goal)
	assert.Equal(t, SolutionAmbiguous, sol.Kind)
}
