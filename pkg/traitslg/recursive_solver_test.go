package traitslg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSolverBasics(t *testing.T) {
	r := NewRecursiveSolver(cloneProgram(), DefaultRecursiveConfig())
	env := NewEnvironment()

	sol := r.Solve(context.Background(), env, holdsGoal(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo")))))
	assert.Equal(t, SolutionUnique, sol.Kind)

	sol = r.Solve(context.Background(), env, holdsGoal(cloneID, NewTyApply("Bar")))
	assert.Equal(t, SolutionNoSolution, sol.Kind)
}

func TestRecursiveSolverCachesResults(t *testing.T) {
	r := NewRecursiveSolver(cloneProgram(), DefaultRecursiveConfig())
	env := NewEnvironment()
	g := holdsGoal(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))

	first := r.Solve(context.Background(), env, g)
	entries := len(r.cache.entries)
	require.Greater(t, entries, 0, "completed subgoals are memoized")

	second := r.Solve(context.Background(), env, g)
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, entries, len(r.cache.entries), "the second run is served from cache")
}

func TestRecursiveSolverDepthCap(t *testing.T) {
	cfg := DefaultRecursiveConfig()
	cfg.MaxDepth = 3
	r := NewRecursiveSolver(cloneProgram(), cfg)

	deep := NewTyApply("Foo")
	for i := 0; i < 8; i++ {
		deep = NewTyApply("Vec", ParamTy(deep))
	}
	sol := r.Solve(context.Background(), NewEnvironment(), holdsGoal(cloneID, deep))
	assert.Equal(t, SolutionCannotProve, sol.Kind)
}

func TestRecursiveSolverBindsExistentials(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	penv.AddImpl(cloneID, factClause(cloneID, NewTyApply("Foo")))

	r := NewRecursiveSolver(penv, DefaultRecursiveConfig())
	goal := NewExistsGoal(NewBinders([]ParameterKind{TyKind}, holdsGoal(cloneID, bound0(0))))
	sol := r.Solve(context.Background(), NewEnvironment(), goal)
	require.Equal(t, SolutionUnique, sol.Kind)
	require.Len(t, sol.Subst.Value(), 1)
	assert.Equal(t, "Foo", sol.Subst.Value()[0].String())
}

func TestRecursiveSolverCoinductiveCycle(t *testing.T) {
	unit := NewTyApply("Unit")
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(coFooID, "CoFoo", true)
	penv.AddImpl(coFooID, NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(coFooID, unit)),
		Conditions: []Goal{holdsGoal(coFooID, unit)},
	}))

	r := NewRecursiveSolver(penv, DefaultRecursiveConfig())
	sol := r.Solve(context.Background(), NewEnvironment(), holdsGoal(coFooID, unit))
	assert.Equal(t, SolutionUnique, sol.Kind)
}

func TestRecursiveSolverSharedCacheIsConcurrencySafe(t *testing.T) {
	penv := cloneProgram()
	s := NewSolver(penv, WithEngine(EngineRecursive))
	env := NewEnvironment()
	g := holdsGoal(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))

	done := make(chan Solution, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- s.Solve(context.Background(), env, g) }()
	}
	for i := 0; i < 8; i++ {
		sol := <-done
		assert.Equal(t, SolutionUnique, sol.Kind)
	}
}
