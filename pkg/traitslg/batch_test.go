package traitslg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveAll(t *testing.T) {
	penv := cloneProgram()
	forEachEngine(t, penv, func(t *testing.T, s *Solver) {
		env := NewEnvironment()
		goals := []Goal{
			holdsGoal(cloneID, NewTyApply("Foo")),
			holdsGoal(cloneID, NewTyApply("Bar")),
			holdsGoal(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo")))),
		}

		sols, err := s.SolveAll(context.Background(), env, goals, 2)
		require.NoError(t, err)
		require.Len(t, sols, 3)
		assert.Equal(t, SolutionUnique, sols[0].Kind)
		assert.Equal(t, SolutionNoSolution, sols[1].Kind)
		assert.Equal(t, SolutionUnique, sols[2].Kind)
	})
}

func TestSolveAllEmpty(t *testing.T) {
	s := NewSolver(cloneProgram())
	sols, err := s.SolveAll(context.Background(), NewEnvironment(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestSolveAllMatchesSequentialResults(t *testing.T) {
	penv := cloneProgram()
	s := NewSolver(penv)
	env := NewEnvironment()

	goals := make([]Goal, 0, 16)
	ty := NewTyApply("Foo")
	for i := 0; i < 16; i++ {
		goals = append(goals, holdsGoal(cloneID, ty))
		ty = NewTyApply("Vec", ParamTy(ty))
	}

	parallel, err := s.SolveAll(context.Background(), env, goals, 4)
	require.NoError(t, err)
	for i, g := range goals {
		assert.Equal(t, s.Solve(context.Background(), env, g).String(), parallel[i].String(), "goal %d", i)
	}
}
