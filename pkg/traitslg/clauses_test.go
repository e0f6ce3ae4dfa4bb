package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouldMatchFiltersRigidMismatch(t *testing.T) {
	penv := cloneProgram()
	env := NewEnvironment()

	// Bar has no impl; neither clause's consequent could match.
	got, err := CandidateClauses(env, penv, Holds(holdsRef(cloneID, NewTyApply("Bar"))))
	require.NoError(t, err)
	assert.Empty(t, got)

	// Vec<Foo> matches only the blanket Vec clause.
	got, err = CandidateClauses(env, penv, Holds(holdsRef(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Implication.Len())
}

func TestCouldMatchAcceptsVariables(t *testing.T) {
	penv := cloneProgram()
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	// An unresolved Self cannot rule anything out.
	got, err := CandidateClauses(NewEnvironment(), penv, Holds(holdsRef(cloneID, NewTyInferVar(v))))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEnvironmentClausesComeFirst(t *testing.T) {
	penv := cloneProgram()
	envClause := factClause(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))
	env := NewEnvironment().Extend([]ProgramClause{envClause})

	got, err := CandidateClauses(env, penv, Holds(holdsRef(cloneID, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))))))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Implication.Len(), "the assumed clause is tried before the program impl")
}

func TestCandidateClausesPropagatesFloundering(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	_, err := CandidateClauses(NewEnvironment(), penv, Holds(holdsRef(sendID, NewTyInferVar(v))))
	assert.ErrorIs(t, err, ErrFloundered)
}

func TestCouldMatchNormalize(t *testing.T) {
	a := AliasTy{TraitID: iterID, AssocName: "Item", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	b := AliasTy{TraitID: iterID, AssocName: "Other", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}

	assert.True(t, couldMatchDomainGoal(Normalize(a, NewTyApply("Bar")), Normalize(a, NewTyApply("Baz"))))
	assert.False(t, couldMatchDomainGoal(Normalize(a, NewTyApply("Bar")), Normalize(b, NewTyApply("Bar"))),
		"distinct associated items never match")
}
