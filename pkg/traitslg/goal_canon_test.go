package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeInferenceVarsGoalOrder(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVarTy(Root)
	b := table.NewVarTy(Root)

	g := NewAndGoal(
		holdsGoal(cloneID, NewTyInferVar(b)),
		holdsGoal(cloneID, NewTyApply("Pair", ParamTy(NewTyInferVar(a)), ParamTy(NewTyInferVar(b)))),
	)
	assert.Equal(t, []InferenceVar{b, a}, FreeInferenceVarsGoal(g), "first-seen, left to right")
}

func TestCanonicalizeFullGoalRoundTrip(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVarTy(Root)
	table.BindTy(a, NewTyApply("Foo"))
	b := table.NewVarTy(Root)

	g := NewAndGoal(
		holdsGoal(cloneID, NewTyInferVar(a)),
		holdsGoal(cloneID, NewTyInferVar(b)),
	)
	canonical, vars := table.CanonicalizeFullGoal(g)
	require.Equal(t, []InferenceVar{b}, vars, "bound variables normalize away")
	require.Equal(t, []ParameterKind{TyKind}, canonical.Kinds())
	assert.Equal(t, "Foo: Trait#1 && ^0.0: Trait#1", canonical.Value().String())

	fresh := NewInferenceTable()
	opened, openedVars := fresh.InstantiateCanonicalGoal(canonical, Root)
	require.Len(t, openedVars, 1)
	reCanonical, _ := fresh.CanonicalizeFullGoal(opened)
	assert.Equal(t, canonical.Value().String(), reCanonical.Value().String())
}

func TestUCanonicalizeCompactsUniverses(t *testing.T) {
	g := NewAndGoal(
		holdsGoal(cloneID, NewTyPlaceholder(Placeholder{Universe: 2, Index: 0})),
		holdsGoal(cloneID, NewTyPlaceholder(Placeholder{Universe: 5, Index: 0})),
	)
	u := UCanonicalizeGoal(Canonical[Goal]{Binders: NewBinders(nil, g)})

	assert.Equal(t, UniverseIndex(1), u.UniverseMap.Map(2))
	assert.Equal(t, UniverseIndex(2), u.UniverseMap.Map(5))
	assert.Equal(t, UniverseIndex(2), u.UniverseMap.MapBack(1))
	assert.Equal(t, UniverseIndex(5), u.UniverseMap.MapBack(2))

	compacted := placeholderUniversesGoal(u.Value(), map[UniverseIndex]bool{}, nil)
	assert.ElementsMatch(t, []UniverseIndex{1, 2}, compacted)
}

func TestUCanonicalKeyCollision(t *testing.T) {
	// Two goals differing only in absolute universe numbering share a key.
	mk := func(u UniverseIndex) UCanonical[Goal] {
		g := holdsGoal(cloneID, NewTyPlaceholder(Placeholder{Universe: u, Index: 0}))
		return UCanonicalizeGoal(Canonical[Goal]{Binders: NewBinders(nil, g)})
	}
	env := NewEnvironment()
	assert.Equal(t, tableKey(env, mk(3)), tableKey(env, mk(7)))
}
