package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func coinductivePenv() *InMemoryEnvironment {
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	penv.DeclareAutoTrait(sendID, "Send")
	penv.DeclareTrait(coFooID, "CoFoo", true)
	return penv
}

func TestIsCoinductiveGoal(t *testing.T) {
	penv := coinductivePenv()
	foo := NewTyApply("Foo")

	assert.True(t, IsCoinductiveGoal(Holds(holdsRef(sendID, foo)), penv), "auto trait")
	assert.True(t, IsCoinductiveGoal(Holds(holdsRef(coFooID, foo)), penv), "flagged coinductive")
	assert.False(t, IsCoinductiveGoal(Holds(holdsRef(cloneID, foo)), penv))
	assert.True(t, IsCoinductiveGoal(WellFormedTrait(holdsRef(cloneID, foo)), penv), "WellFormed(Trait) is always coinductive")
	assert.False(t, IsCoinductiveGoal(FromEnv(Implemented(holdsRef(sendID, foo))), penv))
}

func TestIsCoinductiveGoalTree(t *testing.T) {
	penv := coinductivePenv()
	foo := NewTyApply("Foo")
	send := holdsGoal(sendID, foo)
	clone := holdsGoal(cloneID, foo)

	assert.True(t, IsCoinductiveGoalTree(send, penv))
	assert.True(t, IsCoinductiveGoalTree(
		NewForAllGoal(NewBinders([]ParameterKind{TyKind}, holdsGoal(sendID, bound0(0)))), penv))
	assert.True(t, IsCoinductiveGoalTree(NewAndGoal(send, send), penv))
	assert.False(t, IsCoinductiveGoalTree(NewAndGoal(send, clone), penv), "mixed conjunctions are inductive")
	assert.False(t, IsCoinductiveGoalTree(NewNotGoal(send), penv), "negation starts a fresh inductive context")
	assert.True(t, IsCoinductiveGoalTree(TrueGoal(), penv), "the empty conjunction is vacuously coinductive")
}
