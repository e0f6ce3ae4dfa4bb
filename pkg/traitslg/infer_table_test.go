package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndProbe(t *testing.T) {
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	_, ok := table.ProbeTy(v)
	require.False(t, ok, "fresh variables are unbound")

	table.BindTy(v, NewTyApply("Foo"))
	ty, ok := table.ProbeTy(v)
	require.True(t, ok)
	assert.Equal(t, NewTyApply("Foo"), ty)
}

func TestDoubleBindPanics(t *testing.T) {
	table := NewInferenceTable()
	v := table.NewVarTy(Root)
	table.BindTy(v, NewTyApply("Foo"))
	assert.Panics(t, func() { table.BindTy(v, NewTyApply("Bar")) })
}

func TestBindKindMismatchPanics(t *testing.T) {
	table := NewInferenceTable()
	v := table.NewVarTy(Root)
	assert.Panics(t, func() { table.BindLifetime(v, StaticLifetime()) })
}

func TestUnifyVarsKeepsLowerUniverse(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVarTy(Root)
	b := table.NewVarTy(UniverseIndex(2))

	table.UnifyVars(a, b)
	assert.Equal(t, Root, table.Universe(a))
	assert.Equal(t, Root, table.Universe(b))

	// Binding one representative binds the whole class.
	table.BindTy(a, NewTyApply("Foo"))
	ty, ok := table.ProbeTy(b)
	require.True(t, ok)
	assert.Equal(t, NewTyApply("Foo"), ty)
}

func TestSnapshotRollback(t *testing.T) {
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	table.Snapshot()
	table.BindTy(v, NewTyApply("Foo"))
	w := table.NewVarTy(Root)
	_ = w
	table.Rollback()

	_, ok := table.ProbeTy(v)
	assert.False(t, ok, "rollback undoes bindings")

	table.Snapshot()
	table.BindTy(v, NewTyApply("Bar"))
	table.Commit()
	ty, ok := table.ProbeTy(v)
	require.True(t, ok)
	assert.Equal(t, NewTyApply("Bar"), ty)
}

func TestRollbackWithoutSnapshotPanics(t *testing.T) {
	assert.Panics(t, func() { NewInferenceTable().Rollback() })
	assert.Panics(t, func() { NewInferenceTable().Commit() })
}

func TestNormalizeDeepTy(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVarTy(Root)
	b := table.NewVarTy(Root)
	table.BindTy(a, NewTyApply("Vec", ParamTy(NewTyInferVar(b))))
	table.BindTy(b, NewTyApply("Foo"))

	got := table.NormalizeDeepTy(NewTyInferVar(a))
	assert.Equal(t, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))), got)

	free := table.NewVarTy(Root)
	got = table.NormalizeDeepTy(NewTyApply("Vec", ParamTy(NewTyInferVar(free))))
	assert.Equal(t, TyInferVar, got.ApplySubst[0].Ty.Tag, "free variables survive normalization")
}

func TestClone(t *testing.T) {
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	dup := table.Clone()
	dup.BindTy(v, NewTyApply("Foo"))

	_, ok := table.ProbeTy(v)
	assert.False(t, ok, "clone mutations do not leak back")
	_, ok = dup.ProbeTy(v)
	assert.True(t, ok)
}

func TestConstraintAccumulator(t *testing.T) {
	table := NewInferenceTable()
	c := Constraint{Long: StaticLifetime(), Short: StaticLifetime()}
	table.AddConstraint(c)

	drained := table.DrainConstraints()
	require.Len(t, drained, 1)
	assert.Empty(t, table.DrainConstraints(), "drain clears the accumulator")
}
