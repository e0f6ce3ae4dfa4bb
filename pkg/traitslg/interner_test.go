package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternerSharesHandles(t *testing.T) {
	in := NewInterner()
	mk := func() Ty {
		return NewTyAlias(AliasTy{
			TraitID:      iterID,
			AssocName:    "Item",
			Substitution: []Parameter{ParamTy(NewTyApply("Foo"))},
		})
	}

	a := in.InternTy(mk())
	b := in.InternTy(mk())
	assert.Equal(t, a, b)
	assert.Same(t, a.Alias, b.Alias, "structurally equal terms share one stored copy")
}

func TestInternerPreservesValue(t *testing.T) {
	in := NewInterner()
	ty := NewTyApply("Vec", ParamTy(NewTyApply("Foo")))
	assert.Equal(t, ty, in.InternTy(ty))

	lt := StaticLifetime()
	assert.Equal(t, lt, in.InternLifetime(lt))

	p := ParamTy(ty)
	assert.Equal(t, p, in.InternParameter(p))
}

func TestUnifierInternsBoundValues(t *testing.T) {
	in := NewInterner()
	table := NewInferenceTable()
	u := NewUnifier(table, in)

	alias := func() Ty {
		return NewTyAlias(AliasTy{
			TraitID:      iterID,
			AssocName:    "Item",
			Substitution: []Parameter{ParamTy(NewTyApply("Foo"))},
		})
	}
	seeded := in.InternTy(alias())

	var res UnificationResult
	v := table.NewVarTy(Root)
	require.NoError(t, u.UnifyTy(&res, NewTyInferVar(v), alias()))

	bound, ok := table.ProbeTy(v)
	require.True(t, ok)
	assert.Same(t, seeded.Alias, bound.Alias, "the binding reuses the interned copy")
}

func TestSubstKey(t *testing.T) {
	a := []Parameter{ParamTy(NewTyApply("Foo")), ParamLifetime(StaticLifetime())}
	b := []Parameter{ParamTy(NewTyApply("Foo")), ParamLifetime(StaticLifetime())}
	c := []Parameter{ParamTy(NewTyApply("Bar"))}

	assert.Equal(t, SubstKey(a), SubstKey(b))
	assert.NotEqual(t, SubstKey(a), SubstKey(c))
}
