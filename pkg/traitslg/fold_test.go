package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftTy(t *testing.T) {
	assert.Equal(t, NewTyApply("Foo"), ShiftTy(NewTyApply("Foo"), 3), "closed terms are untouched")

	shifted := ShiftTy(bound0(0), 2)
	assert.Equal(t, NewTyBound(BoundVar{Debruijn: 2, Index: 0}), shifted)

	// A bound var under a fn-pointer binder is only shifted when it reaches
	// past that binder.
	fn := NewTyFnPointer(FnPointer{
		ABI:          "Rust",
		Safe:         true,
		NumBinders:   1,
		Substitution: []Parameter{ParamLifetime(ltBound0(0)), ParamTy(NewTyBound(BoundVar{Debruijn: 1, Index: 1}))},
	})
	out := ShiftTy(fn, 1)
	require.Equal(t, TyFnPointer, out.Tag)
	assert.Equal(t, ParamLifetime(ltBound0(0)), out.FnPtr.Substitution[0], "inner binder reference stays put")
	assert.Equal(t, ParamTy(NewTyBound(BoundVar{Debruijn: 2, Index: 1})), out.FnPtr.Substitution[1])

	assert.Equal(t, fn, ShiftTy(fn, 0), "shift by zero is the identity")
}

func TestSubstTy(t *testing.T) {
	vec := NewTyApply("Vec", ParamTy(bound0(0)))
	got := SubstTy(vec, []Parameter{ParamTy(NewTyApply("Foo"))})
	assert.Equal(t, NewTyApply("Vec", ParamTy(NewTyApply("Foo"))), got)

	// Deeper indices step down past the eliminated binder.
	deep := NewTyBound(BoundVar{Debruijn: 1, Index: 3})
	got = SubstTy(deep, []Parameter{ParamTy(NewTyApply("Foo"))})
	assert.Equal(t, NewTyBound(BoundVar{Debruijn: 0, Index: 3}), got)
}

func TestSubstKindMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		SubstTy(bound0(0), []Parameter{ParamLifetime(StaticLifetime())})
	})
	assert.Panics(t, func() {
		SubstLifetime(ltBound0(0), []Parameter{ParamTy(NewTyApply("Foo"))})
	})
}

func TestInstantiateArityMismatchPanics(t *testing.T) {
	b := NewBinders([]ParameterKind{TyKind, TyKind}, bound0(0))
	assert.Panics(t, func() {
		InstantiateTy(b, []Parameter{ParamTy(NewTyApply("Foo"))})
	})
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	table := NewInferenceTable()
	a := table.NewVarTy(Root)
	b := table.NewVarTy(Root)
	ty := NewTyApply("Pair",
		ParamTy(NewTyInferVar(a)),
		ParamTy(NewTyInferVar(b)),
		ParamTy(NewTyInferVar(a)),
	)

	canonical, vars := table.CanonicalizeTy(ty)
	require.Equal(t, []InferenceVar{a, b}, vars, "first-seen order")
	require.Equal(t, []ParameterKind{TyKind, TyKind}, canonical.Kinds())
	assert.Equal(t, "Pair<^0.0, ^0.1, ^0.0>", canonical.Value().String())

	fresh := NewInferenceTable()
	opened, openedVars := fresh.InstantiateCanonicalTy(canonical, Root)
	require.Len(t, openedVars, 2)

	reCanonical, _ := fresh.CanonicalizeTy(opened)
	assert.Equal(t, canonical.Value().String(), reCanonical.Value().String(),
		"canonicalize after instantiate is alpha-equivalent to the original")
}

func TestDeepNormalizeTy(t *testing.T) {
	alias := AliasTy{TraitID: iterID, AssocName: "Item", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	n := stubNormalizer{alias.String(): NewTyApply("Bar")}

	got := DeepNormalizeTy(NewTyApply("Vec", ParamTy(NewTyAlias(alias))), n)
	assert.Equal(t, NewTyApply("Vec", ParamTy(NewTyApply("Bar"))), got)

	// Unresolvable aliases are left in place.
	other := AliasTy{TraitID: iterID, AssocName: "Other", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	got = DeepNormalizeTy(NewTyAlias(other), n)
	assert.Equal(t, TyAliasVar, got.Tag)
}

type stubNormalizer map[string]Ty

func (s stubNormalizer) NormalizeAlias(a AliasTy) (Ty, bool) {
	ty, ok := s[a.String()]
	return ty, ok
}
