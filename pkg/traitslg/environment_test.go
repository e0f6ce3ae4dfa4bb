package traitslg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclarationLookups(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	penv.DeclareAutoTrait(sendID, "Send")
	penv.DeclareAdt(1, "Foo", nil, nil)

	id, ok := penv.WellKnownTrait("Send")
	require.True(t, ok)
	assert.Equal(t, sendID, id)
	_, ok = penv.WellKnownTrait("Sync")
	assert.False(t, ok)

	datum, ok := penv.TraitDatum(sendID)
	require.True(t, ok)
	assert.True(t, datum.Auto)
	assert.True(t, penv.IsCoinductiveTrait(sendID), "auto traits are coinductive")
	assert.False(t, penv.IsCoinductiveTrait(cloneID))

	adt, ok := penv.AdtDatum(1)
	require.True(t, ok)
	assert.Equal(t, "Foo", adt.Name)
}

func TestAutoTraitClauseFromAdt(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")
	// struct Wrapper<T> { value: T }
	penv.DeclareAdt(1, "Wrapper", []ParameterKind{TyKind}, []Ty{bound0(0)})

	clauses, err := penv.ClausesFor(Holds(holdsRef(sendID, NewTyApply("Wrapper", ParamTy(NewTyApply("Foo"))))))
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, 1, clauses[0].Implication.Len(), "quantified over the ADT's parameter")
	assert.Len(t, clauses[0].Implication.Value.Conditions, 1, "one obligation per field")
}

func TestAutoTraitSynthesizedForUnknownType(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")

	clauses, err := penv.ClausesFor(Holds(holdsRef(sendID, NewTyApply("u64"))))
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Empty(t, clauses[0].Implication.Value.Conditions)
}

func TestAutoTraitFloundersOnUnboundSelf(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")
	table := NewInferenceTable()
	v := table.NewVarTy(Root)

	_, err := penv.ClausesFor(Holds(holdsRef(sendID, NewTyInferVar(v))))
	assert.ErrorIs(t, err, ErrFloundered)
}

func TestNegativeImplSuppressesClauses(t *testing.T) {
	penv := NewInMemoryEnvironment()
	penv.DeclareAutoTrait(sendID, "Send")
	penv.AddNegativeImpl(sendID, NewTyApply("i32"))

	clauses, err := penv.ClausesFor(Holds(holdsRef(sendID, NewTyApply("i32"))))
	require.NoError(t, err)
	assert.Empty(t, clauses)

	clauses, err = penv.ClausesFor(Holds(holdsRef(sendID, NewTyApply("i64"))))
	require.NoError(t, err)
	assert.Len(t, clauses, 1)
}

func TestElaborateHypotheses(t *testing.T) {
	hyp := Implemented(holdsRef(iterID, NewTyApply("Foo")))
	clauses := ElaborateHypotheses([]WhereClause{hyp})
	require.Len(t, clauses, 2)
	assert.Equal(t, DomainFromEnv, clauses[0].Implication.Value.Consequent.Tag)
	assert.Equal(t, DomainHolds, clauses[1].Implication.Value.Consequent.Tag)

	alias := AliasTy{TraitID: iterID, AssocName: "Item", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	clauses = ElaborateHypotheses([]WhereClause{AliasEq(alias, NewTyApply("Bar"))})
	require.Len(t, clauses, 2)
	assert.Equal(t, DomainNormalize, clauses[1].Implication.Value.Consequent.Tag)
}

func TestNormalizeClauseLookup(t *testing.T) {
	penv := NewInMemoryEnvironment()
	alias := AliasTy{TraitID: iterID, AssocName: "Item", Substitution: []Parameter{ParamTy(bound0(0))}}
	penv.AddNormalizeClause(iterID, "Item", NewProgramClause(
		[]ParameterKind{TyKind},
		ProgramClauseImplication{Consequent: Normalize(alias, bound0(0))},
	))

	concrete := AliasTy{TraitID: iterID, AssocName: "Item", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	clauses, err := penv.ClausesFor(Normalize(concrete, NewTyApply("Foo")))
	require.NoError(t, err)
	assert.Len(t, clauses, 1)

	other := AliasTy{TraitID: iterID, AssocName: "Other", Substitution: []Parameter{ParamTy(NewTyApply("Foo"))}}
	clauses, err = penv.ClausesFor(Normalize(other, NewTyApply("Foo")))
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestEnvironmentExtendIsImmutable(t *testing.T) {
	base := NewEnvironment()
	extended := base.Extend([]ProgramClause{factClause(cloneID, NewTyApply("Foo"))})

	assert.Empty(t, base.Clauses)
	assert.Len(t, extended.Clauses, 1)

	deeper := extended.EnterUniverse()
	assert.Equal(t, UniverseIndex(1), deeper.Universe)
	assert.Equal(t, Root, extended.Universe)
}
