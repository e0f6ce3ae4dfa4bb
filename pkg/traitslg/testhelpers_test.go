package traitslg

import "testing"

// Shared trait IDs used across the solver tests.
const (
	cloneID  TraitID = 1
	sendID   TraitID = 2
	iterID   TraitID = 3
	mapID    TraitID = 4
	fooLtID  TraitID = 5
	coFooID  TraitID = 6
	indFooID TraitID = 7
	markerID TraitID = 8
	otherID  TraitID = 9
)

func bound0(i uint32) Ty {
	return NewTyBound(BoundVar{Debruijn: INNERMOST, Index: i})
}

func ltBound0(i uint32) Lifetime {
	return NewLtBound(BoundVar{Debruijn: INNERMOST, Index: i})
}

func holdsRef(id TraitID, self Ty, rest ...Parameter) TraitRef {
	return TraitRef{TraitID: id, Substitution: append([]Parameter{ParamTy(self)}, rest...)}
}

func holdsGoal(id TraitID, self Ty, rest ...Parameter) Goal {
	return NewDomainGoal(Holds(holdsRef(id, self, rest...)))
}

func factClause(id TraitID, self Ty, rest ...Parameter) ProgramClause {
	return NewProgramClause(nil, ProgramClauseImplication{
		Consequent: Holds(holdsRef(id, self, rest...)),
	})
}

// cloneProgram models:
//
//	struct Foo {} struct Bar {} struct Vec<T> {}
//	trait Clone {}
//	impl Clone for Foo {}
//	impl<T> Clone for Vec<T> where T: Clone {}
func cloneProgram() *InMemoryEnvironment {
	penv := NewInMemoryEnvironment()
	penv.DeclareTrait(cloneID, "Clone", false)
	penv.AddImpl(cloneID, factClause(cloneID, NewTyApply("Foo")))
	penv.AddImpl(cloneID, NewProgramClause(
		[]ParameterKind{TyKind},
		ProgramClauseImplication{
			Consequent: Holds(holdsRef(cloneID, NewTyApply("Vec", ParamTy(bound0(0))))),
			Conditions: []Goal{holdsGoal(cloneID, bound0(0))},
		},
	))
	return penv
}

// solversFor pairs each engine with a fresh Solver over penv.
func solversFor(penv ProgramEnvironment) map[string]*Solver {
	return map[string]*Solver{
		"slg":       NewSolver(penv),
		"recursive": NewSolver(penv, WithEngine(EngineRecursive)),
	}
}

// forEachEngine runs fn once per engine as a subtest.
func forEachEngine(t *testing.T, penv ProgramEnvironment, fn func(t *testing.T, s *Solver)) {
	t.Helper()
	for name, s := range solversFor(penv) {
		s := s
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}
