package traitslg

import "sync"

// ProgramEnvironment is the contract a caller's trait/impl/struct database
// must satisfy: an immutable, indexed store of universally quantified
// program clauses. It is queried by clause selection; this package never
// mutates it mid-solve.
type ProgramEnvironment interface {
	// ClausesFor returns every program clause whose consequent has the same
	// shape as goal (same DomainGoalTag and, where applicable, the same
	// TraitID/AssocName). Implementations may return a superset; exact
	// filtering still happens via CandidateClauses/couldMatchDomainGoal.
	// ErrFloundered is returned when the candidate set cannot be enumerated
	// at all, e.g. an auto-trait goal whose Self is an unresolved variable.
	ClausesFor(goal DomainGoal) ([]ProgramClause, error)

	// IsCoinductiveTrait reports whether Holds goals for this trait should
	// be treated as coinductive (auto traits and traits flagged coinductive).
	IsCoinductiveTrait(id TraitID) bool

	// WellKnownTrait resolves a well-known trait by name (e.g. "Send",
	// "Sized"), for callers building goals without a TraitID in hand.
	WellKnownTrait(name string) (TraitID, bool)

	// TraitDatum returns the declaration record for a trait, if registered.
	TraitDatum(id TraitID) (TraitDatum, bool)

	// AdtDatum returns the declaration record for a struct/enum, if
	// registered.
	AdtDatum(id AdtID) (AdtDatum, bool)
}

// TraitDatum describes one trait declaration.
type TraitDatum struct {
	ID          TraitID
	Name        string
	Coinductive bool
	Auto        bool
}

// AdtDatum describes one struct/enum declaration. Fields may refer to the
// ADT's own generic parameters through BoundVar(0, k); they are used to
// synthesize the structural clauses auto traits need.
type AdtDatum struct {
	ID     AdtID
	Name   string
	Params []ParameterKind
	Fields []Ty
}

// InMemoryEnvironment is the default ProgramEnvironment: a single process's
// trait/impl/struct registry, built up once and then read concurrently by
// many in-flight Solve calls. Mutation after the first ClausesFor call is
// unsupported: build once, read many.
type InMemoryEnvironment struct {
	mu        sync.RWMutex
	traits    map[TraitID]TraitDatum
	adts      map[AdtID]AdtDatum
	adtByName map[string]AdtID
	wellKnown map[string]TraitID
	byHolds   map[TraitID][]ProgramClause
	byWF      map[TraitID][]ProgramClause
	byFromEnv []ProgramClause
	byNorm    map[aliasKey][]ProgramClause
	byObjSafe map[TraitID][]ProgramClause
	negatives map[TraitID][]Ty
}

type aliasKey struct {
	trait TraitID
	assoc string
}

// NewInMemoryEnvironment returns an empty registry.
func NewInMemoryEnvironment() *InMemoryEnvironment {
	return &InMemoryEnvironment{
		traits:    map[TraitID]TraitDatum{},
		adts:      map[AdtID]AdtDatum{},
		adtByName: map[string]AdtID{},
		wellKnown: map[string]TraitID{},
		byHolds:   map[TraitID][]ProgramClause{},
		byWF:      map[TraitID][]ProgramClause{},
		byNorm:    map[aliasKey][]ProgramClause{},
		byObjSafe: map[TraitID][]ProgramClause{},
		negatives: map[TraitID][]Ty{},
	}
}

// DeclareTrait registers a trait declaration. name may be empty for traits
// that need no well-known lookup.
func (e *InMemoryEnvironment) DeclareTrait(id TraitID, name string, coinductive bool) {
	e.declare(TraitDatum{ID: id, Name: name, Coinductive: coinductive})
}

// DeclareAutoTrait registers an auto trait (e.g. Send). Auto traits are
// coinductive, and their Holds clauses are synthesized structurally from ADT
// field types rather than written as impls.
func (e *InMemoryEnvironment) DeclareAutoTrait(id TraitID, name string) {
	e.declare(TraitDatum{ID: id, Name: name, Auto: true})
}

func (e *InMemoryEnvironment) declare(d TraitDatum) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traits[d.ID] = d
	if d.Name != "" {
		e.wellKnown[d.Name] = d.ID
	}
}

// DeclareAdt registers a struct/enum declaration. fields may reference the
// ADT's generic parameters through BoundVar(0, k) against params.
func (e *InMemoryEnvironment) DeclareAdt(id AdtID, name string, params []ParameterKind, fields []Ty) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := AdtDatum{ID: id, Name: name, Params: params, Fields: fields}
	e.adts[id] = d
	e.adtByName[name] = id
}

// AddImpl registers a positive impl clause: its consequent must be a
// DomainHolds goal for traitID. Blanket impls (impl<T> Trait for T {})
// are ordinary clauses here, with Self itself a bound variable of the
// clause's own binder.
func (e *InMemoryEnvironment) AddImpl(traitID TraitID, clause ProgramClause) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byHolds[traitID] = append(e.byHolds[traitID], clause)
}

// AddNegativeImpl records that selfPattern (a possibly-generic Self type
// pattern, expressed with BoundVars for any generic parameters) definitely
// does not implement traitID. This suppresses any clause that could-match
// selfPattern, modeling negative impls without requiring full
// coherence/orphan checking.
func (e *InMemoryEnvironment) AddNegativeImpl(traitID TraitID, selfPattern Ty) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.negatives[traitID] = append(e.negatives[traitID], selfPattern)
}

// AddWellFormedClause registers a clause whose consequent is a
// DomainWellFormed goal.
func (e *InMemoryEnvironment) AddWellFormedClause(traitID TraitID, clause ProgramClause) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byWF[traitID] = append(e.byWF[traitID], clause)
}

// AddNormalizeClause registers a clause whose consequent is a
// DomainNormalize goal for trait#assoc.
func (e *InMemoryEnvironment) AddNormalizeClause(traitID TraitID, assoc string, clause ProgramClause) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := aliasKey{trait: traitID, assoc: assoc}
	e.byNorm[k] = append(e.byNorm[k], clause)
}

// AddObjectSafeClause registers a clause whose consequent is a
// DomainObjectSafe goal.
func (e *InMemoryEnvironment) AddObjectSafeClause(traitID TraitID, clause ProgramClause) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byObjSafe[traitID] = append(e.byObjSafe[traitID], clause)
}

func (e *InMemoryEnvironment) ClausesFor(goal DomainGoal) ([]ProgramClause, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch goal.Tag {
	case DomainHolds:
		return e.holdsClauses(goal)
	case DomainWellFormed:
		if goal.WhereClause == nil {
			return e.byWF[goal.Trait.TraitID], nil
		}
		return nil, nil
	case DomainFromEnv:
		return e.byFromEnv, nil
	case DomainNormalize:
		return e.byNorm[aliasKey{trait: goal.Alias.TraitID, assoc: goal.Alias.AssocName}], nil
	case DomainObjectSafe:
		return e.byObjSafe[goal.Trait.TraitID], nil
	default:
		return nil, nil
	}
}

func (e *InMemoryEnvironment) holdsClauses(goal DomainGoal) ([]ProgramClause, error) {
	id := goal.Trait.TraitID
	datum := e.traits[id]
	clauses := e.byHolds[id]

	var self Ty
	rigid := false
	if len(goal.Trait.Substitution) > 0 && goal.Trait.Substitution[0].Kind == TyKind {
		self = goal.Trait.Substitution[0].Ty
		rigid = self.Tag == TyApply || self.Tag == TyPlaceholderVar
	}

	if rigid {
		for _, pattern := range e.negatives[id] {
			if couldMatchTy(pattern, self) {
				return nil, nil
			}
		}
	}

	if !datum.Auto {
		return clauses, nil
	}

	// Auto traits hold structurally: the candidate set depends on the shape
	// of Self, so an unresolved Self makes the goal non-enumerable.
	if !rigid {
		return nil, ErrFloundered
	}
	if self.Tag != TyApply {
		return clauses, nil
	}
	out := append([]ProgramClause(nil), clauses...)
	if adtID, ok := e.adtByName[self.ApplyName]; ok {
		out = append(out, autoTraitClause(id, e.adts[adtID]))
	} else {
		out = append(out, synthesizedAutoClause(id, self))
	}
	return out, nil
}

// autoTraitClause builds the structural clause for a registered ADT:
// Holds(Adt<P..>: Auto) :- each field type: Auto, universally quantified
// over the ADT's generic parameters.
func autoTraitClause(id TraitID, adt AdtDatum) ProgramClause {
	args := make([]Parameter, len(adt.Params))
	for i, k := range adt.Params {
		bv := BoundVar{Debruijn: INNERMOST, Index: uint32(i)}
		switch k {
		case TyKind:
			args[i] = ParamTy(NewTyBound(bv))
		case LifetimeKind:
			args[i] = ParamLifetime(NewLtBound(bv))
		default:
			args[i] = ParamConst(Const{Tag: TyBound, Bound: bv})
		}
	}
	self := NewTyApply(adt.Name, args...)
	conds := make([]Goal, 0, len(adt.Fields))
	for _, f := range adt.Fields {
		conds = append(conds, NewDomainGoal(Holds(TraitRef{TraitID: id, Substitution: []Parameter{ParamTy(f)}})))
	}
	return NewProgramClause(adt.Params, ProgramClauseImplication{
		Consequent: Holds(TraitRef{TraitID: id, Substitution: []Parameter{ParamTy(self)}}),
		Conditions: conds,
	})
}

// synthesizedAutoClause covers rigid Self types with no registered datum
// (primitives, foreign types): each type argument must itself satisfy the
// auto trait. The clause is quantified over the type's arguments rather
// than copying them, so it stays closed and can be instantiated into any
// inference table.
func synthesizedAutoClause(id TraitID, self Ty) ProgramClause {
	kinds := make([]ParameterKind, len(self.ApplySubst))
	args := make([]Parameter, len(self.ApplySubst))
	var conds []Goal
	for i, p := range self.ApplySubst {
		kinds[i] = p.Kind
		bv := BoundVar{Debruijn: INNERMOST, Index: uint32(i)}
		switch p.Kind {
		case TyKind:
			args[i] = ParamTy(NewTyBound(bv))
			conds = append(conds, NewDomainGoal(Holds(TraitRef{TraitID: id, Substitution: []Parameter{ParamTy(NewTyBound(bv))}})))
		case LifetimeKind:
			args[i] = ParamLifetime(NewLtBound(bv))
		default:
			args[i] = ParamConst(Const{Tag: TyBound, Bound: bv})
		}
	}
	return NewProgramClause(kinds, ProgramClauseImplication{
		Consequent: Holds(TraitRef{TraitID: id, Substitution: []Parameter{ParamTy(NewTyApply(self.ApplyName, args...))}}),
		Conditions: conds,
	})
}

func (e *InMemoryEnvironment) IsCoinductiveTrait(id TraitID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d := e.traits[id]
	return d.Coinductive || d.Auto
}

func (e *InMemoryEnvironment) WellKnownTrait(name string) (TraitID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.wellKnown[name]
	return id, ok
}

func (e *InMemoryEnvironment) TraitDatum(id TraitID) (TraitDatum, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.traits[id]
	return d, ok
}

func (e *InMemoryEnvironment) AdtDatum(id AdtID) (AdtDatum, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.adts[id]
	return d, ok
}

// ElaborateHypotheses derives the zero-condition clauses a set of assumed
// where-clauses licenses: each assumption `T: Trait` (or alias equality)
// both is itself FromEnv-provable and directly licenses Holds/Normalize,
// matching environment elaboration in the trait solver this models. The
// result is meant to be passed to Environment.Extend alongside the literal
// hypothesis list.
func ElaborateHypotheses(hyps []WhereClause) []ProgramClause {
	clauses := make([]ProgramClause, 0, len(hyps)*2)
	for _, h := range hyps {
		switch h.Tag {
		case WhereImplemented:
			clauses = append(clauses,
				NewProgramClause(nil, ProgramClauseImplication{Consequent: FromEnv(h)}),
				NewProgramClause(nil, ProgramClauseImplication{Consequent: Holds(h.Trait)}),
			)
		case WhereAliasEq:
			clauses = append(clauses,
				NewProgramClause(nil, ProgramClauseImplication{Consequent: FromEnv(h)}),
				NewProgramClause(nil, ProgramClauseImplication{Consequent: Normalize(h.Alias, h.Ty)}),
			)
		}
	}
	return clauses
}
