package traitslg

import "fmt"

// GoalTag enumerates the closed set of goal forms a prover can be asked to
// discharge. Like Ty, this is a closed sum represented as one tagged struct
// rather than an interface, so a missing case in a switch is a compile-time
// reminder rather than a silent skip.
type GoalTag int

const (
	GoalForAll      GoalTag = iota // forall<P...> { goal }
	GoalExists                     // exists<P...> { goal }
	GoalImplies                    // if (where-clauses) { goal }
	GoalAnd                        // goal && goal && ...
	GoalNot                        // not { goal }
	GoalUnify                      // lhs = rhs (generic-parameter equality)
	GoalDomain                     // a DomainGoal, the leaves of the tree
	GoalCannotProve                // a goal known, by construction, to be unprovable
)

// Goal is one node of a goal tree built up by And/Implies/quantifiers over
// DomainGoal leaves. Only the field(s) matching Tag are meaningful.
type Goal struct {
	Tag GoalTag

	Binder *Binders[Goal] // GoalForAll, GoalExists

	Hypotheses []WhereClause // GoalImplies: the assumed where-clauses
	Inner      *Goal         // GoalImplies body, GoalNot body

	Conjuncts []Goal // GoalAnd

	LHS, RHS Parameter // GoalUnify

	Domain DomainGoal // GoalDomain
}

func NewForAllGoal(b Binders[Goal]) Goal { return Goal{Tag: GoalForAll, Binder: &b} }
func NewExistsGoal(b Binders[Goal]) Goal { return Goal{Tag: GoalExists, Binder: &b} }
func NewImpliesGoal(hyps []WhereClause, inner Goal) Goal {
	return Goal{Tag: GoalImplies, Hypotheses: hyps, Inner: &inner}
}
func NewAndGoal(conjuncts ...Goal) Goal { return Goal{Tag: GoalAnd, Conjuncts: conjuncts} }
func NewNotGoal(inner Goal) Goal        { return Goal{Tag: GoalNot, Inner: &inner} }
func NewUnifyGoal(lhs, rhs Parameter) Goal {
	if lhs.Kind != rhs.Kind {
		panic("traitslg: NewUnifyGoal: kind mismatch")
	}
	return Goal{Tag: GoalUnify, LHS: lhs, RHS: rhs}
}
func NewDomainGoal(d DomainGoal) Goal { return Goal{Tag: GoalDomain, Domain: d} }

// TrueGoal is the empty conjunction: always holds, dischargeable with no
// subgoals. solve(env, And(g, True)) must be equivalent to solve(env, g).
func TrueGoal() Goal { return Goal{Tag: GoalAnd} }

// CannotProveGoal marks a point in a clause body that is known, by
// construction, to be unprovable.
func CannotProveGoal() Goal { return Goal{Tag: GoalCannotProve} }

func (g Goal) String() string {
	switch g.Tag {
	case GoalForAll:
		return fmt.Sprintf("forall<%d> { %s }", g.Binder.Len(), g.Binder.Value)
	case GoalExists:
		return fmt.Sprintf("exists<%d> { %s }", g.Binder.Len(), g.Binder.Value)
	case GoalImplies:
		return fmt.Sprintf("if (%s) { %s }", joinWhereClauses(g.Hypotheses), g.Inner)
	case GoalAnd:
		if len(g.Conjuncts) == 0 {
			return "true"
		}
		s := ""
		for i, c := range g.Conjuncts {
			if i > 0 {
				s += " && "
			}
			s += c.String()
		}
		return s
	case GoalNot:
		return fmt.Sprintf("not { %s }", g.Inner)
	case GoalUnify:
		return fmt.Sprintf("%s = %s", g.LHS, g.RHS)
	case GoalDomain:
		return g.Domain.String()
	case GoalCannotProve:
		return "cannot-prove"
	default:
		return "<goal?>"
	}
}

// DomainGoalTag enumerates the leaf facts a clause's consequent or a proof
// tree's leaves can assert.
type DomainGoalTag int

const (
	DomainHolds            DomainGoalTag = iota // Implemented(TraitRef)
	DomainWellFormed                            // WellFormed(TraitRef) or WellFormed(WhereClause)
	DomainFromEnv                                // FromEnv(WhereClause)
	DomainNormalize                              // Normalize(AliasTy -> Ty)
	DomainLocalImplAllowed                       // LocalImplAllowed(TraitRef)
	DomainObjectSafe                             // ObjectSafe(TraitID)
)

// TraitRef names a trait applied to a substitution; by convention
// Substitution[0] is the Self type.
type TraitRef struct {
	TraitID      TraitID
	Substitution []Parameter
}

func (r TraitRef) String() string {
	if len(r.Substitution) == 0 {
		return fmt.Sprintf("Trait#%d", r.TraitID)
	}
	if len(r.Substitution) == 1 {
		return fmt.Sprintf("%s: Trait#%d", r.Substitution[0], r.TraitID)
	}
	return fmt.Sprintf("%s: Trait#%d<%s>", r.Substitution[0], r.TraitID, joinParams(r.Substitution[1:]))
}

// DomainGoal is one leaf fact. Only the field(s) matching Tag are meaningful.
type DomainGoal struct {
	Tag DomainGoalTag

	Trait       TraitRef    // DomainHolds, DomainWellFormed(trait), DomainLocalImplAllowed
	WhereClause *WhereClause // DomainWellFormed(where-clause), DomainFromEnv
	Alias       AliasTy     // DomainNormalize lhs
	NormalizeTo Ty          // DomainNormalize rhs
	Adt         AdtID       // DomainObjectSafe reuses Trait.TraitID normally; Adt is reserved for ADT well-formedness
}

func Holds(r TraitRef) DomainGoal            { return DomainGoal{Tag: DomainHolds, Trait: r} }
func WellFormedTrait(r TraitRef) DomainGoal  { return DomainGoal{Tag: DomainWellFormed, Trait: r} }
func WellFormedWhereClause(w WhereClause) DomainGoal {
	return DomainGoal{Tag: DomainWellFormed, WhereClause: &w}
}
func FromEnv(w WhereClause) DomainGoal { return DomainGoal{Tag: DomainFromEnv, WhereClause: &w} }
func Normalize(a AliasTy, to Ty) DomainGoal {
	return DomainGoal{Tag: DomainNormalize, Alias: a, NormalizeTo: to}
}
func LocalImplAllowed(r TraitRef) DomainGoal {
	return DomainGoal{Tag: DomainLocalImplAllowed, Trait: r}
}
func ObjectSafe(id TraitID) DomainGoal {
	return DomainGoal{Tag: DomainObjectSafe, Trait: TraitRef{TraitID: id}}
}

func (d DomainGoal) String() string {
	switch d.Tag {
	case DomainHolds:
		return d.Trait.String()
	case DomainWellFormed:
		if d.WhereClause != nil {
			return fmt.Sprintf("WellFormed(%s)", d.WhereClause)
		}
		return fmt.Sprintf("WellFormed(%s)", d.Trait)
	case DomainFromEnv:
		return fmt.Sprintf("FromEnv(%s)", d.WhereClause)
	case DomainNormalize:
		return fmt.Sprintf("Normalize(%s -> %s)", d.Alias, d.NormalizeTo)
	case DomainLocalImplAllowed:
		return fmt.Sprintf("LocalImplAllowed(%s)", d.Trait)
	case DomainObjectSafe:
		return fmt.Sprintf("ObjectSafe#%d", d.Trait.TraitID)
	default:
		return "<domain-goal?>"
	}
}

// String spells out the full substitution: alias strings key interner and
// table lookups, so two distinct projections must never print alike.
func (a AliasTy) String() string {
	switch len(a.Substitution) {
	case 0:
		return fmt.Sprintf("<_ as Trait#%d>::%s", a.TraitID, a.AssocName)
	case 1:
		return fmt.Sprintf("<%s as Trait#%d>::%s", a.Substitution[0], a.TraitID, a.AssocName)
	default:
		return fmt.Sprintf("<%s as Trait#%d<%s>>::%s", a.Substitution[0], a.TraitID, joinParams(a.Substitution[1:]), a.AssocName)
	}
}

// WhereClauseTag enumerates the two clause-position assumptions this spec
// tracks: trait bounds and associated-type equalities.
type WhereClauseTag int

const (
	WhereImplemented WhereClauseTag = iota // T: Trait<...>
	WhereAliasEq                           // <T as Trait>::Item = U
)

// WhereClause is an assumption, either asserted by an environment or
// appearing in a clause's consequent/conditions.
type WhereClause struct {
	Tag   WhereClauseTag
	Trait TraitRef // WhereImplemented
	Alias AliasTy  // WhereAliasEq lhs
	Ty    Ty       // WhereAliasEq rhs
}

func Implemented(r TraitRef) WhereClause { return WhereClause{Tag: WhereImplemented, Trait: r} }
func AliasEq(a AliasTy, ty Ty) WhereClause {
	return WhereClause{Tag: WhereAliasEq, Alias: a, Ty: ty}
}

func (w WhereClause) String() string {
	switch w.Tag {
	case WhereImplemented:
		return w.Trait.String()
	case WhereAliasEq:
		return fmt.Sprintf("%s = %s", w.Alias, w.Ty)
	default:
		return "<where-clause?>"
	}
}

func joinWhereClauses(ws []WhereClause) string {
	s := ""
	for i, w := range ws {
		if i > 0 {
			s += ", "
		}
		s += w.String()
	}
	return s
}

// ProgramClauseImplication is "consequent :- conditions": proving every
// condition goal licenses the consequent domain goal.
type ProgramClauseImplication struct {
	Consequent DomainGoal
	Conditions []Goal
}

func (p ProgramClauseImplication) String() string {
	if len(p.Conditions) == 0 {
		return p.Consequent.String()
	}
	s := p.Consequent.String() + " :- "
	for i, c := range p.Conditions {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s
}

// ProgramClause is a universally quantified ProgramClauseImplication, the
// unit the program database stores and the clause-selection filter searches.
type ProgramClause struct {
	Implication Binders[ProgramClauseImplication]
}

func NewProgramClause(kinds []ParameterKind, impl ProgramClauseImplication) ProgramClause {
	return ProgramClause{Implication: NewBinders(kinds, impl)}
}

func (c ProgramClause) String() string {
	if c.Implication.Len() == 0 {
		return c.Implication.Value.String()
	}
	return fmt.Sprintf("forall<%d> { %s }", c.Implication.Len(), c.Implication.Value)
}

// Environment is the ordered set of clauses currently assumed in scope
// (elaborated from where-clauses via FromEnv) together with the universe
// index active at this point in the proof tree. Environment is structurally
// immutable: extending it (entering an Implies goal) returns a new value
// holding its own copy of the clause slice.
type Environment struct {
	Clauses  []ProgramClause
	Universe UniverseIndex
}

// NewEnvironment returns the empty environment at the root universe.
func NewEnvironment() Environment { return Environment{Universe: Root} }

// Extend returns a new Environment with extra clauses appended, used when
// entering a GoalImplies hypothesis scope. The receiver is left unmodified.
func (e Environment) Extend(extra []ProgramClause) Environment {
	clauses := make([]ProgramClause, 0, len(e.Clauses)+len(extra))
	clauses = append(clauses, e.Clauses...)
	clauses = append(clauses, extra...)
	return Environment{Clauses: clauses, Universe: e.Universe}
}

// EnterUniverse returns a new Environment one universe deeper, used when
// entering a GoalForAll quantifier.
func (e Environment) EnterUniverse() Environment {
	return Environment{Clauses: e.Clauses, Universe: e.Universe.Next()}
}
