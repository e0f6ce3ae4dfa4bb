package traitslg

import "strings"

// Literal is one pending obligation of an ex-clause: a goal to prove
// (positive) or refute (negative), together with the clause environment it
// must be discharged under.
type Literal struct {
	Positive bool
	Env      Environment
	Goal     Goal
}

// ExClause is the working state of a strand: its remaining subgoals, the
// constraints accumulated so far, the coinductively assumed table keys whose
// discharge is deferred to table completion, and an ambiguity marker set
// when a negative subgoal floundered (the strand may still complete, but its
// answer carries no guidance).
type ExClause struct {
	Subgoals    []Literal
	Delayed     []string
	Constraints []Constraint
	Ambiguous   bool
}

func (ex *ExClause) removeSubgoal(i int) {
	ex.Subgoals = append(ex.Subgoals[:i], ex.Subgoals[i+1:]...)
}

func (ex *ExClause) replaceSubgoal(i int, with ...Literal) {
	tail := append([]Literal(nil), ex.Subgoals[i+1:]...)
	ex.Subgoals = append(append(ex.Subgoals[:i], with...), tail...)
}

// selectIndex picks the next subgoal to work on: leftmost positive literal
// first; negatives are deferred until no positives remain.
func (ex *ExClause) selectIndex() int {
	for i, l := range ex.Subgoals {
		if l.Positive {
			return i
		}
	}
	if len(ex.Subgoals) > 0 {
		return 0
	}
	return -1
}

// SelectedSubgoal records that a strand is paused on one of its subgoals,
// awaiting answers from the subgoal's table. AnswerIndex is the next answer
// the strand has not yet consumed; Vars are the strand-local inference
// variables that align with the subgoal table's canonical binders; Universes
// maps the table's compacted universes back to the strand's own.
type SelectedSubgoal struct {
	SubgoalIndex int
	TableKey     string
	AnswerIndex  int
	Vars         []InferenceVar
	Universes    UniverseMap
}

// Strand is one in-progress attempt to derive an answer for a table. It is
// a plain record: the forest advances it one step at a time, and cloning it
// (to explore one answer of a subgoal while the original waits for the next)
// copies its inference table wholesale.
type Strand struct {
	infer           *InferenceTable
	ex              ExClause
	goalVars        []InferenceVar
	universe        UniverseIndex
	nextPlaceholder uint32
	selected        *SelectedSubgoal
}

func (s *Strand) clone() *Strand {
	return &Strand{
		infer: s.infer.Clone(),
		ex: ExClause{
			Subgoals:    append([]Literal(nil), s.ex.Subgoals...),
			Delayed:     append([]string(nil), s.ex.Delayed...),
			Constraints: append([]Constraint(nil), s.ex.Constraints...),
			Ambiguous:   s.ex.Ambiguous,
		},
		goalVars:        append([]InferenceVar(nil), s.goalVars...),
		universe:        s.universe,
		nextPlaceholder: s.nextPlaceholder,
	}
}

// openUniversal skolemizes one binder: fresh placeholders in the strand's
// current universe, which the caller has already raised.
func (s *Strand) openUniversal(kinds []ParameterKind) []Parameter {
	params := make([]Parameter, len(kinds))
	for i, k := range kinds {
		ph := Placeholder{Universe: s.universe, Index: s.nextPlaceholder}
		s.nextPlaceholder++
		switch k {
		case TyKind:
			params[i] = ParamTy(NewTyPlaceholder(ph))
		case LifetimeKind:
			params[i] = ParamLifetime(NewLtPlaceholder(ph))
		default:
			params[i] = ParamConst(Const{Tag: TyPlaceholderVar, Placeholder: ph})
		}
	}
	return params
}

// Answer is one proven instantiation of a table's goal: values for the
// table's canonical binder slots, closed over any residual free variables
// (Kinds), plus the constraints and still-delayed coinductive assumptions it
// was derived under. Answers are deduplicated by canonical form, which makes
// the dedup relation alpha-equivalence rather than structural identity.
type Answer struct {
	Kinds       []ParameterKind
	Subst       []Parameter
	Constraints []Constraint
	Delayed     []string
	Ambiguous   bool
	key         string
}

func answerKey(a Answer) string {
	var b strings.Builder
	for _, k := range a.Kinds {
		b.WriteString(k.String())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(SubstKey(a.Subst))
	b.WriteByte('|')
	for _, c := range a.Constraints {
		b.WriteString(c.String())
		b.WriteByte(';')
	}
	if a.Ambiguous {
		b.WriteString("|ambiguous")
	}
	return b.String()
}

// Table is the memo entry for one universe-canonical goal: its growing
// answer set, its live and suspended strands, and the flags that steer
// cycle handling. Answers are appended in production order and never
// removed before completion.
type Table struct {
	key         string
	goal        Canonical[Goal]
	env         Environment
	maxUniverse UniverseIndex
	coinductive bool
	floundered  bool
	completed   bool
	onStack     bool
	seeded      bool
	dfn         int
	answers     []Answer
	answerKeys  map[string]bool
	strands     []*Strand
	blocked     []*Strand
}

// addAnswer appends a if no alpha-equivalent answer is already present,
// reporting whether the answer set grew.
func (t *Table) addAnswer(a Answer) bool {
	if t.answerKeys[a.key] {
		return false
	}
	t.answerKeys[a.key] = true
	t.answers = append(t.answers, a)
	return true
}

// tableKey builds the forest's map key: the universe-canonical goal shape
// plus the ambient clause set, so the same goal under different hypotheses
// gets its own table.
func tableKey(env Environment, u UCanonical[Goal]) string {
	var b strings.Builder
	for _, k := range u.Kinds() {
		b.WriteString(k.String())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(u.Value().String())
	b.WriteByte('|')
	for _, c := range env.Clauses {
		b.WriteString(c.String())
		b.WriteByte(';')
	}
	return b.String()
}
