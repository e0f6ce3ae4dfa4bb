package traitslg

import (
	"fmt"
	"sync"
)

// Interner deduplicates term values by their canonical string form and hands
// back a shared copy, so structurally identical values retained long-term
// share one allocation. The unifier interns every value it binds into an
// inference table, and both engines intern the canonical answer
// substitutions they memoize; transient intermediate terms are not worth
// the lookup and stay uninterned.
//
// An Interner is safe for concurrent use; a single Interner is shared
// across every InferenceTable and Forest a Solver creates.
type Interner struct {
	cache sync.Map // "<Go type>:<String()>" -> value of that type
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner { return &Interner{} }

func internGeneric[T fmt.Stringer](in *Interner, v T) T {
	key := fmt.Sprintf("%T:%s", v, v.String())
	if cached, ok := in.cache.Load(key); ok {
		return cached.(T)
	}
	actual, _ := in.cache.LoadOrStore(key, v)
	return actual.(T)
}

// InternTy returns the canonical stored Ty equal in form to t.
func (in *Interner) InternTy(t Ty) Ty { return internGeneric(in, t) }

// InternLifetime returns the canonical stored Lifetime equal in form to l.
func (in *Interner) InternLifetime(l Lifetime) Lifetime { return internGeneric(in, l) }

// InternConst returns the canonical stored Const equal in form to c.
func (in *Interner) InternConst(c Const) Const { return internGeneric(in, c) }

// InternParameter returns the canonical stored Parameter equal in form to p.
func (in *Interner) InternParameter(p Parameter) Parameter { return internGeneric(in, p) }

// SubstKey produces a stable string key for a parameter slice, used by both
// engines to deduplicate answer substitutions on structural content rather
// than pointer identity. Alpha-equivalent substitutions canonicalize to the
// same key.
func SubstKey(ps []Parameter) string { return joinParams(ps) }
