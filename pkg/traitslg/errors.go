package traitslg

import "errors"

// ErrNoSolution means the goal was fully explored and definitively
// disproved: no clause, no substitution, makes it hold. This is a normal,
// expected outcome, not a bug.
var ErrNoSolution = errors.New("traitslg: no solution")

// ErrFloundered means the solver could not make progress on a subgoal
// because it is insufficiently instantiated (e.g. negating a goal with
// unbound existential variables): not a proof of falsity, just an
// inability to enumerate. Floundering on a positive subgoal folds into
// CannotProve; on a negative subgoal it degrades to Ambiguous.
var ErrFloundered = errors.New("traitslg: floundered")

// ErrBudgetExceeded means a configured resource budget (answer count,
// recursion depth, fixpoint iteration count) was exhausted before the
// question could be settled either way. It folds into Solution.CannotProve.
var ErrBudgetExceeded = errors.New("traitslg: budget exceeded")
