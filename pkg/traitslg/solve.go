package traitslg

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SolutionKind enumerates the four user-visible outcomes of a solve. The
// zero value is CannotProve: an unset Solution claims nothing.
type SolutionKind int

const (
	// SolutionCannotProve means a budget was exhausted or the goal
	// floundered; the question is unsettled either way.
	SolutionCannotProve SolutionKind = iota
	// SolutionNoSolution means the goal was definitively disproved.
	SolutionNoSolution
	// SolutionAmbiguous means more than one incompatible derivation exists,
	// or the derivation lost enough precision that no unique substitution
	// can be reported.
	SolutionAmbiguous
	// SolutionUnique means exactly one derivation exists, with the recorded
	// substitution and constraints.
	SolutionUnique
)

func (k SolutionKind) String() string {
	switch k {
	case SolutionUnique:
		return "Unique"
	case SolutionAmbiguous:
		return "Ambiguous"
	case SolutionNoSolution:
		return "NoSolution"
	case SolutionCannotProve:
		return "CannotProve"
	default:
		return "Unknown"
	}
}

// Solution is the outcome of solving one goal. For Unique, Subst holds one
// value per root existential binder (closed over any residual free
// variables) and Constraints holds the lifetime outlives side conditions the
// derivation accumulated. For Ambiguous, Guidance optionally carries a
// partial substitution a caller may use as a hint; it is never a proof.
type Solution struct {
	Kind        SolutionKind
	Subst       Canonical[[]Parameter]
	Constraints []Constraint
	Guidance    *Canonical[[]Parameter]
}

func (s Solution) String() string {
	switch s.Kind {
	case SolutionUnique:
		var b strings.Builder
		fmt.Fprintf(&b, "Unique(subst=[%s]", joinParams(s.Subst.Value()))
		if len(s.Constraints) > 0 {
			b.WriteString(", constraints=[")
			for i, c := range s.Constraints {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(c.String())
			}
			b.WriteByte(']')
		}
		b.WriteByte(')')
		return b.String()
	case SolutionAmbiguous:
		if s.Guidance != nil {
			return fmt.Sprintf("Ambiguous(guidance=[%s])", joinParams(s.Guidance.Value()))
		}
		return "Ambiguous"
	default:
		return s.Kind.String()
	}
}

// EngineKind selects which resolution engine a Solver uses.
type EngineKind int

const (
	// EngineSLG is the tabled forest engine, the primary engine.
	EngineSLG EngineKind = iota
	// EngineRecursive is the simpler depth-bounded fixed-point engine.
	EngineRecursive
)

func (e EngineKind) String() string {
	if e == EngineRecursive {
		return "recursive"
	}
	return "slg"
}

// Solver is the public entrypoint: a program environment plus engine
// configuration. A Solver is safe for concurrent use; every Solve call
// builds its own forest or recursive stack, and the only shared mutable
// state is the recursive engine's mutex-guarded result cache.
type Solver struct {
	penv         ProgramEnvironment
	engine       EngineKind
	forestCfg    ForestConfig
	recursiveCfg RecursiveConfig
	logger       *zap.Logger
	interner     *Interner
	cache        *resultCache
}

// SolverOption configures a Solver at construction.
type SolverOption func(*Solver)

// WithEngine selects the resolution engine (default EngineSLG).
func WithEngine(e EngineKind) SolverOption {
	return func(s *Solver) { s.engine = e }
}

// WithLogger attaches a structured logger to the solver's trace surface.
// A nil logger (the default) disables tracing.
func WithLogger(l *zap.Logger) SolverOption {
	return func(s *Solver) { s.logger = l }
}

// WithForestConfig overrides the SLG engine's budgets.
func WithForestConfig(cfg ForestConfig) SolverOption {
	return func(s *Solver) { s.forestCfg = cfg }
}

// WithRecursiveConfig overrides the recursive engine's budgets.
func WithRecursiveConfig(cfg RecursiveConfig) SolverOption {
	return func(s *Solver) { s.recursiveCfg = cfg }
}

// NewSolver returns a Solver over penv with default budgets and the SLG
// engine.
func NewSolver(penv ProgramEnvironment, opts ...SolverOption) *Solver {
	s := &Solver{
		penv:         penv,
		engine:       EngineSLG,
		forestCfg:    DefaultForestConfig(),
		recursiveCfg: DefaultRecursiveConfig(),
		interner:     NewInterner(),
		cache:        newResultCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve resolves goal against env and returns the aggregated Solution. ctx
// bounds the work: cancellation and deadlines are observed between strand
// steps (never mid-step) and surface as CannotProve, the same way an
// exhausted budget does.
func (s *Solver) Solve(ctx context.Context, env Environment, goal Goal) Solution {
	if ctx == nil {
		ctx = context.Background()
	}
	tr, start := newTracer(s.logger).solveStart(goal, s.engine)

	var sol Solution
	if s.engine == EngineRecursive {
		r := &RecursiveSolver{
			penv:     s.penv,
			cfg:      s.recursiveCfg,
			cache:    s.cache,
			interner: s.interner,
			trace:    tr,
		}
		sol = r.Solve(ctx, env, goal)
	} else {
		f := newForest(s.penv, s.forestCfg, s.interner, tr)
		sol = f.SolveRoot(ctx, env, goal)
	}

	tr.solveDone(start, sol, nil)
	return sol
}
