// Command traitslgdemo builds a small trait program and solves a few goals
// against it, printing the resulting Solution values. It is a demonstration
// harness for the traitslg solver, not part of the core library.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rdm-labs/traitslg/pkg/traitslg"
)

const (
	cloneTrait traitslg.TraitID = 1
	sendTrait  traitslg.TraitID = 2
)

func buildProgram() *traitslg.InMemoryEnvironment {
	penv := traitslg.NewInMemoryEnvironment()
	penv.DeclareTrait(cloneTrait, "Clone", false)
	penv.DeclareAutoTrait(sendTrait, "Send")

	penv.DeclareAdt(1, "Foo", nil, nil)
	penv.DeclareAdt(2, "Bar", nil, nil)
	penv.DeclareAdt(3, "Vec", []traitslg.ParameterKind{traitslg.TyKind}, nil)

	// impl Clone for Foo {}
	penv.AddImpl(cloneTrait, traitslg.NewProgramClause(nil, traitslg.ProgramClauseImplication{
		Consequent: traitslg.Holds(traitslg.TraitRef{
			TraitID:      cloneTrait,
			Substitution: []traitslg.Parameter{traitslg.ParamTy(traitslg.NewTyApply("Foo"))},
		}),
	}))

	// impl<T> Clone for Vec<T> where T: Clone {}
	t := traitslg.NewTyBound(traitslg.BoundVar{Debruijn: traitslg.INNERMOST, Index: 0})
	penv.AddImpl(cloneTrait, traitslg.NewProgramClause(
		[]traitslg.ParameterKind{traitslg.TyKind},
		traitslg.ProgramClauseImplication{
			Consequent: traitslg.Holds(traitslg.TraitRef{
				TraitID:      cloneTrait,
				Substitution: []traitslg.Parameter{traitslg.ParamTy(traitslg.NewTyApply("Vec", traitslg.ParamTy(t)))},
			}),
			Conditions: []traitslg.Goal{
				traitslg.NewDomainGoal(traitslg.Holds(traitslg.TraitRef{
					TraitID:      cloneTrait,
					Substitution: []traitslg.Parameter{traitslg.ParamTy(t)},
				})),
			},
		},
	))
	return penv
}

func holdsGoal(id traitslg.TraitID, self traitslg.Ty) traitslg.Goal {
	return traitslg.NewDomainGoal(traitslg.Holds(traitslg.TraitRef{
		TraitID:      id,
		Substitution: []traitslg.Parameter{traitslg.ParamTy(self)},
	}))
}

func main() {
	var engineName string
	var verbose bool

	root := &cobra.Command{
		Use:   "traitslgdemo",
		Short: "Solve a few trait goals against a demo program",
		RunE: func(cmd *cobra.Command, args []string) error {
			var logger *zap.Logger
			if verbose {
				var err error
				logger, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
			}

			engine := traitslg.EngineSLG
			switch engineName {
			case "slg":
			case "recursive":
				engine = traitslg.EngineRecursive
			default:
				return fmt.Errorf("unknown engine %q (want slg or recursive)", engineName)
			}

			penv := buildProgram()
			solver := traitslg.NewSolver(penv,
				traitslg.WithEngine(engine),
				traitslg.WithLogger(logger),
			)
			env := traitslg.NewEnvironment()

			goals := []struct {
				label string
				goal  traitslg.Goal
			}{
				{"Vec<Foo>: Clone", holdsGoal(cloneTrait, traitslg.NewTyApply("Vec", traitslg.ParamTy(traitslg.NewTyApply("Foo"))))},
				{"Bar: Clone", holdsGoal(cloneTrait, traitslg.NewTyApply("Bar"))},
				{"Foo: Send", holdsGoal(sendTrait, traitslg.NewTyApply("Foo"))},
			}
			for _, g := range goals {
				fmt.Printf("%-18s => %s\n", g.label, solver.Solve(cmd.Context(), env, g.goal))
			}
			return nil
		},
	}
	root.Flags().StringVar(&engineName, "engine", "slg", "resolution engine: slg or recursive")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable trace logging")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
