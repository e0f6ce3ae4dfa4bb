package traitslg

import (
	"context"
	"runtime"
	"sync"
)

// SolveAll resolves a batch of independent goals against one environment,
// spreading the work over a fixed pool of worker goroutines. Each goal is
// solved in full isolation (its own forest or recursive stack); the only
// sharing is the solver's result cache, which tolerates concurrent use.
//
// workers <= 0 selects one worker per CPU. On context cancellation the
// unstarted goals are reported as CannotProve and ctx.Err is returned;
// in-flight goals wind down to CannotProve at their next strand step, and
// already-solved entries keep their results.
func (s *Solver) SolveAll(ctx context.Context, env Environment, goals []Goal, workers int) ([]Solution, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(goals) {
		workers = len(goals)
	}
	out := make([]Solution, len(goals))
	if len(goals) == 0 {
		return out, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = s.Solve(ctx, env, goals[i])
			}
		}()
	}

	var err error
feed:
	for i := range goals {
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return out, err
}
