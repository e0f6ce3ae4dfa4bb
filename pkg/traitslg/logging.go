package traitslg

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tracer is a cheap, optional structured-logging facade that every internal
// solving step can call without checking for nil at each call site. A nil
// *zap.Logger is valid and produces a no-op tracer, so the core stays
// usable as a pure library with no logging configured.
type tracer struct {
	log *zap.Logger
	id  string
}

func newTracer(log *zap.Logger) tracer {
	if log == nil {
		log = zap.NewNop()
	}
	return tracer{log: log, id: uuid.NewString()}
}

func (t tracer) solveStart(goal Goal, engine EngineKind) (tracer, time.Time) {
	t.log.Debug("solve start",
		zap.String("correlation_id", t.id),
		zap.String("goal", goal.String()),
		zap.String("engine", engine.String()),
	)
	return t, time.Now()
}

func (t tracer) solveDone(start time.Time, sol Solution, err error) {
	fields := []zap.Field{
		zap.String("correlation_id", t.id),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("outcome", sol.Kind.String()),
	}
	if err != nil {
		t.log.Debug("solve done (error)", append(fields, zap.Error(err))...)
		return
	}
	t.log.Debug("solve done", fields...)
}

func (t tracer) tableCreated(key string) {
	t.log.Debug("table created", zap.String("correlation_id", t.id), zap.String("key", key))
}

func (t tracer) strandAdvanced(key string, strandIdx int) {
	t.log.Debug("strand advanced",
		zap.String("correlation_id", t.id), zap.String("table", key), zap.Int("strand", strandIdx))
}

func (t tracer) cycleDetected(key string, coinductive bool) {
	t.log.Debug("cycle detected",
		zap.String("correlation_id", t.id), zap.String("table", key), zap.Bool("coinductive", coinductive))
}

func (t tracer) floundered(key string) {
	t.log.Debug("floundered", zap.String("correlation_id", t.id), zap.String("table", key))
}
