package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/events"
)

// StreamAdder is the subset of the redis client the stream sink needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisAuditSink appends auth decisions to a capped Redis stream.
type RedisAuditSink struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewRedisAuditSink builds a stream sink. maxLen <= 0 leaves the stream uncapped.
func NewRedisAuditSink(client StreamAdder, stream string, maxLen int64) *RedisAuditSink {
	return &RedisAuditSink{client: client, stream: stream, maxLen: maxLen}
}

// Handle implements events.EventHandler.
func (s *RedisAuditSink) Handle(ctx context.Context, ev events.Event) error {
	decision, ok := ev.Payload.(events.AuthDecision)
	if !ok {
		return nil
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"event_id":  ev.ID,
			"at":        ev.Timestamp.Format(time.RFC3339Nano),
			"outcome":   string(decision.Outcome),
			"kind":      decision.Kind,
			"reason":    decision.Reason,
			"channel":   string(decision.Channel),
			"token_ref": decision.TokenRef,
			"user_id":   decision.UserID,
			"role":      string(decision.Role),
			"method":    decision.Method,
			"path":      decision.Path,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.client.XAdd(ctx, args).Err()
}

// LogAuditSink writes each decision as a structured log line.
func LogAuditSink(logger *zap.Logger) events.EventHandler {
	return func(_ context.Context, ev events.Event) error {
		decision, ok := ev.Payload.(events.AuthDecision)
		if !ok {
			return nil
		}
		fields := []zap.Field{
			zap.String("event_id", ev.ID),
			zap.String("outcome", string(decision.Outcome)),
			zap.String("channel", string(decision.Channel)),
			zap.String("token_ref", decision.TokenRef),
			zap.String("method", decision.Method),
			zap.String("path", decision.Path),
		}
		if decision.Outcome == events.OutcomeRejected {
			fields = append(fields, zap.String("kind", decision.Kind), zap.String("reason", decision.Reason))
			logger.Info("auth rejected", fields...)
			return nil
		}
		fields = append(fields, zap.String("user_id", decision.UserID), zap.String("role", string(decision.Role)))
		logger.Debug("auth accepted", fields...)
		return nil
	}
}

// StartAuditWorker registers audit sinks. stream may be nil.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, stream *RedisAuditSink) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventAuthDecision, LogAuditSink(logger))
	if stream != nil {
		dispatcher.Subscribe(events.EventAuthDecision, stream.Handle)
	}
}
