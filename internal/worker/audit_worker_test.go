package worker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/events"
)

type fakeStream struct {
	args []*redis.XAddArgs
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", nil)
}

func rejected() events.Event {
	return events.NewAuthDecisionEvent(events.AuthDecision{
		Outcome:  events.OutcomeRejected,
		Kind:     "InvalidToken",
		Reason:   "expired",
		Channel:  domain.ChannelHeader,
		TokenRef: "abcdef012345",
		Method:   "GET",
		Path:     "/api/auth/me",
	}, time.Now())
}

func TestAuditWorkerFansOut(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stream := &fakeStream{}
	dispatcher := events.NewInMemoryDispatcher()

	StartAuditWorker(dispatcher, zap.New(core), NewRedisAuditSink(stream, "auth:decisions", 100))

	if err := dispatcher.Publish(context.Background(), rejected()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(stream.args) != 1 {
		t.Fatalf("XAdd called %d times", len(stream.args))
	}
	args := stream.args[0]
	if args.Stream != "auth:decisions" || args.MaxLen != 100 || !args.Approx {
		t.Fatalf("unexpected XAdd args %+v", args)
	}
	values := args.Values.(map[string]interface{})
	if values["reason"] != "expired" || values["token_ref"] != "abcdef012345" {
		t.Fatalf("unexpected values %v", values)
	}

	entries := logs.FilterMessage("auth rejected").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d rejection lines", len(entries))
	}
	if entries[0].ContextMap()["reason"] != "expired" {
		t.Fatalf("log fields %v", entries[0].ContextMap())
	}
}

func TestAuditWorkerWithoutStream(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	StartAuditWorker(dispatcher, zap.New(core), nil)

	accepted := events.NewAuthDecisionEvent(events.AuthDecision{
		Outcome: events.OutcomeAccepted,
		Channel: domain.ChannelCookie,
		UserID:  "u-1",
		Role:    domain.RoleFarmer,
	}, time.Now())
	if err := dispatcher.Publish(context.Background(), accepted); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("auth accepted").Len() != 1 {
		t.Fatal("accepted decision not logged")
	}
}
