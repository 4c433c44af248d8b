package taskbus_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
	"github.com/tasklane/taskbus/taskbus"
)

type busCmd struct{ ID string }

type busQry struct{ K string }

type busRes struct{ V string }

type busDom struct{ N string }

type busOut struct{ T string }

func (o busOut) Topic() string { return o.T }

type fakeBusPub struct{ events []cbus.IntegrationEvent }

func (f *fakeBusPub) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	f.events = append(f.events, e)
	return nil
}

func Test_Facade_BindingsAndClose(t *testing.T) {
	b := taskbus.New(nil, nil, nil)
	ctx := context.Background()

	cnt := 0
	if err := b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) {
		cnt++
		return v.(busCmd).ID + "-done", nil
	}); err != nil {
		t.Fatalf("bind command: %v", err)
	}

	res, err := b.DispatchSync(ctx, busCmd{ID: "a"})
	if err != nil || res != "a-done" {
		t.Fatalf("dispatch sync: res=%v err=%v", res, err)
	}

	// Without an enqueuer, Dispatch falls back to the sync path.
	if _, err := b.Dispatch(ctx, busCmd{ID: "b"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if cnt != 2 {
		t.Fatalf("expected cnt=2 got %d", cnt)
	}

	if err := b.BindQueryOf(busQry{}, func(ctx context.Context, v any) (any, error) {
		return busRes{V: v.(busQry).K + "-ok"}, nil
	}); err != nil {
		t.Fatalf("bind query: %v", err)
	}

	qres, err := b.Ask(ctx, busQry{K: "A"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	if r, ok := qres.(busRes); !ok || r.V != "A-ok" {
		t.Fatalf("unexpected query result: %#v", qres)
	}

	ecnt := 0
	if err := b.BindDomainEventOf(busDom{}, func(ctx context.Context, v any) error {
		ecnt++
		return nil
	}); err != nil {
		t.Fatalf("bind event: %v", err)
	}

	if err := b.PublishDomain(ctx, busDom{N: "hi"}); err != nil {
		t.Fatalf("publish domain: %v", err)
	}

	if ecnt != 1 {
		t.Fatalf("expected ecnt=1 got %d", ecnt)
	}

	// PublishDomain with no listeners should be a no-op.
	if err := b.PublishDomain(ctx, struct{ cbus.DomainEvent }{}); err != nil {
		t.Fatalf("publish domain no listeners: %v", err)
	}

	// Close (no-op)
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func Test_Facade_PublishIntegration(t *testing.T) {
	b := taskbus.New(nil, nil, nil)

	err := b.PublishIntegration(t.Context(), busOut{T: "tasks"}, cbus.PublishOptions{Key: "k"})
	if !errors.Is(err, berr.ErrAsyncNotConfigured) {
		t.Fatalf("want ErrAsyncNotConfigured, got %v", err)
	}

	pub := &fakeBusPub{}
	b = taskbus.New(nil, pub, nil)

	if err := b.PublishIntegration(t.Context(), busOut{T: "tasks"}, cbus.PublishOptions{Key: "k"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("want 1 event, got %d", len(pub.events))
	}
}

func Test_Facade_MiddlewareOption(t *testing.T) {
	b := taskbus.New(nil, nil, nil)

	_ = b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return nil, nil })

	calls := 0
	opt := taskbus.WithCommandMiddleware(func(next taskbus.CommandHandlerFunc) taskbus.CommandHandlerFunc {
		return func(ctx context.Context, cmd any) (any, error) {
			calls++
			return next(ctx, cmd)
		}
	})
	opt(b)

	if _, err := b.DispatchSync(t.Context(), busCmd{ID: "1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if calls != 1 {
		t.Fatalf("middleware calls=%d want 1", calls)
	}
}

func Test_Facade_SidesShareRegistries(t *testing.T) {
	b := taskbus.New(nil, nil, nil)

	_ = b.Commands().BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return "side", nil })

	// A bind through the side bus is visible to facade dispatch.
	res, err := b.DispatchSync(t.Context(), busCmd{ID: "1"})
	if err != nil || res != "side" {
		t.Fatalf("res=%v err=%v", res, err)
	}

	if len(b.Commands().Registry().Handlers()) != 1 {
		t.Fatalf("registry snapshot size != 1")
	}
}

func Test_RebindWarnsWhenLoggerConfigured(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	b := taskbus.New(nil, nil, logger)

	_ = b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return nil, nil })

	if buf.Len() != 0 {
		t.Fatalf("first bind logged: %s", buf.String())
	}

	_ = b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return nil, nil })

	out := buf.String()
	if !strings.Contains(out, "command handler replaced") || !strings.Contains(out, "busCmd") {
		t.Fatalf("warning missing or incomplete: %q", out)
	}

	_ = b.BindQueryOf(busQry{}, func(ctx context.Context, v any) (any, error) { return nil, nil })
	_ = b.BindQueryOf(busQry{}, func(ctx context.Context, v any) (any, error) { return nil, nil })

	if !strings.Contains(buf.String(), "query handler replaced") {
		t.Fatalf("query warning missing: %q", buf.String())
	}
}

func Test_ConcurrentDispatchAndRebind(t *testing.T) {
	b := taskbus.New(nil, nil, nil)

	_ = b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return "r", nil })
	_ = b.BindQueryOf(busQry{}, func(ctx context.Context, v any) (any, error) { return "q", nil })

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				if _, err := b.DispatchSync(context.Background(), busCmd{ID: "c"}); err != nil {
					t.Errorf("dispatch: %v", err)
					return
				}

				if _, err := b.Ask(context.Background(), busQry{K: "k"}); err != nil {
					t.Errorf("ask: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 25; j++ {
				_ = b.BindCommandOf(busCmd{}, func(ctx context.Context, v any) (any, error) { return "r", nil })
			}
		}()
	}

	wg.Wait()
}
