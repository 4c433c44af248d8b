package taskbus_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
	"github.com/tasklane/taskbus/taskbus"
)

type createTask struct {
	Title  string
	UserID string
}

type createTaskResult struct {
	Success bool
	ID      string
}

type otherCmd struct{ N int }

type ptrCmd struct{ N int }

type queuedCmd struct{ ID string }

func (queuedCmd) QueueName() string    { return "commands" }
func (queuedCmd) Delay() time.Duration { return time.Second }

// fakes

type fakeJobs struct {
	cmds    []any
	cmdOpts []cbus.QueueOptions
}

func (f *fakeJobs) EnqueueCommand(ctx context.Context, cmd cbus.Command, opts cbus.QueueOptions) error {
	f.cmds = append(f.cmds, cmd)
	f.cmdOpts = append(f.cmdOpts, opts)

	return nil
}

func (f *fakeJobs) EnqueueListener(
	ctx context.Context,
	evt cbus.DomainEvent,
	handler string,
	opts cbus.QueueOptions,
) error {
	return nil
}

func newCommandBus() *taskbus.CommandBus {
	return taskbus.NewCommandBus(taskbus.NewCommandRegistry(), nil, nil)
}

func Test_DispatchSync_PassesCommandAndResultThrough(t *testing.T) {
	b := newCommandBus()

	var got createTask

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		got = v.(createTask)
		return createTaskResult{Success: true, ID: "t-1"}, nil
	})

	res, err := b.DispatchSync(t.Context(), createTask{Title: "Buy milk", UserID: "u1"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if got.Title != "Buy milk" || got.UserID != "u1" {
		t.Fatalf("handler saw %+v", got)
	}

	r, ok := res.(createTaskResult)
	if !ok || !r.Success || r.ID != "t-1" {
		t.Fatalf("result=%+v", res)
	}
}

func Test_DispatchSync_PreservesPointerIdentity(t *testing.T) {
	b := newCommandBus()

	cmd := &ptrCmd{N: 7}

	_ = b.BindCommandOf((*ptrCmd)(nil), func(ctx context.Context, v any) (any, error) {
		if v.(*ptrCmd) != cmd {
			t.Fatalf("handler received a different instance")
		}

		return nil, nil
	})

	if _, err := b.DispatchSync(t.Context(), cmd); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func Test_DispatchSync_ReturnsHandlerErrorUnchanged(t *testing.T) {
	b := newCommandBus()

	errDown := errors.New("DB down")

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		return nil, errDown
	})

	res, err := b.DispatchSync(t.Context(), createTask{Title: "x"})
	if err != errDown { //nolint:errorlint // identity, not wrapping, is the contract
		t.Fatalf("want the handler's error verbatim, got %v", err)
	}

	if res != nil {
		t.Fatalf("result=%v want nil on error", res)
	}
}

func Test_DispatchSync_NilCommandRejected(t *testing.T) {
	b := newCommandBus()

	called := false

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		called = true
		return nil, nil
	})

	_, err := b.DispatchSync(t.Context(), nil)
	if !errors.Is(err, berr.ErrNilCommand) {
		t.Fatalf("want ErrNilCommand, got %v", err)
	}

	if called {
		t.Fatalf("handler ran for nil command")
	}
}

func Test_DispatchSync_UnregisteredTypeNamedInError(t *testing.T) {
	b := newCommandBus()

	_, err := b.DispatchSync(t.Context(), otherCmd{N: 1})
	if !errors.Is(err, berr.ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound, got %v", err)
	}

	if !strings.Contains(err.Error(), "otherCmd") {
		t.Fatalf("error does not name the command type: %v", err)
	}
}

func Test_DispatchSync_NilStoredHandlerIsNotFound(t *testing.T) {
	reg := taskbus.NewCommandRegistry()
	reg.Register(reflect.TypeOf(createTask{}), nil)

	b := taskbus.NewCommandBus(reg, nil, nil)

	_, err := b.DispatchSync(t.Context(), createTask{})
	if !errors.Is(err, berr.ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound for nil stored handler, got %v", err)
	}
}

func Test_BindCommandOf_NilHandlerRejected(t *testing.T) {
	b := newCommandBus()

	err := b.BindCommandOf(createTask{}, nil)
	if !errors.Is(err, berr.ErrNilHandler) {
		t.Fatalf("want ErrNilHandler, got %v", err)
	}

	// The registry must be untouched by the failed bind.
	if _, err := b.DispatchSync(t.Context(), createTask{}); !errors.Is(err, berr.ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound after failed bind, got %v", err)
	}
}

func Test_Rebind_LastWriteWins(t *testing.T) {
	b := newCommandBus()

	firstCalls, secondCalls := 0, 0

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		firstCalls++
		return "first", nil
	})
	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		secondCalls++
		return "second", nil
	})

	res, err := b.DispatchSync(t.Context(), createTask{})
	if err != nil || res != "second" {
		t.Fatalf("res=%v err=%v", res, err)
	}

	if firstCalls != 0 || secondCalls != 1 {
		t.Fatalf("first=%d second=%d", firstCalls, secondCalls)
	}
}

func Test_Dispatch_CountsPerType(t *testing.T) {
	b := newCommandBus()

	aCalls, bCalls := 0, 0

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		aCalls++
		return nil, nil
	})
	_ = b.BindCommandOf(otherCmd{}, func(ctx context.Context, v any) (any, error) {
		bCalls++
		return nil, nil
	})

	for i := 0; i < 10; i++ {
		if _, err := b.DispatchSync(t.Context(), createTask{Title: "n"}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	if aCalls != 10 || bCalls != 0 {
		t.Fatalf("aCalls=%d bCalls=%d", aCalls, bCalls)
	}
}

func Test_Rebind_KeepsInFlightHandler(t *testing.T) {
	b := newCommandBus()

	entered := make(chan struct{})
	release := make(chan struct{})

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		close(entered)
		<-release

		return "old", nil
	})

	var (
		got  any
		gerr error
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		got, gerr = b.DispatchSync(context.Background(), createTask{Title: "slow"})
	}()

	<-entered

	// Rebind while the first dispatch is still inside the old handler.
	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		return "new", nil
	})

	close(release)
	<-done

	if gerr != nil || got != "old" {
		t.Fatalf("in-flight dispatch: res=%v err=%v", got, gerr)
	}

	res, err := b.DispatchSync(t.Context(), createTask{Title: "fast"})
	if err != nil || res != "new" {
		t.Fatalf("post-rebind dispatch: res=%v err=%v", res, err)
	}
}

func Test_Dispatch_QueueablePath(t *testing.T) {
	jobs := &fakeJobs{}
	b := taskbus.NewCommandBus(taskbus.NewCommandRegistry(), jobs, nil)

	res, err := b.Dispatch(t.Context(), queuedCmd{ID: "a1"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if res != nil {
		t.Fatalf("enqueued dispatch returned result %v", res)
	}

	if len(jobs.cmds) != 1 {
		t.Fatalf("want 1 enqueued cmd, got %d", len(jobs.cmds))
	}

	if opts := jobs.cmdOpts[0]; opts.Queue != "commands" || opts.DelaySeconds != 1 {
		t.Fatalf("opts=%+v", opts)
	}
}

func Test_Dispatch_QueueableWithoutEnqueuerRunsSync(t *testing.T) {
	b := newCommandBus()

	calls := 0

	_ = b.BindCommandOf(queuedCmd{}, func(ctx context.Context, v any) (any, error) {
		calls++
		return nil, nil
	})

	if _, err := b.Dispatch(t.Context(), queuedCmd{ID: "a1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func Test_DispatchWithMiddleware_OrderAndWrapping(t *testing.T) {
	b := newCommandBus()

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) { return nil, nil })

	calls := []string{}
	mw1 := func(next taskbus.CommandHandlerFunc) taskbus.CommandHandlerFunc {
		return func(ctx context.Context, cmd any) (any, error) {
			calls = append(calls, "mw1-before")
			res, err := next(ctx, cmd)

			calls = append(calls, "mw1-after")

			return res, err
		}
	}
	mw2 := func(next taskbus.CommandHandlerFunc) taskbus.CommandHandlerFunc {
		return func(ctx context.Context, cmd any) (any, error) {
			calls = append(calls, "mw2-before")
			res, err := next(ctx, cmd)

			calls = append(calls, "mw2-after")

			return res, err
		}
	}

	// Global registration order matters
	b.Use(mw1)

	if _, err := b.DispatchWithMiddleware(t.Context(), createTask{}, mw2); err != nil {
		t.Fatalf("dispatch with mw: %v", err)
	}

	want := []string{"mw1-before", "mw2-before", "mw2-after", "mw1-after"}
	if len(calls) != len(want) {
		t.Fatalf("calls len=%d want=%d", len(calls), len(want))
	}

	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("order mismatch at %d: %s != %s", i, calls[i], want[i])
		}
	}
}

func Test_Chain_StopsOnFirstError(t *testing.T) {
	b := newCommandBus()

	var i int

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		i++
		if i == 2 {
			return nil, errors.New("boom")
		}

		return nil, nil
	})

	err := b.Chain(t.Context(), createTask{Title: "1"}, createTask{Title: "2"}, createTask{Title: "3"})
	if err == nil {
		t.Fatalf("expected error")
	}

	if i != 2 { // third should not run
		t.Fatalf("ran %d handlers, want 2", i)
	}
}

func Test_Batch_Progress_Error_AndCancel(t *testing.T) {
	b := newCommandBus()

	_ = b.BindCommandOf(createTask{}, func(ctx context.Context, v any) (any, error) {
		if v.(createTask).Title == "bad" {
			return nil, errors.New("bad")
		}

		return nil, nil
	})

	var prog []int

	var failed []string

	opts := []taskbus.BatchOpt{
		taskbus.WithBatchProgress(func(done, total int) { prog = append(prog, done) }),
		taskbus.WithBatchOnError(func(_ int, cmd cbus.Command, _ error) {
			failed = append(failed, cmd.(createTask).Title)
		}),
	}

	cmds := []cbus.Command{createTask{Title: "a"}, createTask{Title: "bad"}, createTask{Title: "b"}}

	err := b.Batch(t.Context(), cmds, opts...)
	if err == nil {
		t.Fatalf("expected aggregated error")
	}

	if len(prog) != 3 || prog[0] != 1 || prog[2] != 3 {
		t.Fatalf("progress=%v", prog)
	}

	if len(failed) != 1 || failed[0] != "bad" {
		t.Fatalf("failed=%v", failed)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err = b.Batch(ctx, []cbus.Command{createTask{Title: "x"}})
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled joined, got %v", err)
	}
}

type genCmdHandler struct{ seen *[]string }

func (h genCmdHandler) Handle(ctx context.Context, c createTask) (createTaskResult, error) {
	*h.seen = append(*h.seen, c.Title)

	return createTaskResult{Success: true, ID: "g-1"}, nil
}

func Test_GenericBindAndDispatch(t *testing.T) {
	b := newCommandBus()

	var seen []string

	if err := taskbus.BindCommand[createTask, createTaskResult](b, genCmdHandler{seen: &seen}); err != nil {
		t.Fatalf("bind cmd: %v", err)
	}

	r, err := taskbus.Dispatch[createTask, createTaskResult](t.Context(), b, createTask{Title: "x"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if !r.Success || r.ID != "g-1" {
		t.Fatalf("r=%+v", r)
	}

	if len(seen) != 1 || seen[0] != "x" {
		t.Fatalf("seen=%v", seen)
	}

	// Rebinding through the generic helper replaces, never errors.
	if err := taskbus.BindCommand[createTask, createTaskResult](b, genCmdHandler{seen: &seen}); err != nil {
		t.Fatalf("rebind cmd: %v", err)
	}

	// Result type mismatch is guarded.
	_, err = taskbus.Dispatch[createTask, int](t.Context(), b, createTask{Title: "y"})
	if !errors.Is(err, berr.ErrHandlerTypeMismatch) {
		t.Fatalf("want ErrHandlerTypeMismatch, got %v", err)
	}
}
