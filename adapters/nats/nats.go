package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
)

const (
	cmdPrefix      = "cmd."
	listenerPrefix = "listener."
)

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter implements cbus.Adapter using an injected NATS-like Client.
// Commands go out under "cmd.", listener jobs under "listener.", and
// integration events under their own topic.
type Adapter struct {
	Client Client
}

// Ensure Adapter implements the combined contract.
var _ cbus.Adapter = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) EnqueueCommand(ctx context.Context, cmd cbus.Command, opts cbus.QueueOptions) error {
	return a.send(ctx, &sendArgs{
		subject: subjectForCommand(cmd, opts),
		payload: cmd,
		headers: queueHeaders(opts),
		wrap:    berr.ErrEnqueueFailed,
		label:   "enqueue",
	})
}

func (a *Adapter) EnqueueListener(
	ctx context.Context,
	e cbus.DomainEvent,
	handler string,
	opts cbus.QueueOptions,
) error {
	return a.send(ctx, &sendArgs{
		subject: subjectForListener(e, handler, opts),
		payload: e,
		headers: queueHeaders(opts),
		wrap:    berr.ErrEnqueueFailed,
		label:   "enqueue listener",
	})
}

func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	return a.send(ctx, &sendArgs{
		subject: topicForEvent(e, opts),
		payload: e,
		headers: publishHeaders(opts),
		wrap:    berr.ErrPublishFailed,
		label:   "publish",
	})
}

type sendArgs struct {
	subject string
	payload any
	headers map[string]string
	wrap    error
	label   string
}

func (a *Adapter) send(ctx context.Context, args *sendArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats %s: %w", args.label, args.wrap)
	}

	body, err := json.Marshal(args.payload)
	if err != nil {
		return fmt.Errorf("nats %s serialize: %w", args.label, errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Client.Publish(args.subject, body, args.headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats %s publish: %w", args.label, errors.Join(args.wrap, err))
	}

	return nil
}

// helpers

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" { // unnamed (e.g., map/struct literal)
		name = t.String()
	}

	return name
}

func subjectForCommand(cmd any, o cbus.QueueOptions) string {
	if o.Queue != "" {
		return cmdPrefix + o.Queue
	}

	return cmdPrefix + typeName(cmd)
}

func subjectForListener(e any, handler string, o cbus.QueueOptions) string {
	if o.Queue != "" {
		return listenerPrefix + o.Queue
	}

	return listenerPrefix + typeName(e) + "." + handler
}

func topicForEvent(e cbus.IntegrationEvent, o cbus.PublishOptions) string {
	if o.TopicOverride != "" {
		return o.TopicOverride
	}

	return e.Topic()
}

func queueHeaders(o cbus.QueueOptions) map[string]string {
	h := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		h[k] = v
	}

	if o.DelaySeconds > 0 {
		h["x-delay"] = fmt.Sprint(o.DelaySeconds)
	}

	return h
}

func publishHeaders(o cbus.PublishOptions) map[string]string {
	h := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		h[k] = v
	}

	if o.Key != "" {
		h["key"] = o.Key
	}

	return h
}
