package kafka

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
	jobsPrefix      = "jobs."
	listenersPrefix = "listeners."
)

// Writer is a minimal Kafka-like writer interface.
// Users can adapt franz-go or any other client to this.
type Writer interface {
	Write(topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements cbus.Adapter using an injected Writer. Commands land on
// "jobs." topics, listener jobs on "listeners." topics, and integration
// events on their own topic with the publish key as the record key.
type Adapter struct {
	Writer Writer
}

var _ cbus.Adapter = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) EnqueueCommand(ctx context.Context, cmd cbus.Command, opts cbus.QueueOptions) error {
	return a.produce(ctx, &produceArgs{
		topic:   topicForCommand(cmd, opts),
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
	return a.produce(ctx, &produceArgs{
		topic:   topicForListener(e, handler, opts),
		payload: e,
		headers: queueHeaders(opts),
		wrap:    berr.ErrEnqueueFailed,
		label:   "enqueue listener",
	})
}

func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	return a.produce(ctx, &produceArgs{
		topic:   topicForEvent(e, opts),
		key:     []byte(opts.Key),
		payload: e,
		headers: publishHeaders(opts),
		wrap:    berr.ErrPublishFailed,
		label:   "publish",
	})
}

type produceArgs struct {
	topic   string
	key     []byte
	payload any
	headers map[string]string
	wrap    error
	label   string
}

func (a *Adapter) produce(ctx context.Context, args *produceArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka %s: %w", args.label, args.wrap)
	}

	val, err := json.Marshal(args.payload)
	if err != nil {
		return fmt.Errorf("kafka %s serialize: %w", args.label, errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Writer.Write(args.topic, args.key, val, args.headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka %s write: %w", args.label, errors.Join(args.wrap, err))
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
	if name == "" {
		name = t.String()
	}

	return name
}

func topicForCommand(cmd any, o cbus.QueueOptions) string {
	if o.Queue != "" {
		return jobsPrefix + o.Queue
	}

	return jobsPrefix + typeName(cmd)
}

func topicForListener(e any, handler string, o cbus.QueueOptions) string {
	if o.Queue != "" {
		return listenersPrefix + o.Queue
	}

	return listenersPrefix + typeName(e) + "." + handler
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
	h := make(map[string]string, len(o.Headers))
	for k, v := range o.Headers {
		h[k] = v
	}

	return h
}
