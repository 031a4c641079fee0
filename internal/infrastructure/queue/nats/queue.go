package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
	"github.com/aravindkv/underwriter-review/internal/infrastructure/resilience"
)

const (
	SubjectRunRequested    = "review.requested"
	SubjectCancelRequested = "review.cancel"
	SubjectStatusChanged   = "review.status"
)

// Queue connects the API to the review worker and fans out per-document
// status changes to dashboard sessions.
type Queue struct {
	conn     *nats.Conn
	executor *resilience.Executor
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("underwriter-review"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		executor: options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRunRequested(ctx context.Context, proposerID string) error {
	return q.publish(ctx, SubjectRunRequested, []byte(proposerID))
}

func (q *Queue) PublishCancelRequested(ctx context.Context, proposerID string) error {
	return q.publish(ctx, SubjectCancelRequested, []byte(proposerID))
}

func (q *Queue) PublishStatusChanged(ctx context.Context, event domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	// Status events fan out per proposer so a dashboard session only
	// subscribes to its own review.
	return q.publish(ctx, SubjectStatusChanged+"."+event.ProposerID, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeCancelRequested registers a handler for cancel signals and
// returns. Cancels fan out to every worker because only the one holding the
// run can act on it.
func (q *Queue) SubscribeCancelRequested(ctx context.Context, handler func(proposerID string)) error {
	sub, err := q.conn.Subscribe(SubjectCancelRequested, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		handler(string(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("nats subscribe cancel: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return nil
}

// SubscribeStatusChanged registers a handler for status events across all
// proposers and returns. Malformed events are dropped.
func (q *Queue) SubscribeStatusChanged(ctx context.Context, handler func(domain.StatusEvent)) error {
	sub, err := q.conn.Subscribe(SubjectStatusChanged+".>", func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		var event domain.StatusEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("drop malformed status event: %v", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe status: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return nil
}

// SubscribeRunRequested blocks until ctx is cancelled, handing each
// requested proposer ID to the handler on the workers queue group.
func (q *Queue) SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(SubjectRunRequested, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			log.Printf("review handler error for proposer=%s: %v", string(msg.Data), err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
