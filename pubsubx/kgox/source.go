package kgox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/clinia/bulkx/pubsubx/messagex"
	"github.com/clinia/bulkx/retryx"
	"github.com/clinia/bulkx/tracex"
	"github.com/samber/lo"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	subscriptionBufferSize = 16
	pingTimeout            = 10 * time.Second
)

// Source consumes the change notification topic and dispatches records to the subscriptions of their operation.
// It reads without a consumer group from the end of the topic: only notifications produced after the
// source started are seen.
type Source struct {
	l     *logrusx.Logger
	conf  *pubsubx.Config
	topic string
	cl    *kgo.Client

	mu            sync.RWMutex
	closed        bool
	subscriptions map[string][]*subscription

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type subscription struct {
	s           *Source
	operationID string
	ch          chan *pubsubx.Notification
	done        chan struct{}
	exited      chan struct{}
	once        sync.Once
}

var (
	_ pubsubx.Source       = (*Source)(nil)
	_ pubsubx.Subscription = (*subscription)(nil)
)

func NewSource(l *logrusx.Logger, config *pubsubx.Config, opts ...kgo.Opt) (*Source, error) {
	if l == nil {
		return nil, errorx.FailedPreconditionErrorf("logger is required")
	}
	if config == nil || config.Provider != pubsubx.ProviderKafka {
		return nil, errorx.FailedPreconditionErrorf("unsupported provider for kafka source")
	}
	if len(config.Providers.Kafka.Brokers) == 0 {
		return nil, errorx.InvalidArgumentErrorf("at least one kafka broker is required")
	}

	topic, err := notificationTopic(config)
	if err != nil {
		return nil, err
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(config.Providers.Kafka.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.WithLogger(&pubsubLogger{l: l}),
	}, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, errorx.InternalErrorf("failed to create kafka client: %v", err).WithCause(err)
	}
	if err := ping(cl); err != nil {
		cl.Close()
		return nil, errorx.UnavailableErrorf("no kafka broker answered: %v", err).WithCause(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		l:             l,
		conf:          config,
		topic:         topic,
		cl:            cl,
		subscriptions: make(map[string][]*subscription),
		cancel:        cancel,
	}

	s.wg.Add(1)
	go s.consume(ctx)

	return s, nil
}

// ping waits for a broker to answer, backing off exponentially for at most pingTimeout.
func ping(cl *kgo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	return retryx.ExponentialRetry(func() error {
		return cl.Ping(ctx)
	},
		retryx.WithInterval(100*time.Millisecond),
		retryx.WithMaxElapsedTime(pingTimeout),
		retryx.WithUnlimitedRetries(),
		retryx.WithContext(ctx),
	)
}

func notificationTopic(config *pubsubx.Config) (string, error) {
	name := config.Providers.Kafka.Topic
	if name == "" {
		name = pubsubx.DefaultTopic
	}
	topic, err := messagex.NewTopic(name)
	if err != nil {
		return "", err
	}
	return topic.TopicName(config.Scope), nil
}

func (s *Source) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.MessagingSystemKafka,
		semconv.MessagingDestinationName(s.topic),
	}
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()
	defer tracex.RecoverWithStackTracef(s.l, "panic while consuming notifications")

	l := s.l.WithAttributes(s.attributes()...)
	for {
		fetches := s.cl.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			// Retriable errors are handled by the client; what reaches us is only logged.
			l.WithError(errors.Join(lo.Map(errs, func(err kgo.FetchError, _ int) error { return err.Err })...)).Warnf("error while polling notifications")
		}

		fetches.EachRecord(func(r *kgo.Record) {
			s.dispatch(ctx, l, r)
		})
	}
}

func (s *Source) dispatch(ctx context.Context, l *logrusx.Logger, r *kgo.Record) {
	msg := messageFromRecord(r)

	operationID := string(msg.Key)
	s.mu.RLock()
	subs, ok := s.subscriptions[operationID]
	s.mu.RUnlock()
	if !ok && operationID != "" {
		return
	}

	n, err := pubsubx.DecodeNotification(msg.Payload)
	if err != nil {
		l.WithError(err).Warnf("failed to decode notification at offset %d", msg.Offset)
		return
	}
	if operationID == "" {
		// Records produced without a key are routed on the payload.
		s.mu.RLock()
		subs = s.subscriptions[n.OperationID]
		s.mu.RUnlock()
	}
	l.WithContext(msg.ExtractTraceContext(ctx)).WithField("message_id", msg.ID).
		Debugf("received %s notification for operation %s", n.Type, n.OperationID)

	for _, sub := range subs {
		select {
		case sub.ch <- n:
		case <-sub.done:
		case <-ctx.Done():
			return
		}
	}
}

// Subscribe implements pubsubx.Source.
// The handler runs on a dedicated goroutine, so Close must not be called from within it.
func (s *Source) Subscribe(ctx context.Context, operationID string, handler pubsubx.Handler) (pubsubx.Subscription, error) {
	if operationID == "" {
		return nil, errorx.InvalidArgumentErrorf("operation id is required")
	}
	if handler == nil {
		return nil, errorx.InvalidArgumentErrorf("nil handler for operation %s", operationID)
	}

	sub := &subscription{
		s:           s,
		operationID: operationID,
		ch:          make(chan *pubsubx.Notification, subscriptionBufferSize),
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errorx.FailedPreconditionErrorf("notification source is closed")
	}
	s.subscriptions[operationID] = append(s.subscriptions[operationID], sub)
	s.mu.Unlock()

	go func() {
		defer close(sub.exited)
		defer tracex.RecoverWithStackTracef(s.l, "panic while handling notification for operation %s", operationID)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case n := <-sub.ch:
				handler(ctx, n)
			}
		}
	}()

	return sub, nil
}

// Close implements pubsubx.Subscription.
func (sub *subscription) Close() error {
	sub.once.Do(func() {
		close(sub.done)
		sub.s.mu.Lock()
		defer sub.s.mu.Unlock()
		remaining := lo.Without(sub.s.subscriptions[sub.operationID], sub)
		if len(remaining) == 0 {
			delete(sub.s.subscriptions, sub.operationID)
		} else {
			sub.s.subscriptions[sub.operationID] = remaining
		}
	})
	<-sub.exited
	return nil
}

// Close implements pubsubx.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := lo.Flatten(lo.Values(s.subscriptions))
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}

	s.cancel()
	s.wg.Wait()
	s.cl.Close()

	return nil
}
