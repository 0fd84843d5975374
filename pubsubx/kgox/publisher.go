package kgox

import (
	"context"
	"errors"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher produces change notifications. The bulk insert client never publishes; servers and tests do.
type Publisher struct {
	l     *logrusx.Logger
	topic string
	cl    *kgo.Client
}

var _ pubsubx.Publisher = (*Publisher)(nil)

func NewPublisher(l *logrusx.Logger, config *pubsubx.Config, opts ...kgo.Opt) (*Publisher, error) {
	if l == nil {
		return nil, errorx.FailedPreconditionErrorf("logger is required")
	}
	if config == nil || config.Provider != pubsubx.ProviderKafka {
		return nil, errorx.FailedPreconditionErrorf("unsupported provider for kafka publisher")
	}

	topic, err := notificationTopic(config)
	if err != nil {
		return nil, err
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(config.Providers.Kafka.Brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.WithLogger(&pubsubLogger{l: l}),
	}, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, errorx.InternalErrorf("failed to create kafka client: %v", err).WithCause(err)
	}

	return &Publisher{l: l, topic: topic, cl: cl}, nil
}

// Publish implements pubsubx.Publisher.
func (p *Publisher) Publish(ctx context.Context, notifications ...*pubsubx.Notification) error {
	records := make([]*kgo.Record, 0, len(notifications))
	for _, n := range notifications {
		r, err := newRecord(ctx, n, p.topic)
		if err != nil {
			return err
		}
		records = append(records, r)
	}

	results := p.cl.ProduceSync(ctx, records...)
	errs := make([]error, 0)
	for _, result := range results {
		if result.Err == nil {
			continue
		}
		errs = append(errs, errorx.UnavailableErrorf("failed to produce notification for operation %s: %v", string(result.Record.Key), result.Err).WithCause(result.Err))
	}

	return errors.Join(errs...)
}

func (p *Publisher) Close() error {
	p.cl.Close()
	return nil
}
