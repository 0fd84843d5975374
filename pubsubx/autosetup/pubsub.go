package autosetup

import (
	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	inmemorypubsub "github.com/clinia/bulkx/pubsubx/inmemory"
	"github.com/clinia/bulkx/pubsubx/kgox"
)

// New returns the notification source selected by c.Provider.
func New(l *logrusx.Logger, c *pubsubx.Config) (pubsubx.Source, error) {
	if c == nil {
		return nil, errorx.InvalidArgumentErrorf("pubsub config is required")
	}

	switch c.Provider {
	case pubsubx.ProviderKafka:
		s, err := kgox.NewSource(l, c)
		if err != nil {
			return nil, err
		}
		l.Infof("Kafka notification source configured! Receiving notifications from %s", c.Providers.Kafka.Brokers)
		return s, nil

	case pubsubx.ProviderInMemory:
		s, err := inmemorypubsub.NewSource(l, c)
		if err != nil {
			return nil, err
		}
		l.Infof("InMemory notification source configured! Receiving notifications in-process")
		return s, nil

	default:
		return nil, errorx.InvalidArgumentErrorf("unknown pubsub provider %q", c.Provider)
	}
}
