package bulkinsert

import (
	"math"
	"time"

	"github.com/clinia/bulkx/errorx"
)

const (
	DefaultBatchSize            = 100
	DefaultEnqueueRetryInterval = 250 * time.Millisecond
	DefaultDequeueTimeout       = 200 * time.Millisecond
	DefaultPollInterval         = 500 * time.Millisecond

	minQueueCapacity = 128
)

// Options tune a bulk insert session.
type Options struct {
	BatchSize                int
	CheckForUpdates          bool
	CheckReferencesInIndexes bool

	// EnqueueRetryInterval is the wait between two enqueue attempts of a Write on a full queue.
	EnqueueRetryInterval time.Duration
	// DequeueTimeout bounds each wait of the writer on an empty queue.
	DequeueTimeout time.Duration
	PollInterval   time.Duration
	// PollTimeout bounds the completion polling. Zero polls until the server reports completion.
	PollTimeout time.Duration
	// AuthTimeout bounds the token handshake. Zero means no bound.
	AuthTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		BatchSize:            DefaultBatchSize,
		EnqueueRetryInterval: DefaultEnqueueRetryInterval,
		DequeueTimeout:       DefaultDequeueTimeout,
		PollInterval:         DefaultPollInterval,
	}
}

// withDefaults fills the zero durations with their defaults.
func (o Options) withDefaults() Options {
	if o.EnqueueRetryInterval == 0 {
		o.EnqueueRetryInterval = DefaultEnqueueRetryInterval
	}
	if o.DequeueTimeout == 0 {
		o.DequeueTimeout = DefaultDequeueTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

func (o Options) Validate() error {
	if o.BatchSize <= 0 {
		return errorx.InvalidArgumentErrorf("batch size must be greater than 0, got %d", o.BatchSize)
	}
	if o.EnqueueRetryInterval < 0 || o.DequeueTimeout < 0 || o.PollInterval < 0 {
		return errorx.InvalidArgumentErrorf("retry, dequeue and poll intervals cannot be negative")
	}
	if o.PollTimeout < 0 {
		return errorx.InvalidArgumentErrorf("poll timeout cannot be negative")
	}
	if o.AuthTimeout < 0 {
		return errorx.InvalidArgumentErrorf("auth timeout cannot be negative")
	}
	return nil
}

// QueueCapacity is max(128, ceil(1.5 * batchSize)).
func QueueCapacity(batchSize int) int {
	c := int(math.Ceil(1.5 * float64(batchSize)))
	if c < minQueueCapacity {
		return minQueueCapacity
	}
	return c
}
