package matchgo

import (
	"time"

	"github.com/hupe1980/matchgo/codec"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	codec            codec.Codec
	compression      codec.Compression
	minCompressSize  int
	cleanupGrace     time.Duration
	numShards        int
	notifyWorkers    int
}

// Option configures engine construction.
type Option func(*options)

// WithLogger sets the logger used by all components. If nil is passed, the
// default logger is kept.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCodec configures the codec used to encode notification payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression compresses notification payloads whose encoded size reaches
// minSize bytes; minSize <= 0 selects codec.DefaultMinCompressSize. Large
// fan-outs amortize the compression cost across every recipient of the
// channel.
func WithCompression(compression codec.Compression, minSize int) Option {
	return func(o *options) {
		o.compression = compression
		o.minCompressSize = minSize
	}
}

// WithCleanupGracePeriod sets how long an emptied room is kept as a tombstone
// before its filter is released. Short values reclaim memory faster; longer
// values keep room ids stable across quick unsubscribe/resubscribe cycles.
func WithCleanupGracePeriod(d time.Duration) Option {
	return func(o *options) {
		o.cleanupGrace = d
	}
}

// WithNumShards sets the room shard count of the subscription registry.
// Sharding keeps unrelated rooms from contending on one lock.
func WithNumShards(n int) Option {
	return func(o *options) {
		o.numShards = n
	}
}

// WithNotifyWorkers sets the number of delivery workers; <= 0 selects
// GOMAXPROCS.
func WithNotifyWorkers(n int) Option {
	return func(o *options) {
		o.notifyWorkers = n
	}
}
