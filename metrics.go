package matchgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordSubscribe is called after each subscribe or join operation.
	// duration is the total time taken, err is nil if successful.
	RecordSubscribe(duration time.Duration, err error)

	// RecordUnsubscribe is called after each unsubscribe operation.
	RecordUnsubscribe(duration time.Duration, err error)

	// RecordDispatch is called after each mutation dispatch.
	// rooms is the number of rooms the mutation matched.
	RecordDispatch(rooms int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSubscribe(time.Duration, error)     {}
func (NoopMetricsCollector) RecordUnsubscribe(time.Duration, error)   {}
func (NoopMetricsCollector) RecordDispatch(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SubscribeCount      atomic.Int64
	SubscribeErrors     atomic.Int64
	SubscribeTotalNanos atomic.Int64
	UnsubscribeCount    atomic.Int64
	UnsubscribeErrors   atomic.Int64
	DispatchCount       atomic.Int64
	DispatchErrors      atomic.Int64
	DispatchRooms       atomic.Int64
	DispatchTotalNanos  atomic.Int64
}

// RecordSubscribe implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSubscribe(duration time.Duration, err error) {
	b.SubscribeCount.Add(1)
	b.SubscribeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SubscribeErrors.Add(1)
	}
}

// RecordUnsubscribe implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnsubscribe(duration time.Duration, err error) {
	b.UnsubscribeCount.Add(1)
	if err != nil {
		b.UnsubscribeErrors.Add(1)
	}
}

// RecordDispatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDispatch(rooms int, duration time.Duration, err error) {
	b.DispatchCount.Add(1)
	b.DispatchRooms.Add(int64(rooms))
	b.DispatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DispatchErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SubscribeCount:    b.SubscribeCount.Load(),
		SubscribeErrors:   b.SubscribeErrors.Load(),
		SubscribeAvgNanos: avg(b.SubscribeTotalNanos.Load(), b.SubscribeCount.Load()),
		UnsubscribeCount:  b.UnsubscribeCount.Load(),
		UnsubscribeErrors: b.UnsubscribeErrors.Load(),
		DispatchCount:     b.DispatchCount.Load(),
		DispatchErrors:    b.DispatchErrors.Load(),
		DispatchRooms:     b.DispatchRooms.Load(),
		DispatchAvgNanos:  avg(b.DispatchTotalNanos.Load(), b.DispatchCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SubscribeCount    int64
	SubscribeErrors   int64
	SubscribeAvgNanos int64
	UnsubscribeCount  int64
	UnsubscribeErrors int64
	DispatchCount     int64
	DispatchErrors    int64
	DispatchRooms     int64
	DispatchAvgNanos  int64
}
