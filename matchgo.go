package matchgo

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hupe1980/matchgo/codec"
	findex "github.com/hupe1980/matchgo/filters/index"
	"github.com/hupe1980/matchgo/notify"
	"github.com/hupe1980/matchgo/registry"
	"github.com/hupe1980/matchgo/transport"
)

// SubscribeRequest carries one subscribe call into the engine.
type SubscribeRequest = registry.SubscribeParams

// JoinRequest attaches a connection to an existing room by id.
type JoinRequest = registry.JoinParams

// SubscribeResult is the outcome of Subscribe or Join.
type SubscribeResult = registry.SubscribeResult

// RoomInfo is a point-in-time snapshot of one room.
type RoomInfo = registry.RoomInfo

// MutationEvent is one committed document mutation from the write path.
type MutationEvent = notify.Event

// Engine is the realtime subscription engine: it compiles client filters
// into an index, deduplicates subscriptions into rooms and channels, and
// routes mutation events to the connections whose filters match.
//
// Engines are self-contained; multiple instances can coexist in one process.
// Nothing is persisted: a restart drops all rooms and customers and clients
// re-subscribe.
type Engine struct {
	logger  *Logger
	metrics MetricsCollector

	index     *findex.Index
	registry  *registry.Registry
	notifier  *notify.Notifier
	transport transport.Transport

	closed atomic.Bool
}

// New creates an Engine bound to a transport.
func New(tr transport.Transport, opts ...Option) (*Engine, error) {
	if tr == nil {
		return nil, errors.New("matchgo: transport must not be nil")
	}
	o := &options{
		logger:           NewLogger(nil),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(o)
	}

	idx := findex.New()
	reg := registry.New(idx, tr,
		registry.WithLogger(o.logger.Logger),
		registry.WithCleanupGracePeriod(o.cleanupGrace),
		registry.WithNumShards(o.numShards),
	)
	enc := codec.NewEncoder(o.codec, o.compression, o.minCompressSize)
	not := notify.New(reg, idx, tr,
		notify.WithLogger(o.logger.Logger),
		notify.WithEncoder(enc),
		notify.WithWorkers(o.notifyWorkers),
	)

	return &Engine{
		logger:    o.logger,
		metrics:   o.metricsCollector,
		index:     idx,
		registry:  reg,
		notifier:  not,
		transport: tr,
	}, nil
}

// Subscribe registers a content subscription for a connection and returns
// the room and channel it resolved to. Equivalent filters collapse onto the
// same room regardless of how the client ordered their clauses.
func (e *Engine) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	start := time.Now()
	res, events, err := e.registry.Subscribe(ctx, req)
	e.metrics.RecordSubscribe(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if err := e.notifier.DispatchPresence(ctx, events); err != nil {
		e.logger.Warn("presence dispatch failed", "room", res.RoomID, "err", err)
	}
	return res, nil
}

// Join attaches a connection to an already-known room without re-sending the
// filter.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (*SubscribeResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	start := time.Now()
	res, events, err := e.registry.Join(ctx, req)
	e.metrics.RecordSubscribe(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if err := e.notifier.DispatchPresence(ctx, events); err != nil {
		e.logger.Warn("presence dispatch failed", "room", res.RoomID, "err", err)
	}
	return res, nil
}

// Unsubscribe removes a connection's subscription to a room.
func (e *Engine) Unsubscribe(ctx context.Context, connectionID, roomID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	start := time.Now()
	events, err := e.registry.Unsubscribe(ctx, connectionID, roomID)
	e.metrics.RecordUnsubscribe(time.Since(start), err)
	if err != nil {
		return err
	}
	if err := e.notifier.DispatchPresence(ctx, events); err != nil {
		e.logger.Warn("presence dispatch failed", "room", roomID, "err", err)
	}
	return nil
}

// RemoveConnection drops every subscription held by a connection, typically
// when its transport disconnects.
func (e *Engine) RemoveConnection(ctx context.Context, connectionID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	events, err := e.registry.RemoveConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := e.notifier.DispatchPresence(ctx, events); err != nil {
		e.logger.Warn("presence dispatch failed", "connection", connectionID, "err", err)
	}
	return nil
}

// Dispatch routes one mutation event to every matching channel. It returns
// once all payloads are enqueued; delivery itself is asynchronous.
func (e *Engine) Dispatch(ctx context.Context, ev MutationEvent) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	start := time.Now()
	rooms, err := e.notifier.Dispatch(ctx, ev)
	e.metrics.RecordDispatch(rooms, time.Since(start), err)
	return err
}

// CountSubscriptions returns the number of customers in a room.
func (e *Engine) CountSubscriptions(roomID string) (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	return e.registry.CountSubscriptions(roomID)
}

// ListSubscriptions returns a snapshot of every room, live or tombstoned.
func (e *Engine) ListSubscriptions() ([]RoomInfo, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.registry.List(), nil
}

// Close stops the engine: delivery workers drain, pending room cleanups are
// cancelled, and every subsequent operation fails with ErrEngineClosed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.notifier.Close()
	e.registry.Close()
	return nil
}
