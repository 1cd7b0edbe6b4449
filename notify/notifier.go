package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/matchgo/codec"
	"github.com/hupe1980/matchgo/document"
	findex "github.com/hupe1980/matchgo/filters/index"
	"github.com/hupe1980/matchgo/registry"
	"github.com/hupe1980/matchgo/transport"
)

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithEncoder sets the payload encoder.
func WithEncoder(enc *codec.Encoder) Option {
	return func(n *Notifier) {
		if enc != nil {
			n.enc = enc
		}
	}
}

// WithWorkers sets the delivery worker count; <= 0 selects GOMAXPROCS.
func WithWorkers(workers int) Option {
	return func(n *Notifier) {
		n.workers = workers
	}
}

// Notifier routes mutation events to channels: it asks the filter index
// which rooms match, gates each room channel by its visibility tuple, builds
// one payload per qualifying channel and hands it to the transport.
//
// Delivery is fire-and-forget: Dispatch returns once all payloads are
// enqueued. The notifier never mutates registry state.
type Notifier struct {
	reg     *registry.Registry
	idx     *findex.Index
	tr      transport.Transport
	enc     *codec.Encoder
	pool    *workerPool
	logger  *slog.Logger
	workers int

	// errLimit throttles delivery-failure logging; a dead consumer must not
	// flood the log at notification rate.
	errLimit *rate.Limiter
}

// New creates a Notifier and starts its delivery workers.
func New(reg *registry.Registry, idx *findex.Index, tr transport.Transport, opts ...Option) *Notifier {
	n := &Notifier{
		reg:      reg,
		idx:      idx,
		tr:       tr,
		enc:      codec.NewEncoder(nil, codec.CompressionNone, 0),
		logger:   slog.Default(),
		errLimit: rate.NewLimiter(rate.Every(time.Second), 10),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.pool = newWorkerPool(n.workers)
	return n
}

// Close stops the delivery workers after draining enqueued payloads.
func (n *Notifier) Close() {
	n.pool.close()
}

// Dispatch routes one mutation event. It computes, per matched room, whether
// the document entered, left or stayed in the result set, and enqueues one
// frame per channel that accepts the outcome and the completion state. The
// returned count is the number of rooms the mutation touched.
func (n *Notifier) Dispatch(ctx context.Context, ev Event) (int, error) {
	if !ev.Action.valid() {
		return 0, fmt.Errorf("dispatch: invalid action %d", ev.Action)
	}

	outcomes, err := n.resolve(ctx, ev)
	if err != nil {
		return 0, err
	}
	if len(outcomes) == 0 {
		return 0, nil
	}

	requestID := ev.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	now := time.Now().UnixMilli()

	for roomID, outcome := range outcomes {
		channels, ok := n.reg.Channels(roomID)
		if !ok {
			// Room raced away between matching and channel resolution.
			continue
		}
		for _, ch := range channels {
			if !acceptsDocument(ch.Spec, outcome, ev.State) {
				continue
			}
			payload := Notification{
				Type:       TypeDocument,
				RequestID:  requestID,
				Timestamp:  now,
				Index:      ev.Index,
				Collection: ev.Collection,
				RoomID:     roomID,
				ChannelID:  ch.ID,
				Action:     ev.Action.String(),
				State:      ev.State.String(),
				Scope:      outcome.String(),
				Result:     contentFor(outcome, ev),
			}
			if err := n.deliver(ctx, ch.ID, payload); err != nil {
				return 0, err
			}
		}
	}
	return len(outcomes), nil
}

// DispatchPresence routes user-presence events produced by the registry on
// subscribe, unsubscribe and disconnect.
func (n *Notifier) DispatchPresence(ctx context.Context, events []registry.PresenceEvent) error {
	now := time.Now().UnixMilli()
	for _, ev := range events {
		channels, ok := n.reg.Channels(ev.RoomID)
		if !ok {
			continue
		}
		rm, _ := n.reg.Room(ev.RoomID)
		for _, ch := range channels {
			if !acceptsPresence(ch.Spec, ev.Kind) {
				continue
			}
			payload := Notification{
				Type:       TypeUser,
				Timestamp:  now,
				Index:      rm.Index,
				Collection: rm.Collection,
				RoomID:     ev.RoomID,
				ChannelID:  ch.ID,
				Action:     ev.Kind.String(),
				Count:      ev.Count,
				Metadata:   ev.Metadata,
			}
			if err := n.deliver(ctx, ch.ID, payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve maps the event onto per-room outcomes. Updates test both document
// states; the two index probes run concurrently.
func (n *Notifier) resolve(ctx context.Context, ev Event) (map[string]Outcome, error) {
	var beforeIDs, afterIDs []findex.FilterID

	switch ev.Action {
	case ActionCreate, ActionPublish:
		if ev.After == nil {
			n.logger.Warn("dispatch: event without document, ignored", "action", ev.Action.String())
			return nil, nil
		}
		afterIDs = n.idx.Test(ev.Index, ev.Collection, ev.After)

	case ActionDelete:
		if ev.Before == nil {
			n.logger.Warn("dispatch: delete event without before document, ignored")
			return nil, nil
		}
		beforeIDs = n.idx.Test(ev.Index, ev.Collection, ev.Before)

	case ActionUpdate, ActionReplace, ActionCreateOrUpdate:
		if ev.Before == nil && ev.After == nil {
			n.logger.Warn("dispatch: event without documents, ignored", "action", ev.Action.String())
			return nil, nil
		}
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			if ev.Before != nil {
				beforeIDs = n.idx.Test(ev.Index, ev.Collection, ev.Before)
			}
			return nil
		})
		g.Go(func() error {
			if ev.After != nil {
				afterIDs = n.idx.Test(ev.Index, ev.Collection, ev.After)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	before := make(map[string]struct{}, len(beforeIDs))
	for _, id := range beforeIDs {
		if key, ok := n.idx.Key(id); ok {
			before[key] = struct{}{}
		}
	}

	outcomes := make(map[string]Outcome, len(afterIDs)+len(before))
	for _, id := range afterIDs {
		key, ok := n.idx.Key(id)
		if !ok {
			continue
		}
		if _, matched := before[key]; matched {
			outcomes[key] = OutcomeUnchanged
			delete(before, key)
		} else {
			outcomes[key] = OutcomeIn
		}
	}
	for key := range before {
		outcomes[key] = OutcomeOut
	}
	return outcomes, nil
}

// deliver encodes the payload and enqueues the transport handoff.
func (n *Notifier) deliver(ctx context.Context, channelID string, payload Notification) error {
	frame, err := n.enc.Encode(payload)
	if err != nil {
		return fmt.Errorf("notify channel %s: %w", channelID, err)
	}
	return n.pool.submit(ctx, func() {
		if err := n.tr.Notify(channelID, frame); err != nil && n.errLimit.Allow() {
			n.logger.Warn("notification delivery failed", "channel", channelID, "err", err)
		}
	})
}

// acceptsDocument gates a document outcome by the channel's scope and state.
func acceptsDocument(spec registry.ChannelSpec, outcome Outcome, state registry.State) bool {
	switch spec.Scope {
	case registry.ScopeAll:
	case registry.ScopeIn:
		if outcome != OutcomeIn {
			return false
		}
	case registry.ScopeOut:
		if outcome != OutcomeOut {
			return false
		}
	case registry.ScopeNone:
		return false
	}
	switch spec.State {
	case registry.StateAll:
		return true
	case registry.StateDone:
		return state == registry.StateDone
	case registry.StatePending:
		return state == registry.StatePending
	default:
		return false
	}
}

// acceptsPresence gates a user event by the channel's users option. Presence
// passes even on scope=none channels.
func acceptsPresence(spec registry.ChannelSpec, kind registry.PresenceKind) bool {
	switch spec.Users {
	case registry.UsersAll:
		return true
	case registry.UsersIn:
		return kind == registry.PresenceJoin
	case registry.UsersOut:
		return kind == registry.PresenceLeave
	default:
		return false
	}
}

// contentFor picks the document side a subscriber should see: the new state
// for documents entering or staying, the last known state for documents
// leaving.
func contentFor(outcome Outcome, ev Event) document.Document {
	if outcome == OutcomeOut {
		return ev.Before
	}
	return ev.After
}
