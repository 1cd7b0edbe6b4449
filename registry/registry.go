package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/matchgo/filters"
	findex "github.com/hupe1980/matchgo/filters/index"
	"github.com/hupe1980/matchgo/internal/hash"
	"github.com/hupe1980/matchgo/transport"
)

// DefaultCleanupGracePeriod is how long a tombstoned room is kept around for
// revival before it is permanently removed.
const DefaultCleanupGracePeriod = 30 * time.Second

// DefaultNumShards is the default room shard count.
const DefaultNumShards = 8

// PresenceKind discriminates user-presence events.
type PresenceKind uint8

const (
	// PresenceJoin is emitted when a customer joins a room.
	PresenceJoin PresenceKind = iota
	// PresenceLeave is emitted when a customer leaves a room.
	PresenceLeave
)

// String returns the wire name of the presence kind.
func (k PresenceKind) String() string {
	if k == PresenceJoin {
		return "join"
	}
	return "leave"
}

// PresenceEvent reports a customer joining or leaving a room. The engine
// feeds these to the notifier, which fans them out to channels whose users
// option accepts the kind.
type PresenceEvent struct {
	Kind         PresenceKind
	RoomID       string
	ConnectionID string
	// Count is the number of customers remaining in the room after the event.
	Count int
	// Metadata is the customer's opaque subscription metadata, echoed back
	// unchanged.
	Metadata any
}

// SubscribeParams carries one subscribe request into the registry.
type SubscribeParams struct {
	Index      string
	Collection string
	// Body is the decoded filter body; nil or empty means match-all.
	Body map[string]any
	// Scope, State, Users are the raw visibility options; empty selects the
	// defaults (all/done/none).
	Scope string
	State string
	Users string

	ConnectionID string
	// Metadata is opaque to the registry and echoed back in presence
	// notifications for this customer.
	Metadata any
	// Context is the caller's security context, passed through untouched.
	Context any
}

// JoinParams attaches a connection to an already-known room.
type JoinParams struct {
	RoomID       string
	ConnectionID string
	Scope        string
	State        string
	Users        string
	Metadata     any
	Context      any
}

// SubscribeResult is the outcome of Subscribe or Join.
type SubscribeResult struct {
	RoomID    string
	ChannelID string
	// AlreadySubscribed is true when the connection already held this room;
	// the prior registration is returned unchanged.
	AlreadySubscribed bool
}

// RoomInfo is a point-in-time snapshot of one room.
type RoomInfo struct {
	ID         string
	Index      string
	Collection string
	Customers  int
	Destroyed  bool
	CreatedAt  time.Time
}

type channelState struct {
	spec ChannelSpec
	refs int
}

type room struct {
	id         string
	index      string
	collection string
	filterID   findex.FilterID
	createdAt  time.Time
	destroyed  bool
	channels   map[string]*channelState
	customers  map[string]struct{}
}

type customerRecord struct {
	channelID string
	metadata  any
}

type shard struct {
	mu     sync.Mutex
	rooms  map[string]*room
	timers map[string]*time.Timer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCleanupGracePeriod sets how long tombstoned rooms linger before
// permanent removal.
func WithCleanupGracePeriod(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithNumShards sets the room shard count. Sharding keeps unrelated rooms off
// a single global lock; rooms route to shards by canonical-key hash.
func WithNumShards(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.numShards = n
		}
	}
}

// Registry owns rooms, channels and customers: one room per canonical filter
// key, channels derived per visibility tuple, customers keyed by connection.
//
// It validates before it commits: any error leaves rooms, channels, customers
// and the filter index exactly as they were.
type Registry struct {
	index     *findex.Index
	transport transport.Transport
	logger    *slog.Logger
	grace     time.Duration
	numShards int
	shards    []*shard

	custMu    sync.Mutex
	customers map[string]map[string]*customerRecord // connectionID -> roomID -> record
}

// New creates a Registry on top of a filter index and a transport.
func New(index *findex.Index, tr transport.Transport, opts ...Option) *Registry {
	r := &Registry{
		index:     index,
		transport: tr,
		logger:    slog.Default(),
		grace:     DefaultCleanupGracePeriod,
		numShards: DefaultNumShards,
		customers: make(map[string]map[string]*customerRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.shards = make([]*shard, r.numShards)
	for i := range r.shards {
		r.shards[i] = &shard{
			rooms:  make(map[string]*room),
			timers: make(map[string]*time.Timer),
		}
	}
	return r
}

func (r *Registry) shardFor(roomID string) *shard {
	return r.shards[int(hash.CRC32C([]byte(roomID)))%r.numShards]
}

// Subscribe registers a connection on the room matching the canonicalized
// filter, creating or reviving the room as needed. Validation happens before
// any mutation; a context already cancelled at commit time leaves no state
// behind.
func (r *Registry) Subscribe(ctx context.Context, p SubscribeParams) (*SubscribeResult, []PresenceEvent, error) {
	spec, err := NewChannelSpec(p.Scope, p.State, p.Users)
	if err != nil {
		return nil, nil, err
	}
	node, err := filters.Parse(p.Body)
	if err != nil {
		return nil, nil, err
	}
	node = filters.Canonicalize(node)
	roomID := filters.Key(p.Index, p.Collection, node)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sh := r.shardFor(roomID)
	sh.mu.Lock()

	rm, ok := sh.rooms[roomID]
	switch {
	case !ok:
		rm = &room{
			id:         roomID,
			index:      p.Index,
			collection: p.Collection,
			filterID:   r.index.Add(roomID, node, p.Index, p.Collection),
			createdAt:  time.Now(),
			channels:   make(map[string]*channelState),
			customers:  make(map[string]struct{}),
		}
		sh.rooms[roomID] = rm
		r.logger.Debug("room created", "room", roomID, "index", p.Index, "collection", p.Collection)
	case rm.destroyed:
		r.reviveLocked(sh, rm)
	}

	res, ev := r.attachLocked(sh, rm, spec, p.ConnectionID, p.Metadata)
	sh.mu.Unlock()

	if !res.AlreadySubscribed {
		r.transport.BindChannel(p.ConnectionID, res.ChannelID)
	}
	return res, ev, nil
}

// Join attaches a connection to an existing room by id, without
// re-specifying a filter. Unknown or permanently removed rooms fail with
// NotFoundError; a tombstoned room is revived.
func (r *Registry) Join(ctx context.Context, p JoinParams) (*SubscribeResult, []PresenceEvent, error) {
	spec, err := NewChannelSpec(p.Scope, p.State, p.Users)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sh := r.shardFor(p.RoomID)
	sh.mu.Lock()

	rm, ok := sh.rooms[p.RoomID]
	if !ok {
		sh.mu.Unlock()
		return nil, nil, &NotFoundError{RoomID: p.RoomID}
	}
	if rm.destroyed {
		r.reviveLocked(sh, rm)
	}

	res, ev := r.attachLocked(sh, rm, spec, p.ConnectionID, p.Metadata)
	sh.mu.Unlock()

	if !res.AlreadySubscribed {
		r.transport.BindChannel(p.ConnectionID, res.ChannelID)
	}
	return res, ev, nil
}

// reviveLocked clears a room's tombstone and cancels its pending cleanup so
// the room id stays valid for channel subscribers that still reference it.
func (r *Registry) reviveLocked(sh *shard, rm *room) {
	rm.destroyed = false
	if t, ok := sh.timers[rm.id]; ok {
		t.Stop()
		delete(sh.timers, rm.id)
	}
	r.logger.Debug("room revived", "room", rm.id)
}

// attachLocked binds a connection to a room channel. Re-subscribing returns
// the prior registration unchanged: no duplicate channel ref, no metadata
// overwrite, no presence event.
func (r *Registry) attachLocked(sh *shard, rm *room, spec ChannelSpec, connID string, metadata any) (*SubscribeResult, []PresenceEvent) {
	r.custMu.Lock()
	byRoom, ok := r.customers[connID]
	if !ok {
		byRoom = make(map[string]*customerRecord)
		r.customers[connID] = byRoom
	}
	if rec, ok := byRoom[rm.id]; ok {
		r.custMu.Unlock()
		return &SubscribeResult{RoomID: rm.id, ChannelID: rec.channelID, AlreadySubscribed: true}, nil
	}

	chID := spec.ChannelID(rm.id)
	cs, ok := rm.channels[chID]
	if !ok {
		cs = &channelState{spec: spec}
		rm.channels[chID] = cs
	}
	cs.refs++
	rm.customers[connID] = struct{}{}
	byRoom[rm.id] = &customerRecord{channelID: chID, metadata: metadata}
	count := len(rm.customers)
	r.custMu.Unlock()

	ev := []PresenceEvent{{
		Kind:         PresenceJoin,
		RoomID:       rm.id,
		ConnectionID: connID,
		Count:        count,
		Metadata:     metadata,
	}}
	return &SubscribeResult{RoomID: rm.id, ChannelID: chID}, ev
}

// Unsubscribe removes a customer from a room. The last customer leaving
// tombstones the room rather than deleting it; permanent removal is deferred
// by the cleanup grace period so an immediate re-subscribe can reuse the id.
func (r *Registry) Unsubscribe(ctx context.Context, connID, roomID string) ([]PresenceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := r.shardFor(roomID)
	sh.mu.Lock()
	rm, ok := sh.rooms[roomID]
	if !ok {
		sh.mu.Unlock()
		return nil, &NotFoundError{RoomID: roomID}
	}

	rec, count, err := r.detachLocked(sh, rm, connID)
	sh.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.transport.UnbindChannel(connID, rec.channelID)
	return []PresenceEvent{{
		Kind:         PresenceLeave,
		RoomID:       roomID,
		ConnectionID: connID,
		Count:        count,
		Metadata:     rec.metadata,
	}}, nil
}

// RemoveConnection drops a connection from every room it subscribes to,
// typically on disconnect.
func (r *Registry) RemoveConnection(ctx context.Context, connID string) ([]PresenceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.custMu.Lock()
	roomIDs := make([]string, 0, len(r.customers[connID]))
	for roomID := range r.customers[connID] {
		roomIDs = append(roomIDs, roomID)
	}
	r.custMu.Unlock()

	var events []PresenceEvent
	for _, roomID := range roomIDs {
		ev, err := r.Unsubscribe(ctx, connID, roomID)
		if err != nil {
			// The room may have raced away; nothing left to undo.
			r.logger.Debug("remove connection: skipping room", "room", roomID, "connection", connID, "err", err)
			continue
		}
		events = append(events, ev...)
	}
	return events, nil
}

// detachLocked removes the customer record on both sides (room and customer
// table) atomically with respect to concurrent matching reads, and
// tombstones the room when its last customer leaves.
func (r *Registry) detachLocked(sh *shard, rm *room, connID string) (rec *customerRecord, remaining int, err error) {
	r.custMu.Lock()
	byRoom := r.customers[connID]
	rec, ok := byRoom[rm.id]
	if !ok {
		r.custMu.Unlock()
		return nil, 0, &NotSubscribedError{ConnectionID: connID, RoomID: rm.id}
	}
	delete(byRoom, rm.id)
	if len(byRoom) == 0 {
		delete(r.customers, connID)
	}
	delete(rm.customers, connID)
	remaining = len(rm.customers)
	r.custMu.Unlock()

	if cs, ok := rm.channels[rec.channelID]; ok {
		cs.refs--
		if cs.refs <= 0 {
			delete(rm.channels, rec.channelID)
		}
	}

	if remaining == 0 {
		rm.destroyed = true
		roomID := rm.id
		sh.timers[roomID] = time.AfterFunc(r.grace, func() {
			r.cleanup(roomID)
		})
		r.logger.Debug("room tombstoned", "room", roomID)
	}
	return rec, remaining, nil
}

// cleanup permanently removes a room whose tombstone survived the grace
// period, releasing its filter from the index. Firing against a revived room
// is a no-op.
func (r *Registry) cleanup(roomID string) {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.timers, roomID)
	rm, ok := sh.rooms[roomID]
	if !ok || !rm.destroyed || len(rm.customers) > 0 {
		return
	}
	delete(sh.rooms, roomID)
	r.index.Remove(rm.filterID)
	r.logger.Debug("room removed", "room", roomID)
}

// Channels returns a snapshot of the room's channels for dispatching, or
// false if the room is unknown.
func (r *Registry) Channels(roomID string) ([]Channel, bool) {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rm, ok := sh.rooms[roomID]
	if !ok {
		return nil, false
	}
	out := make([]Channel, 0, len(rm.channels))
	for id, cs := range rm.channels {
		out = append(out, Channel{ID: id, Spec: cs.spec})
	}
	return out, true
}

// CustomerMetadata returns the metadata a connection registered on a room.
func (r *Registry) CustomerMetadata(connID, roomID string) (any, bool) {
	r.custMu.Lock()
	defer r.custMu.Unlock()
	rec, ok := r.customers[connID][roomID]
	if !ok {
		return nil, false
	}
	return rec.metadata, true
}

// CountSubscriptions returns the number of customers in a room.
func (r *Registry) CountSubscriptions(roomID string) (int, error) {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rm, ok := sh.rooms[roomID]
	if !ok {
		return 0, &NotFoundError{RoomID: roomID}
	}
	return len(rm.customers), nil
}

// Room returns a snapshot of one room.
func (r *Registry) Room(roomID string) (RoomInfo, bool) {
	sh := r.shardFor(roomID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rm, ok := sh.rooms[roomID]
	if !ok {
		return RoomInfo{}, false
	}
	return snapshotLocked(rm), true
}

// List returns a snapshot of every live and tombstoned room.
func (r *Registry) List() []RoomInfo {
	var out []RoomInfo
	for _, sh := range r.shards {
		sh.mu.Lock()
		for _, rm := range sh.rooms {
			out = append(out, snapshotLocked(rm))
		}
		sh.mu.Unlock()
	}
	return out
}

func snapshotLocked(rm *room) RoomInfo {
	return RoomInfo{
		ID:         rm.id,
		Index:      rm.index,
		Collection: rm.collection,
		Customers:  len(rm.customers),
		Destroyed:  rm.destroyed,
		CreatedAt:  rm.createdAt,
	}
}

// Close cancels every pending cleanup timer. Rooms and customers are dropped
// with the registry itself; nothing is persisted.
func (r *Registry) Close() {
	for _, sh := range r.shards {
		sh.mu.Lock()
		for id, t := range sh.timers {
			t.Stop()
			delete(sh.timers, id)
		}
		sh.mu.Unlock()
	}
}
