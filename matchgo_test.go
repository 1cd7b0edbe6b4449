package matchgo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/matchgo/codec"
	"github.com/hupe1980/matchgo/document"
	"github.com/hupe1980/matchgo/notify"
	"github.com/hupe1980/matchgo/transport"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *transport.Loopback) {
	t.Helper()
	loop := transport.NewLoopback()
	e, err := New(loop, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, loop
}

func toDoc(t *testing.T, m map[string]any) document.Document {
	t.Helper()
	d, err := document.FromMap(m)
	require.NoError(t, err)
	return d
}

func receive(t *testing.T, loop *transport.Loopback, connID string, want int) []notify.Notification {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(loop.Deliveries(connID)) >= want
	}, time.Second, 5*time.Millisecond)
	deliveries := loop.Deliveries(connID)
	require.Len(t, deliveries, want)
	out := make([]notify.Notification, len(deliveries))
	for i, d := range deliveries {
		require.NoError(t, codec.Decode(d.Frame, &out[i]))
	}
	return out
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Subscribe and dispatch end to end", func(t *testing.T) {
		e, loop := newTestEngine(t)

		res, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people",
			Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
			ConnectionID: "conn1",
		})
		require.NoError(t, err)

		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionCreate,
			After:  toDoc(t, map[string]any{"firstName": "Ada", "lastName": "Lovelace"}),
		})
		require.NoError(t, err)

		got := receive(t, loop, "conn1", 1)
		assert.Equal(t, notify.TypeDocument, got[0].Type)
		assert.Equal(t, res.RoomID, got[0].RoomID)
		assert.Equal(t, "create", got[0].Action)
		assert.Equal(t, "in", got[0].Scope)
		assert.Equal(t, document.String("Lovelace"), got[0].Result["lastName"])

		// A non-matching mutation stays silent.
		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionCreate,
			After:  toDoc(t, map[string]any{"firstName": "Grace"}),
		})
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		assert.Len(t, loop.Deliveries("conn1"), 1)
	})

	t.Run("Update moves a document out of the result set", func(t *testing.T) {
		e, loop := newTestEngine(t)

		_, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people",
			Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
			ConnectionID: "conn1",
		})
		require.NoError(t, err)

		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionUpdate,
			Before: toDoc(t, map[string]any{"firstName": "Ada"}),
			After:  toDoc(t, map[string]any{"firstName": "Grace"}),
		})
		require.NoError(t, err)

		got := receive(t, loop, "conn1", 1)
		assert.Equal(t, "out", got[0].Scope)
		assert.Equal(t, document.String("Ada"), got[0].Result["firstName"])
	})

	t.Run("Equivalent filters share a room", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c1",
			Body: map[string]any{"and": []any{
				map[string]any{"term": map[string]any{"firstName": "Ada"}},
				map[string]any{"exists": map[string]any{"field": "lastName"}},
			}},
		})
		require.NoError(t, err)
		b, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c2",
			Body: map[string]any{"and": []any{
				map[string]any{"exists": map[string]any{"field": "lastName"}},
				map[string]any{"term": map[string]any{"firstName": "Ada"}},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, a.RoomID, b.RoomID)

		count, err := e.CountSubscriptions(a.RoomID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		rooms, err := e.ListSubscriptions()
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})

	t.Run("Join and presence", func(t *testing.T) {
		e, loop := newTestEngine(t)

		res, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people",
			Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
			Users:        "all",
			ConnectionID: "c1",
		})
		require.NoError(t, err)
		receive(t, loop, "c1", 1) // own join

		_, err = e.Join(ctx, JoinRequest{RoomID: res.RoomID, ConnectionID: "c2", Users: "all"})
		require.NoError(t, err)

		got := receive(t, loop, "c1", 2)
		assert.Equal(t, notify.TypeUser, got[1].Type)
		assert.Equal(t, "join", got[1].Action)
		assert.Equal(t, 2, got[1].Count)

		require.NoError(t, e.Unsubscribe(ctx, "c2", res.RoomID))
		got = receive(t, loop, "c1", 3)
		assert.Equal(t, "leave", got[2].Action)
		assert.Equal(t, 1, got[2].Count)
	})

	t.Run("RemoveConnection drops every subscription", func(t *testing.T) {
		e, loop := newTestEngine(t)

		a, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c1",
			Body: map[string]any{"term": map[string]any{"firstName": "Ada"}},
		})
		require.NoError(t, err)
		_, err = e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "books", ConnectionID: "c1",
		})
		require.NoError(t, err)

		require.NoError(t, e.RemoveConnection(ctx, "c1"))
		assert.Empty(t, loop.Bound("c1"))

		_, err = e.CountSubscriptions(a.RoomID)
		require.NoError(t, err) // room tombstoned, not yet removed

		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionCreate,
			After:  toDoc(t, map[string]any{"firstName": "Ada"}),
		})
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, loop.Deliveries("c1"))
	})

	t.Run("Compression option round trip", func(t *testing.T) {
		e, loop := newTestEngine(t, WithCompression(codec.CompressionZSTD, 1))

		_, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people",
			Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
			ConnectionID: "c1",
		})
		require.NoError(t, err)

		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionCreate,
			After:  toDoc(t, map[string]any{"firstName": "Ada", "lastName": "Lovelace"}),
		})
		require.NoError(t, err)

		got := receive(t, loop, "c1", 1)
		assert.Equal(t, document.String("Ada"), got[0].Result["firstName"])
	})

	t.Run("Metrics collector records operations", func(t *testing.T) {
		metrics := &BasicMetricsCollector{}
		e, _ := newTestEngine(t, WithMetricsCollector(metrics))

		res, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people",
			Body:         map[string]any{"term": map[string]any{"firstName": "Ada"}},
			ConnectionID: "c1",
		})
		require.NoError(t, err)
		err = e.Dispatch(ctx, MutationEvent{
			Index: "library", Collection: "people",
			Action: notify.ActionCreate,
			After:  toDoc(t, map[string]any{"firstName": "Ada"}),
		})
		require.NoError(t, err)
		require.NoError(t, e.Unsubscribe(ctx, "c1", res.RoomID))

		stats := metrics.GetStats()
		assert.Equal(t, int64(1), stats.SubscribeCount)
		assert.Equal(t, int64(1), stats.UnsubscribeCount)
		assert.Equal(t, int64(1), stats.DispatchCount)
		assert.Equal(t, int64(1), stats.DispatchRooms)
	})

	t.Run("Close makes operations fail", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.Close())
		require.NoError(t, e.Close()) // idempotent

		_, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c1",
		})
		assert.ErrorIs(t, err, ErrEngineClosed)
		assert.ErrorIs(t, e.Dispatch(ctx, MutationEvent{Action: notify.ActionCreate}), ErrEngineClosed)
		assert.ErrorIs(t, e.Unsubscribe(ctx, "c1", "room"), ErrEngineClosed)
		assert.ErrorIs(t, e.RemoveConnection(ctx, "c1"), ErrEngineClosed)
		_, err = e.ListSubscriptions()
		assert.ErrorIs(t, err, ErrEngineClosed)
	})

	t.Run("Error classification helpers", func(t *testing.T) {
		e, _ := newTestEngine(t)

		_, err := e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c1",
			Body: map[string]any{"badterm": map[string]any{"firstName": "Ada"}},
		})
		assert.True(t, IsInvalidFilter(err))

		_, err = e.Subscribe(ctx, SubscribeRequest{
			Index: "library", Collection: "people", ConnectionID: "c1", Scope: "everything",
		})
		assert.True(t, IsBadRequest(err))

		_, err = e.Join(ctx, JoinRequest{RoomID: "nope", ConnectionID: "c1"})
		assert.True(t, IsNotFound(err))
	})

	t.Run("Nil transport", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
	})
}
