// Package matchgo provides an embedded realtime subscription engine for Go.
//
// Matchgo lets a backend register content-based subscriptions over a document
// store and push notifications whenever matching documents are created,
// updated or deleted:
//
//   - Filter DSL: term/terms/range/exists/missing/geo predicates with
//     and/or/not composition, compiled into a Roaring-Bitmap-backed index
//   - Canonicalization: reordered-but-equivalent filters collapse onto one
//     room, so identical subscriptions share all matching work
//   - Rooms and channels: per-filter rooms, fanned out into channels by
//     scope/state/users visibility options
//   - Tombstoned rooms: an emptied room lingers for a grace period so an
//     immediate re-subscribe reuses its id instead of racing a re-creation
//   - Fire-and-forget dispatch with a fixed worker pool and per-recipient
//     failure isolation at the transport
//
// # Quick start
//
// Create an engine over a transport (the transport is the protocol adapter
// that owns the physical connections):
//
//	eng, err := matchgo.New(myTransport,
//	    matchgo.WithLogger(matchgo.NewJSONLogger(slog.LevelInfo)),
//	    matchgo.WithCompression(codec.CompressionLZ4, 0),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer eng.Close()
//
// Register a subscription:
//
//	res, err := eng.Subscribe(ctx, matchgo.SubscribeRequest{
//	    Index:      "test",
//	    Collection: "user",
//	    Body:       map[string]any{"term": map[string]any{"firstName": "Ada"}},
//	    ConnectionID: connID,
//	})
//
// Feed it committed mutations from the write path:
//
//	err = eng.Dispatch(ctx, matchgo.MutationEvent{
//	    Index:      "test",
//	    Collection: "user",
//	    Action:     notify.ActionCreate,
//	    After:      doc,
//	})
//
// Every channel whose filter matches, and whose visibility options accept
// the outcome, receives one encoded frame through the transport.
package matchgo
