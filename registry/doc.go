// Package registry is the subscription bookkeeper ("hotel clerk"): it owns
// rooms (one per canonical filter and (index, collection)), the channels
// derived from visibility options, and the per-connection customer records.
//
// Rooms whose last customer leaves are tombstoned, not deleted: a re-subscribe
// inside the grace period revives the same room id, so channel subscribers
// holding the id stay valid. Cleanup after the grace period removes the room
// and releases its compiled filter.
package registry
