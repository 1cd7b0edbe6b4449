// Package notify turns committed mutation events into channel payloads. It
// owns the in/out/unchanged classification, the scope/state/users gating and
// the fire-and-forget handoff to the transport; it never mutates subscription
// state.
package notify
