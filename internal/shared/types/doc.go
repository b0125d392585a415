// Package types provides shared data structures for the bridge.
//
// This package defines the wire protocol spoken on the peer channel and the
// core types that cross component boundaries, ensuring a single source of
// truth for message shapes.
//
// Wire Protocol (JSON text frames, tagged by "type"):
//   - Execute: bridge -> peer, carries a request id and a code payload
//   - Result: peer -> bridge, carries the outcome for a request id
//   - Ping/Pong: liveness heartbeat
//   - ReinitControl: peer -> bridge, control session restore handshake
//   - RefocusNotification: peer -> bridge, out-of-band caller notification
//
// Core Types:
//   - Outcome: terminal result of a submission (value or error, plus page context)
//   - ControlConfig: control session options (refocus policy, feedback flags)
//   - Notification: one-shot message drained by the caller
//
// Decoding is strict: a recognized type with missing required fields yields a
// DecodeError so the router can log and drop the frame without closing the
// connection.
package types
