// Package ws is the protocol router for the peer channel.
//
// Each WebSocket connection gets one read loop, so frames from a single
// peer are processed in arrival order. Frames are decoded in two stages:
// the type discriminator first, then the strict per-type shape. Unknown
// types and malformed payloads are logged and dropped; one bad message
// never takes down an otherwise-healthy connection.
package ws
