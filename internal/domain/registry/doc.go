// Package registry tracks live peer connections and their liveness.
//
// The registry is transport-agnostic: it holds anything that can write a
// text frame and be closed. In the common case a single foreground tab is
// connected, but the registry never assumes that; it tolerates zero or many
// sockets, broadcasts to all of them, and lets the correlation store pick
// the first valid reply.
//
// Self-healing: a write failure during broadcast unregisters that connection
// immediately instead of waiting for a health-check pass.
package registry
