// Package peersim is a stand-in for the browser peer.
//
// It dials the bridge's WebSocket channel and executes incoming payloads
// in an embedded goja VM, replying with result frames the way the real
// extension does. Development and integration testing only; it simulates
// the page context (url, title) and the client-side persistence of a
// control session across a "reload".
package peersim
