// Package control manages the long-lived interactive page session.
//
// A control session is layered on the same execute/result primitive as
// one-shot submissions, but its state must survive a full peer reload:
// the peer persists a copy of the session client-side and asks the bridge
// to re-establish it via a reinit handshake when the page comes back.
//
// State machine:
//
//	INACTIVE -> ACTIVE          explicit start, config stored
//	ACTIVE   -> ACTIVE          directives run as normal submit/poll trips
//	ACTIVE   -> REINITIALIZING  reinit handshake received from the peer
//	REINITIALIZING -> ACTIVE    begin-session re-issue acknowledged ok
//	any      -> INACTIVE        explicit stop (best-effort end execute)
//
// On reinit, the previously stored configuration always wins over the
// peer-reported one; a stale or tampered client-side copy is never trusted.
// A single timed-out directive does not end the session.
package control
