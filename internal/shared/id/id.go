// Package id provides centralized ID generation for the bridge.
//
// Request ids correlate caller submissions with asynchronous peer replies,
// so they must be collision-free and unguessable by anything other than the
// caller that issued them: 128-bit random UUIDs, never sequential counters.
// Separate string types prevent one kind of id being passed where another
// is expected.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// RequestID identifies one outstanding unit of work
type RequestID string

// ConnID identifies a peer socket for the lifetime of the connection
type ConnID string

// SessionID identifies a control session
type SessionID string

const (
	requestPrefix = "req"
	connPrefix    = "conn"
	sessionPrefix = "sess"
)

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(requestPrefix + "_" + uuid.NewString())
}

// NewConnID generates a new connection ID
func NewConnID() ConnID {
	return ConnID(connPrefix + "_" + uuid.NewString())
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(sessionPrefix + "_" + uuid.NewString())
}

func (id RequestID) String() string { return string(id) }
func (id ConnID) String() string    { return string(id) }
func (id SessionID) String() string { return string(id) }

// IsValidRequestID checks that a string has the request prefix and a
// parseable UUID body. Used to reject garbage before any map lookup.
func IsValidRequestID(s string) bool {
	body, ok := strings.CutPrefix(s, requestPrefix+"_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(body)
	return err == nil
}
