// Package correlation maps request ids to in-flight and completed outcomes.
//
// The store is the single owner of the pending and completed maps, guarded
// by one mutex. Resolve is first-wins: duplicate peer replies and replies
// for swept ids are observable no-ops, which is what makes double-delivery
// from a reconnecting peer harmless.
//
// A periodic sweeper transitions overdue pending entries to a terminal
// timeout outcome and evicts completed entries past the retention window,
// bounding memory without touching the read path.
package correlation
