// Package manager owns the timer collection and its lifecycle.
//
// It is the single mutation point for every timer: the lifecycle API, group
// fan-out, restart recovery, and the periodic check loop all serialize on the
// service mutex. Every state-changing operation rewrites the whole snapshot
// through the storage layer and then publishes one coalesced "timers.changed"
// event for observers.
package manager
