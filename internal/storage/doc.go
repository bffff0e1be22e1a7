// Package storage persists the timer collection as a whole snapshot.
//
// The manager rewrites the entire snapshot on every state-changing operation;
// there are no incremental writes. Two drivers are provided:
//   - "file": JSON snapshot written atomically via tmp+rename
//   - "sqlite": one row per timer, rewritten in a single transaction
package storage
