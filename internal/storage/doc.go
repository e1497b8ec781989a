// Package storage provides the persistence layer used by the daemon.
//
// It currently supports:
//   - A durable string/bool key-value store (routing configs, legacy
//     settings) with atomic batch writes
//   - Delivery audit appends (outcome of every webhook attempt)
//
// Two drivers exist behind the same Store interface: a dependency-free
// file backend and a SQLite backend.
package storage
