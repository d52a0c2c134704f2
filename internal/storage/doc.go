// Package storage is a small key-value persistence layer.
//
// Values are opaque byte blobs. Drivers:
//   - "memory": process-local map (tests, dry runs)
//   - "file": one JSON file per key in a directory, replaced atomically
//   - "sqlite": a single kv table in an SQLite database (modernc, no cgo)
//
// Typed adapters for the publish log, schedule config, and schedule state
// live in adapters.go.
package storage
