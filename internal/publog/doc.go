// Package publog keeps the bounded audit log of published items.
//
// The log is an ordered list (oldest first) capped at Capacity entries. Every
// mutation is a read-modify-write of the backing blob under a process-local
// lock; two processes sharing one backend can still interleave.
package publog
