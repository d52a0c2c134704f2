// Package report derives read-only views from a publish log snapshot:
// per-type and per-day counts, newest-first pages, and CSV export.
//
// Every function here is a pure function of the entries it is given.
package report
