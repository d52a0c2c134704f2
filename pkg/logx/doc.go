// Package logx is draftpub's logging wrapper over zerolog.
//
// Console output is short and human-readable; the optional file sink writes
// JSON. Service.Apply swaps sinks when the config file is reloaded, so
// loggers handed out earlier keep working.
package logx
