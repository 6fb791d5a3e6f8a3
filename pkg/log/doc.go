// Package log covers the two kinds of logging done by this module.
//
// Operational logging goes through log/slog. NewLogger builds the one
// *slog.Logger a process uses from a Verbosity (DEBUG, INFO, WARN, ERROR,
// NONE); components receive it through their config structs and never
// consult global state.
//
// Protocol capture records a machine-readable trace of what happened on
// the wire. Components that speak the tree protocol accept a Logger and
// emit Events for frames, decoded messages, state changes, control
// messages and errors:
//
//	// Console, via slog at debug level
//	cfg.ProtocolLogger = log.NewSlogAdapter(logger)
//
//	// Binary capture file
//	fl, _ := log.NewFileLogger("session.elog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(logger), fl)
//
// Capture files are a stream of CBOR-encoded Events (.elog). Reader and
// Filter read them back; "emberctl log view" is built on them.
package log
