// Package log provides this module's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. The leveled methods format each
// entry with the configured Formatter and write it to every Output. A
// slog.Handler bridging to the same formatter/output pipeline is built with
// each logger for internal use; the package does not export it or a
// *slog.Logger.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("dispatch"), log.Str("stream", "orders"))
//	l.Info("attempt dispatched", log.Int("attempt", 1))
package log
