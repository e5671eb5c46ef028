// Package logging provides a minimal logging interface and adapters for the
// outreach engine.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the manager and workflows use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - OutreachLogger with contextual cloning (WithComponent, WithContext)
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - StepExecution, CollaboratorCall and WorkflowRun helpers that keep the
//     engine's operational log lines uniform across packages
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mgr := manager.New(store, executor, func(o *manager.Options) {
//		o.Logger = logger.WithComponent("manager")
//	})
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
