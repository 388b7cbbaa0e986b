// Package probe implements the backend connectivity check used by the srcfix CLI.
//
// It exposes CommandBuilder for wiring the backend-probe Cobra command and
// Service for issuing the two sequential liveness requests programmatically.
package probe
