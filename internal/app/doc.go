// Package app assembles the trust service: configuration, logging,
// telemetry, storage, domain services and the HTTP router, plus the
// run loop with graceful shutdown.
package app
