// Package billing wraps the external billing backend behind the Client
// interface: plan catalog retrieval, subscription management, entitlement
// checks, and metered usage reporting.
//
// The backend is an opaque collaborator reached over HTTP (HTTPClient).
// MemoryBackend implements the same contract in-process for tests and
// zero-dependency demo runs. Callers never depend on the transport.
//
// Failure semantics matter here: an unreachable backend surfaces as
// ErrBillingUnavailable, which route handlers map to 503. That is a different
// condition from "not entitled" (402) and the two are never conflated.
package billing
