// Package httputil provides handler plumbing shared by every route: JSON
// encoding/decoding, the error-response vocabulary of the entitlement
// pipeline (400/401/402/503), and the outer middleware stack (request IDs,
// structured request logging, panic recovery).
package httputil
