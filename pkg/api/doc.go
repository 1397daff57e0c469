// Package api wires the HTTP surface: the browser pages (login, signup,
// pricing, payment, converter) and the metered /convert endpoint, each
// behind the gates of the entitlement pipeline.
package api
