// Package users manages accounts and credential validation.
//
// The credential rules are demo placeholders behind the Authenticator
// interface: a real deployment swaps FixedCredentialAuthenticator for an
// implementation backed by a directory or password store without touching the
// route pipeline. User records live behind the Store interface with SQL
// (sqlite or postgres) and in-memory implementations.
package users
