// Package session holds the current user's authentication token and
// identity.
//
// The request pipeline only reads the token through the Store interface; the
// token is written exclusively by explicit login and logout flows. Memory is
// the in-process store, File persists the session for the CLI between runs,
// and EnvOverlay lets an environment variable supply the token.
//
// Inspect decodes a JWT session token without verifying it, to recover the
// identity and expiry for display. Verification is the backend's job.
package session
