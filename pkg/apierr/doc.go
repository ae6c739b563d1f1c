// Package apierr defines the error taxonomy every backend call is classified
// into.
//
// A rejected call always surfaces as an *Error carrying a Kind, the HTTP or
// envelope status that produced it, and the message to show the user.
// Callers branch on the kind with KindOf or Is:
//
//	if apierr.Is(err, apierr.SessionExpired) {
//	    // the login redirect has already been issued
//	}
//
// ErrInvalidRequest marks programmer errors (missing or malformed request
// path) that are rejected before any network attempt.
package apierr
