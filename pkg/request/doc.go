// Package request is the single chokepoint every backend call goes through.
//
// A Pipeline runs an explicit, ordered middleware chain:
//
//	Outgoing -> [validate path] -> [request id] -> [Interceptor] -> transport
//	         -> Classifier -> Effector -> (*Envelope, error)
//
// Request stages may mutate the Outgoing in place or reject it; a rejection
// stops the chain before any network traffic. The Classifier is a pure
// function from a transport Exchange to a Result: the resolved Envelope or a
// classified *apierr.Error, plus the side effects (login redirects, user
// notifications) expressed as Effect values. The Effector executes those
// effects against the injected Navigator and Notifier before the call
// returns, so a caller seeing apierr.Unauthenticated can rely on the redirect
// having been issued already.
//
// Get, Post, Put and Delete are thin adapters that only shape the Outgoing.
package request
