// Package ws implements the WebSocket hub for `storefront serve`.
//
// Hub manages a set of connected clients and broadcasts the status board
// snapshot to all of them on an interval, and immediately whenever Notify is
// called after a new health check has been recorded.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast loop. It blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws
