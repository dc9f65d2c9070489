// Package ws implements the WebSocket stream hub for flowpulse.
//
// Hub manages the set of connected subscribers and broadcasts the current
// fleet snapshot (all live workflow reports, summarized) to all of them on a
// configurable interval.
//
// New(store, registry, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// snapshot immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/workflows, wrapped with generated_at */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
