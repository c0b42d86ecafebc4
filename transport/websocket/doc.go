// Package websocket pushes quiz state to browsers over WebSocket.
//
// A central Hub owns every connection. Clients subscribe to one session with
// /ws?session=<id> and receive a "state_update" message carrying the engine
// snapshot after every change of that session:
//
//	{"session_id": "a1b2", "event": "state_update", "state": {...}}
//
// The hub implements service.StateNotifier. PublishState never blocks, so it
// is safe to call from an engine observer while the service holds its lock.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	quiz := service.NewQuizService(sessions, datasets, service.WithNotifier(hub))
package websocket
