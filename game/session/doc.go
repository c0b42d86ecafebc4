// Package session provides session management for the map quiz server.
//
// Each session owns one quiz engine started on a loaded dataset. Engines
// share the dataset read-only; every engine copies the features it plays with.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive. Generated IDs never collide with a live session.
//
// Concurrency:
//
// The manager's map is guarded by a RWMutex. The engines themselves are not
// goroutine-safe and are serialized by the service layer.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", dataset)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// Sessions live in memory only. CleanupExpiredSessions removes the ones that
// have not been accessed within a given duration.
package session
