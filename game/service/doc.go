// Package service provides the use-case layer of the map quiz server.
//
// The service package implements:
//   - Multi-session quiz management
//   - Dataset resolution and registration
//   - Click processing with lenient region name matching
//   - Click history pagination
//   - Forwarding of engine state changes to a StateNotifier
//
// Core Interfaces:
//
// QuizService is the main service interface used by every transport.
// SessionManager stores one quiz engine per session.
// DatasetManager resolves dataset identifiers to loaded feature collections.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	datasetMgr, _ := config.NewManager("configs", region.NewLoader("data"))
//	quiz := service.NewQuizService(sessionMgr, datasetMgr, service.WithNotifier(hub))
//
//	info, err := quiz.CreateSession(ctx, "italian-regions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	resp, err := quiz.Click(ctx, info.ID, "Lazio")
//
// Engines are not goroutine-safe. The service serializes every call that
// touches an engine with a single mutex.
package service
