// Package mcp exposes the map quiz to AI agents over the Model Context Protocol.
//
// The client is a thin proxy: every tool call becomes a request against the
// REST API, so agents and browsers share sessions and observers see agent
// clicks live.
//
// MCP Tools:
//   - create_session: Start a quiz on a dataset
//   - list_sessions: List active sessions
//   - get_session: Session details with quiz state
//   - quiz_state: Current target, round and score
//   - click_region: Click a region by name
//   - reset_quiz: Start over on the same dataset
//   - click_history: Paged click history
//   - list_regions: Found, remaining and missed regions
//   - list_datasets: Available datasets
//   - game_instructions: Rules and scoring
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
