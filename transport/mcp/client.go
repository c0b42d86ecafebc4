package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mapquiz/game/engine"
	"github.com/wricardo/mapquiz/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Map Quiz",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Map Quiz - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Each round names a target region. Click the region with that name. Fewer wrong clicks before the right one earn more points.

AVAILABLE TOOLS:
- create_session: Start a quiz on a dataset
- list_sessions: List all active sessions
- get_session: Get session details
- quiz_state: Get the current target and score
- click_region: Click a region by name
- reset_quiz: Start over on the same dataset
- click_history: View past clicks
- list_regions: Regions found, remaining and missed this round
- list_datasets: List available datasets
- game_instructions: Get the rules and scoring`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new quiz session on a dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dataset": map[string]interface{}{
					"type":        "string",
					"description": "Dataset ID such as europe-states or italian-regions (optional, unknown IDs use the default)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active quiz sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Quiz operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "quiz_state",
		Description: "Get the current target region, round and score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleQuizState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_region",
		Description: "Click a region by name. Matching ignores case.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"region": map[string]interface{}{
					"type":        "string",
					"description": "Name of the region to click",
				},
			},
			Required: []string{"session_id", "region"},
		},
	}, c.handleClickRegion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_quiz",
		Description: "Start a new game on the same dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click_history",
		Description: "Get click history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleClickHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_regions",
		Description: "List the regions found so far, the ones still remaining and the ones already missed this round",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleListRegions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_datasets",
		Description: "List available datasets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDatasets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the quiz rules and scoring",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dataset, _ := arguments(request)["dataset"].(string)

	body := map[string]string{}
	if dataset != "" {
		body["dataset"] = dataset
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nDataset: %s\n\n%s", session.ID, session.Dataset, formatQuizState(session.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score := 0
		if s.State != nil {
			score = s.State.ScorePercentage
		}
		fmt.Fprintf(&b, "- %s (Dataset: %s, Score: %d%%, Created: %s)\n",
			s.ID, s.Dataset, score, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleQuizState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.Snapshot
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatQuizState(&state)), nil
}

func (c *Client) handleClickRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/click")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	region, _ := args["region"].(string)
	if strings.TrimSpace(region) == "" {
		return mcp.NewToolResultError("region is required"), nil
	}

	var result service.ClickResponse
	if err := c.apiCall(ctx, "POST", path, map[string]string{"region": region}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatClickResponse(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string           `json:"message"`
		State   *engine.Snapshot `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatQuizState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleClickHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	suffix := "/history"
	if len(params) > 0 {
		suffix += "?" + params.Encode()
	}
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/regions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var regions service.RegionList
	if err := c.apiCall(ctx, "GET", path, nil, &regions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRegionList(&regions)), nil
}

func (c *Client) handleListDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var datasets []service.DatasetInfo
	if err := c.apiCall(ctx, "GET", "/api/datasets", nil, &datasets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Datasets:\n\n")
	for _, d := range datasets {
		marker := ""
		if d.Default {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "• %s%s\n  %s\n", d.DatasetID, marker, d.Name)
		if d.Description != "" {
			fmt.Fprintf(&b, "  %s\n", d.Description)
		}
		if d.Regions > 0 {
			fmt.Fprintf(&b, "  Regions: %d\n", d.Regions)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Map Quiz - Complete Instructions

GAME OBJECTIVE:
Find every region of a map. Each round names one target region and you click
regions until you hit it. The game ends when every region has been found.

ROUNDS:
• A round starts by drawing a random target from the regions not yet found
• Clicking the target ends the round and starts the next one
• Clicking any other region counts as a miss for this round
• Clicking a region already found, or one already missed this round, does nothing

SCORING:
• Each region is worth up to 3 points
• 0 misses: 3 points (shown green)
• 1 miss: 2 points (shown amber)
• 2 misses: 1 point (shown orange)
• 3 or more misses: 0 points (shown red)
• Score percentage = total points / (3 x number of regions), rounded to the nearest integer

DATASETS:
• Use list_datasets to see the available maps
• Unknown dataset IDs fall back to the default dataset
• Region names come from the dataset; click_region matches them ignoring case

TOOLS:
• quiz_state shows the target, round, misses and score
• list_regions shows what is found, what remains and what you already missed this round
• click_history pages through every click, newest first
• reset_quiz starts over with a fresh random order

STRATEGY:
• Avoid guessing blindly: each miss costs a point for the current region
• Regions already missed this round are free to click again, so they never cost twice

Good luck!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nDataset: %s\nCreated: %s\n\n%s",
		session.ID, session.Dataset,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatQuizState(session.State))
}

func formatQuizState(state *engine.Snapshot) string {
	if state == nil {
		return "No quiz state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s | Round: %d | Found: %d/%d | Score: %d/%d (%d%%) | Clicks: %d\n",
		state.Dataset, state.Round, len(state.CorrectNames), state.TotalRegions,
		state.TotalPoints, state.MaxPoints, state.ScorePercentage, state.TotalClicks)

	if state.GameComplete {
		b.WriteString("\n🏁 QUIZ COMPLETE!")
		return b.String()
	}

	fmt.Fprintf(&b, "\nTarget: %s\nMisses this round: %d\n", state.TargetName, state.ErrorsThisRound)
	if len(state.ClickedNames) > 0 {
		fmt.Fprintf(&b, "Already missed: %s\n", strings.Join(state.ClickedNames, ", "))
	}
	return b.String()
}

func formatClickResponse(resp *service.ClickResponse) string {
	var b strings.Builder
	res := resp.Result

	switch res.Outcome {
	case engine.OutcomeCorrect:
		fmt.Fprintf(&b, "✓ Correct: %s (+%d points)\n", res.Region, res.Points)
	case engine.OutcomeIncorrect:
		fmt.Fprintf(&b, "✗ Wrong: %s is not %s (misses this round: %d)\n", res.Region, res.Target, res.Errors)
	default:
		fmt.Fprintf(&b, "• No effect: %s\n", res.Region)
	}
	if resp.Message != "" {
		fmt.Fprintf(&b, "%s\n", resp.Message)
	}

	b.WriteString("\n")
	b.WriteString(formatQuizState(resp.State))
	return b.String()
}

func formatRegionList(regions *service.RegionList) string {
	var b strings.Builder
	if regions.Target != "" {
		fmt.Fprintf(&b, "Target: %s\n\n", regions.Target)
	}
	fmt.Fprintf(&b, "Found (%d): %s\n", len(regions.Found), strings.Join(regions.Found, ", "))
	fmt.Fprintf(&b, "Remaining (%d): %s\n", len(regions.Remaining), strings.Join(regions.Remaining, ", "))
	if len(regions.Missed) > 0 {
		fmt.Fprintf(&b, "Missed this round: %s\n", strings.Join(regions.Missed, ", "))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Click History (Page %d/%d), total clicks: %d\n\n",
		history.Page, history.TotalPages, history.TotalClicks)

	for _, click := range history.Clicks {
		status := "•"
		switch click.Outcome {
		case engine.OutcomeCorrect:
			status = "✓"
		case engine.OutcomeIncorrect:
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. [round %d] %s %s (target %s, +%d)\n",
			click.ClickNumber, click.Round, click.Region, status, click.Target, click.Points)
	}

	return b.String()
}
