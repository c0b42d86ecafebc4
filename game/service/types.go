package service

import (
	"time"

	"github.com/wricardo/mapquiz/game/engine"
)

// SessionInfo provides information about a quiz session
type SessionInfo struct {
	ID             string           `json:"id"`
	Dataset        string           `json:"dataset"`
	DatasetName    string           `json:"dataset_name"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	State          *engine.Snapshot `json:"state"`
}

// ClickResponse contains the result of a click
type ClickResponse struct {
	Result  engine.ClickResult `json:"result"`
	State   *engine.Snapshot   `json:"state"`
	Message string             `json:"message"`
	Events  []QuizEvent        `json:"events,omitempty"`
}

// QuizEvent represents something that happened during play
type QuizEvent struct {
	Type      string    `json:"type"` // "correct", "incorrect", "noop", "round_started", "game_complete", "reset"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Region    string    `json:"region,omitempty"`
}

// HistoryOptions configures click history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated click history
type HistoryResponse struct {
	Clicks      []engine.ClickRecord `json:"clicks"`
	TotalClicks int                  `json:"total_clicks"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalPages  int                  `json:"total_pages"`
	HasNext     bool                 `json:"has_next"`
	HasPrevious bool                 `json:"has_previous"`
}

// RegionList splits the regions of a session by progress
type RegionList struct {
	Dataset   string   `json:"dataset"`
	Target    string   `json:"target,omitempty"`
	Found     []string `json:"found"`
	Remaining []string `json:"remaining"`
	Missed    []string `json:"missed_this_round"`
}

// DatasetInfo provides information about an available dataset
type DatasetInfo struct {
	DatasetID   string `json:"dataset_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	NameField   string `json:"name_field"`
	Source      string `json:"source"`
	Builtin     bool   `json:"builtin"`
	Default     bool   `json:"default,omitempty"`
	Regions     int    `json:"regions,omitempty"` // 0 until the dataset has been loaded
}
