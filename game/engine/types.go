package engine

import "encoding/json"

// Phase represents the lifecycle phase of a quiz
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseRoundActive   Phase = "round_active"
	PhaseGameComplete  Phase = "game_complete"
)

// Outcome classifies the effect of a click
type Outcome string

const (
	OutcomeNoOp      Outcome = "noop"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"

	// Scoring constants
	PointsPerRegion = 3
	MaxStyleTier    = 3

	// CanonicalNameProperty is the properties key the loader writes the canonical name to
	CanonicalNameProperty = "canonical_name"

	FeatureCollectionType = "FeatureCollection"
	FeatureType           = "Feature"
)

// Feature represents a single region polygon of a dataset.
// Geometry and properties are carried through untouched.
type Feature struct {
	Type          string          `json:"type"`
	ID            json.RawMessage `json:"id,omitempty"`
	BBox          json.RawMessage `json:"bbox,omitempty"`
	CanonicalName string          `json:"canonical_name,omitempty"`
	Properties    map[string]any  `json:"properties"`
	Geometry      json.RawMessage `json:"geometry"`
}

// FeatureCollection is a normalized GeoJSON feature collection
type FeatureCollection struct {
	Type     string          `json:"type"`
	BBox     json.RawMessage `json:"bbox,omitempty"`
	Features []Feature       `json:"features"`
}

// Names returns the canonical names of all features in collection order
func (c *FeatureCollection) Names() []string {
	names := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		names = append(names, f.CanonicalName)
	}
	return names
}

// RoundState holds the state of the active round
type RoundState struct {
	CurrentTarget   *Feature
	ErrorsThisRound int
}

// GameState holds the scoring state of a quiz
type GameState struct {
	RemainingTargets []Feature
	ClickedNames     map[string]struct{}
	CorrectNames     map[string]struct{}
	TotalPoints      int
	MaxPoints        int
}

// Snapshot is the observable view of a quiz handed to the presentation layer
type Snapshot struct {
	Dataset         string   `json:"dataset,omitempty"`
	Phase           Phase    `json:"phase"`
	Target          *Feature `json:"target"`
	TargetName      string   `json:"target_name,omitempty"`
	Round           int      `json:"round"`
	ErrorsThisRound int      `json:"errors_this_round"`
	TotalPoints     int      `json:"total_points"`
	MaxPoints       int      `json:"max_points"`
	ScorePercentage int      `json:"score_percentage"`
	TotalRegions    int      `json:"total_regions"`
	Remaining       int      `json:"remaining"`
	CorrectNames    []string `json:"correct_names"`
	ClickedNames    []string `json:"clicked_names"`
	GameComplete    bool     `json:"game_complete"`
	TotalClicks     int      `json:"total_clicks"`
}

// ClickResult describes how a click changed the quiz
type ClickResult struct {
	Outcome      Outcome   `json:"outcome"`
	Region       string    `json:"region"`
	Target       string    `json:"target,omitempty"`
	Points       int       `json:"points"`
	Tier         StyleTier `json:"tier"`
	Color        string    `json:"color,omitempty"`
	Errors       int       `json:"errors"`
	GameComplete bool      `json:"game_complete"`
}

// ClickRecord represents a single click in the quiz history
type ClickRecord struct {
	ClickNumber int     `json:"click_number"`
	Round       int     `json:"round"`
	Region      string  `json:"region"`
	Target      string  `json:"target,omitempty"`
	Outcome     Outcome `json:"outcome"`
	Points      int     `json:"points"`
	Timestamp   int64   `json:"timestamp"`
}

// Observer receives a snapshot after every state change
type Observer func(Snapshot)
