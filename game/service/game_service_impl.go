package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mapquiz/game/engine"
	"github.com/wricardo/mapquiz/game/region"
)

// quizServiceImpl implements the QuizService interface
type quizServiceImpl struct {
	sessions SessionManager
	datasets DatasetManager
	notifier StateNotifier
	mu       sync.RWMutex
}

// Option configures the quiz service
type Option func(*quizServiceImpl)

// WithNotifier publishes every state change of every session to n
func WithNotifier(n StateNotifier) Option {
	return func(s *quizServiceImpl) {
		s.notifier = n
	}
}

// NewQuizService creates a new quiz service instance
func NewQuizService(sessions SessionManager, datasets DatasetManager, opts ...Option) QuizService {
	s := &quizServiceImpl{
		sessions: sessions,
		datasets: datasets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession loads a dataset and starts a quiz on it.
// Unknown dataset identifiers fall back to the default dataset.
func (s *quizServiceImpl) CreateSession(ctx context.Context, datasetID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataset, err := s.datasets.LoadDataset(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", datasetID, err)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.attach(sess)

	return s.sessionInfo(sess), nil
}

// attach forwards engine snapshots of a session to the notifier
func (s *quizServiceImpl) attach(sess *Session) {
	if s.notifier == nil || sess.Engine == nil {
		return
	}
	id := sess.ID
	sess.Engine.Subscribe(func(snap engine.Snapshot) {
		s.notifier.PublishState(id, &snap)
	})
}

func (s *quizServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot()
	info := &SessionInfo{
		ID:             sess.ID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          &snap,
	}
	if sess.Dataset != nil {
		info.Dataset = sess.Dataset.Descriptor.ID
		info.DatasetName = sess.Dataset.Descriptor.Name
	}
	return info
}

// getSession looks a session up and refreshes its access time.
// Callers must hold s.mu for writing.
func (s *quizServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// GetSession retrieves session information
func (s *quizServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *quizServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *quizServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// Click forwards a region click to the session's engine.
// Region names match exactly first, then case-insensitively.
func (s *quizServiceImpl) Click(ctx context.Context, sessionID, regionName string) (*ClickResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	name, err := resolveRegion(sess.Engine, regionName)
	if err != nil {
		return nil, err
	}

	result, err := sess.Engine.ClickByName(name)
	if err != nil {
		return nil, fmt.Errorf("click %s: %w", name, err)
	}
	state := sess.Engine.Snapshot()

	return &ClickResponse{
		Result:  result,
		State:   &state,
		Message: clickMessage(result, &state),
		Events:  clickEvents(result, &state),
	}, nil
}

// resolveRegion maps player input to a canonical name of the dataset
func resolveRegion(eng *engine.QuizEngine, input string) (string, error) {
	name := region.NormalizeName(input)
	if name == "" {
		return "", fmt.Errorf("%w: region name is required", ErrInvalidInput)
	}
	if _, ok := eng.Lookup(name); ok {
		return name, nil
	}

	folded := region.FoldName(name)
	if collection := eng.Collection(); collection != nil {
		for _, f := range collection.Features {
			if region.FoldName(f.CanonicalName) == folded {
				return f.CanonicalName, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegion, input)
}

func clickMessage(result engine.ClickResult, state *engine.Snapshot) string {
	switch result.Outcome {
	case engine.OutcomeCorrect:
		msg := fmt.Sprintf("Correct! %s found (+%d points)", result.Region, result.Points)
		if state.GameComplete {
			return fmt.Sprintf("%s. Quiz complete: %d/%d points (%d%%)", msg, state.TotalPoints, state.MaxPoints, state.ScorePercentage)
		}
		return fmt.Sprintf("%s. Next: %s", msg, state.TargetName)
	case engine.OutcomeIncorrect:
		return fmt.Sprintf("Wrong, that is %s. Find %s (%d errors this round)", result.Region, result.Target, result.Errors)
	default:
		if result.GameComplete {
			return "Quiz already complete. Reset to play again"
		}
		return fmt.Sprintf("%s was already clicked", result.Region)
	}
}

func clickEvents(result engine.ClickResult, state *engine.Snapshot) []QuizEvent {
	now := time.Now()
	events := []QuizEvent{{
		Type:      string(result.Outcome),
		Message:   clickMessage(result, state),
		Timestamp: now,
		Region:    result.Region,
	}}

	if result.Outcome != engine.OutcomeCorrect {
		return events
	}

	if state.GameComplete {
		events = append(events, QuizEvent{
			Type:      "game_complete",
			Message:   fmt.Sprintf("All %d regions found! Score: %d%%", state.TotalRegions, state.ScorePercentage),
			Timestamp: now,
		})
	} else {
		events = append(events, QuizEvent{
			Type:      "round_started",
			Message:   fmt.Sprintf("Round %d: find %s", state.Round, state.TargetName),
			Timestamp: now,
			Region:    state.TargetName,
		})
	}
	return events
}

// Reset restarts the quiz of a session from its dataset
func (s *quizServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Engine.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	state := sess.Engine.Snapshot()
	return &state, nil
}

// GetQuizState retrieves the current quiz state
func (s *quizServiceImpl) GetQuizState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.Snapshot()
	return &state, nil
}

// GetClickHistory returns paginated click history
func (s *quizServiceImpl) GetClickHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	clicks := []engine.ClickRecord{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			clicks = append(clicks, history[i])
		}
	} else if start < total {
		clicks = append(clicks, history[start:end]...)
	}

	return &HistoryResponse{
		Clicks:      clicks,
		TotalClicks: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListRegions reports which regions of a session are found, remaining and missed
func (s *quizServiceImpl) ListRegions(ctx context.Context, sessionID string) (*RegionList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Snapshot()
	found := make(map[string]bool, len(state.CorrectNames))
	for _, name := range state.CorrectNames {
		found[name] = true
	}

	list := &RegionList{
		Dataset:   state.Dataset,
		Target:    state.TargetName,
		Found:     state.CorrectNames,
		Remaining: []string{},
		Missed:    state.ClickedNames,
	}
	for _, name := range sess.Engine.Collection().Names() {
		if !found[name] {
			list.Remaining = append(list.Remaining, name)
		}
	}
	return list, nil
}

// ListDatasets returns available datasets
func (s *quizServiceImpl) ListDatasets(ctx context.Context) ([]*DatasetInfo, error) {
	return s.datasets.ListDatasets()
}

// GetDataset loads a dataset by its exact identifier
func (s *quizServiceImpl) GetDataset(ctx context.Context, datasetID string) (*Dataset, error) {
	if _, ok := s.datasets.Descriptor(datasetID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	return s.datasets.LoadDataset(ctx, datasetID)
}

// SaveDataset registers a dataset descriptor once its dataset loads.
// Descriptors whose dataset fails to load are not kept.
func (s *quizServiceImpl) SaveDataset(ctx context.Context, descriptor region.Descriptor) (*DatasetInfo, error) {
	descriptor.ID = strings.TrimSpace(descriptor.ID)
	if err := region.ValidateDescriptor(descriptor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	dataset, err := s.datasets.SaveDataset(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to save dataset %s: %w", descriptor.ID, err)
	}

	return &DatasetInfo{
		DatasetID:   dataset.Descriptor.ID,
		Name:        dataset.Descriptor.Name,
		Description: dataset.Descriptor.Description,
		NameField:   dataset.Descriptor.NameField,
		Source:      dataset.Descriptor.Source,
		Default:     dataset.Descriptor.ID == s.datasets.DefaultDataset(),
		Regions:     len(dataset.Collection.Features),
	}, nil
}
