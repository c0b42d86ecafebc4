package service

import (
	"context"
	"time"

	"github.com/wricardo/mapquiz/game/engine"
	"github.com/wricardo/mapquiz/game/region"
)

// QuizService defines all quiz-related operations
type QuizService interface {
	// Session Management
	CreateSession(ctx context.Context, datasetID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Quiz Operations
	Click(ctx context.Context, sessionID, regionName string) (*ClickResponse, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Quiz State
	GetQuizState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetClickHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	ListRegions(ctx context.Context, sessionID string) (*RegionList, error)

	// Datasets
	ListDatasets(ctx context.Context) ([]*DatasetInfo, error)
	GetDataset(ctx context.Context, datasetID string) (*Dataset, error)
	SaveDataset(ctx context.Context, descriptor region.Descriptor) (*DatasetInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, dataset *Dataset) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, dataset *Dataset) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// DatasetManager resolves dataset identifiers to loaded collections
type DatasetManager interface {
	LoadDataset(ctx context.Context, id string) (*Dataset, error)
	Descriptor(id string) (region.Descriptor, bool)
	ListDatasets() ([]*DatasetInfo, error)
	DefaultDataset() string
	SaveDataset(ctx context.Context, descriptor region.Descriptor) (*Dataset, error)
}

// StateNotifier receives the state of a session after every change
type StateNotifier interface {
	PublishState(sessionID string, snapshot *engine.Snapshot)
}

// Dataset is a descriptor together with its normalized features
type Dataset struct {
	Descriptor region.Descriptor
	Collection *engine.FeatureCollection
}

// Session represents an active quiz session
type Session struct {
	ID             string
	Engine         *engine.QuizEngine
	Dataset        *Dataset
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
