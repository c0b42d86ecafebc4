package engine

import (
	"errors"
	"math/rand/v2"
	"sort"
)

var (
	ErrNotInitialized = errors.New("quiz engine not initialized")
	ErrUnknownFeature = errors.New("feature is not part of the loaded dataset")
)

// Engine provides the main interface for quiz operations
type Engine interface {
	// Lifecycle
	Initialize(collection *FeatureCollection) error
	Reset() error
	Phase() Phase
	IsGameComplete() bool

	// Click input
	HandleClick(feature Feature) (ClickResult, error)

	// Observation
	Snapshot() Snapshot
	Subscribe(observer Observer) func()
	CurrentTarget() *Feature
	ScorePercentage() int

	// Dataset
	Lookup(name string) (Feature, bool)
	Collection() *FeatureCollection

	// History
	History() []ClickRecord
	LastClick() *ClickRecord
}

// Option configures a QuizEngine
type Option func(*QuizEngine)

// WithRand sets the random source used to pick targets
func WithRand(rng *rand.Rand) Option {
	return func(e *QuizEngine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithSeed makes target selection reproducible
func WithSeed(seed uint64) Option {
	return func(e *QuizEngine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithDataset labels snapshots with a dataset identifier
func WithDataset(id string) Option {
	return func(e *QuizEngine) {
		e.dataset = id
	}
}

// WithObserver subscribes an observer at construction time
func WithObserver(observer Observer) Option {
	return func(e *QuizEngine) {
		if observer != nil {
			e.addObserver(observer)
		}
	}
}

// QuizEngine implements the Engine interface.
// It is owned by a single caller and is not safe for concurrent use.
type QuizEngine struct {
	rng     *rand.Rand
	dataset string

	collection *FeatureCollection
	index      map[string]int

	phase Phase
	round RoundState
	game  GameState

	roundNumber int
	history     []ClickRecord

	observers map[int]Observer
	nextObsID int
}

// New creates an uninitialized quiz engine
func New(opts ...Option) *QuizEngine {
	e := &QuizEngine{
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		phase:     PhaseUninitialized,
		observers: make(map[int]Observer),
		history:   []ClickRecord{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngine creates a quiz engine and starts the first round over the collection
func NewEngine(collection *FeatureCollection, opts ...Option) (*QuizEngine, error) {
	e := New(opts...)
	if err := e.Initialize(collection); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize loads a collection, zeroes the score and starts the first round
func (e *QuizEngine) Initialize(collection *FeatureCollection) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}

	features := CloneFeatures(collection.Features)
	e.collection = &FeatureCollection{
		Type:     collection.Type,
		BBox:     collection.BBox,
		Features: features,
	}
	if e.collection.Type == "" {
		e.collection.Type = FeatureCollectionType
	}

	e.index = make(map[string]int, len(features))
	for i, f := range features {
		e.index[f.CanonicalName] = i
	}

	e.restart()
	return nil
}

// Reset refills the pool from the loaded collection, zeroes score and errors and
// starts a new round. Click history is cumulative and survives resets.
func (e *QuizEngine) Reset() error {
	if e.collection == nil {
		return ErrNotInitialized
	}
	e.restart()
	return nil
}

func (e *QuizEngine) restart() {
	e.game = GameState{
		RemainingTargets: CloneFeatures(e.collection.Features),
		ClickedNames:     make(map[string]struct{}),
		CorrectNames:     make(map[string]struct{}),
		TotalPoints:      0,
		MaxPoints:        MaxPointsFor(len(e.collection.Features)),
	}
	e.round = RoundState{}
	e.roundNumber = 0
	e.phase = PhaseRoundActive
	e.advanceRound()
	e.notify()
}

// advanceRound resets the round errors and draws the next target uniformly
// at random from the pool, or completes the game when the pool is empty
func (e *QuizEngine) advanceRound() {
	e.round.ErrorsThisRound = 0

	if len(e.game.RemainingTargets) == 0 {
		e.round.CurrentTarget = nil
		e.phase = PhaseGameComplete
		return
	}

	pool := e.game.RemainingTargets
	i := e.rng.IntN(len(pool))
	target := pool[i]

	// Pool order is irrelevant, swap-remove keeps it O(1)
	last := len(pool) - 1
	pool[i] = pool[last]
	pool[last] = Feature{}
	e.game.RemainingTargets = pool[:last]

	e.round.CurrentTarget = &target
	e.roundNumber++
	e.phase = PhaseRoundActive
}

// Phase returns the lifecycle phase
func (e *QuizEngine) Phase() Phase {
	return e.phase
}

// IsGameComplete returns whether every region has been identified
func (e *QuizEngine) IsGameComplete() bool {
	return e.phase == PhaseGameComplete
}

// CurrentTarget returns the feature the player must find, or nil when the game is over
func (e *QuizEngine) CurrentTarget() *Feature {
	if e.round.CurrentTarget == nil {
		return nil
	}
	target := *e.round.CurrentTarget
	return &target
}

// ScorePercentage returns the current score as a rounded percentage
func (e *QuizEngine) ScorePercentage() int {
	return ScorePercentage(e.game.TotalPoints, e.game.MaxPoints)
}

// Lookup finds a feature of the loaded dataset by canonical name
func (e *QuizEngine) Lookup(name string) (Feature, bool) {
	i, ok := e.index[name]
	if !ok {
		return Feature{}, false
	}
	return e.collection.Features[i], true
}

// Collection returns the loaded collection, or nil before Initialize
func (e *QuizEngine) Collection() *FeatureCollection {
	return e.collection
}

// History returns a copy of the cumulative click history
func (e *QuizEngine) History() []ClickRecord {
	history := make([]ClickRecord, len(e.history))
	copy(history, e.history)
	return history
}

// LastClick returns a copy of the most recent click, or nil if there were none
func (e *QuizEngine) LastClick() *ClickRecord {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// Snapshot returns the observable state of the quiz
func (e *QuizEngine) Snapshot() Snapshot {
	snap := Snapshot{
		Dataset:         e.dataset,
		Phase:           e.phase,
		Target:          e.CurrentTarget(),
		Round:           e.roundNumber,
		ErrorsThisRound: e.round.ErrorsThisRound,
		TotalPoints:     e.game.TotalPoints,
		MaxPoints:       e.game.MaxPoints,
		ScorePercentage: e.ScorePercentage(),
		Remaining:       len(e.game.RemainingTargets),
		CorrectNames:    sortedNames(e.game.CorrectNames),
		ClickedNames:    sortedNames(e.game.ClickedNames),
		GameComplete:    e.phase == PhaseGameComplete,
		TotalClicks:     len(e.history),
	}
	if snap.Target != nil {
		snap.TargetName = snap.Target.CanonicalName
	}
	if e.collection != nil {
		snap.TotalRegions = len(e.collection.Features)
	}
	return snap
}

// Subscribe registers an observer and returns a function that removes it
func (e *QuizEngine) Subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}
	id := e.addObserver(observer)
	return func() {
		delete(e.observers, id)
	}
}

func (e *QuizEngine) addObserver(observer Observer) int {
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = observer
	return id
}

func (e *QuizEngine) notify() {
	if len(e.observers) == 0 {
		return
	}

	ids := make([]int, 0, len(e.observers))
	for id := range e.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	snap := e.Snapshot()
	for _, id := range ids {
		if observer, ok := e.observers[id]; ok {
			observer(snap)
		}
	}
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
