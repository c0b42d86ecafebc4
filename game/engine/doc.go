// Package engine provides the quiz state machine of the map quiz.
//
// The engine package implements the game mechanics including:
//   - Target selection, drawn uniformly at random from the regions not yet found
//   - Click validation against the canonical name of the current target
//   - Per-round error accounting and scoring (3, 2, 1, 0 points)
//   - Round and game lifecycle, including reset
//   - Push-based observation of state changes
//
// Core Types:
//
// The Engine interface defines the main contract for quiz operations,
// implemented by QuizEngine. Feature and FeatureCollection carry normalized
// GeoJSON regions, Snapshot is the observable state handed to renderers and
// ClickResult tells the caller how a click changed the quiz.
//
// Usage:
//
//	quiz, err := engine.NewEngine(collection, engine.WithDataset("italian-regions"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe := quiz.Subscribe(func(s engine.Snapshot) {
//		fmt.Println(s.TargetName, s.ScorePercentage)
//	})
//	defer unsubscribe()
//
//	result, err := quiz.ClickByName("Lazio")
//
// Game Rules:
//
// Each round names one region. A correct click awards 3 points minus the
// number of wrong guesses made in that round, never less than 0. A region
// that was already missed in the round, or already found, can't be scored
// twice. The game completes once every region has been found; the maximum
// score is 3 points per region.
package engine
