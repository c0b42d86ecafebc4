package engine

import (
	"fmt"
	"time"
)

// HandleClick validates a click on a feature and applies its effect on the
// score and the round. Clicks on regions already found, regions already
// missed in this round, or any click after the game is over are no-ops.
func (e *QuizEngine) HandleClick(feature Feature) (ClickResult, error) {
	if e.phase == PhaseUninitialized {
		return ClickResult{}, ErrNotInitialized
	}

	name := feature.CanonicalName
	if _, ok := e.index[name]; !ok {
		return ClickResult{}, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}

	result := ClickResult{
		Outcome: OutcomeNoOp,
		Region:  name,
		Errors:  e.round.ErrorsThisRound,
	}

	if e.phase == PhaseGameComplete {
		result.GameComplete = true
		return result, nil
	}

	target := e.round.CurrentTarget.CanonicalName
	result.Target = target

	if e.isCorrect(name) || e.isClicked(name) {
		return result, nil
	}

	if name == target {
		result = e.handleCorrectClick(name, result)
	} else {
		result = e.handleIncorrectClick(name, result)
	}

	e.notify()
	return result, nil
}

// ClickByName resolves a canonical name against the dataset and handles the click
func (e *QuizEngine) ClickByName(name string) (ClickResult, error) {
	if e.phase == PhaseUninitialized {
		return ClickResult{}, ErrNotInitialized
	}
	feature, ok := e.Lookup(name)
	if !ok {
		return ClickResult{}, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return e.HandleClick(feature)
}

func (e *QuizEngine) handleCorrectClick(name string, result ClickResult) ClickResult {
	errors := e.round.ErrorsThisRound
	points := PointsForErrors(errors)
	tier := TierForErrors(errors)

	e.game.CorrectNames[name] = struct{}{}
	e.game.TotalPoints += points
	// Misses only count within a round
	clear(e.game.ClickedNames)

	e.addToHistory(name, result.Target, OutcomeCorrect, points)
	e.advanceRound()

	result.Outcome = OutcomeCorrect
	result.Points = points
	result.Tier = tier
	result.Color = tier.Color()
	result.Errors = errors
	result.GameComplete = e.phase == PhaseGameComplete
	return result
}

func (e *QuizEngine) handleIncorrectClick(name string, result ClickResult) ClickResult {
	e.round.ErrorsThisRound++
	e.game.ClickedNames[name] = struct{}{}

	e.addToHistory(name, result.Target, OutcomeIncorrect, 0)

	result.Outcome = OutcomeIncorrect
	result.Color = IncorrectColor
	result.Errors = e.round.ErrorsThisRound
	return result
}

func (e *QuizEngine) isCorrect(name string) bool {
	_, ok := e.game.CorrectNames[name]
	return ok
}

func (e *QuizEngine) isClicked(name string) bool {
	_, ok := e.game.ClickedNames[name]
	return ok
}

// addToHistory appends a click to the cumulative history
func (e *QuizEngine) addToHistory(region, target string, outcome Outcome, points int) {
	e.history = append(e.history, ClickRecord{
		ClickNumber: len(e.history) + 1,
		Round:       e.roundNumber,
		Region:      region,
		Target:      target,
		Outcome:     outcome,
		Points:      points,
		Timestamp:   time.Now().Unix(),
	})
}
