package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func namesN(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("region_%02d", i)
	}
	return names
}

// checkInvariants asserts the state invariants that must hold after any operation
func checkInvariants(t *testing.T, e *QuizEngine, featureCount int) {
	t.Helper()

	if e.game.MaxPoints != 3*featureCount {
		t.Fatalf("max points %d != 3 x %d", e.game.MaxPoints, featureCount)
	}
	if e.game.TotalPoints < 0 || e.game.TotalPoints > e.game.MaxPoints {
		t.Fatalf("total points %d outside [0, %d]", e.game.TotalPoints, e.game.MaxPoints)
	}
	for _, f := range e.game.RemainingTargets {
		if _, ok := e.game.CorrectNames[f.CanonicalName]; ok {
			t.Fatalf("remaining target %q is already correct", f.CanonicalName)
		}
	}
	for name := range e.game.CorrectNames {
		if _, ok := e.index[name]; !ok {
			t.Fatalf("correct name %q is not in the dataset", name)
		}
	}
	if e.round.CurrentTarget != nil {
		if _, ok := e.game.CorrectNames[e.round.CurrentTarget.CanonicalName]; ok {
			t.Fatalf("current target %q is already correct", e.round.CurrentTarget.CanonicalName)
		}
	}
	if e.round.ErrorsThisRound < 0 {
		t.Fatalf("negative errors %d", e.round.ErrorsThisRound)
	}
}

func TestEngine_InvariantsUnderRandomPlay(t *testing.T) {
	const featureCount = 8
	names := namesN(featureCount)
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 50; trial++ {
		engine, err := NewEngine(createTestCollection(names...), WithSeed(uint64(trial)))
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		checkInvariants(t, engine, featureCount)

		for step := 0; step < 200; step++ {
			switch rng.IntN(20) {
			case 0:
				if err := engine.Reset(); err != nil {
					t.Fatalf("Reset failed: %v", err)
				}
			default:
				name := names[rng.IntN(len(names))]
				if _, err := engine.ClickByName(name); err != nil {
					t.Fatalf("Click failed: %v", err)
				}
			}
			checkInvariants(t, engine, featureCount)
		}
	}
}

func TestEngine_ClickIdempotence(t *testing.T) {
	engine := mustEngine(t, "Lazio", "Umbria", "Toscana")

	first := engine.CurrentTarget().CanonicalName
	if _, err := engine.ClickByName(first); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	wrong := wrongName(t, engine, first)
	if _, err := engine.ClickByName(wrong); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	before := engine.Snapshot()

	tests := []struct {
		name   string
		region string
	}{
		{"already correct", first},
		{"already missed this round", wrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				result, err := engine.ClickByName(tt.region)
				if err != nil {
					t.Fatalf("Click failed: %v", err)
				}
				if result.Outcome != OutcomeNoOp {
					t.Errorf("Expected no-op, got %s", result.Outcome)
				}
			}

			after := engine.Snapshot()
			if after.TotalPoints != before.TotalPoints {
				t.Errorf("Total points changed: %d -> %d", before.TotalPoints, after.TotalPoints)
			}
			if fmt.Sprint(after.CorrectNames) != fmt.Sprint(before.CorrectNames) {
				t.Errorf("Correct names changed: %v -> %v", before.CorrectNames, after.CorrectNames)
			}
			if fmt.Sprint(after.ClickedNames) != fmt.Sprint(before.ClickedNames) {
				t.Errorf("Clicked names changed: %v -> %v", before.ClickedNames, after.ClickedNames)
			}
			if after.ErrorsThisRound != before.ErrorsThisRound {
				t.Errorf("Errors changed: %d -> %d", before.ErrorsThisRound, after.ErrorsThisRound)
			}
		})
	}
}

func TestEngine_ClickedNamesClearedOnCorrect(t *testing.T) {
	engine := mustEngine(t, "Lazio", "Umbria", "Toscana")

	target := engine.CurrentTarget().CanonicalName
	wrong := wrongName(t, engine)
	engine.ClickByName(wrong)

	if got := engine.Snapshot().ClickedNames; len(got) != 1 || got[0] != wrong {
		t.Fatalf("Expected clicked names [%s], got %v", wrong, got)
	}

	engine.ClickByName(target)
	if got := engine.Snapshot().ClickedNames; len(got) != 0 {
		t.Errorf("Expected clicked names cleared after a correct answer, got %v", got)
	}

	// A region missed in the previous round can be missed again in the new one
	if engine.CurrentTarget().CanonicalName != wrong {
		result, _ := engine.ClickByName(wrong)
		if result.Outcome != OutcomeIncorrect {
			t.Errorf("Expected a new round to count the miss again, got %s", result.Outcome)
		}
	}
}

func TestEngine_Termination(t *testing.T) {
	for _, n := range []int{1, 2, 5, 20} {
		t.Run(fmt.Sprintf("%d regions", n), func(t *testing.T) {
			engine, err := NewEngine(createTestCollection(namesN(n)...))
			if err != nil {
				t.Fatalf("Failed to create engine: %v", err)
			}

			rounds := 0
			for !engine.IsGameComplete() {
				if rounds > n {
					t.Fatalf("Game did not complete within %d rounds", n)
				}
				if _, err := engine.HandleClick(*engine.CurrentTarget()); err != nil {
					t.Fatalf("Click failed: %v", err)
				}
				rounds++
			}

			if rounds != n {
				t.Errorf("Expected %d rounds, got %d", n, rounds)
			}
			snap := engine.Snapshot()
			if snap.ScorePercentage != 100 {
				t.Errorf("Expected 100%%, got %d%%", snap.ScorePercentage)
			}
			if len(snap.CorrectNames) != n {
				t.Errorf("Expected %d correct names, got %d", n, len(snap.CorrectNames))
			}
		})
	}
}

func TestEngine_EveryRegionTargetedOnce(t *testing.T) {
	names := namesN(10)
	engine := mustEngine(t, names...)

	seen := make(map[string]bool)
	for !engine.IsGameComplete() {
		target := engine.CurrentTarget().CanonicalName
		if seen[target] {
			t.Fatalf("Region %q targeted twice", target)
		}
		seen[target] = true
		engine.ClickByName(target)
	}
	if len(seen) != len(names) {
		t.Errorf("Expected %d distinct targets, got %d", len(names), len(seen))
	}
}

func TestEngine_ClickAfterGameComplete(t *testing.T) {
	engine := mustEngine(t, "Lazio", "Umbria")
	for !engine.IsGameComplete() {
		engine.HandleClick(*engine.CurrentTarget())
	}

	before := engine.Snapshot()
	for _, name := range []string{"Lazio", "Umbria"} {
		result, err := engine.ClickByName(name)
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		if result.Outcome != OutcomeNoOp {
			t.Errorf("Expected no-op after game complete, got %s", result.Outcome)
		}
		if !result.GameComplete {
			t.Error("Expected result to report the completed game")
		}
	}

	after := engine.Snapshot()
	if after.TotalPoints != before.TotalPoints || after.TotalClicks != before.TotalClicks {
		t.Error("Clicks after completion must not change the game")
	}
}

func TestEngine_UnknownFeature(t *testing.T) {
	engine := mustEngine(t, "Lazio", "Umbria")

	_, err := engine.HandleClick(Feature{CanonicalName: "Atlantis"})
	if !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("Expected ErrUnknownFeature, got %v", err)
	}

	_, err = engine.ClickByName("")
	if !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("Expected ErrUnknownFeature for empty name, got %v", err)
	}

	if engine.Snapshot().ErrorsThisRound != 0 {
		t.Error("Unknown features must not count as misses")
	}
}

func TestEngine_FirstTargetDistribution(t *testing.T) {
	const (
		poolSize = 5
		trials   = 20000
	)
	names := namesN(poolSize)
	collection := createTestCollection(names...)
	rng := rand.New(rand.NewPCG(2024, 10))

	counts := make(map[string]int, poolSize)
	for i := 0; i < trials; i++ {
		engine, err := NewEngine(collection, WithRand(rng))
		if err != nil {
			t.Fatalf("Failed to create engine: %v", err)
		}
		counts[engine.CurrentTarget().CanonicalName]++
	}

	// Chi-squared goodness of fit, 4 degrees of freedom; 18.47 is the p=0.001 critical value
	expected := float64(trials) / poolSize
	chi2 := 0.0
	for _, name := range names {
		diff := float64(counts[name]) - expected
		chi2 += diff * diff / expected
	}
	if chi2 > 18.47 {
		t.Errorf("First target distribution is not uniform: chi2=%.2f counts=%v", chi2, counts)
	}
}

func TestEngine_LaterRoundDistribution(t *testing.T) {
	const (
		poolSize = 4
		trials   = 20000
	)
	names := namesN(poolSize)
	collection := createTestCollection(names...)
	rng := rand.New(rand.NewPCG(99, 1))

	// After the first region is found, the second target is uniform over the rest
	counts := make(map[string]int, poolSize)
	for i := 0; i < trials; i++ {
		engine, _ := NewEngine(collection, WithRand(rng))
		first := engine.CurrentTarget().CanonicalName
		engine.ClickByName(first)
		second := engine.CurrentTarget().CanonicalName
		if second == first {
			t.Fatal("Found region was drawn again")
		}
		counts[second]++
	}

	expected := float64(trials) / poolSize
	chi2 := 0.0
	for _, name := range names {
		diff := float64(counts[name]) - expected
		chi2 += diff * diff / expected
	}
	// 3 degrees of freedom, p=0.001
	if chi2 > 16.27 {
		t.Errorf("Second target distribution is not uniform: chi2=%.2f counts=%v", chi2, counts)
	}
}
