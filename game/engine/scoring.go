package engine

// StyleTier grades a correct answer by how many wrong guesses preceded it.
// Tier 0 is a first-try answer, tier 3 covers three or more misses.
type StyleTier int

const (
	TierGood StyleTier = iota
	TierFair
	TierPoor
	TierWorst
)

// Polygon fill colors used by renderers
const (
	IncorrectColor = "#d3d3d3"
	DefaultColor   = "#3388ff"
)

var tierColors = [...]string{"#28a745", "#ffc107", "#fd7e14", "#dc354d"}

var tierNames = [...]string{"good", "fair", "poor", "worst"}

// String returns the tier name
func (t StyleTier) String() string {
	if t < TierGood || t > TierWorst {
		return "unknown"
	}
	return tierNames[t]
}

// Color returns the fill color of the tier on the good-to-worst ramp
func (t StyleTier) Color() string {
	if t < TierGood {
		t = TierGood
	}
	if t > TierWorst {
		t = TierWorst
	}
	return tierColors[t]
}

// TierForErrors maps the wrong guesses of a round to a style tier
func TierForErrors(errors int) StyleTier {
	if errors < 0 {
		errors = 0
	}
	return StyleTier(min(errors, MaxStyleTier))
}

// PointsForErrors returns the points awarded for a correct answer after the given
// number of wrong guesses: 3, 2, 1 and then 0, never negative
func PointsForErrors(errors int) int {
	if errors < 0 {
		errors = 0
	}
	return max(PointsPerRegion-errors, 0)
}

// ScorePercentage returns round(100 * total / maxPoints) with ties rounded up,
// or 0 when maxPoints is 0
func ScorePercentage(total, maxPoints int) int {
	if maxPoints <= 0 {
		return 0
	}
	return (200*total + maxPoints) / (2 * maxPoints)
}

// MaxPointsFor returns the maximum attainable score for a dataset of n regions
func MaxPointsFor(n int) int {
	return PointsPerRegion * n
}
