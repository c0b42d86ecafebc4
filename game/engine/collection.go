package engine

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCollection   = errors.New("feature collection has no features")
	ErrInvalidCollection = errors.New("invalid feature collection")
)

// ValidateCollection checks that a collection can seed a quiz: it must have at
// least one feature and every feature needs a non-empty, unique canonical name
func ValidateCollection(collection *FeatureCollection) error {
	if collection == nil || len(collection.Features) == 0 {
		return ErrEmptyCollection
	}

	seen := make(map[string]int, len(collection.Features))
	for i, f := range collection.Features {
		if f.CanonicalName == "" {
			return fmt.Errorf("%w: feature %d has no canonical name", ErrInvalidCollection, i)
		}
		if prev, ok := seen[f.CanonicalName]; ok {
			return fmt.Errorf("%w: features %d and %d share canonical name %q",
				ErrInvalidCollection, prev, i, f.CanonicalName)
		}
		seen[f.CanonicalName] = i
	}

	return nil
}

// CloneFeatures returns a shallow copy of the feature slice
func CloneFeatures(features []Feature) []Feature {
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}
