package region

import (
	"errors"
	"fmt"
)

var (
	ErrNotFeatureCollection = errors.New("payload is not a GeoJSON FeatureCollection")
	ErrDuplicateName        = errors.New("duplicate canonical name")
	ErrInvalidDescriptor    = errors.New("invalid dataset descriptor")
)

// AdaptationError reports a raw feature that lacks a usable name property
type AdaptationError struct {
	Dataset string
	Field   string
	Index   int // feature position in the payload, -1 when unknown
	Reason  string
}

func (e *AdaptationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("adapt %s feature %d: %s: %s", e.Dataset, e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("adapt %s feature: %s: %s", e.Dataset, e.Field, e.Reason)
}

// LoadError reports a dataset that could not be retrieved or parsed
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
