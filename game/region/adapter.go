package region

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Adapter turns a raw GeoJSON feature of one dataset into its canonical name
type Adapter interface {
	// CanonicalName extracts the dataset-independent identifier of a raw feature
	CanonicalName(raw []byte) (string, error)

	// SourceLocator returns the path or URL of the dataset
	SourceLocator() string
}

// Descriptor describes a dataset: where to fetch it and which property holds the region name
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	NameField   string `json:"name_field"`
	Source      string `json:"source"`
}

// CanonicalName reads properties.<NameField> of the raw feature
func (d Descriptor) CanonicalName(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &AdaptationError{Dataset: d.ID, Field: d.NameField, Index: -1, Reason: "feature is not valid JSON"}
	}

	res := gjson.GetBytes(raw, "properties."+escapePath(d.NameField))
	if !res.Exists() || res.Type == gjson.Null {
		return "", &AdaptationError{Dataset: d.ID, Field: d.NameField, Index: -1, Reason: "property is missing"}
	}
	if res.Type != gjson.String {
		return "", &AdaptationError{Dataset: d.ID, Field: d.NameField, Index: -1,
			Reason: fmt.Sprintf("property is a %s, not a string", res.Type)}
	}

	name := NormalizeName(res.String())
	if name == "" {
		return "", &AdaptationError{Dataset: d.ID, Field: d.NameField, Index: -1, Reason: "property is blank"}
	}
	return name, nil
}

// SourceLocator returns the dataset location
func (d Descriptor) SourceLocator() string {
	return d.Source
}

// NormalizeName trims surrounding space and converts a name to Unicode NFC so
// that composed and decomposed spellings compare equal
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// FoldName returns a caseless form of a name for lenient matching of player input
func FoldName(name string) string {
	return cases.Fold().String(NormalizeName(name))
}

// escapePath escapes gjson path syntax in a single property key
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
