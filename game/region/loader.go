package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/mapquiz/game/engine"
)

// maxPayloadSize bounds a dataset download
const maxPayloadSize = 64 << 20

// Loader retrieves datasets and normalizes their features.
// Locators with an http or https scheme are downloaded, anything else is a
// path resolved under the data directory.
type Loader struct {
	dataDir    string
	httpClient *http.Client
}

// NewLoader creates a loader rooted at dataDir
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir: dataDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewLoaderWithClient creates a loader that downloads with the given HTTP client
func NewLoaderWithClient(dataDir string, client *http.Client) *Loader {
	l := NewLoader(dataDir)
	if client != nil {
		l.httpClient = client
	}
	return l
}

// DataDir returns the directory file locators are resolved against
func (l *Loader) DataDir() string {
	return l.dataDir
}

// Load fetches the adapter's dataset and assigns a canonical name to every feature.
// Adaptation failures abort the load and are returned as *AdaptationError.
func (l *Loader) Load(ctx context.Context, adapter Adapter) (*engine.FeatureCollection, error) {
	source := adapter.SourceLocator()

	payload, err := l.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	rawFeatures, bbox, err := splitCollection(payload)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	collection := &engine.FeatureCollection{
		Type:     engine.FeatureCollectionType,
		BBox:     bbox,
		Features: make([]engine.Feature, 0, len(rawFeatures)),
	}
	seen := make(map[string]int, len(rawFeatures))

	for i, raw := range rawFeatures {
		name, err := adapter.CanonicalName(raw)
		if err != nil {
			var aerr *AdaptationError
			if errors.As(err, &aerr) {
				aerr.Index = i
			}
			return nil, err
		}

		var feature engine.Feature
		if err := json.Unmarshal(raw, &feature); err != nil {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("feature %d: %w", i, err)}
		}
		if feature.Type == "" {
			feature.Type = engine.FeatureType
		}
		if feature.Properties == nil {
			feature.Properties = make(map[string]any)
		}
		feature.CanonicalName = name
		feature.Properties[engine.CanonicalNameProperty] = name

		if prev, ok := seen[name]; ok {
			return nil, &LoadError{Source: source,
				Err: fmt.Errorf("%w %q in features %d and %d", ErrDuplicateName, name, prev, i)}
		}
		seen[name] = i

		collection.Features = append(collection.Features, feature)
	}

	return collection, nil
}

// Fetch retrieves the raw dataset payload
func (l *Loader) Fetch(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("empty source locator")}
	}

	if isRemote(source) {
		return l.fetchHTTP(ctx, source)
	}
	return l.fetchFile(source)
}

func (l *Loader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Source: url, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &LoadError{Source: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &LoadError{Source: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, &LoadError{Source: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

func (l *Loader) fetchFile(source string) ([]byte, error) {
	path := l.resolvePath(source)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return data, nil
}

// resolvePath maps a locator such as /assets/private/x.geojson under the data directory
func (l *Loader) resolvePath(source string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(source))
	if l.dataDir == "" {
		return strings.TrimPrefix(clean, string(filepath.Separator))
	}
	return filepath.Join(l.dataDir, clean)
}

// SplitFeatures checks that payload is a FeatureCollection and returns its raw features
func SplitFeatures(payload []byte) ([]json.RawMessage, error) {
	features, _, err := splitCollection(payload)
	return features, err
}

func splitCollection(payload []byte) ([]json.RawMessage, json.RawMessage, error) {
	var doc struct {
		Type     string            `json:"type"`
		BBox     json.RawMessage   `json:"bbox,omitempty"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotFeatureCollection, err)
	}
	if doc.Type != engine.FeatureCollectionType {
		return nil, nil, fmt.Errorf("%w: type is %q", ErrNotFeatureCollection, doc.Type)
	}
	if doc.Features == nil {
		return nil, nil, fmt.Errorf("%w: features array is missing", ErrNotFeatureCollection)
	}
	return doc.Features, doc.BBox, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
