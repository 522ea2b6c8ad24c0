package ml

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Artifact roles.
const (
	RoleModel        = "model"
	RolePreprocessor = "preprocessor"
)

// ModelVersion describes one loaded artifact.
type ModelVersion struct {
	Role     string    `json:"role"`
	Kind     string    `json:"kind"`
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ModelManager loads the model and preprocessor once and hands out the same
// read-only handles to every caller.
type ModelManager struct {
	loader             *ArtifactLoader
	modelSource        string
	preprocessorSource string
	metrics            MetricsInterface

	mu           sync.RWMutex
	model        Predictor
	preprocessor Transformer
	versions     []ModelVersion
}

// NewModelManager creates a manager for the given artifact locations.
func NewModelManager(loader *ArtifactLoader, modelSource, preprocessorSource string, metrics MetricsInterface) *ModelManager {
	return &ModelManager{
		loader:             loader,
		modelSource:        modelSource,
		preprocessorSource: preprocessorSource,
		metrics:            metrics,
	}
}

// Load fetches and decodes both artifacts. Nothing is installed unless both
// load and agree on the feature vector width.
func (mm *ModelManager) Load(ctx context.Context) error {
	err := mm.load(ctx)
	if err != nil && mm.metrics != nil {
		mm.metrics.ArtifactLoadFailuresInc()
	}
	return err
}

func (mm *ModelManager) load(ctx context.Context) error {
	preData, err := mm.loader.Fetch(ctx, mm.preprocessorSource)
	if err != nil {
		return fmt.Errorf("preprocessor: %w", err)
	}
	pre, preHeader, err := DecodePreprocessor(preData)
	if err != nil {
		return fmt.Errorf("preprocessor: %w", err)
	}

	modelData, err := mm.loader.Fetch(ctx, mm.modelSource)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	model, modelHeader, err := DecodeModel(modelData)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}

	if w, ok := model.(interface{ InputWidth() int }); ok && w.InputWidth() != pre.Width() {
		return fmt.Errorf("model expects %d features but preprocessor produces %d: %w",
			w.InputWidth(), pre.Width(), &SchemaMismatchError{Expected: w.InputWidth(), Got: pre.Width()})
	}

	now := time.Now()
	versions := []ModelVersion{
		newVersion(RoleModel, modelHeader, mm.modelSource, modelData, now),
		newVersion(RolePreprocessor, preHeader, mm.preprocessorSource, preData, now),
	}

	mm.mu.Lock()
	mm.model = model
	mm.preprocessor = pre
	mm.versions = versions
	mm.mu.Unlock()

	if mm.metrics != nil {
		mm.metrics.MLModelAgeSet(0)
	}

	log.Info().
		Str("model_kind", modelHeader.Kind).
		Str("model_version", modelHeader.Version).
		Str("preprocessor_version", preHeader.Version).
		Strs("columns", pre.Columns()).
		Msg("Model artifacts loaded")

	return nil
}

func newVersion(role string, header ArtifactHeader, source string, data []byte, at time.Time) ModelVersion {
	sum := sha256.Sum256(data)
	return ModelVersion{
		Role:     role,
		Kind:     header.Kind,
		Version:  header.Version,
		Source:   source,
		Checksum: hex.EncodeToString(sum[:]),
		LoadedAt: at,
	}
}

// Ready reports whether both artifacts are loaded.
func (mm *ModelManager) Ready() bool {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.model != nil && mm.preprocessor != nil
}

// Model returns the loaded model, or nil.
func (mm *ModelManager) Model() Predictor {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.model
}

// Preprocessor returns the loaded preprocessor, or nil.
func (mm *ModelManager) Preprocessor() Transformer {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.preprocessor
}

// Versions describes the loaded artifacts.
func (mm *ModelManager) Versions() []ModelVersion {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return append([]ModelVersion(nil), mm.versions...)
}

// ModelVersion returns the model's version string, or "" before Load.
func (mm *ModelManager) ModelVersion() string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	for _, v := range mm.versions {
		if v.Role == RoleModel {
			return v.Version
		}
	}
	return ""
}

// ReportAge publishes the time since the artifacts were loaded.
func (mm *ModelManager) ReportAge() {
	if mm.metrics == nil {
		return
	}
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	if len(mm.versions) > 0 {
		mm.metrics.MLModelAgeSet(time.Since(mm.versions[0].LoadedAt).Seconds())
	}
}
