package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Artifact kinds understood by the decoders.
const (
	KindColumnTransformer = "column_transformer"
	KindRandomForest      = "random_forest"
	KindLinear            = "linear"
)

// ArtifactHeader is the envelope shared by every artifact.
type ArtifactHeader struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

// ArtifactLoader reads serialized artifacts from local paths or HTTP(S) URLs.
type ArtifactLoader struct {
	client *resty.Client
}

// NewArtifactLoader creates a loader whose remote fetches time out after
// timeout and are retried up to retries times on transport errors and 5xx
// responses.
func NewArtifactLoader(timeout time.Duration, retries int) *ArtifactLoader {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	} else {
		client.SetTimeout(30 * time.Second)
	}
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || resp.StatusCode() >= http.StatusInternalServerError
	})

	return &ArtifactLoader{client: client}
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Fetch returns the raw artifact bytes. Every failure wraps ErrDataUnavailable.
func (l *ArtifactLoader) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty artifact location", ErrDataUnavailable)
	}

	if !isRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read artifact: %v", ErrDataUnavailable, err)
		}
		return data, nil
	}

	resp, err := l.client.R().
		SetContext(ctx).
		Get(location)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch artifact: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: artifact server returned status %d", ErrDataUnavailable, resp.StatusCode())
	}
	return resp.Body(), nil
}

// DecodePreprocessor parses a column_transformer artifact.
func DecodePreprocessor(data []byte) (*ColumnTransformer, ArtifactHeader, error) {
	var header ArtifactHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, header, fmt.Errorf("%w: failed to parse preprocessor: %v", ErrDataUnavailable, err)
	}
	if header.Kind != KindColumnTransformer {
		return nil, header, fmt.Errorf("%w: unsupported preprocessor kind %q", ErrDataUnavailable, header.Kind)
	}

	var ct ColumnTransformer
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, header, fmt.Errorf("%w: failed to parse preprocessor: %v", ErrDataUnavailable, err)
	}
	if err := ct.Validate(); err != nil {
		return nil, header, fmt.Errorf("%w: invalid preprocessor: %v", ErrDataUnavailable, err)
	}
	return &ct, header, nil
}

// DecodeModel parses a random_forest or linear artifact.
func DecodeModel(data []byte) (Predictor, ArtifactHeader, error) {
	var header ArtifactHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, header, fmt.Errorf("%w: failed to parse model: %v", ErrDataUnavailable, err)
	}

	var model interface {
		Predictor
		Validate() error
	}
	switch header.Kind {
	case KindRandomForest:
		model = &RandomForest{}
	case KindLinear:
		model = &LinearRegressor{}
	default:
		return nil, header, fmt.Errorf("%w: unsupported model kind %q", ErrDataUnavailable, header.Kind)
	}

	if err := json.Unmarshal(data, model); err != nil {
		return nil, header, fmt.Errorf("%w: failed to parse model: %v", ErrDataUnavailable, err)
	}
	if err := model.Validate(); err != nil {
		return nil, header, fmt.Errorf("%w: invalid model: %v", ErrDataUnavailable, err)
	}
	return model, header, nil
}
