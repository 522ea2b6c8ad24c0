package ml

import (
	"errors"
	"fmt"
	"strings"

	"football-stats/internal/stats"
)

var (
	// ErrDataUnavailable is returned when historical data or a model artifact
	// cannot be obtained.
	ErrDataUnavailable = stats.ErrDataUnavailable
	// ErrEntityNotFound is returned when the requested player has no records.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrSchemaMismatch is matched by every *SchemaMismatchError.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// SchemaMismatchError reports how a model input differs from what the fitted
// artifacts expect. Column differences and width differences are reported
// separately.
type SchemaMismatchError struct {
	Missing    []string
	Unexpected []string
	// Expected and Got are feature vector widths; zero when unused.
	Expected int
	Got      int
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if e.Expected != e.Got {
		parts = append(parts, fmt.Sprintf("expected %d features, got %d", e.Expected, e.Got))
	}
	if len(parts) == 0 {
		return ErrSchemaMismatch.Error()
	}
	return ErrSchemaMismatch.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrSchemaMismatch) match.
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}
