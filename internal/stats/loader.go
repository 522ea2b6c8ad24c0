package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrDataUnavailable marks failures to obtain historical data or model
// artifacts. Callers abort the operation instead of computing on partial data.
var ErrDataUnavailable = errors.New("data unavailable")

// LoadCSV loads a stats table from a CSV file whose header names entityColumn
// and periodColumn.
func LoadCSV(path, entityColumn, periodColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open CSV file: %v", ErrDataUnavailable, err)
	}
	defer file.Close()

	ds, err := ReadCSV(file, entityColumn, periodColumn)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("records", ds.Len()).
		Int("entities", len(ds.entities)).
		Strs("numeric_columns", ds.NumericColumns()).
		Msg("Stats loaded successfully")

	return ds, nil
}

// ReadCSV parses a stats table. A column is numeric when every non-empty cell
// parses as a float; empty or non-finite cells of numeric columns load as 0. Every other
// column is carried as a categorical label.
func ReadCSV(r io.Reader, entityColumn, periodColumn string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrDataUnavailable, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	// Map header indices
	indices := make(map[string]int, len(header))
	for i, col := range header {
		if _, dup := indices[col]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrDataUnavailable, col)
		}
		indices[col] = i
	}
	entityIdx, ok := indices[entityColumn]
	if !ok {
		return nil, fmt.Errorf("%w: missing entity column %q", ErrDataUnavailable, entityColumn)
	}
	periodIdx, ok := indices[periodColumn]
	if !ok {
		return nil, fmt.Errorf("%w: missing period column %q", ErrDataUnavailable, periodColumn)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV rows: %v", ErrDataUnavailable, err)
	}

	// A column is numeric unless some non-empty cell fails to parse
	numeric := make([]bool, len(header))
	for i := range header {
		numeric[i] = i != entityIdx && i != periodIdx
	}
	for _, row := range rows {
		for i, cell := range row {
			if !numeric[i] {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[i] = false
			}
		}
	}

	records := make([]Record, 0, len(rows))
	for line, row := range rows {
		entity := strings.TrimSpace(row[entityIdx])
		if entity == "" {
			log.Warn().Int("line", line+2).Msg("Skipping row without entity")
			continue
		}
		rec := Record{
			Entity:  entity,
			Season:  strings.TrimSpace(row[periodIdx]),
			Numeric: make(map[string]float64),
			Labels:  make(map[string]string),
		}
		for i, cell := range row {
			if i == entityIdx || i == periodIdx {
				continue
			}
			cell = strings.TrimSpace(cell)
			if numeric[i] {
				var v float64
				if cell != "" {
					v, _ = strconv.ParseFloat(cell, 64)
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					log.Warn().Int("line", line+2).Str("column", header[i]).Msg("Non-finite value loaded as 0")
					v = 0
				}
				rec.Numeric[header[i]] = v
			} else {
				rec.Labels[header[i]] = cell
			}
		}
		records = append(records, rec)
	}

	var numericCols []string
	for i, col := range header {
		if numeric[i] {
			numericCols = append(numericCols, col)
		}
	}

	return NewDataset(entityColumn, periodColumn, header, numericCols, records), nil
}
