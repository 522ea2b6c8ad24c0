package ml

import (
	"fmt"
	"math"
	"sort"
)

// NumericFeature is a standard-scaled numeric input column.
type NumericFeature struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// CategoricalFeature is a one-hot encoded input column. Values outside
// Categories encode as all zeros.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// ColumnTransformer is a fitted preprocessing pipeline exported from
// training. Numeric columns come first in the output, followed by one block
// per categorical column.
type ColumnTransformer struct {
	Version     string               `json:"version"`
	Numeric     []NumericFeature     `json:"numeric"`
	Categorical []CategoricalFeature `json:"categorical"`
}

// Validate checks that the transformer is usable.
func (c *ColumnTransformer) Validate() error {
	if len(c.Numeric)+len(c.Categorical) == 0 {
		return fmt.Errorf("column transformer has no columns")
	}
	seen := make(map[string]bool)
	for _, f := range c.Numeric {
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("invalid or duplicate numeric column %q", f.Name)
		}
		if math.IsNaN(f.Mean) || math.IsInf(f.Mean, 0) || math.IsNaN(f.Scale) || math.IsInf(f.Scale, 0) {
			return fmt.Errorf("non-finite scaling for column %q", f.Name)
		}
		seen[f.Name] = true
	}
	for _, f := range c.Categorical {
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("invalid or duplicate categorical column %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Columns returns the fitted input columns in output order.
func (c *ColumnTransformer) Columns() []string {
	out := make([]string, 0, len(c.Numeric)+len(c.Categorical))
	for _, f := range c.Numeric {
		out = append(out, f.Name)
	}
	for _, f := range c.Categorical {
		out = append(out, f.Name)
	}
	return out
}

// Width is the length of the transformed feature vector.
func (c *ColumnTransformer) Width() int {
	w := len(c.Numeric)
	for _, f := range c.Categorical {
		w += len(f.Categories)
	}
	return w
}

// CheckSchema compares the row's columns with the fitted ones. A column
// supplied with the wrong kind is reported both missing and unexpected.
func (c *ColumnTransformer) CheckSchema(row Row) error {
	numeric := make(map[string]bool, len(c.Numeric))
	categorical := make(map[string]bool, len(c.Categorical))

	var missing, unexpected []string
	for _, f := range c.Numeric {
		numeric[f.Name] = true
		if _, ok := row.Numeric[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	for _, f := range c.Categorical {
		categorical[f.Name] = true
		if _, ok := row.Categorical[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	for name := range row.Numeric {
		if !numeric[name] {
			unexpected = append(unexpected, name)
		}
	}
	for name := range row.Categorical {
		if !categorical[name] {
			unexpected = append(unexpected, name)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(unexpected)
	return &SchemaMismatchError{Missing: missing, Unexpected: unexpected}
}

// Transform implements Transformer.
func (c *ColumnTransformer) Transform(row Row) ([]float64, error) {
	if err := c.CheckSchema(row); err != nil {
		return nil, err
	}

	out := make([]float64, 0, c.Width())
	for _, f := range c.Numeric {
		scale := f.Scale
		if scale == 0 {
			scale = 1
		}
		out = append(out, (row.Numeric[f.Name]-f.Mean)/scale)
	}
	for _, f := range c.Categorical {
		value := row.Categorical[f.Name]
		for _, category := range f.Categories {
			if category == value {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}
