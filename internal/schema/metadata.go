package schema

import (
	"encoding/json"
	"fmt"
)

// Metadata is a free-form map of scalar values attached to requests and
// stored entities. Values must be JSON scalars (string, number, bool, null);
// nested objects and arrays are rejected at validation time.
type Metadata map[string]any

// Validate checks the scalar-values-only constraint.
func (m Metadata) Validate() error {
	for k, v := range m {
		switch v.(type) {
		case nil, string, bool, float64, json.Number:
		default:
			return fmt.Errorf("metadata key %q: value must be a JSON scalar, got %T", k, v)
		}
	}
	return nil
}
