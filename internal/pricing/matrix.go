// internal/pricing/matrix.go

// Package pricing maps validated memberships onto monthly fees using a
// read-only reference matrix.
package pricing

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"affiliation-validator/internal/models"
)

// matrixSchema guards the reference file so a malformed matrix fails loudly
// at startup instead of producing silent zero fees.
const matrixSchema = `{
	"type": "object",
	"required": ["rows"],
	"properties": {
		"rows": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["base"],
				"properties": {
					"base": {"type": "number", "minimum": 0},
					"rates": {
						"type": "object",
						"additionalProperties": {"type": "number", "minimum": 0}
					}
				}
			}
		}
	}
}`

// Row holds the base rate for one membership type plus per-bucket rates.
type Row struct {
	Base  float64                   `json:"base"`
	Rates map[models.Bucket]float64 `json:"rates,omitempty"`
}

// Matrix is the fee reference table keyed by membership type.
type Matrix struct {
	Rows map[models.MembershipType]Row `json:"rows"`
}

// LoadMatrix reads and validates the pricing matrix file.
func LoadMatrix(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing matrix: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix validates raw matrix JSON against the schema and unmarshals it.
func ParseMatrix(data []byte) (*Matrix, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(matrixSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("pricing matrix validation failed: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("pricing matrix rejected: %v", result.Errors())
	}

	var m Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing matrix: %w", err)
	}
	if len(m.Rows) == 0 {
		return nil, fmt.Errorf("pricing matrix has no rows")
	}
	return &m, nil
}

// RateFor resolves the fee for one membership type and discount bucket,
// applying the fallback chain: missing current-student/current-staff cells
// fall back to the alumni-within-12-months cell, anything else falls back to
// the base rate.
func (m *Matrix) RateFor(t models.MembershipType, bucket models.Bucket) float64 {
	row, ok := m.Rows[t]
	if !ok {
		return 0
	}
	if bucket == "" {
		return row.Base
	}

	if rate, ok := row.Rates[bucket]; ok {
		return rate
	}

	if bucket == models.BucketCurrentStudent || bucket == models.BucketCurrentStaff {
		if rate, ok := row.Rates[models.BucketAlumniWithin12M]; ok {
			return rate
		}
	}

	return row.Base
}

// BaseFor returns the undiscounted rate for a membership type.
func (m *Matrix) BaseFor(t models.MembershipType) float64 {
	return m.Rows[t].Base
}
