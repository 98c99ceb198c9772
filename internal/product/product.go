// Package product defines the record that is encrypted into an item payload.
package product

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
)

// DateLayout is the accepted layout for ManufactureDate.
const DateLayout = "2006-01-02"

// Record describes a manufactured item.
type Record struct {
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	Batch           string `json:"batch"`
	ManufactureDate string `json:"manufacture_date"`
	Quantity        int    `json:"quantity"`
	Destination     string `json:"destination"`
}

// Validate reports missing or malformed fields, wrapping ErrValidation.
func (r Record) Validate() error {
	var problems []string
	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(r.SKU) == "" {
		problems = append(problems, "sku is required")
	}
	if r.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	}
	if r.ManufactureDate != "" {
		if _, err := time.Parse(DateLayout, r.ManufactureDate); err != nil {
			problems = append(problems, fmt.Sprintf("manufacture date %q is not YYYY-MM-DD", r.ManufactureDate))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", kerrors.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Serialize returns the JSON encoding of r with fields in declaration order.
func (r Record) Serialize() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize product record: %w", err)
	}
	return data, nil
}

// Parse decodes a serialized record.
func Parse(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: product record: %v", kerrors.ErrDecryptionFailed, err)
	}
	return r, nil
}

// DetailsHash returns the lowercase hex SHA-256 of a serialized record.
func DetailsHash(serialized []byte) string {
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
