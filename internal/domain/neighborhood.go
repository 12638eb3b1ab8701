package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyZipIndex indicates a zip index with no entries; every record
// would drop as unresolvable, indistinguishable from a quiet window.
var ErrEmptyZipIndex = errors.New("zip index is empty")

// Neighborhood identifies the area a zip code belongs to. Key is the
// human-readable name; ID is the stable identifier used for grouping.
type Neighborhood struct {
	Key string `json:"key"`
	ID  string `json:"id"`
}

// ZipIndex is a read-only zip code → neighborhood lookup table.
type ZipIndex struct {
	byZip map[string]Neighborhood
}

// NewZipIndex builds an index from a zip → neighborhood mapping.
func NewZipIndex(entries map[string]Neighborhood) (*ZipIndex, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyZipIndex
	}
	byZip := make(map[string]Neighborhood, len(entries))
	for zip, n := range entries {
		if n.ID == "" {
			return nil, fmt.Errorf("zip %q maps to a neighborhood with no id", zip)
		}
		byZip[normalizeZip(zip)] = n
	}
	return &ZipIndex{byZip: byZip}, nil
}

// Resolve looks up the neighborhood for a zip code. Unknown zips report
// ok=false and the record is dropped by the caller; noisy feeds carry
// out-of-area zips routinely.
func (z *ZipIndex) Resolve(zip string) (Neighborhood, bool) {
	n, ok := z.byZip[normalizeZip(zip)]
	return n, ok
}

// Len reports the number of indexed zip codes.
func (z *ZipIndex) Len() int { return len(z.byZip) }

func normalizeZip(zip string) string {
	return strings.ToLower(strings.TrimSpace(zip))
}

// LoadZipIndexFile reads a zip → neighborhood mapping from a JSON file.
func LoadZipIndexFile(path string) (*ZipIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load zip index: %w", err)
	}
	var entries map[string]Neighborhood
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("load zip index %s: %w", path, err)
	}
	return NewZipIndex(entries)
}

// DefaultZipIndex returns the compiled-in coverage area.
func DefaultZipIndex() *ZipIndex {
	idx, err := NewZipIndex(map[string]Neighborhood{
		"10012": {Key: "SoHo", ID: "soho"},
		"10013": {Key: "SoHo", ID: "soho"},
		"10014": {Key: "West Village", ID: "west-village"},
		"10003": {Key: "East Village", ID: "east-village"},
		"10009": {Key: "East Village", ID: "east-village"},
		"10002": {Key: "Lower East Side", ID: "lower-east-side"},
		"11211": {Key: "Williamsburg", ID: "williamsburg"},
		"11206": {Key: "Williamsburg", ID: "williamsburg"},
		"11215": {Key: "Park Slope", ID: "park-slope"},
		"11217": {Key: "Park Slope", ID: "park-slope"},
	})
	if err != nil {
		// Unreachable: the compiled-in index is never empty.
		panic(err)
	}
	return idx
}
