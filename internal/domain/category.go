package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyRegistry indicates a category registry with no entries, which
// would silently classify every record as noise. Refusing to construct
// one keeps "misconfigured" distinguishable from "quiet week".
var ErrEmptyRegistry = errors.New("category registry is empty")

// Severity orders categories for ranking: high sorts first.
type Severity int

const (
	SeverityHigh Severity = iota
	SeverityMedium
	SeverityLow
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a severity label to its Severity value.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	v, err := ParseSeverity(label)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category is one canonical complaint category. Patterns are matched
// case-insensitively as substrings of the raw type label.
type Category struct {
	Label            string   `json:"label"`
	Patterns         []string `json:"patterns"`
	Severity         Severity `json:"severity"`
	Commercial       bool     `json:"commercial"`
	SignalLabel      string   `json:"signal_label"`
	HeadlineTemplate string   `json:"headline_template"`
}

// Registry is an ordered, read-only category lookup table. Order is
// priority order: the first matching category wins.
type Registry struct {
	categories []Category
}

// NewRegistry constructs a registry from an ordered category list.
func NewRegistry(categories []Category) (*Registry, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyRegistry
	}
	for i, c := range categories {
		if c.Label == "" {
			return nil, fmt.Errorf("category %d has no label", i)
		}
		if len(c.Patterns) == 0 {
			return nil, fmt.Errorf("category %q has no patterns", c.Label)
		}
	}
	return &Registry{categories: append([]Category(nil), categories...)}, nil
}

// Classify maps a raw complaint type label to the first matching
// category, or nil when the label belongs to no category. A nil result
// is expected out-of-domain filtering, not an error.
func (r *Registry) Classify(typeLabel string) *Category {
	needle := strings.ToLower(strings.TrimSpace(typeLabel))
	if needle == "" {
		return nil
	}
	for i := range r.categories {
		for _, pattern := range r.categories[i].Patterns {
			if strings.Contains(needle, strings.ToLower(pattern)) {
				return &r.categories[i]
			}
		}
	}
	return nil
}

// Lookup returns the category with the given label, or nil.
func (r *Registry) Lookup(label string) *Category {
	for i := range r.categories {
		if r.categories[i].Label == label {
			return &r.categories[i]
		}
	}
	return nil
}

// Len reports the number of registered categories.
func (r *Registry) Len() int { return len(r.categories) }

// LoadRegistryFile reads an ordered category list from a JSON file.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load category registry: %w", err)
	}
	var categories []Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("load category registry %s: %w", path, err)
	}
	return NewRegistry(categories)
}

// DefaultRegistry returns the compiled-in category set. Order matters:
// more specific patterns come before catch-alls so "Noise - Commercial"
// never falls through to the residential noise category.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry([]Category{
		{
			Label:            "noise-commercial",
			Patterns:         []string{"noise - commercial", "noise - bar", "noise - club"},
			Severity:         SeverityHigh,
			Commercial:       true,
			SignalLabel:      "nightlife noise",
			HeadlineTemplate: "{count} noise complaints pile up at {location}",
		},
		{
			Label:            "noise-construction",
			Patterns:         []string{"noise - construction", "after hours", "jackhammer"},
			Severity:         SeverityHigh,
			Commercial:       true,
			SignalLabel:      "construction noise",
			HeadlineTemplate: "{count} construction noise complaints at {location}",
		},
		{
			Label:            "noise-residential",
			Patterns:         []string{"noise - residential", "loud music", "banging"},
			Severity:         SeverityMedium,
			Commercial:       false,
			SignalLabel:      "residential noise",
			HeadlineTemplate: "{count} noise complaints on {location}",
		},
		{
			Label:            "noise-street",
			Patterns:         []string{"noise - street", "noise - vehicle", "car idling"},
			Severity:         SeverityMedium,
			Commercial:       false,
			SignalLabel:      "street noise",
			HeadlineTemplate: "{count} street noise complaints near {location}",
		},
		{
			Label:            "rodent",
			Patterns:         []string{"rodent", "rat sighting", "mouse sighting"},
			Severity:         SeverityHigh,
			Commercial:       false,
			SignalLabel:      "rodent activity",
			HeadlineTemplate: "{count} rodent reports around {location}",
		},
		{
			Label:            "illegal-parking",
			Patterns:         []string{"illegal parking", "blocked hydrant", "blocked driveway"},
			Severity:         SeverityLow,
			Commercial:       false,
			SignalLabel:      "parking problems",
			HeadlineTemplate: "{count} parking complaints on {location}",
		},
		{
			Label:            "dirty-conditions",
			Patterns:         []string{"dirty condition", "sanitation condition", "missed collection"},
			Severity:         SeverityLow,
			Commercial:       false,
			SignalLabel:      "sanitation issues",
			HeadlineTemplate: "{count} sanitation complaints on {location}",
		},
	})
	if err != nil {
		// Unreachable: the compiled-in set is never empty.
		panic(err)
	}
	return reg
}
