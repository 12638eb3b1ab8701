package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Trend labels a cluster's volume relative to its baseline. Values are
// totally ordered by signal strength: spike > elevated > normal.
type Trend int

const (
	TrendNormal Trend = iota
	TrendElevated
	TrendSpike
)

func (t Trend) String() string {
	switch t {
	case TrendSpike:
		return "spike"
	case TrendElevated:
		return "elevated"
	default:
		return "normal"
	}
}

func (t Trend) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Trend) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	switch label {
	case "spike":
		*t = TrendSpike
	case "elevated":
		*t = TrendElevated
	case "normal":
		*t = TrendNormal
	default:
		return fmt.Errorf("unknown trend %q", label)
	}
	return nil
}

// ComplaintCluster groups records sharing a category and location key.
// Created by Aggregate, annotated by ClassifyTrends, immutable after.
type ComplaintCluster struct {
	ID              string               `json:"id"`
	DisplayLocation string               `json:"display_location"`
	Street          string               `json:"street,omitempty"`
	NeighborhoodKey string               `json:"neighborhood_key"`
	NeighborhoodID  string               `json:"neighborhood_id"`
	Category        string               `json:"category"`
	SignalLabel     string               `json:"signal_label"`
	Severity        Severity             `json:"severity"`
	Count           int                  `json:"count"`
	Members         []RawComplaintRecord `json:"members"`
	Commercial      bool                 `json:"commercial"`
	Trend           Trend                `json:"trend"`
	BaselineCount   *int                 `json:"baseline_count,omitempty"`
	PercentChange   *int                 `json:"percent_change,omitempty"`
	Headline        string               `json:"headline,omitempty"`

	// headlineTemplate is carried from the classifying category so the
	// headline can be rendered once the final count is known.
	headlineTemplate string
}

// RenderHeadline expands the category's headline template with the
// cluster's final count and display location.
func (c *ComplaintCluster) RenderHeadline() string {
	h := strings.ReplaceAll(c.headlineTemplate, "{count}", strconv.Itoa(c.Count))
	return strings.ReplaceAll(h, "{location}", c.DisplayLocation)
}
