package domain

import "math"

const (
	// DefaultSignificanceThreshold is the minimum count a cluster needs
	// to be worth reporting. Below it, a handful of complaints is normal
	// city background noise.
	DefaultSignificanceThreshold = 5

	// SpikeMultiplier: a count at least this many times the baseline is
	// a spike rather than merely elevated.
	SpikeMultiplier = 2
)

// FilterSignificant drops clusters below the significance threshold.
// Runs strictly after aggregation so every count reflects the complete
// record set before any threshold decision. A threshold ≤ 0 falls back
// to the default.
func FilterSignificant(clusters []*ComplaintCluster, threshold int) []*ComplaintCluster {
	if threshold <= 0 {
		threshold = DefaultSignificanceThreshold
	}
	kept := make([]*ComplaintCluster, 0, len(clusters))
	for _, c := range clusters {
		if c.Count >= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}

// ClassifyTrends annotates each cluster with its trend relative to the
// baseline map (cluster ID → historical average count). Clusters absent
// from the baseline are classified from absolute volume against the
// significance threshold: a first-time high-volume cluster is exactly
// what the system exists to surface, so lack of history never demotes
// one to normal. Mutates and returns the same slice.
func ClassifyTrends(clusters []*ComplaintCluster, baseline map[string]int, threshold int) []*ComplaintCluster {
	if threshold <= 0 {
		threshold = DefaultSignificanceThreshold
	}
	for _, c := range clusters {
		base, ok := baseline[c.ID]
		if !ok || base <= 0 {
			if c.Count >= threshold*SpikeMultiplier {
				c.Trend = TrendSpike
			} else {
				c.Trend = TrendElevated
			}
			continue
		}

		baseCopy := base
		c.BaselineCount = &baseCopy
		change := int(math.Round(float64(c.Count-base) / float64(base) * 100))
		c.PercentChange = &change

		switch {
		case c.Count >= base*SpikeMultiplier:
			c.Trend = TrendSpike
		case c.Count > base:
			c.Trend = TrendElevated
		default:
			c.Trend = TrendNormal
		}
	}
	return clusters
}
