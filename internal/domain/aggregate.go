package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Stats counts what happened to every scanned record. Filtering is
// reported here, never as an error.
type Stats struct {
	Scanned      int `json:"scanned"`
	Clustered    int `json:"clustered"`
	Unclassified int `json:"unclassified"`
	UnknownZip   int `json:"unknown_zip"`
	Unlocatable  int `json:"unlocatable"`
}

// Dropped reports the total number of filtered-out records.
func (s Stats) Dropped() int {
	return s.Unclassified + s.UnknownZip + s.Unlocatable
}

// Aggregate classifies, resolves, and anonymizes each record, then
// groups survivors into clusters in one linear pass. Cluster membership
// is purely a function of classification and anonymization; timing
// relationships belong to trend classification, not here.
//
// Clusters come back in first-seen order, unranked and unfiltered, each
// holding its full member list. Structural record defects abort the
// batch with a StructuralError.
func Aggregate(records []RawComplaintRecord, registry *Registry, zips *ZipIndex) ([]*ComplaintCluster, Stats, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, Stats{}, ErrEmptyRegistry
	}
	if zips == nil || zips.Len() == 0 {
		return nil, Stats{}, ErrEmptyZipIndex
	}

	var stats Stats
	byKey := make(map[string]*ComplaintCluster)
	clusters := make([]*ComplaintCluster, 0)

	for _, rec := range records {
		stats.Scanned++
		if err := rec.Validate(); err != nil {
			return nil, Stats{}, err
		}

		category := registry.Classify(rec.TypeLabel)
		if category == nil {
			stats.Unclassified++
			continue
		}

		neighborhood, ok := zips.Resolve(rec.ZipCode)
		if !ok {
			stats.UnknownZip++
			continue
		}

		display := Anonymize(rec.Address, rec.Street, CrossStreets(rec.CrossStreet1, rec.CrossStreet2), category.Commercial)
		if display == "" {
			stats.Unlocatable++
			continue
		}

		// Commercial clusters key on the exact venue address; residential
		// clusters key on the anonymized block string, so complaints at
		// different house numbers on the same block count together.
		locationKey := display
		if category.Commercial {
			locationKey = rec.Address
		}
		id := ClusterID(category.Label, locationKey)

		cluster, seen := byKey[id]
		if !seen {
			cluster = &ComplaintCluster{
				ID:               id,
				DisplayLocation:  display,
				Street:           resolveStreet(rec),
				NeighborhoodKey:  neighborhood.Key,
				NeighborhoodID:   neighborhood.ID,
				Category:         category.Label,
				SignalLabel:      category.SignalLabel,
				Severity:         category.Severity,
				Commercial:       category.Commercial,
				Trend:            TrendNormal,
				headlineTemplate: category.HeadlineTemplate,
			}
			byKey[id] = cluster
			clusters = append(clusters, cluster)
		}
		cluster.Members = append(cluster.Members, rec)
		cluster.Count = len(cluster.Members)
		stats.Clustered++
	}

	return clusters, stats, nil
}

// ClusterID produces a deterministic cluster identifier from the
// category label and normalized location key. Stable IDs are what let
// the external baseline layer match a cluster to its history across
// otherwise stateless runs.
func ClusterID(categoryLabel, locationKey string) string {
	input := categoryLabel + "|" + normalizeLocationKey(locationKey)
	hash := sha256.Sum256([]byte(input))
	return categoryLabel + "-" + hex.EncodeToString(hash[:8])
}

// normalizeLocationKey collapses case and interior whitespace so
// "80  Wooster St" and "80 wooster st" key the same venue.
func normalizeLocationKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func resolveStreet(rec RawComplaintRecord) string {
	if rec.Street != "" {
		return titleCase(rec.Street)
	}
	derived := strings.TrimSpace(houseNumberRe.ReplaceAllString(rec.Address, ""))
	if derived == "" {
		return ""
	}
	return titleCase(derived)
}
