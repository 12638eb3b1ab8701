// Package domain models civic complaint records and the clustering rules
// that turn them into nuisance signals.
//
// # Data Source
//
// Complaint records originate from a municipal 311-style open-data feed,
// pre-filtered upstream to the zip codes and complaint types of interest.
// The collector publishes each record as flat JSON to the Kafka source
// topic; one message per record.
//
// # Classification
//
// Raw complaint type strings are mapped to canonical categories by an
// ordered pattern registry: the first category whose pattern set matches
// the type string (case-insensitive substring) wins. Records that match
// no category are out-of-domain noise and are dropped, not errored.
// Each category carries a severity (high, medium, low), a commercial
// flag, a signal label, and a headline template.
//
// # Address Anonymization
//
// Commercial venues are published at their exact address; residential
// addresses are rounded down to the hundred block:
//
//	"123 Bleecker Street" → "100 Block of Bleecker Street"
//	"45 Bleecker Street"  → "Bleecker Street"   (block 0 is suppressed)
//	"80 Wooster St" (commercial) → "80 Wooster St"
//
// When neither a house number nor a street name can be resolved, the
// cross-street description is used. A record whose address resolves to
// nothing is unlocatable and never enters a cluster.
//
// # Clustering
//
// Records sharing a category and location key are counted into a
// ComplaintCluster. Commercial keys derive from the exact address
// (per-venue clusters); residential keys derive from the anonymized
// block string, so complaints at 104, 117, and 150 on the same street
// aggregate into one block cluster.
//
// # Trend Classification
//
// Cluster counts are compared against an externally supplied baseline
// (historical average per cluster ID). A count of at least twice the
// baseline is a spike; anything above baseline is elevated. Clusters
// with no history are classified from absolute volume so a first-time
// hotspot is never silently filed as normal.
//
// # ID Generation
//
// Cluster IDs are deterministic SHA-256 hashes of category|locationKey,
// prefixed with the category label. The same block and category hash to
// the same ID on every run, which is what lets the baseline layer keyed
// by cluster ID carry history across otherwise stateless batch runs.
// See [ClusterID].
package domain
