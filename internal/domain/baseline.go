package domain

import "context"

// BaselineProvider supplies historical average counts keyed by cluster
// ID. Implemented by the baseline history adapter; absence of history
// (nil provider, missing IDs) is a supported input, not a failure.
type BaselineProvider interface {
	// FetchBaselines returns historical counts for the given cluster IDs.
	// IDs with no history are simply absent from the result map.
	FetchBaselines(ctx context.Context, clusterIDs []string) (map[string]int, error)
}
