// Command replay runs the clustering engine once over a JSON fixture of
// raw complaint records, printing the ranked clusters and roundup
// partition. It exists for debugging classification rules and for
// regenerating expected outputs when registries change.
//
// Usage:
//
//	go run ./cmd/replay \
//	  -records data/complaints_week32.json \
//	  -baseline data/baselines_week32.json \
//	  -threshold 5 \
//	  -at 2026-08-29T06:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/engine"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	recordsPath := flag.String("records", "", "path to JSON array of raw complaint records (feed format)")
	baselinePath := flag.String("baseline", "", "optional path to JSON baseline map (cluster id -> count)")
	threshold := flag.Int("threshold", domain.DefaultSignificanceThreshold, "minimum cluster count to report")
	at := flag.String("at", "", "optional RFC3339 time to freeze the batch timestamp at, for reproducible output")
	flag.Parse()

	if *recordsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -records")
	}

	if *at != "" {
		frozen, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(frozen))
		defer domain.SetClock(nil)
	}

	data, err := os.ReadFile(*recordsPath)
	if err != nil {
		return err
	}
	records, err := domain.DecodeRecords(data)
	if err != nil {
		return err
	}

	var baselines domain.BaselineProvider
	if *baselinePath != "" {
		counts, err := loadBaseline(*baselinePath)
		if err != nil {
			return err
		}
		baselines = mapProvider(counts)
	}

	res, err := engine.Run(context.Background(), records, engine.Options{
		Registry:  domain.DefaultRegistry(),
		ZipIndex:  domain.DefaultZipIndex(),
		Threshold: *threshold,
		Baselines: baselines,
	})
	if err != nil {
		return err
	}

	log.Printf("scanned %d, clustered %d, dropped %d (unclassified %d, unknown zip %d, unlocatable %d)",
		res.Stats.Scanned, res.Stats.Clustered, res.Stats.Dropped(),
		res.Stats.Unclassified, res.Stats.UnknownZip, res.Stats.Unlocatable)
	log.Printf("%d significant clusters, %d roundup neighborhoods",
		len(res.Clusters), len(res.Partition.Roundups))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func loadBaseline(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", path, err)
	}
	return counts, nil
}

// mapProvider serves a fixed baseline map as a BaselineProvider.
type mapProvider map[string]int

func (m mapProvider) FetchBaselines(_ context.Context, clusterIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(clusterIDs))
	for _, id := range clusterIDs {
		if count, ok := m[id]; ok {
			result[id] = count
		}
	}
	return result, nil
}
