package domain

import "sort"

// Rank orders clusters for publication: severity first (high before
// medium before low), then count descending, then cluster ID lexically.
// The ID tie-break keeps output order independent of map iteration.
func Rank(clusters []*ComplaintCluster) []*ComplaintCluster {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ID < b.ID
	})
	return clusters
}

// Partition is the output shape decision: clusters that stand alone in
// their neighborhood versus neighborhoods busy enough to warrant one
// consolidated roundup.
type Partition struct {
	Individual []*ComplaintCluster            `json:"individual"`
	Roundups   map[string][]*ComplaintCluster `json:"roundups"`
}

// DecideRoundups groups clusters by neighborhood: any neighborhood with
// two or more qualifying clusters is routed to a roundup; a lone
// cluster gets individual treatment. Pure partitioning; input order is
// preserved within each bucket.
func DecideRoundups(clusters []*ComplaintCluster) Partition {
	byNeighborhood := make(map[string][]*ComplaintCluster)
	order := make([]string, 0)
	for _, c := range clusters {
		if _, seen := byNeighborhood[c.NeighborhoodID]; !seen {
			order = append(order, c.NeighborhoodID)
		}
		byNeighborhood[c.NeighborhoodID] = append(byNeighborhood[c.NeighborhoodID], c)
	}

	p := Partition{
		Individual: make([]*ComplaintCluster, 0),
		Roundups:   make(map[string][]*ComplaintCluster),
	}
	for _, id := range order {
		group := byNeighborhood[id]
		if len(group) >= 2 {
			p.Roundups[id] = group
			continue
		}
		p.Individual = append(p.Individual, group[0])
	}
	return p
}
