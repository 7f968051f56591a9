package srv

import (
	"sort"
	"strings"
)

// IntN returns a uniformly distributed integer in [0, n). It abstracts the
// randomness source used for weighted selection so callers can inject a
// deterministic sequence in tests. RFC 2782 selection is a fairness
// mechanism, so the source does not need to be cryptographically strong,
// but it must be safe for concurrent use if the caller is.
type IntN func(n int) int

// Select orders SRV records for client failover per RFC 2782. Records are
// grouped by ascending priority; within a group every record is emitted
// exactly once by weighted random selection without replacement, so records
// with larger weight tend to come out earlier. All emissions from a
// lower-priority group precede any from a higher-priority one.
//
// The returned hosts carry the record targets with the trailing dot
// stripped. An empty input yields an empty result.
func Select(records []*Record, intn IntN) []HostPort {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]*Record, len(records))
	copy(sorted, records)
	// Zero-weight records sort before weighted ones within a priority, per
	// RFC 2782. Beyond that, equal-priority order is left to the draw below.
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Weight == 0 && b.Weight != 0
	})

	out := make([]HostPort, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Priority == sorted[start].Priority {
			end++
		}
		out = append(out, drainGroup(sorted[start:end], intn)...)
		start = end
	}
	return out
}

// drainGroup emits one priority group in weighted random order. The group is
// copied into an explicit remaining pool; each round recomputes cumulative
// weights over the pool, draws r in [0, totalWeight] inclusive (r = 0 when
// the total is zero) and removes the first record whose cumulative weight
// reaches r. An all-zero-weight group therefore drains in its sorted order.
func drainGroup(group []*Record, intn IntN) []HostPort {
	pool := make([]*Record, len(group))
	copy(pool, group)

	out := make([]HostPort, 0, len(pool))
	for len(pool) > 0 {
		total := 0
		for _, rec := range pool {
			total += rec.Weight
			rec.sum = total
		}

		r := 0
		if total > 0 {
			r = intn(total + 1)
		}

		for i, rec := range pool {
			if rec.sum >= r {
				out = append(out, HostPort{
					Host: strings.TrimSuffix(rec.Target, "."),
					Port: rec.Port,
				})
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}
	return out
}
