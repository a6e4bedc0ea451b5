// Package progress holds the rollup calculator shared by the
// server-authoritative path (Postgres trigger + transactional recompute) and
// the local single-document store. Keeping the formula in one place is what
// keeps the two implementations in lock-step.
package progress

// ComputeCompletion returns the integer completion percentage for a set of
// completed flags: floor(100 * completed / total), 0 for an empty set.
// All four item categories are pooled into one flat ratio.
func ComputeCompletion(flags []bool) int {
	total := len(flags)
	if total == 0 {
		return 0
	}
	completed := 0
	for _, f := range flags {
		if f {
			completed++
		}
	}
	return ComputeCompletionCounts(completed, total)
}

// ComputeCompletionCounts is the counted form used where the caller already
// has aggregates (the SQL trigger mirrors this exact expression).
func ComputeCompletionCounts(completedCount, totalCount int) int {
	if totalCount <= 0 {
		return 0
	}
	if completedCount < 0 {
		completedCount = 0
	}
	if completedCount > totalCount {
		completedCount = totalCount
	}
	return 100 * completedCount / totalCount
}
