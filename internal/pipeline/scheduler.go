package pipeline

import "github.com/mealcraft/discovery-api/internal/models"

// buildBatches arranges candidates into batches of at most batchSize,
// interleaving domains round-robin so no single domain front-loads a batch.
// Each round takes up to two URLs per domain, one per pass, walking the
// domains in scheduling order (priority sites first). A batch closes when it
// reaches batchSize or when a whole round adds nothing.
func buildBatches(candidates []models.URLCandidate, batchSize int) [][]models.URLCandidate {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	buckets, order := domainBuckets(candidates)

	next := make(map[string]int, len(order))
	remaining := len(candidates)

	var batches [][]models.URLCandidate
	for remaining > 0 {
		batch := make([]models.URLCandidate, 0, batchSize)
		for len(batch) < batchSize {
			took := 0
			taken := make(map[string]int, len(order))
			for pass := 0; pass < 2 && len(batch) < batchSize; pass++ {
				for _, domain := range order {
					if len(batch) >= batchSize {
						break
					}
					if next[domain] >= len(buckets[domain]) || taken[domain] >= 2 {
						continue
					}
					batch = append(batch, buckets[domain][next[domain]])
					next[domain]++
					taken[domain]++
					took++
					remaining--
				}
			}
			if took == 0 {
				break
			}
		}
		if len(batch) == 0 {
			break
		}
		batches = append(batches, batch)
	}
	return batches
}
