package embedding

import "sort"

// IndexItem pairs a row ID with its vector.
type IndexItem struct {
	ID     int
	Vector []float32
}

// Neighbor is one search hit. Distance is cosine distance; similarity
// is 1 - Distance.
type Neighbor struct {
	ID       int
	Distance float32
}

// SearchTopK returns the k items nearest to query by cosine distance,
// closest first. The index is built fresh from items on every call;
// result sets are small and jobs are rare enough that an incremental
// index is not worth its bookkeeping. Items whose dimension does not
// match the query are skipped. Ties keep input order.
func SearchTopK(query []float32, items []IndexItem, k int) []Neighbor {
	if len(items) == 0 || k <= 0 {
		return nil
	}

	neighbors := make([]Neighbor, 0, len(items))
	for _, item := range items {
		if len(item.Vector) != len(query) {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:       item.ID,
			Distance: CosineDistance(query, item.Vector),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
