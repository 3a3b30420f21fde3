package tags

import "github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"

// SortByRequestOrder returns tags arranged in the order their ids appear in
// requestOrder. Ids with no matching tag and repeated ids are skipped.
func SortByRequestOrder(tags []domain.Tag, requestOrder []int64) []domain.Tag {
	byID := make(map[int64]domain.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	sorted := make([]domain.Tag, 0, len(tags))
	for _, id := range requestOrder {
		t, ok := byID[id]
		if !ok {
			continue
		}
		sorted = append(sorted, t)
		delete(byID, id)
	}
	return sorted
}
