package engine

import (
	"sort"

	"github.com/lazypower/seedsoil/internal/store"
)

// reviewLimit is how many seeds a review session presents.
const reviewLimit = 3

// SelectForReview returns up to three active, distilled items, strongest
// first. Ties keep collection order. The input is not modified.
func SelectForReview(items []store.Item) []store.Item {
	eligible := make([]store.Item, 0, len(items))
	for i := range items {
		if items[i].Active() && items[i].Distilled() {
			eligible = append(eligible, items[i].Clone())
		}
	}
	sort.SliceStable(eligible, func(a, b int) bool {
		return eligible[a].Soil.Strength > eligible[b].Soil.Strength
	})
	if len(eligible) > reviewLimit {
		eligible = eligible[:reviewLimit]
	}
	return eligible
}

// BuriedItems returns the buried items in collection order.
func BuriedItems(items []store.Item) []store.Item {
	var out []store.Item
	for i := range items {
		if items[i].Soil.Status == store.StatusBuried {
			out = append(out, items[i].Clone())
		}
	}
	return out
}
