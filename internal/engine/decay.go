package engine

import (
	"time"

	"github.com/lazypower/seedsoil/internal/store"
)

// Linear decay: every full day without a review costs decayStep strength.
// An item charged any number of steps has its lastSeen reset to now, so one
// call applies at most one dose regardless of how long the item sat.
const (
	decayStep   = 0.1
	decayPeriod = 24 * time.Hour
)

// ApplyDecay returns a copy of items with decay applied to every active item,
// and whether anything changed. Items that reach zero strength are buried.
// Calling it again with the same now is a no-op.
func ApplyDecay(items []store.Item, now time.Time) ([]store.Item, bool) {
	nowMs := now.UnixMilli()
	period := decayPeriod.Milliseconds()

	out := make([]store.Item, len(items))
	changed := false
	for i := range items {
		it := items[i].Clone()
		out[i] = it
		if !it.Active() {
			continue
		}

		steps := (nowMs - it.Soil.LastSeen) / period
		if steps <= 0 {
			continue
		}

		it.Soil.Strength = store.ClampStrength(it.Soil.Strength - float64(steps)*decayStep)
		it.Soil.LastSeen = nowMs
		if it.Soil.Strength <= 0 {
			it.Soil.Strength = 0
			it.Soil.Status = store.StatusBuried
		}
		out[i] = it
		changed = true
	}
	return out, changed
}
