package engine

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lazypower/seedsoil/internal/store"
)

// ErrEmptySeed is returned when capture is given only whitespace.
var ErrEmptySeed = errors.New("nothing to plant: text is empty")

const (
	resurrectStrength = 0.5
	nextReviewDelay   = 24 * time.Hour
)

// newItemID returns a lexically time-ordered unique id.
func newItemID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// NewItem builds a freshly captured, undistilled item.
func NewItem(raw string, now time.Time) (store.Item, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return store.Item{}, ErrEmptySeed
	}
	ms := now.UnixMilli()
	return store.Item{
		ID:  newItemID(now),
		Raw: raw,
		Soil: store.Soil{
			Strength:   1.0,
			LastSeen:   ms,
			NextReview: ms + nextReviewDelay.Milliseconds(),
			Status:     store.StatusActive,
		},
	}, nil
}

// reviewItem applies a review outcome. Success resets strength to full;
// failure buries the item with its strength untouched. Buried items are
// left alone.
func reviewItem(it *store.Item, success bool, now time.Time) bool {
	if !it.Active() {
		return false
	}
	if !success {
		return buryItem(it)
	}
	it.Soil.Strength = 1.0
	it.Soil.LastSeen = now.UnixMilli()
	return true
}

// buryItem retires an active item. Already buried items are a no-op.
func buryItem(it *store.Item) bool {
	if !it.Active() {
		return false
	}
	it.Soil.Status = store.StatusBuried
	return true
}

// resurrectItem brings a buried item back at half strength.
func resurrectItem(it *store.Item, now time.Time) bool {
	if it.Soil.Status != store.StatusBuried {
		return false
	}
	it.Soil.Status = store.StatusActive
	it.Soil.Strength = resurrectStrength
	it.Soil.LastSeen = now.UnixMilli()
	return true
}
