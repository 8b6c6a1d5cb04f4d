package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazypower/seedsoil/internal/store"
)

func seeded(id string, strength float64) store.Item {
	it := itemSeenAt(id, strength, epoch)
	it.Seed = &store.Seed{Essence: "essence " + id, Nuggets: []string{"n"}, Action: "act"}
	return it
}

func ids(items []store.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func TestSelectForReview_OrdersByStrength(t *testing.T) {
	a := seeded("A", 0.2)
	b := seeded("B", 0.9)
	c := itemSeenAt("C", 1.0, epoch) // no seed

	got := SelectForReview([]store.Item{a, b, c})
	assert.Equal(t, []string{"B", "A"}, ids(got))
}

func TestSelectForReview_TopThreeStableTies(t *testing.T) {
	items := []store.Item{
		seeded("w", 0.5),
		seeded("x", 0.7),
		seeded("y", 0.5),
		seeded("z", 0.5),
	}
	got := SelectForReview(items)
	assert.Equal(t, []string{"x", "w", "y"}, ids(got))
}

func TestSelectForReview_ExcludesBuried(t *testing.T) {
	buried := seeded("b", 1.0)
	buried.Soil.Status = store.StatusBuried

	got := SelectForReview([]store.Item{buried, seeded("a", 0.1)})
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestSelectForReview_Empty(t *testing.T) {
	got := SelectForReview(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSelectForReview_DoesNotAliasInput(t *testing.T) {
	items := []store.Item{seeded("a", 0.4)}
	got := SelectForReview(items)
	got[0].Seed.Essence = "changed"
	assert.Equal(t, "essence a", items[0].Seed.Essence)
}

func TestBuriedItems(t *testing.T) {
	b := seeded("b", 0.3)
	b.Soil.Status = store.StatusBuried
	got := BuriedItems([]store.Item{seeded("a", 1), b})
	assert.Equal(t, []string{"b"}, ids(got))
}
