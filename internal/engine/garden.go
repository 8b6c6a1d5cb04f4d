package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/lazypower/seedsoil/internal/store"
)

// Garden owns the in-memory collection and keeps it in step with the
// database. Every change is written to the database first, then applied in
// memory, then published. The lock is held only for local work.
type Garden struct {
	mu  sync.Mutex
	db  *store.DB
	col store.Collection
	hub *Hub
}

// NewGarden loads the collection from db.
func NewGarden(db *store.DB, hub *Hub) (*Garden, error) {
	col, err := db.LoadCollection()
	if err != nil {
		return nil, fmt.Errorf("load garden: %w", err)
	}
	return &Garden{db: db, col: col, hub: hub}, nil
}

func (g *Garden) publish(kind EventKind, id string, mutation bool) {
	if g.hub == nil {
		return
	}
	g.hub.Publish(Event{Kind: kind, ItemID: id, Mutation: mutation})
}

// Snapshot returns a deep copy of the collection.
func (g *Garden) Snapshot() store.Collection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.col.Clone()
}

// Get returns a copy of one item, or false if it does not exist.
func (g *Garden) Get(id string) (store.Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	it := g.col.Find(id)
	if it == nil {
		return store.Item{}, false
	}
	return it.Clone(), true
}

// Plant adds a captured item as the newest entry.
func (g *Garden) Plant(it store.Item) error {
	g.mu.Lock()
	if err := g.db.InsertItem(&it); err != nil {
		g.mu.Unlock()
		return err
	}
	g.col.Items = append([]store.Item{it.Clone()}, g.col.Items...)
	g.mu.Unlock()

	g.publish(EventCaptured, it.ID, true)
	return nil
}

// Mutate applies fn to a copy of the item and, if fn reports a change,
// persists it. Unknown ids are a no-op.
func (g *Garden) Mutate(id string, kind EventKind, fn func(*store.Item) bool) (bool, error) {
	g.mu.Lock()
	cur := g.col.Find(id)
	if cur == nil {
		g.mu.Unlock()
		return false, nil
	}
	next := cur.Clone()
	if !fn(&next) {
		g.mu.Unlock()
		return false, nil
	}
	if err := g.db.SaveItem(&next); err != nil {
		g.mu.Unlock()
		return false, err
	}
	next.IsProcessing = cur.IsProcessing
	*cur = next
	g.mu.Unlock()

	g.publish(kind, id, true)
	return true, nil
}

// SetProcessing flips the transient processing flag. It is not persisted.
func (g *Garden) SetProcessing(id string, on bool) bool {
	g.mu.Lock()
	it := g.col.Find(id)
	if it == nil {
		g.mu.Unlock()
		return false
	}
	it.IsProcessing = on
	g.mu.Unlock()

	g.publish(EventProcessing, id, false)
	return true
}

// SetSeed stores a distillation result on the item.
func (g *Garden) SetSeed(id string, seed *store.Seed) (bool, error) {
	return g.Mutate(id, EventDistilled, func(it *store.Item) bool {
		s := *seed
		s.Nuggets = append([]string(nil), seed.Nuggets...)
		it.Seed = &s
		return true
	})
}

// ReplaceGaps swaps the gaps list wholesale.
func (g *Garden) ReplaceGaps(gaps []string) error {
	gaps = append([]string(nil), gaps...)

	g.mu.Lock()
	if err := g.db.SetGaps(gaps); err != nil {
		g.mu.Unlock()
		return err
	}
	g.col.Gaps = gaps
	g.mu.Unlock()

	g.publish(EventGaps, "", true)
	return nil
}

// Decay applies decay at now and persists every changed item in one
// transaction. Returns how many items changed.
func (g *Garden) Decay(now time.Time) (int, error) {
	g.mu.Lock()
	decayed, changed := ApplyDecay(g.col.Items, now)
	if !changed {
		g.mu.Unlock()
		return 0, nil
	}

	var dirty []store.Item
	for i := range decayed {
		if decayed[i].Soil != g.col.Items[i].Soil {
			dirty = append(dirty, decayed[i])
		}
	}
	if err := g.db.SaveItems(dirty); err != nil {
		g.mu.Unlock()
		return 0, fmt.Errorf("save decay: %w", err)
	}
	g.col.Items = decayed
	g.mu.Unlock()

	g.publish(EventDecayed, "", true)
	return len(dirty), nil
}

// Replace overwrites the whole collection. mutation is false when the new
// state came from the remote document, so it is not pushed straight back.
func (g *Garden) Replace(c store.Collection, mutation bool) error {
	c = c.Clone()
	for i := range c.Items {
		c.Items[i].IsProcessing = false
	}

	g.mu.Lock()
	if err := g.db.ReplaceCollection(c); err != nil {
		g.mu.Unlock()
		return err
	}
	g.col = c
	g.mu.Unlock()

	g.publish(EventReplaced, "", mutation)
	return nil
}

// Clear deletes every item and the gaps list.
func (g *Garden) Clear() error {
	g.mu.Lock()
	if err := g.db.ClearAll(); err != nil {
		g.mu.Unlock()
		return err
	}
	g.col = store.Collection{}
	g.mu.Unlock()

	g.publish(EventCleared, "", true)
	return nil
}
