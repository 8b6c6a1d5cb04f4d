package store

// Status is the lifecycle state of an item's soil.
type Status string

const (
	StatusActive Status = "active"
	StatusBuried Status = "buried"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBuried
}

// Seed is the distilled summary of a captured fragment.
type Seed struct {
	Essence string   `json:"essence" yaml:"essence"`
	Nuggets []string `json:"nuggets" yaml:"nuggets"`
	Action  string   `json:"action" yaml:"action"`
}

// Soil is the scheduling metadata attached to an item.
// Timestamps are unix milliseconds.
type Soil struct {
	Strength   float64 `json:"strength" yaml:"strength"`
	LastSeen   int64   `json:"lastSeen" yaml:"lastSeen"`
	NextReview int64   `json:"nextReview" yaml:"nextReview"` // carried, never scheduled on
	Status     Status  `json:"status" yaml:"status"`
}

// Item is one captured knowledge fragment.
type Item struct {
	ID   string `json:"id" yaml:"id"`
	Raw  string `json:"raw" yaml:"raw"`
	Seed *Seed  `json:"seed" yaml:"seed"`
	Soil Soil   `json:"soil" yaml:"soil"`

	// IsProcessing is only true while the distillation queue holds the item.
	// It is never written to the database.
	IsProcessing bool `json:"isProcessing,omitempty" yaml:"-"`
}

// Distilled reports whether the item has a summary.
func (i *Item) Distilled() bool {
	return i.Seed != nil
}

// Active reports whether the item is in the active state.
func (i *Item) Active() bool {
	return i.Soil.Status == StatusActive
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	if i.Seed != nil {
		s := *i.Seed
		s.Nuggets = append([]string(nil), i.Seed.Nuggets...)
		i.Seed = &s
	}
	return i
}

// Collection is the full set of items plus the last synthesis result.
// Items are ordered newest capture first.
type Collection struct {
	Items []Item
	Gaps  []string
}

// Index returns the position of the item with the given id, or -1.
func (c *Collection) Index(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns a pointer into the collection for the given id, or nil.
func (c *Collection) Find(id string) *Item {
	if i := c.Index(id); i >= 0 {
		return &c.Items[i]
	}
	return nil
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{
		Items: make([]Item, len(c.Items)),
		Gaps:  append([]string(nil), c.Gaps...),
	}
	for i, it := range c.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// ClampStrength bounds s to [0, 1].
func ClampStrength(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
