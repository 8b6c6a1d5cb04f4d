package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrItemNotFound is returned by SaveItem when no row matches the id.
var ErrItemNotFound = errors.New("item not found")

type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `id, raw, seed, strength, last_seen, next_review, status`

func scanItem(row rowScanner) (Item, error) {
	var (
		it     Item
		seed   sql.NullString
		status string
	)
	if err := row.Scan(&it.ID, &it.Raw, &seed, &it.Soil.Strength, &it.Soil.LastSeen, &it.Soil.NextReview, &status); err != nil {
		return Item{}, err
	}
	it.Soil.Status = Status(status)
	if seed.Valid && seed.String != "" {
		var s Seed
		if err := json.Unmarshal([]byte(seed.String), &s); err != nil {
			return Item{}, fmt.Errorf("decode seed for %s: %w", it.ID, err)
		}
		it.Seed = &s
	}
	return it, nil
}

func encodeSeed(s *Seed) (any, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode seed: %w", err)
	}
	return string(data), nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertItem(x execer, it *Item) error {
	seed, err := encodeSeed(it.Seed)
	if err != nil {
		return err
	}
	_, err = x.Exec(`
		INSERT INTO items (id, raw, seed, strength, last_seen, next_review, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, it.ID, it.Raw, seed, ClampStrength(it.Soil.Strength), it.Soil.LastSeen, it.Soil.NextReview, string(it.Soil.Status))
	if err != nil {
		return fmt.Errorf("insert item %s: %w", it.ID, err)
	}
	return nil
}

// InsertItem stores a newly captured item. It becomes the newest item.
func (db *DB) InsertItem(it *Item) error {
	return insertItem(db, it)
}

func saveItem(x execer, it *Item) error {
	seed, err := encodeSeed(it.Seed)
	if err != nil {
		return err
	}
	result, err := x.Exec(`
		UPDATE items SET seed = ?, strength = ?, last_seen = ?, next_review = ?, status = ?
		WHERE id = ?
	`, seed, ClampStrength(it.Soil.Strength), it.Soil.LastSeen, it.Soil.NextReview, string(it.Soil.Status), it.ID)
	if err != nil {
		return fmt.Errorf("save item %s: %w", it.ID, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("save item %s: %w", it.ID, ErrItemNotFound)
	}
	return nil
}

// SaveItem writes the mutable fields of an existing item (seed and soil).
// Returns ErrItemNotFound if the item no longer exists.
func (db *DB) SaveItem(it *Item) error {
	return saveItem(db, it)
}

// SaveItems writes several items in one transaction. Either all are saved or none.
func (db *DB) SaveItems(items []Item) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin save items: %w", err)
	}
	defer tx.Rollback()

	for i := range items {
		if err := saveItem(tx, &items[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save items: %w", err)
	}
	return nil
}

// GetItem returns an item by id, or nil if it does not exist.
func (db *DB) GetItem(id string) (*Item, error) {
	it, err := scanItem(db.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

// ListItems returns all items, newest capture first.
func (db *DB) ListItems() ([]Item, error) {
	rows, err := db.Query(`SELECT ` + itemColumns + ` FROM items ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LoadCollection reads the whole collection: items and gaps.
func (db *DB) LoadCollection() (Collection, error) {
	items, err := db.ListItems()
	if err != nil {
		return Collection{}, err
	}
	gaps, err := db.GetGaps()
	if err != nil {
		return Collection{}, err
	}
	return Collection{Items: items, Gaps: gaps}, nil
}

// ReplaceCollection atomically replaces every item and the gaps list.
// Used when a remote snapshot or an imported document wins.
func (db *DB) ReplaceCollection(c Collection) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	// Insert oldest first so seq order matches newest-first reads.
	for i := len(c.Items) - 1; i >= 0; i-- {
		if err := insertItem(tx, &c.Items[i]); err != nil {
			return err
		}
	}
	if err := replaceGaps(tx, c.Gaps); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ClearAll deletes every item and the gaps list.
func (db *DB) ClearAll() error {
	return db.ReplaceCollection(Collection{})
}

// ItemCounts returns the number of items per status.
func (db *DB) ItemCounts() (map[Status]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusActive: 0, StatusBuried: 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}
