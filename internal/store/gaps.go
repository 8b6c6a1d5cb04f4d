package store

import (
	"fmt"
)

func replaceGaps(x execer, gaps []string) error {
	if _, err := x.Exec(`DELETE FROM gaps`); err != nil {
		return fmt.Errorf("clear gaps: %w", err)
	}
	for i, g := range gaps {
		if _, err := x.Exec(`INSERT INTO gaps (position, text) VALUES (?, ?)`, i, g); err != nil {
			return fmt.Errorf("insert gap %d: %w", i, err)
		}
	}
	return nil
}

// SetGaps replaces the gaps list wholesale.
func (db *DB) SetGaps(gaps []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin set gaps: %w", err)
	}
	defer tx.Rollback()

	if err := replaceGaps(tx, gaps); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gaps: %w", err)
	}
	return nil
}

// GetGaps returns the stored gaps in order.
func (db *DB) GetGaps() ([]string, error) {
	rows, err := db.Query(`SELECT text FROM gaps ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("get gaps: %w", err)
	}
	defer rows.Close()

	var gaps []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan gap: %w", err)
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}
