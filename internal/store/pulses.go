package store

import (
	"database/sql"
	"fmt"
)

// PulseRun is one recorded run of the distillation queue.
type PulseRun struct {
	ID          int64
	StartedAt   int64
	FinishedAt  int64
	Queued      int
	Distilled   int
	Failed      int
	Synthesized bool
	Note        string
}

// RecordPulse stores a finished pulse run.
func (db *DB) RecordPulse(p *PulseRun) error {
	synth := 0
	if p.Synthesized {
		synth = 1
	}
	result, err := db.Exec(`
		INSERT INTO pulses (started_at, finished_at, queued, distilled, failed, synthesized, note)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''))
	`, p.StartedAt, p.FinishedAt, p.Queued, p.Distilled, p.Failed, synth, p.Note)
	if err != nil {
		return fmt.Errorf("record pulse: %w", err)
	}
	p.ID, _ = result.LastInsertId()
	return nil
}

// RecentPulses returns the most recent pulse runs, newest first.
func (db *DB) RecentPulses(limit int) ([]PulseRun, error) {
	rows, err := db.Query(`
		SELECT id, started_at, finished_at, queued, distilled, failed, synthesized, note
		FROM pulses ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent pulses: %w", err)
	}
	defer rows.Close()

	var runs []PulseRun
	for rows.Next() {
		var p PulseRun
		var synth int
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.StartedAt, &p.FinishedAt, &p.Queued, &p.Distilled, &p.Failed, &synth, &note); err != nil {
			return nil, fmt.Errorf("scan pulse: %w", err)
		}
		p.Synthesized = synth == 1
		p.Note = note.String
		runs = append(runs, p)
	}
	return runs, rows.Err()
}
