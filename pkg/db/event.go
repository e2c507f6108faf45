package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// InsertEvent records a new world event.
func (t *Tx) InsertEvent(e Event) error {
	_, err := t.tx.Exec(`
		INSERT INTO events (event_type, start_time, end_time, description, energy_multiplier, zkaspa_multiplier)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventType, e.StartTime, e.EndTime, e.Description, e.EnergyMultiplier, e.ZkaspaMultiplier)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.EventType, err)
	}
	return nil
}

// ActiveEvent returns the event covering the given instant, or nil.
func (t *Tx) ActiveEvent(now int64) (*Event, error) {
	var e Event
	err := t.tx.Get(&e, `
		SELECT * FROM events
		WHERE start_time <= ? AND end_time >= ?
		ORDER BY id DESC LIMIT 1`, now, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active event: %w", err)
	}
	return &e, nil
}

// HasEventEndingAfter reports whether an event is still running or scheduled.
func (t *Tx) HasEventEndingAfter(now int64) (bool, error) {
	var n int
	if err := t.tx.Get(&n, "SELECT COUNT(*) FROM events WHERE end_time >= ?", now); err != nil {
		return false, fmt.Errorf("count future events: %w", err)
	}
	return n > 0, nil
}

// CurrentEvents lists events covering the given instant, newest first.
func (t *Tx) CurrentEvents(now int64) ([]Event, error) {
	var rows []Event
	err := t.tx.Select(&rows, `
		SELECT * FROM events
		WHERE start_time <= ? AND end_time >= ?
		ORDER BY id DESC`, now, now)
	if err != nil {
		return nil, fmt.Errorf("current events: %w", err)
	}
	return rows, nil
}
