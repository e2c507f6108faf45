package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// SetParameter stores a game parameter, replacing any prior value.
func (t *Tx) SetParameter(key, value string) error {
	_, err := t.tx.Exec("INSERT OR REPLACE INTO game_parameters (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set parameter %s: %w", key, err)
	}
	return nil
}

// Parameter returns a stored game parameter. The bool reports presence.
func (t *Tx) Parameter(key string) (string, bool, error) {
	var value string
	err := t.tx.Get(&value, "SELECT value FROM game_parameters WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get parameter %s: %w", key, err)
	}
	return value, true, nil
}
