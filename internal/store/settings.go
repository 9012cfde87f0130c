package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BoardKey identifies a board's settings by host and board id.
func BoardKey(host, board string) string {
	return "settings-" + host + "-" + board
}

// SaveSettings inserts or replaces the settings of s.BoardKey.
func (db *DB) SaveSettings(s *BoardSettings) error {
	if s.BoardKey == "" {
		return errors.New("saving settings: empty board key")
	}
	stages, err := json.Marshal(nonNil(s.Stages))
	if err != nil {
		return fmt.Errorf("encoding stages: %w", err)
	}
	percentiles, err := json.Marshal(s.Percentiles)
	if err != nil {
		return fmt.Errorf("encoding percentiles: %w", err)
	}
	swimlanes, err := json.Marshal(nonNil(s.Swimlanes))
	if err != nil {
		return fmt.Errorf("encoding swimlanes: %w", err)
	}
	filters, err := json.Marshal(nonNil(s.QuickFilters))
	if err != nil {
		return fmt.Errorf("encoding quick filters: %w", err)
	}

	s.UpdatedAt = time.Now().UTC()
	_, err = db.conn.Exec(
		`INSERT INTO board_settings
		(board_key, stages, resolution, completion, percentiles, window_days, swimlanes, quick_filters, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_key) DO UPDATE SET
			stages = excluded.stages,
			resolution = excluded.resolution,
			completion = excluded.completion,
			percentiles = excluded.percentiles,
			window_days = excluded.window_days,
			swimlanes = excluded.swimlanes,
			quick_filters = excluded.quick_filters,
			updated_at = excluded.updated_at`,
		s.BoardKey, string(stages), s.Resolution, s.Completion, string(percentiles),
		s.WindowDays, string(swimlanes), string(filters), s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving settings for %s: %w", s.BoardKey, err)
	}
	return nil
}

// LoadSettings returns the saved settings of a board, or nil if none exist.
func (db *DB) LoadSettings(boardKey string) (*BoardSettings, error) {
	row := db.conn.QueryRow(
		`SELECT board_key, stages, resolution, completion, percentiles, window_days,
		 swimlanes, quick_filters, updated_at
		 FROM board_settings WHERE board_key = ?`,
		boardKey,
	)
	s, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("loading settings for %s: %w", boardKey, err)
	}
	return s, nil
}

// ListSettings returns every saved board's settings ordered by key.
func (db *DB) ListSettings() ([]BoardSettings, error) {
	rows, err := db.conn.Query(
		`SELECT board_key, stages, resolution, completion, percentiles, window_days,
		 swimlanes, quick_filters, updated_at
		 FROM board_settings ORDER BY board_key`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []BoardSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// DeleteSettings removes a board's settings. It reports whether a row existed.
func (db *DB) DeleteSettings(boardKey string) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM board_settings WHERE board_key = ?", boardKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanSettings(row scanner) (*BoardSettings, error) {
	var s BoardSettings
	var stages, percentiles, swimlanes, filters, updatedAt string
	err := row.Scan(&s.BoardKey, &stages, &s.Resolution, &s.Completion, &percentiles,
		&s.WindowDays, &swimlanes, &filters, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		raw  string
		into any
	}{
		{stages, &s.Stages},
		{percentiles, &s.Percentiles},
		{swimlanes, &s.Swimlanes},
		{filters, &s.QuickFilters},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.into); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", s.BoardKey, err)
		}
	}
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &s, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
