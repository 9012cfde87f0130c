package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

const snapshotColumns = "id, taken_at, board_key, source, window_from, window_to, version"

// CreateSnapshot inserts a new snapshot and returns its ID. TakenAt and ID
// of s are ignored.
func (db *DB) CreateSnapshot(s Snapshot) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO snapshots (taken_at, board_key, source, window_from, window_to, version)
		VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), s.BoardKey, s.Source, s.WindowFrom, s.WindowTo, s.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}
	return result.LastInsertId()
}

// GetSnapshot returns a snapshot by ID, or nil if it does not exist.
func (db *DB) GetSnapshot(id int64) (*Snapshot, error) {
	row := db.conn.QueryRow("SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	return scanSnapshot(row)
}

// GetSnapshotN returns the Nth most recent snapshot of a board
// (1 = latest, 2 = previous, etc.), or nil if there are fewer.
func (db *DB) GetSnapshotN(boardKey string, n int) (*Snapshot, error) {
	if n < 1 {
		return nil, nil
	}
	row := db.conn.QueryRow(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE board_key = ? ORDER BY id DESC LIMIT 1 OFFSET ?",
		boardKey, n-1,
	)
	return scanSnapshot(row)
}

// GetRecentSnapshots returns up to n snapshots of a board, newest first.
func (db *DB) GetRecentSnapshots(boardKey string, n int) ([]Snapshot, error) {
	rows, err := db.conn.Query(
		"SELECT "+snapshotColumns+" FROM snapshots WHERE board_key = ? ORDER BY id DESC LIMIT ?",
		boardKey, n,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var s Snapshot
	var takenAt string
	err := row.Scan(&s.ID, &takenAt, &s.BoardKey, &s.Source, &s.WindowFrom, &s.WindowTo, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
	return &s, nil
}

// InsertAggregateMetric inserts an aggregate metric for a snapshot.
func (db *DB) InsertAggregateMetric(snapshotID int64, name string, value float64, detail string) error {
	_, err := db.conn.Exec(
		"INSERT INTO aggregate_metrics (snapshot_id, metric_name, metric_value, detail) VALUES (?, ?, ?, ?)",
		snapshotID, name, value, detail,
	)
	return err
}

// InsertAggregateMetrics stores a set of metrics for a snapshot in one
// transaction, in name order.
func (db *DB) InsertAggregateMetrics(snapshotID int64, metrics map[string]float64) error {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range names {
		if _, err := tx.Exec(
			"INSERT INTO aggregate_metrics (snapshot_id, metric_name, metric_value) VALUES (?, ?, ?)",
			snapshotID, name, metrics[name],
		); err != nil {
			return fmt.Errorf("inserting metric %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// GetAggregateMetrics returns all aggregate metrics for a snapshot.
func (db *DB) GetAggregateMetrics(snapshotID int64) ([]AggregateMetric, error) {
	rows, err := db.conn.Query(
		"SELECT id, snapshot_id, metric_name, metric_value, detail FROM aggregate_metrics WHERE snapshot_id = ? ORDER BY id",
		snapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []AggregateMetric
	for rows.Next() {
		var m AggregateMetric
		var detail sql.NullString
		if err := rows.Scan(&m.ID, &m.SnapshotID, &m.MetricName, &m.MetricValue, &detail); err != nil {
			return nil, err
		}
		m.Detail = detail.String
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ComputeDeltas compares two sets of aggregate metrics. higherIsBetter
// decides the direction of a change; metrics missing from prev compare
// against zero.
func ComputeDeltas(prev, curr []AggregateMetric, higherIsBetter func(name string) bool) []MetricDelta {
	prevMap := make(map[string]float64, len(prev))
	for _, m := range prev {
		prevMap[m.MetricName] = m.MetricValue
	}

	deltas := make([]MetricDelta, 0, len(curr))
	for _, m := range curr {
		prevVal := prevMap[m.MetricName]
		delta := m.MetricValue - prevVal

		direction := "unchanged"
		if delta != 0 {
			up := delta > 0
			if up == higherIsBetter(m.MetricName) {
				direction = "improved"
			} else {
				direction = "regressed"
			}
		}

		deltas = append(deltas, MetricDelta{
			Name:      m.MetricName,
			Previous:  prevVal,
			Current:   m.MetricValue,
			Delta:     delta,
			Direction: direction,
		})
	}
	return deltas
}
