package db

import "fmt"

// ProvisionEvent represents a row in the provision_events table.
type ProvisionEvent struct {
	ID        int
	RunID     string
	Event     string
	Stage     string
	Outcome   string
	Detail    string
	Timestamp string
}

// LogEvent inserts a provisioning event.
func (d *DB) LogEvent(runID string, event string, stage string, outcome string, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO provision_events (run_id, event, stage, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, event, stage, outcome, detail,
	)
	if err != nil {
		return fmt.Errorf("log provision event: %w", err)
	}
	return nil
}

// EventsForRun returns all events for a run in insertion order.
func (d *DB) EventsForRun(runID string) ([]ProvisionEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, COALESCE(stage, ''), COALESCE(outcome, ''), COALESCE(detail, ''), timestamp
		 FROM provision_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events for run: %w", err)
	}
	defer rows.Close()

	var events []ProvisionEvent
	for rows.Next() {
		var e ProvisionEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &e.Stage, &e.Outcome, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan provision event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentEvents returns the most recent events across all runs, newest first.
func (d *DB) RecentEvents(limit int) ([]ProvisionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, COALESCE(stage, ''), COALESCE(outcome, ''), COALESCE(detail, ''), timestamp
		 FROM provision_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []ProvisionEvent
	for rows.Next() {
		var e ProvisionEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &e.Stage, &e.Outcome, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan provision event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// FailureCounts returns, per stage, how many attempts ended in failure.
func (d *DB) FailureCounts() (map[string]int, error) {
	rows, err := d.conn.Query(
		`SELECT stage, COUNT(*) FROM provision_events
		 WHERE event = 'stage_finished' AND outcome = 'failure' AND stage IS NOT NULL
		 GROUP BY stage`,
	)
	if err != nil {
		return nil, fmt.Errorf("query failure counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scan failure count: %w", err)
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}
