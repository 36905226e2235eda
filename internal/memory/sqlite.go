package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists session snapshots in a sqlite database. Turns are
// stored one row each so a session can be restored in insertion order.
type SQLiteStore struct {
	db *sql.DB
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	id         TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	utterance  TEXT NOT NULL,
	category   TEXT NOT NULL,
	query      TEXT,
	result     TEXT,
	reply      TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns (session_id, seq);
`

// NewSQLiteStore opens (creating if needed) the snapshot database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save replaces any previous snapshot for the session with the given turns
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, turns []Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	for _, t := range turns {
		queryJSON, resultJSON, err := marshalArtifacts(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, id, timestamp, utterance, category, query, result, reply)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, t.Seq, t.ID, t.Timestamp.Format(time.RFC3339Nano), t.Utterance, string(t.Category),
			queryJSON, resultJSON, t.Reply,
		)
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", t.Seq, err)
		}
	}

	return tx.Commit()
}

// Load restores the session's turns in sequence order. A session with no
// snapshot yields an empty sequence.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, timestamp, utterance, category, query, result, reply
		 FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t          Turn
			ts         string
			category   string
			queryJSON  sql.NullString
			resultJSON sql.NullString
		)
		if err := rows.Scan(&t.Seq, &t.ID, &ts, &t.Utterance, &category, &queryJSON, &resultJSON, &t.Reply); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse turn timestamp: %w", err)
		}
		t.Category = Category(category)
		if err := unmarshalArtifacts(&t, queryJSON, resultJSON); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalArtifacts(t Turn) (query, result sql.NullString, err error) {
	if t.Query != nil {
		data, merr := json.Marshal(t.Query)
		if merr != nil {
			return query, result, fmt.Errorf("failed to marshal query for turn %d: %w", t.Seq, merr)
		}
		query = sql.NullString{String: string(data), Valid: true}
	}
	if t.Result != nil {
		data, merr := json.Marshal(t.Result)
		if merr != nil {
			return query, result, fmt.Errorf("failed to marshal result for turn %d: %w", t.Seq, merr)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}
	return query, result, nil
}

func unmarshalArtifacts(t *Turn, queryJSON, resultJSON sql.NullString) error {
	if queryJSON.Valid {
		if err := json.Unmarshal([]byte(queryJSON.String), &t.Query); err != nil {
			return fmt.Errorf("failed to unmarshal query for turn %d: %w", t.Seq, err)
		}
	}
	if resultJSON.Valid {
		if err := json.Unmarshal([]byte(resultJSON.String), &t.Result); err != nil {
			return fmt.Errorf("failed to unmarshal result for turn %d: %w", t.Seq, err)
		}
	}
	return nil
}
