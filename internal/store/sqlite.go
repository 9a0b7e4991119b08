package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/sweeney/vitals-monitor/internal/logic"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	position    INTEGER PRIMARY KEY,
	username    TEXT NOT NULL UNIQUE,
	password    TEXT NOT NULL,
	is_admin    INTEGER NOT NULL DEFAULT 0,
	bed_hour    INTEGER,
	bed_minute  INTEGER,
	wake_hour   INTEGER,
	wake_minute INTEGER
);
CREATE TABLE IF NOT EXISTS records (
	account_position INTEGER NOT NULL,
	seq              INTEGER NOT NULL,
	timestamp        INTEGER NOT NULL,
	pulse            INTEGER NOT NULL,
	spo2             INTEGER NOT NULL,
	PRIMARY KEY (account_position, seq)
);`

// SQLite stores accounts in an SQLite database. Each Save rewrites both
// tables in one transaction, which is cheap at ten accounts.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite database ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads accounts in position order with their records oldest first.
func (s *SQLite) Load() ([]Account, error) {
	rows, err := s.db.Query(`SELECT position, username, password, is_admin,
		bed_hour, bed_minute, wake_hour, wake_minute
		FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	byPosition := make(map[int64]int)
	for rows.Next() {
		var (
			pos                      int64
			a                        Account
			bedH, bedM, wakeH, wakeM sql.NullInt64
		)
		if err := rows.Scan(&pos, &a.Username, &a.Password, &a.IsAdmin, &bedH, &bedM, &wakeH, &wakeM); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Bedtime = nullTime(bedH, bedM)
		a.Wakeup = nullTime(wakeH, wakeM)
		byPosition[pos] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	recs, err := s.db.Query(`SELECT account_position, timestamp, pulse, spo2
		FROM records ORDER BY account_position, seq`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer recs.Close()
	for recs.Next() {
		var (
			pos int64
			r   PulseRecord
		)
		if err := recs.Scan(&pos, &r.Timestamp, &r.PulseBPM, &r.SpO2); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		i, ok := byPosition[pos]
		if !ok {
			continue
		}
		accounts[i].Records = append(accounts[i].Records, r)
	}
	if err := recs.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return accounts, nil
}

// Save replaces the stored accounts.
func (s *SQLite) Save(accounts []Account) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if _, err = tx.Exec(`DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}

	for pos, a := range accounts {
		bedH, bedM := timeArgs(a.Bedtime)
		wakeH, wakeM := timeArgs(a.Wakeup)
		if _, err = tx.Exec(`INSERT INTO accounts
			(position, username, password, is_admin, bed_hour, bed_minute, wake_hour, wake_minute)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			pos, a.Username, a.Password, a.IsAdmin, bedH, bedM, wakeH, wakeM); err != nil {
			return fmt.Errorf("insert account %q: %w", a.Username, err)
		}
		for seq, r := range a.Records {
			if _, err = tx.Exec(`INSERT INTO records
				(account_position, seq, timestamp, pulse, spo2) VALUES (?, ?, ?, ?, ?)`,
				pos, seq, r.Timestamp, r.PulseBPM, r.SpO2); err != nil {
				return fmt.Errorf("insert record for %q: %w", a.Username, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullTime(h, m sql.NullInt64) *logic.TimeOfDay {
	if !h.Valid || !m.Valid {
		return nil
	}
	t := logic.TimeOfDay{Hour: int(h.Int64), Minute: int(m.Int64)}
	if !t.Valid() {
		return nil
	}
	return &t
}

func timeArgs(t *logic.TimeOfDay) (any, any) {
	if t == nil {
		return nil, nil
	}
	return t.Hour, t.Minute
}
