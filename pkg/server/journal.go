package server

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crystal-mush/goclans/pkg/clan"
)

var journalSchema = []string{
	`CREATE TABLE IF NOT EXISTS clan_journal (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		at     INTEGER NOT NULL,
		actor  TEXT NOT NULL,
		clan   TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS clan_journal_clan ON clan_journal(clan COLLATE NOCASE, id)`,
}

// ClanJournal is an append-only SQLite log of clan governance actions.
type ClanJournal struct {
	db      *sql.DB
	mu      sync.Mutex
	path    string
	timeout time.Duration
}

// OpenClanJournal opens a SQLite3 database, sets WAL mode and busy timeout,
// and creates the journal table if needed.
func OpenClanJournal(path string, timeoutSec int) (*ClanJournal, error) {
	if timeoutSec <= 0 {
		timeoutSec = 5
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// Set WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	// Set busy timeout (milliseconds)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutSec*1000)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	for _, stmt := range journalSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating journal table: %w", err)
		}
	}
	return &ClanJournal{
		db:      db,
		path:    path,
		timeout: time.Duration(timeoutSec) * time.Second,
	}, nil
}

// Close closes the SQLite3 database connection.
func (j *ClanJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the SQLite database.
func (j *ClanJournal) Path() string { return j.path }

// Record implements clan.Journal. A rename moves the clan's earlier
// entries to the new name in the same transaction.
func (j *ClanJournal) Record(e clan.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	if e.From != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE clan_journal SET clan = ? WHERE clan = ? COLLATE NOCASE`,
			e.Clan, e.From); err != nil {
			return fmt.Errorf("journal: carry history from %s: %w", e.From, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO clan_journal (at, actor, clan, action, detail) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.Actor, e.Clan, e.Action, e.Detail); err != nil {
		return fmt.Errorf("journal: record %s: %w", e.Action, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for clanName, newest first.
// An empty clanName returns entries for every clan.
func (j *ClanJournal) Recent(clanName string, limit int) ([]clan.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	query := `SELECT at, actor, clan, action, detail FROM clan_journal`
	args := []any{}
	if clanName != "" {
		query += ` WHERE clan = ? COLLATE NOCASE`
		args = append(args, clanName)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []clan.JournalEntry
	for rows.Next() {
		var (
			e  clan.JournalEntry
			at int64
		)
		if err := rows.Scan(&at, &e.Actor, &e.Clan, &e.Action, &e.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Time = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return entries, nil
}

var _ clan.Journal = (*ClanJournal)(nil)
