// Package query implements the SQL-backed historical indexer spec §6
// calls for beyond the log-thinned rollback window: once a tick's
// canonical heap has aged out of internal/rollback's retained stack,
// internal/runtime can still mirror disk writes and ticks, and
// internal/statement function definitions, here so get_disk/get_tick/get_func answer for any tick
// that was ever committed, not just the recently retained ones.
//
// Grounded on the teacher's internal/database: a DSN-scheme dispatch
// over the same four drivers (sqlite3, postgres, mysql, sqlserver),
// registered blank-import style so database/sql's driver registry
// picks them up.
package query

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/word"
)

// Indexer mirrors committed disk/function/tick history into a SQL
// database, so queries can reach further back than the in-memory
// rollback stack retains.
type Indexer struct {
	db     *sql.DB
	driver string
}

// Open dispatches dsn's scheme to a driver, mirroring the teacher's
// Connect dbType switch: "sqlite3:<path>", "postgres://...",
// "mysql://...", or "sqlserver://...".
func Open(dsn string) (*Indexer, error) {
	driver, source, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("query: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("query: ping %s: %w", driver, err)
	}
	ix := &Indexer{db: db, driver: driver}
	if err := ix.init(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

func splitDSN(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite3:"):
		return "sqlite3", strings.TrimPrefix(dsn, "sqlite3:"), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "mysql://"):
		return "mysql", strings.TrimPrefix(dsn, "mysql://"), nil
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver", dsn, nil
	default:
		return "", "", fmt.Errorf("query: unrecognized DSN scheme: %q", dsn)
	}
}

func (ix *Indexer) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS disk_history (
			tick   BIGINT NOT NULL,
			fid    VARCHAR(32) NOT NULL,
			tag    INTEGER NOT NULL,
			ext    BIGINT NOT NULL,
			val_hi BIGINT NOT NULL,
			val_lo BIGINT NOT NULL,
			PRIMARY KEY (tick, fid)
		)`,
		`CREATE TABLE IF NOT EXISTS func_history (
			tick   BIGINT NOT NULL,
			fid    VARCHAR(32) NOT NULL,
			arity  BIGINT NOT NULL,
			source TEXT NOT NULL,
			PRIMARY KEY (tick, fid)
		)`,
		`CREATE TABLE IF NOT EXISTS tick_log (
			tick BIGINT PRIMARY KEY
		)`,
	}
	for _, s := range stmts {
		if _, err := ix.db.Exec(s); err != nil {
			return fmt.Errorf("query: init schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (ix *Indexer) Close() error { return ix.db.Close() }

// RecordTick appends tick to the recorded history (spec §6 "get_tick").
func (ix *Indexer) RecordTick(tick uint64) error {
	_, err := ix.db.Exec(`INSERT INTO tick_log (tick) VALUES (?)`, tick)
	return err
}

// RecordDisk mirrors a SetDisk write at tick (spec §6 "get_disk").
func (ix *Indexer) RecordDisk(tick uint64, fid word.U120, root link.Lnk) error {
	_, err := ix.db.Exec(
		`INSERT INTO disk_history (tick, fid, tag, ext, val_hi, val_lo) VALUES (?, ?, ?, ?, ?, ?)`,
		tick, name.Decode(fid), int(root.Tag), root.Ext, root.Val.Hi, root.Val.Lo,
	)
	return err
}

// RecordFunc mirrors a DefineFunc/DefineArity declaration at tick
// (spec §6 "get_func"). source is a short text summary of the
// declaration ("name/arity (N equations)" from internal/statement),
// since *rule.Func is a compiled form with no stable serialization of
// its own.
func (ix *Indexer) RecordFunc(tick uint64, fid word.U120, arity uint64, source string) error {
	_, err := ix.db.Exec(
		`INSERT INTO func_history (tick, fid, arity, source) VALUES (?, ?, ?, ?)`,
		tick, name.Decode(fid), arity, source,
	)
	return err
}

// GetTick reports the most recently recorded tick, or 0 if none.
func (ix *Indexer) GetTick() (uint64, error) {
	var tick uint64
	row := ix.db.QueryRow(`SELECT COALESCE(MAX(tick), 0) FROM tick_log`)
	if err := row.Scan(&tick); err != nil {
		return 0, err
	}
	return tick, nil
}

// GetDisk returns fid's disk root as most recently recorded at or
// before atOrBefore.
func (ix *Indexer) GetDisk(fid word.U120, atOrBefore uint64) (link.Lnk, bool, error) {
	row := ix.db.QueryRow(
		`SELECT tag, ext, val_hi, val_lo FROM disk_history
		 WHERE fid = ? AND tick <= ?
		 ORDER BY tick DESC LIMIT 1`,
		name.Decode(fid), atOrBefore,
	)
	var tag int
	var ext, hi, lo uint64
	if err := row.Scan(&tag, &ext, &hi, &lo); err != nil {
		if err == sql.ErrNoRows {
			return link.Lnk{}, false, nil
		}
		return link.Lnk{}, false, err
	}
	return link.Lnk{Tag: link.Tag(tag), Ext: ext, Val: word.U120{Hi: hi, Lo: lo}}, true, nil
}

// GetFunc returns fid's declared arity and source text as most
// recently recorded at or before atOrBefore.
func (ix *Indexer) GetFunc(fid word.U120, atOrBefore uint64) (source string, arity uint64, ok bool, err error) {
	row := ix.db.QueryRow(
		`SELECT arity, source FROM func_history
		 WHERE fid = ? AND tick <= ?
		 ORDER BY tick DESC LIMIT 1`,
		name.Decode(fid), atOrBefore,
	)
	if err := row.Scan(&arity, &source); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	return source, arity, true, nil
}
