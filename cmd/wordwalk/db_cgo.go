//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteParams are appended to a database path that has no query of its own.
const sqliteParams = "?_journal_mode=WAL&_busy_timeout=5000"

func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite3", dataSource)
}
