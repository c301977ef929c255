//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// sqliteParams are appended to a database path that has no query of its own.
const sqliteParams = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", dataSource)
}
