package dict

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// LoadSQLite reads every dictionary from a SQLite snapshot into memory and
// closes the database. The snapshot is the offline export of the reference
// data service; the expected shape is a single table:
//
//	CREATE TABLE dictionary_values (dict TEXT NOT NULL, value TEXT NOT NULL);
//
// Loading everything up front keeps evaluation free of I/O and lets the
// checker run against a snapshot file copied from another environment.
func LoadSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary snapshot: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT dict, value FROM dictionary_values")
	if err != nil {
		return nil, fmt.Errorf("reading dictionary snapshot %s: %w", path, err)
	}
	defer rows.Close()

	store := NewStore()
	for rows.Next() {
		var dict, value string
		if err := rows.Scan(&dict, &value); err != nil {
			return nil, fmt.Errorf("scanning dictionary row: %w", err)
		}
		store.Register(dict, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary snapshot %s: %w", path, err)
	}
	return store, nil
}
