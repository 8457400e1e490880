// Package lshcache persists LSH signatures to a sqlite sidecar file
// so a query session with an unchanged store can skip recomputing
// every record's projection. It is purely a cache: deleting the
// sidecar never loses data, it only forces the next ANN query to
// rebuild from the store.
package lshcache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache wraps the sidecar sqlite database for one store file.
type Cache struct {
	db *sql.DB
}

// Path returns the sidecar path for a given store path.
func Path(storePath string) string {
	return storePath + ".lsh.db"
}

// Open creates or opens the sidecar database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open lsh cache: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		dimension INTEGER NOT NULL,
		projections INTEGER NOT NULL,
		record_count INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS signatures (
		idx INTEGER PRIMARY KEY,
		sig INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create lsh cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Load returns the cached signature map if the sidecar was built
// under the same (dimension, projections, recordCount) tuple as the
// caller is about to query. ok is false whenever the cache is absent,
// empty, or stale — any mismatch invalidates the whole cache, since a
// changed record count means indices may have shifted meaning.
func (c *Cache) Load(dimension, projections, recordCount int) (map[int]uint64, bool, error) {
	var d, p, n int
	err := c.db.QueryRow(`SELECT dimension, projections, record_count FROM meta WHERE id = 0`).Scan(&d, &p, &n)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read lsh cache meta: %w", err)
	}
	if d != dimension || p != projections || n != recordCount {
		return nil, false, nil
	}

	rows, err := c.db.Query(`SELECT idx, sig FROM signatures`)
	if err != nil {
		return nil, false, fmt.Errorf("read lsh cache signatures: %w", err)
	}
	defer rows.Close()

	sigs := make(map[int]uint64, n)
	for rows.Next() {
		var idx int
		var sig int64
		if err := rows.Scan(&idx, &sig); err != nil {
			return nil, false, fmt.Errorf("scan lsh cache row: %w", err)
		}
		sigs[idx] = uint64(sig)
	}
	return sigs, true, rows.Err()
}

// Save replaces the sidecar's contents with sigs under the given
// (dimension, projections, recordCount) tuple.
func (c *Cache) Save(dimension, projections, recordCount int, sigs map[int]uint64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin lsh cache save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM meta`); err != nil {
		return fmt.Errorf("clear lsh cache meta: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta (id, dimension, projections, record_count) VALUES (0, ?, ?, ?)`,
		dimension, projections, recordCount); err != nil {
		return fmt.Errorf("write lsh cache meta: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM signatures`); err != nil {
		return fmt.Errorf("clear lsh cache signatures: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO signatures (idx, sig) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lsh cache insert: %w", err)
	}
	defer stmt.Close()
	for idx, sig := range sigs {
		if _, err := stmt.Exec(idx, int64(sig)); err != nil {
			return fmt.Errorf("write lsh cache signature: %w", err)
		}
	}
	return tx.Commit()
}
