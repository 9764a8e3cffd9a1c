package storage

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a preference key has no stored value.
var ErrNotFound = errors.New("preference not found")

// DB wraps a sql.DB connection.
type DB struct {
	conn   *sql.DB
	sealer *Sealer
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// WithSealer makes the database encrypt preference values at rest.
func (db *DB) WithSealer(s *Sealer) *DB {
	db.sealer = s
	return db
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Preferences returns a key-value view scoped to one namespace.
func (db *DB) Preferences(namespace string) *Preferences {
	return &Preferences{db: db, namespace: namespace}
}

// Preferences is a namespaced key-value store backed by the preferences table.
type Preferences struct {
	db        *DB
	namespace string
}

// String retrieves a string value. It returns ErrNotFound when the key is unset.
func (p *Preferences) String(key string) (string, error) {
	row := p.db.conn.QueryRow(
		"SELECT value FROM preferences WHERE namespace = ? AND key = ?",
		p.namespace, key,
	)

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if p.db.sealer != nil {
		return p.db.sealer.Open(value)
	}
	return value, nil
}

// PutString inserts or replaces a string value.
func (p *Preferences) PutString(key, value string) error {
	if p.db.sealer != nil {
		sealed, err := p.db.sealer.Seal(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	_, err := p.db.conn.Exec(
		`INSERT INTO preferences (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		p.namespace, key, value, time.Now(),
	)
	return err
}

// Int retrieves an integer value, returning def when the key is unset.
func (p *Preferences) Int(key string, def int64) (int64, error) {
	s, err := p.String(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def, err
	}
	return n, nil
}

// PutInt inserts or replaces an integer value.
func (p *Preferences) PutInt(key string, value int64) error {
	return p.PutString(key, strconv.FormatInt(value, 10))
}

// Remove deletes a key. Removing a missing key is not an error.
func (p *Preferences) Remove(key string) error {
	_, err := p.db.conn.Exec(
		"DELETE FROM preferences WHERE namespace = ? AND key = ?",
		p.namespace, key,
	)
	return err
}

// Keys lists the keys currently set in the namespace.
func (p *Preferences) Keys() ([]string, error) {
	rows, err := p.db.conn.Query(
		"SELECT key FROM preferences WHERE namespace = ? ORDER BY key",
		p.namespace,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
