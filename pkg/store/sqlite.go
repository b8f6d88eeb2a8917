package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zonestor/zone_syncer/pkg/xerror"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, xerror.Wrap(err, xerror.Store, "open sqlite3 failed")
	}

	// all tables keyed by oid, mirroring the log pool object layout
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS objects (oid TEXT PRIMARY KEY, data TEXT)",
		"CREATE TABLE IF NOT EXISTS omap (oid TEXT, k TEXT, v TEXT, PRIMARY KEY (oid, k))",
		"CREATE TABLE IF NOT EXISTS attrs (oid TEXT, name TEXT, value TEXT, PRIMARY KEY (oid, name))",
		"CREATE TABLE IF NOT EXISTS locks (oid TEXT, name TEXT, cookie TEXT, expire_at INTEGER, PRIMARY KEY (oid, name))",
	}
	for _, stmt := range stmts {
		if _, err = db.Exec(stmt); err != nil {
			return nil, xerror.Wrap(err, xerror.Store, "create table failed")
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReadObject(ctx context.Context, oid string) (string, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM objects WHERE oid = ?", oid).Scan(&data)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", xerror.Wrapf(err, xerror.Store, "read object %s failed", oid)
	}
	return data, nil
}

func (s *SQLiteStore) WriteObject(ctx context.Context, oid string, data string) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO objects (oid, data) VALUES (?, ?)", oid, data); err != nil {
		return xerror.Wrapf(err, xerror.Store, "write object %s failed", oid)
	}
	// a write recreates the object, dropping its locks
	if _, err := s.db.ExecContext(ctx, "DELETE FROM locks WHERE oid = ?", oid); err != nil {
		return xerror.Wrapf(err, xerror.Store, "drop locks of %s failed", oid)
	}
	return nil
}

func (s *SQLiteStore) DeleteObject(ctx context.Context, oid string) error {
	for _, table := range []string{"objects", "omap", "attrs", "locks"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE oid = ?", oid); err != nil {
			return xerror.Wrapf(err, xerror.Store, "delete object %s failed", oid)
		}
	}
	return nil
}

func (s *SQLiteStore) OmapSet(ctx context.Context, oid string, entries map[string]string) error {
	for k, v := range entries {
		if _, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO omap (oid, k, v) VALUES (?, ?, ?)", oid, k, v); err != nil {
			return xerror.Wrapf(err, xerror.Store, "omap set %s failed", oid)
		}
	}
	return nil
}

func (s *SQLiteStore) OmapList(ctx context.Context, oid string, marker string, max int) ([]OmapEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT k, v FROM omap WHERE oid = ? AND k > ? ORDER BY k LIMIT ?", oid, marker, max)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Store, "omap list %s failed", oid)
	}
	defer rows.Close()

	var result []OmapEntry
	for rows.Next() {
		var entry OmapEntry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, xerror.Wrapf(err, xerror.Store, "omap list %s failed", oid)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, xerror.Wrapf(err, xerror.Store, "omap list %s failed", oid)
	}
	return result, nil
}

func (s *SQLiteStore) OmapCount(ctx context.Context, oid string) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM omap WHERE oid = ?", oid).Scan(&count)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Store, "omap count %s failed", oid)
	}
	return count, nil
}

func (s *SQLiteStore) ReadAttrs(ctx context.Context, oid string) (map[string]string, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects WHERE oid = ?", oid).Scan(&count); err != nil {
		return nil, xerror.Wrapf(err, xerror.Store, "check object %s failed", oid)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM attrs WHERE oid = ?", oid)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Store, "read attrs of %s failed", oid)
	}
	defer rows.Close()

	attrs := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, xerror.Wrapf(err, xerror.Store, "read attrs of %s failed", oid)
		}
		attrs[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, xerror.Wrapf(err, xerror.Store, "read attrs of %s failed", oid)
	}
	return attrs, nil
}

func (s *SQLiteStore) WriteAttrs(ctx context.Context, oid string, attrs map[string]string) error {
	for name, value := range attrs {
		if _, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO attrs (oid, name, value) VALUES (?, ?, ?)", oid, name, value); err != nil {
			return xerror.Wrapf(err, xerror.Store, "write attr %s of %s failed", name, oid)
		}
	}
	return nil
}

func (s *SQLiteStore) Lock(ctx context.Context, oid string, name string, cookie string, duration time.Duration) error {
	var owner string
	var expireAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT cookie, expire_at FROM locks WHERE oid = ? AND name = ?", oid, name).Scan(&owner, &expireAt)
	if err != nil && err != sql.ErrNoRows {
		return xerror.Wrapf(err, xerror.Store, "check lock on %s failed", oid)
	}

	now := time.Now()
	if err == nil && owner != cookie && expireAt > now.Unix() {
		return ErrLocked
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO locks (oid, name, cookie, expire_at) VALUES (?, ?, ?, ?)",
		oid, name, cookie, now.Add(duration).Unix())
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "take lock on %s failed", oid)
	}
	return nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, oid string, name string, cookie string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM locks WHERE oid = ? AND name = ? AND cookie = ?", oid, name, cookie)
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "release lock on %s failed", oid)
	}
	return nil
}
