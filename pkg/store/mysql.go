package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/zonestor/zone_syncer/pkg/xerror"
)

const mysqlDBName = "zone_syncer"

type MysqlStore struct {
	db *sql.DB
}

func NewMysqlStore(host string, port int, user string, password string) (Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/", user, password, host, port)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerror.Wrap(err, xerror.Store, "open mysql failed")
	}

	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", mysqlDBName),
		fmt.Sprintf("USE %s", mysqlDBName),
		"CREATE TABLE IF NOT EXISTS objects (oid VARCHAR(512) PRIMARY KEY, data LONGTEXT)",
		"CREATE TABLE IF NOT EXISTS omap (oid VARCHAR(512), k VARCHAR(512), v TEXT, PRIMARY KEY (oid, k))",
		"CREATE TABLE IF NOT EXISTS attrs (oid VARCHAR(512), name VARCHAR(64), value TEXT, PRIMARY KEY (oid, name))",
		"CREATE TABLE IF NOT EXISTS locks (oid VARCHAR(512), name VARCHAR(64), cookie VARCHAR(64), expire_at BIGINT, PRIMARY KEY (oid, name))",
	}
	for _, stmt := range stmts {
		if _, err = db.Exec(stmt); err != nil {
			return nil, xerror.Wrap(err, xerror.Store, "create table failed")
		}
	}

	return &MysqlStore{db: db}, nil
}

func (s *MysqlStore) ReadObject(ctx context.Context, oid string) (string, error) {
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

func (s *MysqlStore) WriteObject(ctx context.Context, oid string, data string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO objects (oid, data) VALUES (?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data)", oid, data)
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "write object %s failed", oid)
	}
	// a write recreates the object, dropping its locks
	if _, err := s.db.ExecContext(ctx, "DELETE FROM locks WHERE oid = ?", oid); err != nil {
		return xerror.Wrapf(err, xerror.Store, "drop locks of %s failed", oid)
	}
	return nil
}

func (s *MysqlStore) DeleteObject(ctx context.Context, oid string) error {
	for _, table := range []string{"objects", "omap", "attrs", "locks"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE oid = ?", oid); err != nil {
			return xerror.Wrapf(err, xerror.Store, "delete object %s failed", oid)
		}
	}
	return nil
}

func (s *MysqlStore) OmapSet(ctx context.Context, oid string, entries map[string]string) error {
	for k, v := range entries {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO omap (oid, k, v) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", oid, k, v)
		if err != nil {
			return xerror.Wrapf(err, xerror.Store, "omap set %s failed", oid)
		}
	}
	return nil
}

func (s *MysqlStore) OmapList(ctx context.Context, oid string, marker string, max int) ([]OmapEntry, error) {
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

func (s *MysqlStore) OmapCount(ctx context.Context, oid string) (uint64, error) {
	var count uint64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM omap WHERE oid = ?", oid).Scan(&count)
	if err != nil {
		return 0, xerror.Wrapf(err, xerror.Store, "omap count %s failed", oid)
	}
	return count, nil
}

func (s *MysqlStore) ReadAttrs(ctx context.Context, oid string) (map[string]string, error) {
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

func (s *MysqlStore) WriteAttrs(ctx context.Context, oid string, attrs map[string]string) error {
	for name, value := range attrs {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO attrs (oid, name, value) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
			oid, name, value)
		if err != nil {
			return xerror.Wrapf(err, xerror.Store, "write attr %s of %s failed", name, oid)
		}
	}
	return nil
}

func (s *MysqlStore) Lock(ctx context.Context, oid string, name string, cookie string, duration time.Duration) error {
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
		"INSERT INTO locks (oid, name, cookie, expire_at) VALUES (?, ?, ?, ?) "+
			"ON DUPLICATE KEY UPDATE cookie = VALUES(cookie), expire_at = VALUES(expire_at)",
		oid, name, cookie, now.Add(duration).Unix())
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "take lock on %s failed", oid)
	}
	return nil
}

func (s *MysqlStore) Unlock(ctx context.Context, oid string, name string, cookie string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM locks WHERE oid = ? AND name = ? AND cookie = ?", oid, name, cookie)
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "release lock on %s failed", oid)
	}
	return nil
}
