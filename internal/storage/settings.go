package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting returns a value from app_settings. ok is false when the name
// was never set.
func (db *DB) Setting(ctx context.Context, name string) (value string, ok bool, err error) {
	err = db.conn.QueryRowContext(ctx, db.rebind(`SELECT value FROM app_settings WHERE name = ?`), name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", name, err)
	}
	return value, true, nil
}

// SetSetting stores value under name, replacing any previous value.
func (db *DB) SetSetting(ctx context.Context, name, value string) error {
	if _, err := db.conn.ExecContext(ctx, db.rebind(db.upsert("app_settings", "name", "value")), name, value); err != nil {
		return fmt.Errorf("write setting %s: %w", name, err)
	}
	return nil
}
