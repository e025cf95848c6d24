package database

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name        VARCHAR(255) NOT NULL DEFAULT '',
    email       VARCHAR(255) NOT NULL,
    employee_id VARCHAR(64)  NULL,
    batch       CHAR(2)      NOT NULL,
    created_at  BIGINT       NOT NULL,
    updated_at  BIGINT       NOT NULL,
    UNIQUE KEY uq_users_email (email),
    UNIQUE KEY uq_users_employee_id (employee_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_inventory (
    inventory_date                CHAR(10) NOT NULL PRIMARY KEY,
    designated_capacity           INT      NOT NULL,
    buffer_base_capacity          INT      NOT NULL,
    designated_booked             INT      NOT NULL DEFAULT 0,
    buffer_booked                 INT      NOT NULL DEFAULT 0,
    designated_released_to_buffer INT      NOT NULL DEFAULT 0,
    created_at                    BIGINT   NOT NULL,
    updated_at                    BIGINT   NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
    id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id      BIGINT UNSIGNED NOT NULL,
    user_batch   CHAR(2)     NOT NULL,
    booking_date CHAR(10)    NOT NULL,
    status       VARCHAR(16) NOT NULL,
    seat_type    VARCHAR(16) NOT NULL,
    active       TINYINT     NULL,
    releasing_at BIGINT      NULL,
    created_at   BIGINT      NOT NULL,
    updated_at   BIGINT      NOT NULL,
    UNIQUE KEY uq_bookings_active (user_id, booking_date, active),
    KEY idx_bookings_user_date (user_id, booking_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL DEFAULT '',
    email       TEXT    NOT NULL UNIQUE,
    employee_id TEXT    NULL UNIQUE,
    batch       TEXT    NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS seat_inventory (
    inventory_date                TEXT    NOT NULL PRIMARY KEY,
    designated_capacity           INTEGER NOT NULL,
    buffer_base_capacity          INTEGER NOT NULL,
    designated_booked             INTEGER NOT NULL DEFAULT 0,
    buffer_booked                 INTEGER NOT NULL DEFAULT 0,
    designated_released_to_buffer INTEGER NOT NULL DEFAULT 0,
    created_at                    INTEGER NOT NULL,
    updated_at                    INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS bookings (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      INTEGER NOT NULL,
    user_batch   TEXT    NOT NULL,
    booking_date TEXT    NOT NULL,
    status       TEXT    NOT NULL,
    seat_type    TEXT    NOT NULL,
    active       INTEGER NULL,
    releasing_at INTEGER NULL,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active ON bookings (user_id, booking_date, active)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_date ON bookings (user_id, booking_date)`,
}

// Migrate creates the tables used by the service when they do not exist.
// driver is "mysql" or "sqlite".
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case "mysql":
		stmts = mysqlSchema
	case "sqlite", "sqlite3":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
