// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/msl/lib/mastertoken"
	"github.com/bureau-foundation/msl/lib/sqlitepool"
)

// migrations is append-only; see lib/sqlitepool.
var migrations = []string{
	`CREATE TABLE master_tokens (
		serial_number   INTEGER PRIMARY KEY,
		sequence_number INTEGER NOT NULL,
		renewal_window  INTEGER NOT NULL,
		expiration      INTEGER NOT NULL,
		accepted_at     INTEGER NOT NULL
	);
	CREATE INDEX master_tokens_expiration ON master_tokens (expiration);`,
}

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path     string
	PoolSize int
	Logger   *slog.Logger
}

// SQLite is a Store persisted in a SQLite database.
type SQLite struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at cfg.Path.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   cfg.PoolSize,
		Logger:     logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("tokenstore: %w", err)
	}
	return &SQLite{pool: pool, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *SQLite) Close() error {
	return s.pool.Close()
}

func (s *SQLite) Accept(ctx context.Context, masterToken *mastertoken.MasterToken) (bool, error) {
	if err := checkTrusted(masterToken); err != nil {
		return false, err
	}
	offered := RecordOf(masterToken)

	accepted := false
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		existing, found, err := selectRecord(conn, offered.SerialNumber)
		if err != nil {
			return err
		}
		if found && !offered.IsNewerThan(existing) {
			return nil
		}
		err = sqlitex.Execute(conn, `
			INSERT INTO master_tokens (serial_number, sequence_number, renewal_window, expiration, accepted_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (serial_number) DO UPDATE SET
				sequence_number = excluded.sequence_number,
				renewal_window  = excluded.renewal_window,
				expiration      = excluded.expiration,
				accepted_at     = excluded.accepted_at`,
			&sqlitex.ExecOptions{Args: []any{
				offered.SerialNumber,
				offered.SequenceNumber,
				offered.RenewalWindow.Unix(),
				offered.Expiration.Unix(),
				time.Now().Unix(),
			}})
		if err != nil {
			return fmt.Errorf("tokenstore: recording serial number %d: %w", offered.SerialNumber, err)
		}
		accepted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !accepted {
		s.logger.Debug("superseded master token not recorded",
			"serial_number", offered.SerialNumber,
			"sequence_number", offered.SequenceNumber,
		)
	}
	return accepted, nil
}

func (s *SQLite) Newest(ctx context.Context, serialNumber int64) (Record, bool, error) {
	var record Record
	var found bool
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		var err error
		record, found, err = selectRecord(conn, serialNumber)
		return err
	})
	return record, found, err
}

func (s *SQLite) Purge(ctx context.Context, now time.Time) (int, error) {
	var removed int
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `DELETE FROM master_tokens WHERE expiration <= ?`,
			&sqlitex.ExecOptions{Args: []any{now.Unix()}})
		if err != nil {
			return fmt.Errorf("tokenstore: purging: %w", err)
		}
		removed = conn.Changes()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired master token lineages purged", "count", removed)
	}
	return removed, nil
}

func selectRecord(conn *sqlite.Conn, serialNumber int64) (Record, bool, error) {
	var record Record
	found := false
	err := sqlitex.Execute(conn, `
		SELECT sequence_number, renewal_window, expiration
		FROM master_tokens WHERE serial_number = ?`,
		&sqlitex.ExecOptions{
			Args: []any{serialNumber},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = Record{
					SerialNumber:   serialNumber,
					SequenceNumber: stmt.ColumnInt64(0),
					RenewalWindow:  time.Unix(stmt.ColumnInt64(1), 0),
					Expiration:     time.Unix(stmt.ColumnInt64(2), 0),
				}
				found = true
				return nil
			},
		})
	if err != nil {
		return Record{}, false, fmt.Errorf("tokenstore: reading serial number %d: %w", serialNumber, err)
	}
	return record, found, nil
}
