// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// persistent token store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool, applies a fixed set
// of pragmas to every connection, and brings the schema up to date
// from an ordered migration list when the pool opens.
//
// # Pragmas
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: transactions survive process crashes but not
//     power loss. A lost master token record only costs the holder one
//     extra renewal, which the issuer accepts.
//   - busy_timeout=5000: wait for the write lock instead of failing
//     with SQLITE_BUSY.
//   - foreign_keys=ON
//   - temp_store=MEMORY
//
// # Migrations
//
// Config.Migrations is an append-only list of SQL scripts. The schema
// version is PRAGMA user_version: on Open, every script past the
// current version runs in one immediate transaction and the version
// advances to len(Migrations). Never edit or reorder a published
// migration; add a new one.
//
// # Usage
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       filepath.Join(stateDir, "tokens.db"),
//	    Logger:     logger,
//	    Migrations: migrations,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "DELETE FROM t WHERE x < ?", &sqlitex.ExecOptions{Args: []any{limit}})
//	})
package sqlitepool
