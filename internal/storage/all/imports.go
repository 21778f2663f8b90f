// Package all wires the built-in storage backends into the storage registry.
//
// Importing it for side effects runs each backend's init, which registers:
//
//   - "clickhouse" (chbridge/internal/storage/clickhouse)
//   - "sqlite"     (chbridge/internal/storage/sqlite)
//
// Typical usage:
//
//	import _ "chbridge/internal/storage/all"
//
//	conn, err := storage.New(ctx, storage.Config{Kind: "clickhouse", DSN: dsn})
package all

import (
	_ "chbridge/internal/storage/clickhouse"
	_ "chbridge/internal/storage/sqlite"
)
