// Package clickhouse is the ClickHouse storage backend. It speaks to the
// server's MySQL protocol interface through go-sql-driver/mysql and
// registers itself as storage kind "clickhouse".
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"

	"chbridge/internal/storage"
)

// openDB is a test hook that points to openMySQL by default. Tests replace it
// to run against an in-process database.
var openDB = openMySQL

func init() {
	storage.Register("clickhouse", func(ctx context.Context, cfg storage.Config) (storage.Conn, error) {
		return Open(ctx, Config{
			URL:                  cfg.DSN,
			User:                 cfg.User,
			Password:             cfg.Password,
			ConnectTimeout:       cfg.ConnectTimeout,
			UseInformationSchema: cfg.UseInformationSchema,
		})
	})
}

// Open dials ClickHouse and pins one connection from a private pool.
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, storage.Wrap("open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg))
	defer cancel()
	c, err := db.Conn(pingCtx)
	if err == nil {
		err = c.PingContext(pingCtx)
	}
	if err != nil {
		if c != nil {
			_ = c.Close()
		}
		_ = db.Close()
		return nil, storage.Wrap("connect", err)
	}

	log.Printf("clickhouse: connected information_schema=%t", cfg.UseInformationSchema)
	return newConn(c, db.Close, cfg.UseInformationSchema), nil
}

func openMySQL(cfg Config) (*sql.DB, error) {
	dc, err := cfg.driverConfig()
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(dc)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	return db, nil
}

func timeoutOrDefault(cfg Config) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return DefaultConnectTimeout
}
