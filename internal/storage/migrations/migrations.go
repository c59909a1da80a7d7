// Package migrations applies the embedded SQL schema for both storage
// backends. Files run in lexical order and are expected to be idempotent.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/postgres"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// RunPostgresMigrations applies the embedded PostgreSQL schema.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return apply(postgresFS, "postgres", func(stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	})
}

// RunClickhouseMigrations applies the embedded ClickHouse schema. Each
// file holds one statement.
func RunClickhouseMigrations(ctx context.Context, conn *chstore.Conn) error {
	return apply(clickhouseFS, "clickhouse", func(stmt string) error {
		return conn.Exec(ctx, stmt)
	})
}

// apply feeds every non-blank .sql file under dir to exec, in lexical
// order, stopping at the first failure.
func apply(fsys fs.FS, dir string, exec func(stmt string) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmt := string(data)
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := exec(stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
