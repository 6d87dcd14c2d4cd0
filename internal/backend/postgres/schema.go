// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listDatabasesSQL = `
	SELECT datname
	FROM pg_database
	WHERE NOT datistemplate AND datallowconn
	ORDER BY datname`

// Tables outside "public" are reported schema-qualified.
const listTablesSQL = `
	SELECT CASE WHEN table_schema = 'public' THEN table_name
	            ELSE table_schema || '.' || table_name END
	FROM information_schema.tables
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
	  AND table_schema NOT LIKE 'pg_toast%'
	  AND table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY table_schema, table_name`

// splitTableName splits a collection name into schema and table components.
// If no schema is specified, it defaults to "public".
func splitTableName(collection string) (schema string, table string) {
	if schema, table, ok := strings.Cut(collection, "."); ok {
		return schema, table
	}
	return "public", collection
}

// tableIdentifier returns the quoted, schema-qualified identifier of a collection.
func tableIdentifier(collection string) string {
	schema, table := splitTableName(collection)
	return pgx.Identifier{schema, table}.Sanitize()
}

func queryStrings(ctx context.Context, pool *pgxpool.Pool, sql string) ([]string, error) {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, classify(ctx, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(ctx, err)
	}
	return names, nil
}
