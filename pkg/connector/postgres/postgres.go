// Package postgres implements the relational backend capability on top of
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

const (
	defaultMaxConns    = 10
	defaultMinConns    = 1
	defaultHealthCheck = 30 * time.Second
)

// Handle wraps a pgx connection pool for one configured instance.
type Handle struct {
	pool *pgxpool.Pool
}

// Ping verifies the database is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (h *Handle) Close(_ context.Context) error {
	h.pool.Close()
	return nil
}

// Pool exposes the underlying pgx pool for executors.
func (h *Handle) Pool() *pgxpool.Pool {
	return h.pool
}

// connect builds a pooled handle from resolved connection parameters.
func connect(ctx context.Context, params core.Params) (core.Handle, error) {
	cfg, err := pgxpool.ParseConfig(buildDSN(params))
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "invalid postgres connection parameters")
	}

	cfg.MaxConns = defaultMaxConns
	if raw := params["max_conns"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
	cfg.MinConns = defaultMinConns
	cfg.HealthCheckPeriod = defaultHealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "failed to create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "postgres ping failed")
	}

	return &Handle{pool: pool}, nil
}

// buildDSN renders params in keyword/value form, which needs no URL escaping.
func buildDSN(params core.Params) string {
	var b strings.Builder
	for _, key := range []string{"host", "port", "user", "password", "dbname", "sslmode"} {
		if v := params[key]; v != "" {
			fmt.Fprintf(&b, "%s=%s ", key, quoteDSNValue(v))
		}
	}
	return strings.TrimSpace(b.String())
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// executeQuery runs a SQL statement. SELECT-style statements return rows as a
// list of column-keyed maps; statements without a result set return the
// affected row count as a human-readable string, matching the tool contract.
func executeQuery(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	query := args["query"].(string)
	var queryArgs []interface{}
	if params, ok := args["params"].([]interface{}); ok {
		queryArgs = params
	} else if _, present := args["params"]; present {
		return nil, dberrors.New(dberrors.ErrorTypeInvalidArgument,
			"params must be a JSON array of scalars").WithDetail("field", "params")
	}

	rows, err := h.pool.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		// DML with no result set
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return fmt.Sprintf("%d row(s) affected", rows.CommandTag().RowsAffected()), nil
	}

	results, err := collectRows(rows, fields)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func collectRows(rows pgx.Rows, fields []pgconn.FieldDescription) ([]map[string]interface{}, error) {
	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// listTables returns the tables visible in a schema, defaulting to public.
func listTables(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	schema := "public"
	if s, ok := args["schema"].(string); ok && s != "" {
		schema = s
	}

	rows, err := h.pool.Query(ctx,
		`SELECT table_schema, table_name, table_type
		   FROM information_schema.tables
		  WHERE table_schema = $1
		  ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRows(rows, rows.FieldDescriptions())
}
