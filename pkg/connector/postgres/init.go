package postgres

import (
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
)

func init() {
	registry.Register(&core.Capability{
		Type:        "postgres",
		Description: "PostgreSQL relational database with connection pooling",
		Required:    []string{"host", "port", "user", "password", "dbname"},
		Operations: []core.Operation{
			{
				Name:        "query",
				Description: "Execute a SQL query. SELECT returns rows; DML returns the affected row count.",
				Args: []core.ArgSpec{
					{Name: "query", Type: core.ArgTypeString, Required: true, Description: "SQL statement to execute"},
					{Name: "params", Type: core.ArgTypeJSON, Required: false, Description: "JSON array of positional query parameters"},
				},
				Execute: executeQuery,
			},
			{
				Name:        "list_tables",
				Description: "List tables in a schema (default: public).",
				Args: []core.ArgSpec{
					{Name: "schema", Type: core.ArgTypeString, Required: false, Description: "Schema name to inspect"},
				},
				Execute: listTables,
			},
		},
		Connect: connect,
	})
}
