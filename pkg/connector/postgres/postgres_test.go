package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(core.Params{
		"host":     "localhost",
		"port":     "5432",
		"user":     "app",
		"password": "secret",
		"dbname":   "appdb",
	})
	assert.Equal(t, "host=localhost port=5432 user=app password=secret dbname=appdb", dsn)
}

func TestBuildDSNOptionalSSLMode(t *testing.T) {
	dsn := buildDSN(core.Params{
		"host":    "db.internal",
		"port":    "5432",
		"user":    "app",
		"dbname":  "appdb",
		"sslmode": "require",
	})
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "password=")
}

func TestBuildDSNQuotesSpecialCharacters(t *testing.T) {
	dsn := buildDSN(core.Params{
		"host":     "localhost",
		"password": `p'ss word\`,
	})
	assert.Contains(t, dsn, `password='p\'ss word\\'`)
}

func TestCapabilityRegistration(t *testing.T) {
	cap, ok := registry.Lookup("postgres")
	require.True(t, ok)

	assert.Equal(t, []string{"host", "port", "user", "password", "dbname"}, cap.Required)

	query, ok := cap.Operation("query")
	require.True(t, ok)
	require.Len(t, query.Args, 2)
	assert.True(t, query.Args[0].Required)
	assert.Equal(t, core.ArgTypeJSON, query.Args[1].Type)

	_, ok = cap.Operation("list_tables")
	assert.True(t, ok)

	_, ok = cap.Operation("find")
	assert.False(t, ok)
}
