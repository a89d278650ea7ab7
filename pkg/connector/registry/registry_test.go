package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
)

func fakeCapability(dbType string, ops ...string) *core.Capability {
	operations := make([]core.Operation, 0, len(ops))
	for _, name := range ops {
		operations = append(operations, core.Operation{
			Name: name,
			Execute: func(context.Context, core.Handle, map[string]interface{}) (interface{}, error) {
				return nil, nil
			},
		})
	}
	return &core.Capability{
		Type:       dbType,
		Required:   []string{"host"},
		Operations: operations,
		Connect: func(context.Context, core.Params) (core.Handle, error) {
			return nil, nil
		},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeCapability("kv", "get", "set")))

	cap, ok := r.Lookup("kv")
	require.True(t, ok)
	assert.Equal(t, "kv", cap.Type)

	op, ok := cap.Operation("get")
	require.True(t, ok)
	assert.Equal(t, "get", op.Name)

	_, ok = cap.Operation("query")
	assert.False(t, ok)

	_, ok = r.Lookup("relational")
	assert.False(t, ok)
}

func TestRegisterDuplicateType(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeCapability("kv", "get")))
	assert.Error(t, r.Register(fakeCapability("kv", "get")))
}

func TestTypesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeCapability("redis", "get")))
	require.NoError(t, r.Register(fakeCapability("mongodb", "find")))
	require.NoError(t, r.Register(fakeCapability("postgres", "query")))

	assert.Equal(t, []string{"mongodb", "postgres", "redis"}, r.Types())

	caps := r.List()
	require.Len(t, caps, 3)
	assert.Equal(t, "mongodb", caps[0].Type)
}

func TestTypeSetView(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeCapability("kv", "get")))

	assert.True(t, r.Known("kv"))
	assert.False(t, r.Known("graph"))
	assert.Equal(t, []string{"host"}, r.RequiredParams("kv"))
	assert.Nil(t, r.RequiredParams("graph"))
}
