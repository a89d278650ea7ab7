package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/config"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/router"
)

type stubHandle struct{}

func (stubHandle) Ping(context.Context) error  { return nil }
func (stubHandle) Close(context.Context) error { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()

	caps := registry.NewRegistry()
	err := caps.Register(&core.Capability{
		Type:     "kv",
		Required: []string{"host"},
		Operations: []core.Operation{
			{
				Name:        "echo",
				Description: "Echo the given value.",
				Args: []core.ArgSpec{
					{Name: "value", Type: core.ArgTypeString, Required: true},
					{Name: "repeat", Type: core.ArgTypeInt, Required: false},
				},
				Execute: func(_ context.Context, _ core.Handle, args map[string]interface{}) (interface{}, error) {
					return args["value"], nil
				},
			},
		},
		Connect: func(context.Context, core.Params) (core.Handle, error) {
			return stubHandle{}, nil
		},
	})
	require.NoError(t, err)

	rt, err := router.Build(context.Background(),
		[]config.Database{{ID: "kv1", Type: "kv", Params: map[string]string{"host": "x"}}},
		caps, router.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	return NewServer(rt, caps)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestOperationToolSuccess(t *testing.T) {
	s := testServer(t)

	handler := s.operationHandler("echo")
	result, err := handler(context.Background(), callRequest("kv_echo", map[string]interface{}{
		"db_id": "kv1",
		"value": "hello",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, textContent(t, result), "hello")
}

func TestOperationToolRoutingErrorsBecomeToolErrors(t *testing.T) {
	s := testServer(t)
	handler := s.operationHandler("echo")

	t.Run("missing db_id", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest("kv_echo", map[string]interface{}{
			"value": "hello",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("unknown instance", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest("kv_echo", map[string]interface{}{
			"db_id": "nope",
			"value": "hello",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, textContent(t, result), "unknown_instance")
	})

	t.Run("missing required argument", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest("kv_echo", map[string]interface{}{
			"db_id": "kv1",
		}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, textContent(t, result), "invalid_argument")
	})
}

func TestListDatabasesTool(t *testing.T) {
	s := testServer(t)

	result, err := s.handleListDatabases(context.Background(), callRequest("list_databases", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := textContent(t, result)
	assert.Contains(t, text, `"kv1"`)
	assert.Contains(t, text, `"kv"`)
	assert.Contains(t, text, `"available": true`)
}

func TestNilPayloadSerializesAsNull(t *testing.T) {
	result, err := marshalToolResult(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", textContent(t, result))
}
