package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/config"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

type memHandle struct {
	mu     sync.Mutex
	data   map[string]string
	closed bool
}

func (h *memHandle) Ping(context.Context) error { return nil }

func (h *memHandle) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// memCapability is an in-memory key-value backend used to drive the router
// without a real database.
func memCapability(t *testing.T, connectErr map[string]error) (*registry.Registry, *memHandle) {
	t.Helper()

	handle := &memHandle{data: make(map[string]string)}
	caps := registry.NewRegistry()
	err := caps.Register(&core.Capability{
		Type:     "memkv",
		Required: []string{"host"},
		Operations: []core.Operation{
			{
				Name: "get",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true},
				},
				Execute: func(_ context.Context, h core.Handle, args map[string]interface{}) (interface{}, error) {
					mh := h.(*memHandle)
					mh.mu.Lock()
					defer mh.mu.Unlock()
					v, ok := mh.data[args["key"].(string)]
					if !ok {
						return nil, nil
					}
					return v, nil
				},
			},
			{
				Name: "set",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true},
					{Name: "value", Type: core.ArgTypeString, Required: true},
					{Name: "expiry_seconds", Type: core.ArgTypeInt, Required: false},
				},
				Execute: func(_ context.Context, h core.Handle, args map[string]interface{}) (interface{}, error) {
					mh := h.(*memHandle)
					mh.mu.Lock()
					defer mh.mu.Unlock()
					mh.data[args["key"].(string)] = args["value"].(string)
					return "OK", nil
				},
			},
			{
				Name: "delete",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true},
				},
				Execute: func(_ context.Context, h core.Handle, args map[string]interface{}) (interface{}, error) {
					mh := h.(*memHandle)
					mh.mu.Lock()
					defer mh.mu.Unlock()
					key := args["key"].(string)
					if _, ok := mh.data[key]; !ok {
						return 0, nil
					}
					delete(mh.data, key)
					return 1, nil
				},
			},
			{
				Name: "filter",
				Args: []core.ArgSpec{
					{Name: "query", Type: core.ArgTypeJSON, Required: true},
				},
				Execute: func(_ context.Context, _ core.Handle, args map[string]interface{}) (interface{}, error) {
					return args["query"], nil
				},
			},
			{
				Name: "fail",
				Execute: func(context.Context, core.Handle, map[string]interface{}) (interface{}, error) {
					return nil, errors.New("socket reset by backend")
				},
			},
			{
				Name: "slow",
				Execute: func(ctx context.Context, _ core.Handle, _ map[string]interface{}) (interface{}, error) {
					select {
					case <-time.After(time.Second):
						return "done", nil
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				},
			},
		},
		Connect: func(_ context.Context, params core.Params) (core.Handle, error) {
			if err, ok := connectErr[params["host"]]; ok {
				return nil, err
			}
			return handle, nil
		},
	})
	require.NoError(t, err)
	return caps, handle
}

func declaration(id, host string) config.Database {
	return config.Database{ID: id, Type: "memkv", Params: map[string]string{"host": host}}
}

func buildRegistry(t *testing.T, opts Options, dbs ...config.Database) (*Registry, *memHandle) {
	t.Helper()
	caps, handle := memCapability(t, map[string]error{"down.example.com": errors.New("connection refused")})
	r, err := Build(context.Background(), dbs, caps, opts)
	require.NoError(t, err)
	return r, handle
}

func TestBuildRegistersAllInstances(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"), declaration("kv2", "down.example.com"))
	defer r.Close(context.Background())

	infos := r.Instances()
	require.Len(t, infos, 2)
	assert.Equal(t, "kv1", infos[0].ID)
	assert.True(t, infos[0].Available)
	assert.Equal(t, "kv2", infos[1].ID)
	assert.False(t, infos[1].Available)
	assert.Contains(t, infos[1].Error, "connection refused")
}

func TestBuildUnknownTypeFails(t *testing.T) {
	caps, _ := memCapability(t, nil)
	_, err := Build(context.Background(),
		[]config.Database{{ID: "x", Type: "graph", Params: map[string]string{}}}, caps, Options{})
	require.Error(t, err)
	assert.Equal(t, dberrors.ErrorTypeUnknownType, dberrors.GetType(err))
}

func TestDispatchRoundTrip(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"))
	defer r.Close(context.Background())
	ctx := context.Background()

	res := r.Dispatch(ctx, "set", "kv1", map[string]interface{}{"key": "greeting", "value": "hello"})
	require.True(t, res.OK, "set failed: %v", res.Err)

	res = r.Dispatch(ctx, "get", "kv1", map[string]interface{}{"key": "greeting"})
	require.True(t, res.OK)
	assert.Equal(t, "hello", res.Payload)

	res = r.Dispatch(ctx, "delete", "kv1", map[string]interface{}{"key": "greeting"})
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Payload)

	res = r.Dispatch(ctx, "get", "kv1", map[string]interface{}{"key": "greeting"})
	require.True(t, res.OK)
	assert.Nil(t, res.Payload)
}

func TestDispatchUnknownInstance(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	res := r.Dispatch(context.Background(), "get", "nope", map[string]interface{}{"key": "k"})
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeUnknownInstance, res.ErrorType())
}

func TestDispatchDegradedInstance(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv2", "down.example.com"))
	defer r.Close(context.Background())

	res := r.Dispatch(context.Background(), "get", "kv2", map[string]interface{}{"key": "k"})
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeInstanceUnavailable, res.ErrorType())
	assert.Contains(t, res.Err.Error(), "connection refused")
}

func TestDispatchUnsupportedOperation(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	res := r.Dispatch(context.Background(), "query", "kv1", nil)
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeUnsupportedOperation, res.ErrorType())
}

func TestDispatchArgumentValidation(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"))
	defer r.Close(context.Background())
	ctx := context.Background()

	t.Run("missing required", func(t *testing.T) {
		res := r.Dispatch(ctx, "get", "kv1", map[string]interface{}{})
		require.False(t, res.OK)
		assert.Equal(t, dberrors.ErrorTypeInvalidArgument, res.ErrorType())
		assert.Equal(t, "key", res.Err.Detail("field"))
	})

	t.Run("malformed json", func(t *testing.T) {
		res := r.Dispatch(ctx, "filter", "kv1", map[string]interface{}{"query": "{not json"})
		require.False(t, res.OK)
		assert.Equal(t, dberrors.ErrorTypeInvalidArgument, res.ErrorType())
		assert.Equal(t, "query", res.Err.Detail("field"))
	})

	t.Run("json string parsed", func(t *testing.T) {
		res := r.Dispatch(ctx, "filter", "kv1", map[string]interface{}{"query": `{"a": 1}`})
		require.True(t, res.OK)
		assert.Equal(t, map[string]interface{}{"a": float64(1)}, res.Payload)
	})

	t.Run("structured json passthrough", func(t *testing.T) {
		res := r.Dispatch(ctx, "filter", "kv1",
			map[string]interface{}{"query": map[string]interface{}{"a": "b"}})
		require.True(t, res.OK)
	})

	t.Run("int coercion", func(t *testing.T) {
		res := r.Dispatch(ctx, "set", "kv1", map[string]interface{}{
			"key": "k", "value": "v", "expiry_seconds": float64(30),
		})
		require.True(t, res.OK)

		res = r.Dispatch(ctx, "set", "kv1", map[string]interface{}{
			"key": "k", "value": "v", "expiry_seconds": "oops",
		})
		require.False(t, res.OK)
		assert.Equal(t, dberrors.ErrorTypeInvalidArgument, res.ErrorType())
	})

	t.Run("optional absent", func(t *testing.T) {
		res := r.Dispatch(ctx, "set", "kv1", map[string]interface{}{"key": "k", "value": "v"})
		require.True(t, res.OK)
	})
}

func TestDispatchWrapsBackendError(t *testing.T) {
	r, _ := buildRegistry(t, Options{}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	res := r.Dispatch(context.Background(), "fail", "kv1", nil)
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeBackend, res.ErrorType())
	assert.Equal(t, "kv1", res.Err.Detail("db_id"))
	assert.Equal(t, "fail", res.Err.Detail("operation"))
	assert.Contains(t, res.Err.Error(), "socket reset")
}

func TestDispatchCallTimeout(t *testing.T) {
	r, _ := buildRegistry(t, Options{CallTimeout: 30 * time.Millisecond}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	res := r.Dispatch(context.Background(), "slow", "kv1", nil)
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeTimeout, res.ErrorType())
}

func TestDispatchPoolExhausted(t *testing.T) {
	r, _ := buildRegistry(t, Options{
		PoolSize:       1,
		AcquireTimeout: 20 * time.Millisecond,
		CallTimeout:    2 * time.Second,
	}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	started := make(chan struct{})
	go func() {
		close(started)
		r.Dispatch(context.Background(), "slow", "kv1", nil)
	}()
	<-started
	time.Sleep(10 * time.Millisecond) // let the slow call take the only lease

	res := r.Dispatch(context.Background(), "get", "kv1", map[string]interface{}{"key": "k"})
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypePoolExhausted, res.ErrorType())
	assert.True(t, dberrors.IsRetryable(res.Err))
}

func TestConcurrentDispatchesReleaseAllLeases(t *testing.T) {
	const poolSize = 4
	r, _ := buildRegistry(t, Options{
		PoolSize:       poolSize,
		AcquireTimeout: time.Second,
	}, declaration("kv1", "a"))
	defer r.Close(context.Background())

	require.Equal(t, poolSize, r.Available("kv1"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			op := "set"
			args := map[string]interface{}{"key": "k", "value": "v"}
			if n%3 == 0 {
				op = "fail" // failed executors must release too
				args = nil
			}
			r.Dispatch(context.Background(), op, "kv1", args)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, poolSize, r.Available("kv1"), "leases leaked by burst")
}

func TestCloseMakesInstancesUnroutable(t *testing.T) {
	r, handle := buildRegistry(t, Options{}, declaration("kv1", "a"))

	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))
	assert.True(t, handle.closed)

	res := r.Dispatch(context.Background(), "get", "kv1", map[string]interface{}{"key": "k"})
	require.False(t, res.OK)
	assert.Equal(t, dberrors.ErrorTypeInstanceUnavailable, res.ErrorType())

	for _, info := range r.Instances() {
		assert.False(t, info.Available)
	}
}

func TestResultEnvelope(t *testing.T) {
	ok := Success([]string{"row"})
	assert.True(t, ok.OK)
	assert.Equal(t, dberrors.ErrorType(""), ok.ErrorType())

	fail := Failure(errors.New("plain"))
	assert.False(t, fail.OK)
	assert.Equal(t, dberrors.ErrorTypeInternal, fail.ErrorType())
}
