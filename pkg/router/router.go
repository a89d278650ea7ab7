// Package router builds the instance registry from validated declarations and
// the connector capability table, and routes calls to pooled backend handles.
//
// The registry is built once at startup and its lookup tables are read-only
// afterwards, so dispatch takes no locks; concurrency control lives entirely
// in each instance's lease pool.
package router

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/config"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/logger"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/metrics"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/pool"
)

// Options tunes the per-instance pools and call execution.
type Options struct {
	// PoolSize caps concurrent leases per instance. Default pool.DefaultSize.
	PoolSize int
	// AcquireTimeout bounds the wait for a free lease.
	AcquireTimeout time.Duration
	// CallTimeout bounds backend execution per call. Default 30s.
	CallTimeout time.Duration
}

// DefaultCallTimeout bounds backend execution when Options leaves it zero.
const DefaultCallTimeout = 30 * time.Second

// instance pairs a declaration id with its capability and live lease pool.
// A degraded instance keeps its connect error and a nil lease.
type instance struct {
	id         string
	cap        *core.Capability
	lease      *pool.Lease
	connectErr error
}

// InstanceInfo describes one configured instance for the catalog surface.
type InstanceInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Registry is the built router state: one entry per declared instance, plus
// the options every dispatch runs under.
type Registry struct {
	instances map[string]*instance
	order     []string
	opts      Options
	logger    *zap.Logger

	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool
}

// Build opens one pool per validated declaration. A connect failure degrades
// that instance only; the registry still carries it so routing errors name the
// recorded cause instead of reporting an unknown instance. Build fails only
// when a declaration's type has no capability, which validated loads rule out.
func Build(ctx context.Context, databases []config.Database, caps *registry.Registry, opts Options) (*Registry, error) {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}

	r := &Registry{
		instances: make(map[string]*instance, len(databases)),
		order:     make([]string, 0, len(databases)),
		opts:      opts,
		logger:    logger.Get().With(zap.String("component", "router")),
	}

	for _, db := range databases {
		cap, ok := caps.Lookup(db.Type)
		if !ok {
			return nil, dberrors.Newf(dberrors.ErrorTypeUnknownType,
				"database %q has unknown type %q", db.ID, db.Type).WithDetail("id", db.ID)
		}

		inst := &instance{id: db.ID, cap: cap}
		handle, err := cap.Connect(ctx, core.Params(db.Params))
		if err != nil {
			inst.connectErr = err
			r.logger.Warn("database unreachable, registering as degraded",
				zap.String("db_id", db.ID),
				zap.String("type", db.Type),
				zap.Error(err))
			metrics.InstanceUp.WithLabelValues(db.ID, db.Type).Set(0)
		} else {
			inst.lease = pool.New(handle, opts.PoolSize, opts.AcquireTimeout)
			r.logger.Info("database connected",
				zap.String("db_id", db.ID),
				zap.String("type", db.Type))
			metrics.InstanceUp.WithLabelValues(db.ID, db.Type).Set(1)
		}

		r.instances[db.ID] = inst
		r.order = append(r.order, db.ID)
	}

	return r, nil
}

// Dispatch resolves (operation, dbID) to an executor bound to a pooled
// connection, validates and coerces rawArgs, executes, and normalizes the
// outcome. It has no side effect on registry state and is safe for
// concurrent use.
func (r *Registry) Dispatch(ctx context.Context, operation, dbID string, rawArgs map[string]interface{}) CallResult {
	start := time.Now()
	result := r.dispatch(ctx, operation, dbID, rawArgs)

	dbType := "unknown"
	if inst, ok := r.instances[dbID]; ok {
		dbType = inst.cap.Type
	}
	outcome := "success"
	if !result.OK {
		outcome = string(result.Err.Type)
	}
	metrics.ObserveDispatch(dbType, operation, outcome, time.Since(start))

	return result
}

func (r *Registry) dispatch(ctx context.Context, operation, dbID string, rawArgs map[string]interface{}) CallResult {
	if r.isClosed() {
		return Failure(dberrors.New(dberrors.ErrorTypeInstanceUnavailable, "registry is shut down"))
	}

	inst, ok := r.instances[dbID]
	if !ok {
		return Failure(dberrors.Newf(dberrors.ErrorTypeUnknownInstance,
			"database %q not configured", dbID).WithDetail("db_id", dbID))
	}
	if inst.lease == nil {
		return Failure(dberrors.Wrap(inst.connectErr, dberrors.ErrorTypeInstanceUnavailable,
			fmt.Sprintf("database %q configured but unreachable", dbID)).
			WithDetail("db_id", dbID))
	}

	op, ok := inst.cap.Operation(operation)
	if !ok {
		return Failure(dberrors.Newf(dberrors.ErrorTypeUnsupportedOperation,
			"operation %q not supported by %s database %q", operation, inst.cap.Type, dbID).
			WithDetail("db_id", dbID).WithDetail("operation", operation))
	}

	args, err := coerceArgs(op, rawArgs)
	if err != nil {
		return Failure(err)
	}

	handle, release, err := inst.lease.Acquire(ctx)
	if err != nil {
		return Failure(dberrors.AsError(err).WithDetail("db_id", dbID))
	}
	metrics.LeasesInUse.WithLabelValues(dbID).Inc()
	defer func() {
		release()
		metrics.LeasesInUse.WithLabelValues(dbID).Dec()
	}()

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	payload, err := op.Execute(callCtx, handle, args)
	if err != nil {
		return Failure(normalizeExecError(err, dbID, operation))
	}
	return Success(payload)
}

// normalizeExecError maps executor failures into the uniform taxonomy:
// deadline overruns become timeouts, already-typed argument errors pass
// through, everything else is wrapped as a backend error carrying the
// originating instance and operation.
func normalizeExecError(err error, dbID, operation string) *dberrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dberrors.Wrap(err, dberrors.ErrorTypeTimeout,
			fmt.Sprintf("operation %q timed out on %q", operation, dbID)).
			WithDetail("db_id", dbID).WithDetail("operation", operation)
	}

	var typed *dberrors.Error
	if errors.As(err, &typed) && typed.Type == dberrors.ErrorTypeInvalidArgument {
		return typed
	}

	return dberrors.Wrap(err, dberrors.ErrorTypeBackend,
		fmt.Sprintf("operation %q failed on %q", operation, dbID)).
		WithDetail("db_id", dbID).WithDetail("operation", operation)
}

// coerceArgs validates rawArgs against the operation's argument specs and
// coerces them into the shapes executors expect. Structured arguments arrive
// as serialized text and are parsed here; a parse failure is reported as an
// invalid argument naming the field, never as a backend error.
func coerceArgs(op *core.Operation, rawArgs map[string]interface{}) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(op.Args))
	for _, spec := range op.Args {
		raw, present := rawArgs[spec.Name]
		if !present || raw == nil || raw == "" {
			if spec.Required {
				return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
					"missing required argument %q", spec.Name).WithDetail("field", spec.Name)
			}
			continue
		}

		value, err := coerceValue(spec, raw)
		if err != nil {
			return nil, err
		}
		args[spec.Name] = value
	}
	return args, nil
}

func coerceValue(spec core.ArgSpec, raw interface{}) (interface{}, error) {
	switch spec.Type {
	case core.ArgTypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
				"argument %q must be a string", spec.Name).WithDetail("field", spec.Name)
		}
		return s, nil

	case core.ArgTypeInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
					"argument %q must be an integer", spec.Name).WithDetail("field", spec.Name)
			}
			return n, nil
		default:
			return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
				"argument %q must be an integer", spec.Name).WithDetail("field", spec.Name)
		}

	case core.ArgTypeJSON:
		switch v := raw.(type) {
		case string:
			var parsed interface{}
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				return nil, dberrors.Wrap(err, dberrors.ErrorTypeInvalidArgument,
					fmt.Sprintf("argument %q is not valid JSON", spec.Name)).
					WithDetail("field", spec.Name)
			}
			return parsed, nil
		case map[string]interface{}, []interface{}:
			// Already structured, e.g. from a client that sent real JSON
			return v, nil
		default:
			return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
				"argument %q must be a JSON document", spec.Name).WithDetail("field", spec.Name)
		}

	default:
		return nil, dberrors.Newf(dberrors.ErrorTypeInternal,
			"argument %q has unknown spec type %q", spec.Name, spec.Type)
	}
}

// Instances returns the configured instances in declaration order.
func (r *Registry) Instances() []InstanceInfo {
	infos := make([]InstanceInfo, 0, len(r.order))
	for _, id := range r.order {
		inst := r.instances[id]
		info := InstanceInfo{
			ID:        id,
			Type:      inst.cap.Type,
			Available: inst.lease != nil && !r.isClosed(),
		}
		if inst.connectErr != nil {
			info.Error = inst.connectErr.Error()
		}
		infos = append(infos, info)
	}
	return infos
}

// Available returns the free lease count for an instance; -1 when the
// instance is unknown or degraded. Intended for tests and diagnostics.
func (r *Registry) Available(dbID string) int {
	inst, ok := r.instances[dbID]
	if !ok || inst.lease == nil {
		return -1
	}
	return inst.lease.Available()
}

// Close shuts down every instance pool. Runs once; afterwards all dispatches
// fail with instance_unavailable. In-flight calls keep their handles until
// they release.
func (r *Registry) Close(ctx context.Context) error {
	var firstErr error
	r.closeOnce.Do(func() {
		r.closedMu.Lock()
		r.closed = true
		r.closedMu.Unlock()

		for _, id := range r.order {
			inst := r.instances[id]
			if inst.lease == nil {
				continue
			}
			if err := inst.lease.Close(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
			metrics.InstanceUp.WithLabelValues(id, inst.cap.Type).Set(0)
			r.logger.Info("database pool closed", zap.String("db_id", id))
		}
	})
	return firstErr
}

func (r *Registry) isClosed() bool {
	r.closedMu.RLock()
	defer r.closedMu.RUnlock()
	return r.closed
}
