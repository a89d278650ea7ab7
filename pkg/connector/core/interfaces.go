// Package core defines the contracts shared by all backend connectors: the
// capability table entry a connector registers, the operation descriptors it
// exposes, and the opaque pooled handle its executors run against.
package core

import "context"

// Params are the resolved connection parameters for one declared instance.
type Params map[string]string

// Handle is a live pooled connection handle for one backend instance. The
// concrete type is connector-specific; executors type-assert it back.
type Handle interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases all underlying connections. Called exactly once, at
	// shutdown or after a failed build.
	Close(ctx context.Context) error
}

// ArgType constrains how a raw argument is validated and coerced before it
// reaches an executor.
type ArgType string

const (
	// ArgTypeString passes through unchanged.
	ArgTypeString ArgType = "string"
	// ArgTypeInt coerces from JSON numbers or numeric strings.
	ArgTypeInt ArgType = "int"
	// ArgTypeJSON parses serialized text into a document or array. A parse
	// failure is an invalid-argument error, never a backend error.
	ArgTypeJSON ArgType = "json"
)

// ArgSpec describes one argument of an operation.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Required    bool
	Description string
}

// Executor runs one operation against an acquired handle with validated,
// coerced arguments. It may block on network I/O; it must honor ctx.
type Executor func(ctx context.Context, handle Handle, args map[string]interface{}) (interface{}, error)

// Operation is a static, type-keyed descriptor of one callable operation.
type Operation struct {
	Name        string
	Description string
	Args        []ArgSpec
	Execute     Executor
}

// Capability is one entry of the connector capability table: the operation
// set a backend type exposes plus its connection lifecycle. Adding a backend
// family means registering a new Capability; the router never changes.
type Capability struct {
	// Type is the declaration type tag this capability serves.
	Type string
	// Description for the operation catalog.
	Description string
	// Required lists the connection parameter names the config validator
	// enforces for this type.
	Required []string
	// Operations in catalog order.
	Operations []Operation
	// Connect turns resolved parameters into a live pooled handle.
	Connect func(ctx context.Context, params Params) (Handle, error)
}

// Operation returns the named operation descriptor, if present.
func (c *Capability) Operation(name string) (*Operation, bool) {
	for i := range c.Operations {
		if c.Operations[i].Name == name {
			return &c.Operations[i], true
		}
	}
	return nil, false
}
