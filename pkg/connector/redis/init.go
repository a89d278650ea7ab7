package redis

import (
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
)

func init() {
	registry.Register(&core.Capability{
		Type:        "redis",
		Description: "Redis key-value store",
		Required:    []string{"host", "port", "db"},
		Operations: []core.Operation{
			{
				Name:        "get",
				Description: "Get the value stored at a key; nil when absent.",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true, Description: "Key to retrieve"},
				},
				Execute: get,
			},
			{
				Name:        "set",
				Description: "Store a value at a key with optional expiry.",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true, Description: "Key to set"},
					{Name: "value", Type: core.ArgTypeString, Required: true, Description: "Value to store"},
					{Name: "expiry_seconds", Type: core.ArgTypeInt, Required: false, Description: "Expiry in seconds"},
				},
				Execute: set,
			},
			{
				Name:        "delete",
				Description: "Delete a key; returns the number of keys removed.",
				Args: []core.ArgSpec{
					{Name: "key", Type: core.ArgTypeString, Required: true, Description: "Key to delete"},
				},
				Execute: del,
			},
		},
		Connect: connect,
	})
}
