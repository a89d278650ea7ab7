package mongodb

import (
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/registry"
)

func init() {
	registry.Register(&core.Capability{
		Type:        "mongodb",
		Description: "MongoDB document database",
		Required:    []string{"uri", "database"},
		Operations: []core.Operation{
			{
				Name:        "find",
				Description: "Find documents in a collection matching a filter.",
				Args: []core.ArgSpec{
					{Name: "collection", Type: core.ArgTypeString, Required: true, Description: "Collection name"},
					{Name: "filter", Type: core.ArgTypeJSON, Required: true, Description: "JSON filter document"},
					{Name: "projection", Type: core.ArgTypeJSON, Required: false, Description: "JSON projection document"},
				},
				Execute: find,
			},
			{
				Name:        "insert",
				Description: "Insert one document into a collection; returns the inserted id.",
				Args: []core.ArgSpec{
					{Name: "collection", Type: core.ArgTypeString, Required: true, Description: "Collection name"},
					{Name: "document", Type: core.ArgTypeJSON, Required: true, Description: "JSON document to insert"},
				},
				Execute: insert,
			},
			{
				Name:        "list_collections",
				Description: "List collection names in the configured database.",
				Execute:     listCollections,
			},
		},
		Connect: connect,
	})
}
