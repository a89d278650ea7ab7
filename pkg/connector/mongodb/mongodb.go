// Package mongodb implements the document backend capability using the
// official MongoDB driver.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/connector/core"
	"github.com/trupti79916/mcp-multiple-db-toolbox/pkg/dberrors"
)

const serverSelectionTimeout = 5 * time.Second

// Handle wraps a mongo client scoped to one configured database.
type Handle struct {
	client *mongo.Client
	db     *mongo.Database
}

// Ping verifies the deployment is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (h *Handle) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}

// Database exposes the scoped database for executors.
func (h *Handle) Database() *mongo.Database {
	return h.db
}

func connect(ctx context.Context, params core.Params) (core.Handle, error) {
	opts := options.Client().
		ApplyURI(params["uri"]).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "failed to create mongodb client")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, dberrors.Wrap(err, dberrors.ErrorTypeConnection, "mongodb ping failed")
	}

	return &Handle{client: client, db: client.Database(params["database"])}, nil
}

// find returns documents matching a filter, with an optional projection.
func find(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	filter, err := documentArg(args, "filter")
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if _, ok := args["projection"]; ok {
		projection, err := documentArg(args, "projection")
		if err != nil {
			return nil, err
		}
		findOpts.SetProjection(projection)
	}

	collection := h.db.Collection(args["collection"].(string))
	cursor, err := collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		results = append(results, normalizeDocument(doc))
	}
	return results, nil
}

// insert adds one document and returns its id as a hex string.
func insert(ctx context.Context, handle core.Handle, args map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)

	doc, err := documentArg(args, "document")
	if err != nil {
		return nil, err
	}

	collection := h.db.Collection(args["collection"].(string))
	result, err := collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return idString(result.InsertedID), nil
}

// listCollections returns the collection names of the configured database.
func listCollections(ctx context.Context, handle core.Handle, _ map[string]interface{}) (interface{}, error) {
	h := handle.(*Handle)
	names, err := h.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// documentArg fetches an already-coerced JSON argument as a bson document.
func documentArg(args map[string]interface{}, name string) (bson.M, error) {
	raw, ok := args[name]
	if !ok {
		return bson.M{}, nil
	}
	doc, ok := raw.(map[string]interface{})
	if !ok {
		return nil, dberrors.Newf(dberrors.ErrorTypeInvalidArgument,
			"argument %q must be a JSON object", name).WithDetail("field", name)
	}
	return bson.M(doc), nil
}

// normalizeDocument makes a result document JSON-friendly by stringifying
// the ObjectId primary key.
func normalizeDocument(doc bson.M) map[string]interface{} {
	if id, ok := doc["_id"]; ok {
		doc["_id"] = idString(id)
	}
	return doc
}

func idString(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	if s, ok := id.(string); ok {
		return s
	}
	b, _ := bson.MarshalExtJSON(bson.M{"id": id}, false, false)
	return string(b)
}
