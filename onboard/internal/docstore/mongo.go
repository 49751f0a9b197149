package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection the onboarding UI reads.
const DefaultCollection = "customer_onboarding"

// MongoStore keeps documents in a MongoDB collection keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and selects database/collection.
func NewMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("docstore: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore: mongo ping: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// Exists reports whether a document with _id = id is stored.
func (s *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("docstore: mongo exists %s: %w", id, err)
	}
	return n > 0, nil
}

// Insert stores doc. An existing _id yields ErrDuplicate.
func (s *MongoStore) Insert(ctx context.Context, doc Document) error {
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if MapError(err) == ErrDuplicate {
			return fmt.Errorf("%w: %s", ErrDuplicate, doc.ID)
		}
		return fmt.Errorf("docstore: mongo insert %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document stored under id.
func (s *MongoStore) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if MapError(err) == ErrNotFound {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Document{}, fmt.Errorf("docstore: mongo get %s: %w", id, err)
	}
	return doc, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
