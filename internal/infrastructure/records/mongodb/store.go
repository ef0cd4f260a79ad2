// Package mongodb provides the MongoDB record store implementation. Each
// logical table maps to a collection; record fields are stored as the
// document body with a string _id.
package mongodb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/heritagebox/chat-service/internal/core/records"
)

// Store implements the records.Store interface for MongoDB.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// StoreConfig holds MongoDB connection configuration.
type StoreConfig struct {
	URI          string
	DatabaseName string
}

// NewStore creates a new MongoDB record store.
func NewStore(ctx context.Context, config *StoreConfig) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{
		client:   client,
		database: client.Database(config.DatabaseName),
	}, nil
}

// FindByField returns records whose field equals value.
func (s *Store) FindByField(ctx context.Context, table, field string, value any) ([]records.Record, error) {
	cursor, err := s.database.Collection(table).Find(ctx, bson.M{field: value})
	if err != nil {
		return nil, fmt.Errorf("failed to find records in %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	return decodeRecords(ctx, cursor)
}

// List returns all records in a table.
func (s *Store) List(ctx context.Context, table string) ([]records.Record, error) {
	cursor, err := s.database.Collection(table).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list records in %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	return decodeRecords(ctx, cursor)
}

// Create inserts a new record with a generated string id.
func (s *Store) Create(ctx context.Context, table string, fields map[string]any) (*records.Record, error) {
	id := "rec" + uuid.NewString()

	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := s.database.Collection(table).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create record in %s: %w", table, err)
	}

	return &records.Record{ID: id, Fields: fields}, nil
}

// Update patches fields on an existing record.
func (s *Store) Update(ctx context.Context, table, id string, fields map[string]any) (*records.Record, error) {
	result, err := s.database.Collection(table).UpdateByID(ctx, id, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return nil, fmt.Errorf("failed to update record %s in %s: %w", id, table, err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("record %s not found in %s", id, table)
	}

	return &records.Record{ID: id, Fields: fields}, nil
}

// EnsureIndexes creates the lookup indexes used by the chat flow: email
// lookups on customers and prospects, order-number lookups on orders.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string]string{
		records.TableCustomers: "Email",
		records.TableProspects: "Email",
		records.TableOrders:    "Order Number",
	}

	for table, field := range indexes {
		_, err := s.database.Collection(table).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create index on %s.%s: %w", table, field, err)
		}
	}
	return nil
}

// Ping verifies the connection to MongoDB.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}

// decodeRecords drains a cursor into Record values.
func decodeRecords(ctx context.Context, cursor *mongo.Cursor) ([]records.Record, error) {
	var out []records.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}

		rec := records.Record{Fields: make(map[string]any, len(doc))}
		for k, v := range doc {
			if k == "_id" {
				if id, ok := v.(string); ok {
					rec.ID = id
				} else {
					rec.ID = fmt.Sprintf("%v", v)
				}
				continue
			}
			rec.Fields[k] = v
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}
