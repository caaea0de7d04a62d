package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend implements Backend on a MongoDB database. Collection paths map
// to collection names with "/" replaced by "."; record ids are stored as _id.
// Live queries use change streams and therefore need a replica set.
type MongoBackend struct {
	db *mongo.Database
}

func NewMongoBackend(db *mongo.Database) *MongoBackend {
	return &MongoBackend{db: db}
}

// CollectionName maps a logical collection path to a Mongo collection name.
func CollectionName(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

func (m *MongoBackend) col(path string) *mongo.Collection {
	return m.db.Collection(CollectionName(path))
}

// Create upserts with a filter that never matches an existing record, so a
// taken id surfaces as a duplicate key error. createdAt is set to the
// server's $$NOW.
func (m *MongoBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == "" {
		return ErrUnknownCollection
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == CreatedAtField || k == "_id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := bson.D{}
	for _, k := range keys {
		set = append(set, bson.E{Key: k, Value: bson.D{{Key: "$literal", Value: fields[k]}}})
	}
	set = append(set, bson.E{Key: CreatedAtField, Value: "$$NOW"})

	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: CreatedAtField, Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := mongo.Pipeline{{{Key: "$set", Value: set}}}
	_, err := m.col(collection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return createError(collection, id, err)
}

// createError maps a duplicate _id on upsert to ErrAlreadyExists.
func createError(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return fmt.Errorf("mongo create %s/%s: %w", collection, id, err)
}

func (m *MongoBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	if collection == "" {
		return Record{}, ErrUnknownCollection
	}
	var doc bson.M
	if err := m.col(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("mongo get %s/%s: %w", collection, id, err)
	}
	return recordFromBSON(doc), nil
}

func (m *MongoBackend) find(ctx context.Context, q Query) ([]Record, error) {
	order := 1
	if q.Direction == Desc {
		order = -1
	}
	opts := options.Find()
	if q.OrderBy != "" {
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: order}, {Key: "_id", Value: 1}})
	}
	cur, err := m.col(q.Collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, recordFromBSON(doc))
	}
	return out, cur.Err()
}

// Watch emits the ordered result set once, then again after every change
// event on the collection.
func (m *MongoBackend) Watch(ctx context.Context, q Query) (<-chan Event, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	stream, err := m.col(q.Collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("mongo watch %s: %w", q.Collection, err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		emit := func() bool {
			recs, err := m.find(ctx, q)
			ev := Event{Records: recs}
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				ev = Event{Err: fmt.Errorf("mongo query %s: %w", q.Collection, err)}
			}
			select {
			case out <- ev:
				return ev.Err == nil
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for stream.Next(ctx) {
			if !emit() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- Event{Err: fmt.Errorf("mongo change stream %s: %w", q.Collection, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (m *MongoBackend) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func recordFromBSON(doc bson.M) Record {
	rec := Record{Fields: make(map[string]any, len(doc))}
	for k, v := range doc {
		switch k {
		case "_id":
			rec.ID = fmt.Sprint(v)
		case CreatedAtField:
			if t, ok := bsonTime(v); ok {
				rec.CreatedAt = &t
			}
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}

func bsonTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), true
	case time.Time:
		return t.UTC(), true
	}
	return time.Time{}, false
}
