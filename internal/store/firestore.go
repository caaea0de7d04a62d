package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend implements Backend on Cloud Firestore. Collection paths
// are used as-is; createdAt is a server timestamp and live queries are
// Firestore snapshot listeners.
type FirestoreBackend struct {
	client *firestore.Client
}

func NewFirestoreBackend(client *firestore.Client) *FirestoreBackend {
	return &FirestoreBackend{client: client}
}

func (f *FirestoreBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	if collection == "" {
		return ErrUnknownCollection
	}
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[CreatedAtField] = firestore.ServerTimestamp

	if _, err := f.client.Collection(collection).Doc(id).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return fmt.Errorf("firestore create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *FirestoreBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	if collection == "" {
		return Record{}, ErrUnknownCollection
	}
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("firestore get %s/%s: %w", collection, id, err)
	}
	return recordFromSnapshot(snap), nil
}

func (f *FirestoreBackend) Watch(ctx context.Context, q Query) (<-chan Event, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	query := f.client.Collection(q.Collection).Query
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	it := query.Snapshots(ctx)

	out := make(chan Event)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				select {
				case out <- Event{Err: fmt.Errorf("firestore listen %s: %w", q.Collection, err)}:
				case <-ctx.Done():
				}
				return
			}
			docs, err := qs.Documents.GetAll()
			ev := Event{}
			if err != nil {
				ev.Err = fmt.Errorf("firestore snapshot %s: %w", q.Collection, err)
			} else {
				ev.Records = make([]Record, 0, len(docs))
				for _, d := range docs {
					ev.Records = append(ev.Records, recordFromSnapshot(d))
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

func (f *FirestoreBackend) Close(ctx context.Context) error {
	if err := f.client.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func recordFromSnapshot(snap *firestore.DocumentSnapshot) Record {
	data := snap.Data()
	rec := Record{ID: snap.Ref.ID, Fields: make(map[string]any, len(data))}
	for k, v := range data {
		if k == CreatedAtField {
			if t, ok := v.(time.Time); ok {
				t = t.UTC()
				rec.CreatedAt = &t
			}
			continue
		}
		rec.Fields[k] = v
	}
	return rec
}
