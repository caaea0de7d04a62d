package realtime

import (
	"context"

	"github.com/recitalsite/recital/backend/go-services/internal/store"
)

// Decoder converts a record to T. Returning false drops the record from the
// view, which is how client-side filters are expressed.
type Decoder[T any] func(store.Record) (T, bool)

// View is a typed projection of a Subscription.
type View[T any] struct {
	sub    *Subscription
	decode Decoder[T]
}

func NewView[T any](sub *Subscription, decode Decoder[T]) *View[T] {
	return &View[T]{sub: sub, decode: decode}
}

// Next returns the next snapshot decoded and filtered, preserving order.
func (v *View[T]) Next(ctx context.Context) ([]T, error) {
	snap, err := v.sub.Next(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if item, ok := v.decode(rec); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (v *View[T]) Cancel()               { v.sub.Cancel() }
func (v *View[T]) ID() string            { return v.sub.ID() }
func (v *View[T]) Done() <-chan struct{} { return v.sub.Done() }
func (v *View[T]) Err() error            { return v.sub.Err() }
