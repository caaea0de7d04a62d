package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrUnknownCollection = errors.New("collection path is empty")
	ErrClosed            = errors.New("backend closed")
)

// CreatedAtField is the backend-assigned ordering timestamp present on every
// record written through a Backend.
const CreatedAtField = "createdAt"

// Direction orders a live query.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}


// Record is a backend-neutral document. CreatedAt is nil while the backend
// has not assigned a timestamp yet.
type Record struct {
	ID        string
	Fields    map[string]any
	CreatedAt *time.Time
}

// Value returns the named field, resolving CreatedAtField to the timestamp.
func (r Record) Value(field string) any {
	if field == CreatedAtField {
		if r.CreatedAt == nil {
			return nil
		}
		return *r.CreatedAt
	}
	if r.Fields == nil {
		return nil
	}
	return r.Fields[field]
}

// String returns a string field or "".
func (r Record) String(field string) string {
	s, _ := r.Value(field).(string)
	return s
}

func (r Record) clone() Record {
	out := Record{ID: r.ID, Fields: make(map[string]any, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// Query describes one live query.
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
}

func (q Query) validate() error {
	if strings.TrimSpace(q.Collection) == "" {
		return ErrUnknownCollection
	}
	return nil
}

// Event is one emission of a live query: either the full ordered result set
// or a terminal error.
type Event struct {
	Records []Record
	Err     error
}

// Backend is the remote document store.
type Backend interface {
	// Create stores fields under id with a backend-assigned createdAt.
	Create(ctx context.Context, collection, id string, fields map[string]any) error
	Get(ctx context.Context, collection, id string) (Record, error)
	// Watch opens a live query. The channel closes after a terminal error
	// event or once ctx is done.
	Watch(ctx context.Context, q Query) (<-chan Event, error)
	Close(ctx context.Context) error
}

// SortRecords orders records in place by field. Missing values sort last in
// either direction; ties fall back to id.
func SortRecords(records []Record, field string, dir Direction) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Value(field), records[j].Value(field)
		switch {
		case a == nil && b == nil:
			return records[i].ID < records[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compareValues(a, b)
		if c == 0 {
			return records[i].ID < records[j].ID
		}
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
