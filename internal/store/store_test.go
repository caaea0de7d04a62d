package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(min int) *time.Time {
	t := time.Date(2024, 6, 1, 19, min, 0, 0, time.UTC)
	return &t
}

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestSortRecords_CreatedAt(t *testing.T) {
	recs := []Record{
		{ID: "b", CreatedAt: ts(2)},
		{ID: "pending"},
		{ID: "a", CreatedAt: ts(1)},
		{ID: "c", CreatedAt: ts(3)},
	}

	SortRecords(recs, CreatedAtField, Desc)
	require.Equal(t, []string{"c", "b", "a", "pending"}, ids(recs))

	SortRecords(recs, CreatedAtField, Asc)
	require.Equal(t, []string{"a", "b", "c", "pending"}, ids(recs))
}

func TestSortRecords_FieldsAndTies(t *testing.T) {
	recs := []Record{
		{ID: "2", Fields: map[string]any{"name": "Mia"}},
		{ID: "1", Fields: map[string]any{"name": "Mia"}},
		{ID: "3", Fields: map[string]any{"name": "Ava"}},
		{ID: "4", Fields: map[string]any{"rank": int64(3)}},
	}
	SortRecords(recs, "name", Asc)
	require.Equal(t, []string{"3", "1", "2", "4"}, ids(recs))
}

func TestCompareValues_Numbers(t *testing.T) {
	require.Equal(t, -1, compareValues(1, 2.5))
	require.Equal(t, 1, compareValues(int64(9), int32(3)))
	require.Equal(t, 0, compareValues(2.0, 2))
}

func TestDirectionString(t *testing.T) {
	require.Equal(t, "desc", Desc.String())
	require.Equal(t, "asc", Asc.String())
}

func TestCollectionName(t *testing.T) {
	require.Equal(t, "artifacts.app.public.data.stories", CollectionName("artifacts/app/public/data/stories"))
	require.Equal(t, "feedback", CollectionName("/feedback/"))
}

func TestRecordValue(t *testing.T) {
	r := Record{ID: "x", Fields: map[string]any{"title": "t"}}
	require.Nil(t, r.Value(CreatedAtField))
	require.Equal(t, "t", r.String("title"))
	require.Equal(t, "", r.String("missing"))
	require.Equal(t, "", Record{}.String("title"))
}

func TestPaths(t *testing.T) {
	p := Paths{AppID: "recital-2024"}
	require.Equal(t, "artifacts/recital-2024/public/data/stories", p.Stories())
	require.Equal(t, "artifacts/recital-2024/public/data/comments", p.Comments())
	require.Equal(t, "artifacts/default-app-id/public/data/feedback", Paths{AppID: "  "}.Feedback())
}
