package content

import (
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
)

func StoryFromRecord(rec store.Record) (Story, bool) {
	s := Story{
		ID:        rec.ID,
		Title:     rec.String("title"),
		Content:   rec.String("content"),
		ImageURL:  rec.String("imageUrl"),
		AuthorID:  rec.String("authorId"),
		CreatedAt: rec.CreatedAt,
	}
	if s.ImageURL == "" {
		s.ImageURL = PlaceholderImageURL
	}
	return s, true
}

func CommentFromRecord(rec store.Record) (Comment, bool) {
	return Comment{
		ID:            rec.ID,
		StoryID:       rec.String("storyId"),
		CommentText:   rec.String("commentText"),
		CommenterName: rec.String("commenterName"),
		UserID:        rec.String("userId"),
		CreatedAt:     rec.CreatedAt,
	}, true
}

func FeedbackFromRecord(rec store.Record) (Feedback, bool) {
	return Feedback{
		ID:        rec.ID,
		Name:      rec.String("name"),
		Email:     rec.String("email"),
		Message:   rec.String("message"),
		UserID:    rec.String("userId"),
		CreatedAt: rec.CreatedAt,
	}, true
}

// CommentsForStory decodes comments and keeps only those of storyID.
func CommentsForStory(storyID string) realtime.Decoder[Comment] {
	return func(rec store.Record) (Comment, bool) {
		if rec.String("storyId") != storyID {
			return Comment{}, false
		}
		return CommentFromRecord(rec)
	}
}
