package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/internal/store"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/metrics"
)

// Repository provides typed create/get/subscribe over the three content
// collections of one app namespace.
type Repository struct {
	backend  store.Backend
	registry *realtime.Registry
	paths    store.Paths
	log      *zap.SugaredLogger
	newID    func() string
}

func NewRepository(backend store.Backend, registry *realtime.Registry, paths store.Paths) *Repository {
	return &Repository{
		backend:  backend,
		registry: registry,
		paths:    paths,
		log:      logger.Named("content"),
		newID:    uuid.NewString,
	}
}

// Paths returns the collection paths the repository writes to.
func (r *Repository) Paths() store.Paths { return r.paths }

func required(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return v, nil
}

// create resolves once the backend has accepted or rejected the write.
func (r *Repository) create(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	if id == "" {
		id = r.newID()
	}
	if err := r.backend.Create(ctx, collection, id, fields); err != nil {
		metrics.Writes.WithLabelValues(collection, "error").Inc()
		r.log.Errorw("create failed", "collection", collection, "id", id, "error", err)
		return "", &WriteError{Collection: collection, ID: id, Err: err}
	}
	metrics.Writes.WithLabelValues(collection, "ok").Inc()
	return id, nil
}

func (r *Repository) get(ctx context.Context, collection, id string) (store.Record, error) {
	if strings.TrimSpace(id) == "" {
		return store.Record{}, ErrNotFound
	}
	rec, err := r.backend.Get(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Record{}, ErrNotFound
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// CreateStory validates s and stores it. A non-empty s.ID is used as the
// record id; otherwise one is generated. An empty image resolves to
// PlaceholderImageURL.
func (r *Repository) CreateStory(ctx context.Context, s Story) (string, error) {
	title, err := required("title", s.Title)
	if err != nil {
		return "", err
	}
	body, err := required("content", s.Content)
	if err != nil {
		return "", err
	}
	author, err := required("authorId", s.AuthorID)
	if err != nil {
		return "", err
	}
	image := strings.TrimSpace(s.ImageURL)
	if image == "" {
		image = PlaceholderImageURL
	}
	return r.create(ctx, r.paths.Stories(), s.ID, map[string]any{
		"title":    title,
		"content":  body,
		"imageUrl": image,
		"authorId": author,
	})
}

func (r *Repository) GetStory(ctx context.Context, id string) (Story, error) {
	rec, err := r.get(ctx, r.paths.Stories(), id)
	if err != nil {
		return Story{}, err
	}
	s, _ := StoryFromRecord(rec)
	return s, nil
}

// SubscribeStories streams all stories, newest first.
func (r *Repository) SubscribeStories(ctx context.Context) (*realtime.View[Story], error) {
	sub, err := r.registry.Subscribe(ctx, r.paths.Stories(), store.CreatedAtField, store.Desc)
	if err != nil {
		return nil, err
	}
	return realtime.NewView(sub, StoryFromRecord), nil
}

func (r *Repository) CreateComment(ctx context.Context, c Comment) (string, error) {
	storyID, err := required("storyId", c.StoryID)
	if err != nil {
		return "", err
	}
	text, err := required("commentText", c.CommentText)
	if err != nil {
		return "", err
	}
	name, err := required("commenterName", c.CommenterName)
	if err != nil {
		return "", err
	}
	user, err := required("userId", c.UserID)
	if err != nil {
		return "", err
	}
	return r.create(ctx, r.paths.Comments(), c.ID, map[string]any{
		"storyId":       storyID,
		"commentText":   text,
		"commenterName": name,
		"userId":        user,
	})
}

func (r *Repository) GetComment(ctx context.Context, id string) (Comment, error) {
	rec, err := r.get(ctx, r.paths.Comments(), id)
	if err != nil {
		return Comment{}, err
	}
	c, _ := CommentFromRecord(rec)
	return c, nil
}

// SubscribeComments streams every comment of every story, oldest first.
func (r *Repository) SubscribeComments(ctx context.Context) (*realtime.View[Comment], error) {
	sub, err := r.registry.Subscribe(ctx, r.paths.Comments(), store.CreatedAtField, store.Asc)
	if err != nil {
		return nil, err
	}
	return realtime.NewView(sub, CommentFromRecord), nil
}

// SubscribeCommentsForStory subscribes to all comments and keeps those of
// storyID. The filter runs here, not in the backend.
func (r *Repository) SubscribeCommentsForStory(ctx context.Context, storyID string) (*realtime.View[Comment], error) {
	sub, err := r.registry.Subscribe(ctx, r.paths.Comments(), store.CreatedAtField, store.Asc)
	if err != nil {
		return nil, err
	}
	return realtime.NewView(sub, CommentsForStory(storyID)), nil
}

func (r *Repository) CreateFeedback(ctx context.Context, f Feedback) (string, error) {
	name, err := required("name", f.Name)
	if err != nil {
		return "", err
	}
	msg, err := required("message", f.Message)
	if err != nil {
		return "", err
	}
	user, err := required("userId", f.UserID)
	if err != nil {
		return "", err
	}
	fields := map[string]any{
		"name":    name,
		"message": msg,
		"userId":  user,
		"email":   strings.TrimSpace(f.Email),
	}
	return r.create(ctx, r.paths.Feedback(), f.ID, fields)
}

func (r *Repository) GetFeedback(ctx context.Context, id string) (Feedback, error) {
	rec, err := r.get(ctx, r.paths.Feedback(), id)
	if err != nil {
		return Feedback{}, err
	}
	f, _ := FeedbackFromRecord(rec)
	return f, nil
}

// SubscribeFeedback streams all feedback, newest first.
func (r *Repository) SubscribeFeedback(ctx context.Context) (*realtime.View[Feedback], error) {
	sub, err := r.registry.Subscribe(ctx, r.paths.Feedback(), store.CreatedAtField, store.Desc)
	if err != nil {
		return nil, err
	}
	return realtime.NewView(sub, FeedbackFromRecord), nil
}
