package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recitalsite/recital/backend/go-services/internal/content"
	"github.com/recitalsite/recital/backend/go-services/internal/identity"
	"github.com/recitalsite/recital/backend/go-services/internal/realtime"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
	"github.com/recitalsite/recital/backend/go-services/pkg/middleware"
)

// listWait bounds how long a one-shot listing waits for the first snapshot.
const listWait = 10 * time.Second

// ContentHandler exposes the content repository to the presentation layer.
type ContentHandler struct {
	repo *content.Repository
	boot *identity.Bootstrapper
}

func NewContentHandler(repo *content.Repository, boot *identity.Bootstrapper) *ContentHandler {
	return &ContentHandler{repo: repo, boot: boot}
}

// Register routes under the given group (normally /api/v1). writeMW runs
// before every create handler (rate limiting).
func (h *ContentHandler) Register(rg *gin.RouterGroup, writeMW ...gin.HandlerFunc) {
	rg.GET("/stories", h.ListStories)
	rg.POST("/stories", chain(writeMW, h.CreateStory)...)
	rg.GET("/stories/:id", h.GetStory)
	rg.GET("/stories/:id/comments", h.ListComments)
	rg.POST("/stories/:id/comments", chain(writeMW, h.CreateComment)...)
	rg.GET("/comments/:id", h.GetComment)
	rg.GET("/feedback", h.ListFeedback)
	rg.POST("/feedback", chain(writeMW, h.CreateFeedback)...)
	rg.GET("/feedback/:id", h.GetFeedback)
}

func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	return append(append(out, mw...), h)
}

// callerID prefers the verified token subject and falls back to the process
// identity established at bootstrap.
func callerID(c *gin.Context, boot *identity.Bootstrapper) (string, error) {
	if sub, ok := middleware.Subject(c); ok {
		return sub, nil
	}
	id, err := boot.Identity()
	if err != nil {
		return "", err
	}
	return id.ID, nil
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var verr *content.ValidationError
	var werr *content.WriteError
	var serr *realtime.SubscriptionError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, identity.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "identity not ready"})
	case errors.As(err, &werr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "write failed", "details": werr.Err.Error()})
	case errors.As(err, &serr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "live query failed", "details": serr.Err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "backend timeout"})
	default:
		logger.Errorf("content request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// firstSnapshot returns the current contents of a view and closes it.
func firstSnapshot[T any](ctx context.Context, view *realtime.View[T]) ([]T, error) {
	defer view.Cancel()
	ctx, cancel := context.WithTimeout(ctx, listWait)
	defer cancel()
	return view.Next(ctx)
}

func (h *ContentHandler) ListStories(c *gin.Context) {
	view, err := h.repo.SubscribeStories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := firstSnapshot(c.Request.Context(), view)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateStory accepts { title, content, imageUrl } and returns { id }
func (h *ContentHandler) CreateStory(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		ImageURL string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	author, err := callerID(c, h.boot)
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := h.repo.CreateStory(c.Request.Context(), content.Story{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		AuthorID: author,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ContentHandler) GetStory(c *gin.Context) {
	s, err := h.repo.GetStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": s, "createdAtDisplay": content.FormatCreatedAt(s.CreatedAt)})
}

// ListComments returns the comments of one story, oldest first.
func (h *ContentHandler) ListComments(c *gin.Context) {
	view, err := h.repo.SubscribeCommentsForStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := firstSnapshot(c.Request.Context(), view)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateComment accepts { commentText, commenterName } for the story in the path.
// The story is not required to exist.
func (h *ContentHandler) CreateComment(c *gin.Context) {
	var req struct {
		CommentText   string `json:"commentText"`
		CommenterName string `json:"commenterName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := callerID(c, h.boot)
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := h.repo.CreateComment(c.Request.Context(), content.Comment{
		StoryID:       c.Param("id"),
		CommentText:   req.CommentText,
		CommenterName: req.CommenterName,
		UserID:        user,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ContentHandler) GetComment(c *gin.Context) {
	cm, err := h.repo.GetComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": cm, "createdAtDisplay": content.FormatCreatedAt(cm.CreatedAt)})
}

func (h *ContentHandler) ListFeedback(c *gin.Context) {
	view, err := h.repo.SubscribeFeedback(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := firstSnapshot(c.Request.Context(), view)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateFeedback accepts { name, email, message } and returns { id }
func (h *ContentHandler) CreateFeedback(c *gin.Context) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := callerID(c, h.boot)
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := h.repo.CreateFeedback(c.Request.Context(), content.Feedback{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		UserID:  user,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ContentHandler) GetFeedback(c *gin.Context) {
	f, err := h.repo.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": f, "createdAtDisplay": content.FormatCreatedAt(f.CreatedAt)})
}
