package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recitalsite/recital/backend/go-services/internal/storage"
	"github.com/recitalsite/recital/backend/go-services/pkg/logger"
)

// ImageUploader is satisfied by *storage.ImageStore.
type ImageUploader interface {
	Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (key, imageURL string, err error)
}

// RegisterImageRoutes adds POST /stories/images. The returned imageUrl is
// meant to be sent back as Story.imageUrl. With a nil uploader the route
// answers 503.
func RegisterImageRoutes(rg *gin.RouterGroup, up ImageUploader, mw ...gin.HandlerFunc) {
	rg.POST("/stories/images", chain(mw, func(c *gin.Context) {
		if up == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxImageSize+1<<20)
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"image\" required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()

		key, url, err := up.Upload(c.Request.Context(), f, fh.Size, fh.Header.Get("Content-Type"))
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		case errors.Is(err, storage.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		case err != nil:
			logger.Errorf("image upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"key": key, "imageUrl": url})
	})...)
}
