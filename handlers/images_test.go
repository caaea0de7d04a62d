package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/recitalsite/recital/backend/go-services/internal/storage"
)

type fakeUploader struct {
	got []byte
}

func (f *fakeUploader) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, string, error) {
	key, err := storage.ImageKey(contentType, size)
	if err != nil {
		return "", "", err
	}
	f.got, _ = io.ReadAll(r)
	return key, "https://images.test/" + key, nil
}

func imageRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/stories/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImages_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	up := &fakeUploader{}
	r := gin.New()
	RegisterImageRoutes(r.Group("/"), up)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Key      string `json:"key"`
		ImageURL string `json:"imageUrl"`
	}
	decode(t, w, &body)
	require.Regexp(t, `^stories/.+\.png$`, body.Key)
	require.Equal(t, "https://images.test/"+body.Key, body.ImageURL)
	require.Equal(t, []byte("png-bytes"), up.got)
}

func TestImages_RejectsUnsupportedType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterImageRoutes(r.Group("/"), &fakeUploader{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t, "application/pdf", []byte("%PDF")))
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestImages_MissingField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterImageRoutes(r.Group("/"), &fakeUploader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stories/images", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
