package handler

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/service"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

type fakeFileOpener struct {
	file      *service.StoredFile
	err       error
	lastToken string
}

func (f *fakeFileOpener) Open(token string) (*service.StoredFile, error) {
	f.lastToken = token
	return f.file, f.err
}

func TestFileHandlerStreamsAndCloses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	content := &trackingReader{Reader: strings.NewReader("%PDF-1.4")}
	opener := &fakeFileOpener{file: &service.StoredFile{Name: "card.pdf", Size: 8, Content: content}}
	handler := NewFileHandler(opener)

	c, rec := newGinContext(http.MethodGet, "/files/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", opener.lastToken)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="card.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.True(t, content.closed)
}

func TestFileHandlerExpiredLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFileHandler(&fakeFileOpener{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})

	c, rec := newGinContext(http.MethodGet, "/files/old", nil)
	c.Params = gin.Params{{Key: "token", Value: "old"}}
	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "download link expired")
}
