package handler

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/service"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

type fileOpener interface {
	Open(token string) (*service.StoredFile, error)
}

// FileHandler streams uploaded documents behind signed links.
type FileHandler struct {
	files fileOpener
}

// NewFileHandler constructs the handler.
func NewFileHandler(files fileOpener) *FileHandler {
	return &FileHandler{files: files}
}

// Download godoc
// @Summary Download an uploaded document
// @Description Resolves a signed, expiring link issued in API responses
// @Tags Files
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	file, err := h.files.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Content.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, file.Size, contentType, file.Content, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, file.Name),
	})
}
