package service

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
	"github.com/noah-isme/attachment-portal-api/pkg/storage"
)

var (
	membershipCardTypes = []string{"pdf", "jpg", "jpeg", "png"}
	returnFileTypes     = []string{"pdf", "xlsx", "xls", "csv"}
)

const (
	membershipCardDir = "membership_cards"
	returnFileDir     = "nssf_returns"
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

type fileStore interface {
	SaveUpload(dir, originalName string, r io.Reader, allowed []string) (string, error)
	Open(rel string) (*os.File, error)
	Delete(rel string) error
}

type tokenSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string) (subject, relPath string, expiresAt time.Time, err error)
}

// StoredFile is an opened upload ready to stream.
type StoredFile struct {
	Name    string
	Size    int64
	Content io.ReadCloser
}

// FileService stores uploads and hands out expiring download links for them.
type FileService struct {
	store  fileStore
	signer tokenSigner
	prefix string
	logger *zap.Logger
}

// NewFileService constructs a FileService. prefix is the public path that
// download tokens are appended to, e.g. "/api/v1/files/".
func NewFileService(store fileStore, signer tokenSigner, prefix string, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &FileService{store: store, signer: signer, prefix: prefix, logger: logger}
}

// Save validates the upload against allowed and stores it under dir.
func (s *FileService) Save(dir string, upload Upload, allowed []string) (string, error) {
	rel, err := s.store.SaveUpload(dir, upload.Filename, upload.Content, allowed)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				"unsupported file extension, allowed: "+strings.Join(allowed, ", "))
		case errors.Is(err, storage.ErrTooLarge):
			return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is too large")
		default:
			return "", internalError(err, "failed to store file")
		}
	}
	return rel, nil
}

// Discard removes a stored file, logging failures.
func (s *FileService) Discard(rel string) {
	if rel == "" {
		return
	}
	if err := s.store.Delete(rel); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", rel), zap.Error(err))
	}
}

// Link returns a signed download URL for rel, or "" if signing fails.
func (s *FileService) Link(subject, rel string) string {
	if rel == "" {
		return ""
	}
	token, _, err := s.signer.Generate(subject, rel)
	if err != nil {
		s.logger.Warn("failed to sign download link", zap.String("subject", subject), zap.Error(err))
		return ""
	}
	return s.prefix + token
}

// Open resolves a download token to the stored file.
func (s *FileService) Open(token string) (*StoredFile, error) {
	_, rel, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.store.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, internalError(err, "failed to open file")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, internalError(err, "failed to stat file")
	}
	return &StoredFile{Name: filepath.Base(rel), Size: info.Size(), Content: file}, nil
}
