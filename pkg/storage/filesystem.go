package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned when an upload's extension is not allowed.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStorage persists uploaded files on disk under a base directory.
type LocalStorage struct {
	baseDir  string
	maxBytes int64
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// maxBytes <= 0 disables the size limit.
func NewLocalStorage(baseDir string, maxBytes int64) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, maxBytes: maxBytes}, nil
}

// CheckExtension validates filename against a lowercase extension allow-list
// (without dots) and returns the normalised extension.
func CheckExtension(filename string, allowed []string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, a := range allowed {
		if ext == a {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: .%s (allowed: %s)", ErrUnsupportedType, ext, strings.Join(allowed, ", "))
}

// SaveUpload stores r under dir with a collision-free name derived from
// originalName and returns the path relative to the base directory.
func (s *LocalStorage) SaveUpload(dir, originalName string, r io.Reader, allowed []string) (string, error) {
	if _, err := CheckExtension(originalName, allowed); err != nil {
		return "", err
	}
	name := unsafeChars.ReplaceAllString(filepath.Base(originalName), "_")
	rel := filepath.ToSlash(filepath.Join(dir, uuid.NewString()[:8]+"_"+name))

	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if copyErr == nil && s.maxBytes > 0 && n > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		if errors.Is(copyErr, ErrTooLarge) {
			return "", copyErr
		}
		return "", fmt.Errorf("write upload: %w", copyErr)
	}
	return rel, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(rel string) (*os.File, error) {
	file, err := os.Open(s.resolve(rel))
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(rel string) error {
	if err := os.Remove(s.resolve(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// resolve maps rel onto the base directory. Rooting rel before cleaning
// discards any ".." segments that would climb out of it.
func (s *LocalStorage) resolve(rel string) string {
	return filepath.Join(s.baseDir, filepath.Clean("/"+filepath.FromSlash(rel)))
}
