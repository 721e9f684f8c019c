package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// FolderTemplates is the prefix for certificate template images.
	FolderTemplates = "templates"
	// FolderCertificates is the prefix for rendered certificate PDFs.
	FolderCertificates = "certificates"
)

// Store is the artifact store the certificate pipeline reads templates from
// and writes rendered PDFs to. Objects are addressed by path-style keys.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// TemplateKey returns the object key for an event's certificate template.
func TemplateKey(eventID, filename string) string {
	return path.Join(FolderTemplates, eventID, path.Base(filename))
}

// CertificateKey returns the object key for a rendered certificate PDF.
func CertificateKey(eventID, certificateNumber string) string {
	safe := strings.ReplaceAll(certificateNumber, "/", "-")
	return path.Join(FolderCertificates, eventID, safe+".pdf")
}

// LocalStore writes artifacts under a base directory on the local filesystem.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local filesystem store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) fullPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *LocalStore) Save(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	full := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.fullPath(key))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
