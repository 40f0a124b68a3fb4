// Package storage keeps message attachments on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const attachmentsPrefix = "attachments"

// AttachmentStore stores uploaded files and resolves their references to URLs.
type AttachmentStore interface {
	Store(ctx context.Context, content []byte) (string, error)
	Resolve(ref string) string
	// Remove deletes a stored attachment; a missing file is not an error.
	Remove(ctx context.Context, ref string) error
}

// LocalStore writes attachments under a root directory.
type LocalStore struct {
	root     string
	baseURL  string
	maxBytes int64
}

// NewLocalStore builds a store rooted at dir, served under baseURL.
func NewLocalStore(dir, baseURL string, maxBytes int64) *LocalStore {
	return &LocalStore{root: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}
}

// Store writes content and returns its opaque reference path.
func (s *LocalStore) Store(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", apperrors.NewValidationError("attachment is empty", nil)
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return "", apperrors.NewValidationError("attachment too large", map[string]any{
			"max_bytes": s.maxBytes,
			"size":      len(content),
		})
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := path.Join(attachmentsPrefix, uuid.NewString()+mimetype.Detect(content).Extension())
	full := filepath.Join(s.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return ref, nil
}

// Resolve turns a stored reference into a download URL.
func (s *LocalStore) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// Remove deletes the file behind ref.
func (s *LocalStore) Remove(_ context.Context, ref string) error {
	clean := path.Clean("/" + ref)
	if !strings.HasPrefix(clean, "/"+attachmentsPrefix+"/") {
		return apperrors.NewValidationError("invalid attachment reference", nil)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// Root is the directory attachments are written to.
func (s *LocalStore) Root() string {
	return s.root
}
