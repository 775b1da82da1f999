// Package recordings keeps uploaded visit recordings between extraction and
// submission so they can be attached to the CRM record.
package recordings

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/visit-report-ai/internal/llm"
)

var (
	// ErrNotFound is returned when no recording exists for an ID.
	ErrNotFound = errors.New("recordings: not found")
	// ErrInvalidID is returned for IDs that were not issued by a store.
	ErrInvalidID = errors.New("recordings: invalid recording id")
)

// Store saves recordings under generated IDs and reads them back.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// NewID returns a fresh recording ID that keeps the original extension, so
// the CRM attachment still plays in the browser.
func NewID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !llm.IsKnownAudioExt(name) {
		ext = ".mp3"
	}
	return uuid.NewString() + ext
}

// ValidateID accepts only IDs of the form <uuid><known audio extension>.
func ValidateID(id string) error {
	ext := filepath.Ext(id)
	if ext == "" || !llm.IsKnownAudioExt(id) || ext != strings.ToLower(ext) {
		return ErrInvalidID
	}
	if _, err := uuid.Parse(strings.TrimSuffix(id, ext)); err != nil {
		return ErrInvalidID
	}
	return nil
}
