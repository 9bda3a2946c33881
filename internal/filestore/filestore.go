// Package filestore keeps uploaded lead pictures and follow-up attachments.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidKey key escapes the storage root
var ErrInvalidKey = errors.New("invalid file key")

// Store saves a file under key and returns the handle to persist.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	Delete(ctx context.Context, handle string) error
}

// LocalStore 本地磁盘存储，handle 为相对 root 的路径
type LocalStore struct {
	root    string
	maxSize int64
}

func NewLocalStore(root string, maxSize int64) *LocalStore {
	return &LocalStore{root: root, maxSize: maxSize}
}

// resolve accepts only clean relative keys, so a key can never collapse onto
// one of its parent directories.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean(key)
	if key == "" || clean != key || path.IsAbs(clean) || clean == ".." ||
		strings.HasPrefix(clean, "../") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Save writes r under key. When key is already taken a random suffix is added
// to the file name (contract.pdf -> contract_1a2b3c4.pdf); the returned handle
// is the key actually used. Existing files are never replaced.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.resolve(key); err != nil {
		return "", err
	}

	candidate := key
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if attempt > maxNameAttempts {
				return "", fmt.Errorf("failed to find a free name for %s", key)
			}
			candidate = withSuffix(key)
		}
		target, err := s.resolve(candidate)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("failed to create upload dir: %w", err)
		}
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		if err := s.write(f, r); err != nil {
			_ = os.Remove(target)
			return "", err
		}
		return candidate, nil
	}
}

const maxNameAttempts = 10

func (s *LocalStore) write(f *os.File, r io.Reader) error {
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return fmt.Errorf("file exceeds %d bytes", s.maxSize)
	}
	return nil
}

func withSuffix(key string) string {
	ext := path.Ext(key)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return strings.TrimSuffix(key, ext) + "_" + suffix + ext
}

func (s *LocalStore) Open(_ context.Context, handle string) (io.ReadCloser, error) {
	full, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *LocalStore) Delete(_ context.Context, handle string) error {
	full, err := s.resolve(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
