package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid blob path")

// LocalStore keeps blobs under a root directory. URL prefixes a stored
// path with baseURL, the route that streams blobs back to clients.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root string, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Store writes body to p (slash separated, relative) and returns p.
// A partially written file is removed.
func (s *LocalStore) Store(ctx context.Context, p string, body io.Reader) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("blob mkdir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("blob create: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("blob write: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("blob close: %w", err)
	}
	return p, nil
}

// Delete removes p. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob delete: %w", err)
	}
	return nil
}

// Open returns a reader for p. A missing blob wraps fs.ErrNotExist.
func (s *LocalStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("blob open: %w", err)
	}
	return f, nil
}

func (s *LocalStore) URL(p string) string {
	return s.baseURL + "/" + strings.TrimLeft(p, "/")
}

// Root is the directory blobs are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if p == "" || clean == "/" || strings.Contains(p, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
