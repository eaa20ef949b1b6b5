package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/ports/adapter"
)

var _ adapter.MediaFetcher = (*DirFetcher)(nil)

// DirFetcher resolves object keys against a local directory. Files are read
// in place, so release is a no-op.
type DirFetcher struct {
	root string
}

func NewDirFetcher(root string) (*DirFetcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("media dir: %s is not a directory", abs)
	}
	return &DirFetcher{root: abs}, nil
}

func (d *DirFetcher) Fetch(ctx context.Context, objectKey string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	key, err := cleanKey(objectKey)
	if err != nil {
		return "", nil, err
	}
	p := filepath.Join(d.root, filepath.FromSlash(key))
	st, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: media object %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return "", nil, err
	}
	if st.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidArgument, key)
	}
	return p, func() {}, nil
}

// cleanKey rejects keys that escape the bucket or directory root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: empty object key", domain.ErrInvalidArgument)
	}
	c := path.Clean("/" + key)
	if c == "/" || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: object key %q", domain.ErrInvalidArgument, key)
	}
	if c != "/"+strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: object key %q is not canonical", domain.ErrInvalidArgument, key)
	}
	return strings.TrimPrefix(c, "/"), nil
}

func removeOnce(p string, log *zerolog.Logger) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("path", p).Msg("failed to remove media copy")
			}
		})
	}
}
