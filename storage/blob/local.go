package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

// LocalStore keeps the blobs as files under a root directory.
type LocalStore struct {
	root string
}

var _ material.Store = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating blob directory %s", root)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid blob key %q", key)
	}
	return p, nil
}

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "creating blob directory")
	}

	// write to a temp file first so that readers never see a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating blob file")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(err, "writing blob")
	}
	if size >= 0 && n != size {
		return errors.Errorf("blob %s: wrote %d bytes, expected %d", key, n, size)
	}
	return errors.Wrap(os.Rename(tmp.Name(), p), "saving blob")
}

func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, material.ErrBlobNotFound
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, material.ErrBlobNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "opening blob")
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return material.ErrBlobNotFound
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "removing blob")
}
