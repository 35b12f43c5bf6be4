package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// DiskStore keeps each object as a file under a root directory, so the data
// root doubles as a human-inspectable tree.
//
// Layout (default root "uploads"):
//
//	uploads/
//	  EmailGenerator/            # image uploads
//	  QrCode/                    # qr-image, pdf and audio uploads
//	  QrCode/app/<key>.json
//	  QrCode/fb/<key>.json
//	  QrCode/coupon/<key>.json
//	  QrCode/menu/<key>/details.json
//	  QrCode/menu/<key>/Logo.png
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	return &DiskStore{dir: abs}, nil
}

func (s *DiskStore) path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// Put writes to a temp file in the target directory and renames it over the
// destination.
func (s *DiskStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	dst, err := s.path(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return n, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return n, fmt.Errorf("replace %s: %w", name, err)
	}
	return n, nil
}

func (s *DiskStore) Get(ctx context.Context, name string) (*Object, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		// ENOTDIR: a parent of name is a regular file.
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return &Object{
		Name:    name,
		Content: f,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (s *DiskStore) Close() error {
	return nil
}
