package send

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filedrop/internal/upload"
)

// FolderSender delivers entries by copying them into a directory. Directories
// are copied recursively. An existing destination is replaced.
type FolderSender struct {
	Limiter *RateLimiter

	mu  sync.RWMutex
	dir string
}

// NewFolderSender creates a sender targeting dir. bytesPerSecond of 0 means
// unlimited.
func NewFolderSender(dir string, bytesPerSecond int64) *FolderSender {
	return &FolderSender{dir: dir, Limiter: NewRateLimiter(bytesPerSecond)}
}

// SetDir changes the destination for sends started afterwards.
func (s *FolderSender) SetDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = dir
}

// Dir returns the destination directory.
func (s *FolderSender) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// Send copies entry into the target directory.
func (s *FolderSender) Send(ctx context.Context, entry upload.FileEntry, progress func(percent int)) error {
	dir := s.Dir()
	if dir == "" {
		return errors.New("no destination directory configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	dest := filepath.Join(dir, filepath.Base(entry.Path))
	if same, err := samePath(entry.Path, dest); err == nil && same {
		return fmt.Errorf("source and destination are the same: %s", dest)
	}

	total := entry.Size
	pw := &progressWriter{w: io.Discard, total: total, report: progress}

	info, err := os.Stat(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.IsDir() {
		pw.total = info.Size()
		return s.copyFile(ctx, entry.Path, dest, info.Mode().Perm(), pw)
	}

	if inside, err := within(entry.Path, dir); err == nil && inside {
		return fmt.Errorf("destination %s is inside %s", dir, entry.Path)
	}
	return s.copyTree(ctx, entry.Path, dest, pw)
}

// copyTree copies the directory src to dest. On failure everything this call
// created is removed again; files that were already there are left alone.
func (s *FolderSender) copyTree(ctx context.Context, src, dest string, pw *progressWriter) error {
	var created []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		_, statErr := os.Lstat(target)
		existed := statErr == nil

		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		} else if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if err := s.copyFile(ctx, p, target, fi.Mode().Perm(), pw); err != nil {
				return err
			}
		} else {
			return nil
		}
		if !existed {
			created = append(created, target)
		}
		return nil
	})
	if err != nil {
		for i := len(created) - 1; i >= 0; i-- {
			os.Remove(created[i])
		}
	}
	return err
}

func (s *FolderSender) copyFile(ctx context.Context, src, dst string, perm fs.FileMode, pw *progressWriter) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	pw.w = out
	w := &throttledWriter{ctx: ctx, w: pw, limiter: s.Limiter}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Close()
}

// within reports whether child is parent or lies beneath it, after resolving
// symlinks.
func within(parent, child string) (bool, error) {
	p, err := resolve(parent)
	if err != nil {
		return false, err
	}
	c, err := resolve(child)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false, err
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func samePath(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
