// Package host adapts the operating system to the upload session: metadata
// lookups, a cache for expensive directory walks, and the drag-and-drop
// channel fed by the window.
package host

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wailsapp/mimetype"
	"go.uber.org/zap"

	"filedrop/internal/upload"
	"filedrop/pkg/logger"
)

// FileSystem resolves paths against the local disk.
type FileSystem struct {
	cache *MetadataCache
	log   *logger.Logger
}

// NewFileSystem creates a resolver. cache may be nil to walk directories on
// every lookup.
func NewFileSystem(cache *MetadataCache) *FileSystem {
	return &FileSystem{
		cache: cache,
		log:   logger.GetInstance(),
	}
}

// ResolveMetadata stats path and returns its entry. Directory sizes are the
// sum of the regular files beneath them; unreadable subtrees count as 0.
func (f *FileSystem) ResolveMetadata(ctx context.Context, path string) (upload.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return upload.FileEntry{}, upload.NewMetadataError(path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return upload.FileEntry{}, upload.NewMetadataError(path, err)
	}

	entry := upload.FileEntry{
		Name:      info.Name(),
		Path:      path,
		IsDir:     info.IsDir(),
		Extension: strings.ToLower(strings.TrimPrefix(filepath.Ext(info.Name()), ".")),
	}

	if !info.IsDir() {
		entry.Size = info.Size()
		entry.Type = f.detectType(path)
		return entry, nil
	}

	if f.cache != nil {
		if cached, ok := f.cache.Get(path, info.ModTime()); ok {
			return cached, nil
		}
	}

	size, err := DirectorySize(ctx, path)
	if err != nil {
		return upload.FileEntry{}, upload.NewMetadataError(path, err)
	}
	entry.Size = size

	if f.cache != nil {
		f.cache.Set(path, info.ModTime(), entry)
	}
	return entry, nil
}

// DirectorySize walks root and sums regular file sizes. Only cancellation is
// returned as an error.
func DirectorySize(ctx context.Context, root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return 0, err
	}
	return total, nil
}

func (f *FileSystem) detectType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		f.log.Debug("mime detection failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return mtype.String()
}
