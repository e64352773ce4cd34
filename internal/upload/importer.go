package upload

import (
	"context"
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"filedrop/pkg/logger"
)

// PickerOptions are passed to the host's native file dialog.
type PickerOptions struct {
	Multiple  bool
	Directory bool
}

// MetadataResolver turns a filesystem path into an entry.
type MetadataResolver interface {
	ResolveMetadata(ctx context.Context, path string) (FileEntry, error)
}

// FilePicker opens the host's file dialog. An empty result means the user
// cancelled.
type FilePicker interface {
	OpenFilePicker(ctx context.Context, opts PickerOptions) ([]string, error)
}

// FileService is the host collaborator used by the importer.
type FileService interface {
	MetadataResolver
	FilePicker
}

// Importer is the one pipeline shared by the picker and drop flows: it
// resolves paths through the host and merges the results into a session.
type Importer struct {
	files       FileService
	session     *Session
	concurrency int
	log         *logger.Logger
}

// NewImporter creates an importer. concurrency <= 1 resolves one path at a
// time; larger values resolve in parallel but merge in input order.
func NewImporter(files FileService, session *Session, concurrency int) *Importer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Importer{
		files:       files,
		session:     session,
		concurrency: concurrency,
		log:         logger.GetInstance(),
	}
}

// Pick opens the file picker and imports whatever the user selected. A
// cancelled dialog is not an error.
func (im *Importer) Pick(ctx context.Context, directory bool) (bool, error) {
	paths, err := im.files.OpenFilePicker(ctx, PickerOptions{
		Multiple:  im.session.Options().MultiFile,
		Directory: directory,
	})
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, nil
	}
	return im.importPaths(ctx, "picker", paths), nil
}

// Import resolves paths and merges them into the session. Paths already
// held are skipped without being resolved; a batch made up only of such
// paths changes nothing and reports nothing.
func (im *Importer) Import(ctx context.Context, paths []string) bool {
	return im.importPaths(ctx, "drop", paths)
}

func (im *Importer) importPaths(ctx context.Context, source string, paths []string) bool {
	if len(paths) == 0 {
		return im.session.addBatch(source, nil, nil)
	}

	pending := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" || im.session.Contains(p) {
			continue
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return true
	}

	entries, failures := im.resolve(ctx, pending)
	if len(failures) > 0 {
		var merr *multierror.Error
		for _, f := range failures {
			merr = multierror.Append(merr, f)
		}
		im.log.Warnf("metadata unavailable for %d of %d paths: %v", len(failures), len(pending), merr)
	}
	return im.session.addBatch(source, entries, failures)
}

// resolve fetches metadata for every path. Results keep the input order; a
// failed path is dropped from entries and reported in failures.
func (im *Importer) resolve(ctx context.Context, paths []string) ([]FileEntry, []*Error) {
	resolved := make([]FileEntry, len(paths))
	errs := make([]error, len(paths))

	if im.concurrency == 1 {
		for i, p := range paths {
			resolved[i], errs[i] = im.files.ResolveMetadata(ctx, p)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(im.concurrency)
		for i, p := range paths {
			i, p := i, p
			g.Go(func() error {
				resolved[i], errs[i] = im.files.ResolveMetadata(gctx, p)
				return nil
			})
		}
		_ = g.Wait()
	}

	entries := make([]FileEntry, 0, len(paths))
	var failures []*Error
	for i, p := range paths {
		if errs[i] != nil {
			failures = append(failures, asMetadataError(p, errs[i]))
			continue
		}
		entry := resolved[i]
		if entry.Path == "" {
			entry.Path = p
		}
		entry.Progress = 0
		entries = append(entries, entry)
	}
	return entries, failures
}

func asMetadataError(path string, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == MetadataUnavailable {
		return e
	}
	return NewMetadataError(path, err)
}
