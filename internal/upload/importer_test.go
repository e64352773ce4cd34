package upload

import (
	"context"
	"errors"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFiles is an in-memory FileService.
type fakeFiles struct {
	mu       sync.Mutex
	entries  map[string]FileEntry
	delays   map[string]time.Duration
	picked   []string
	pickErr  error
	resolved []string
	lastPick PickerOptions
}

func newFakeFiles(entries ...FileEntry) *fakeFiles {
	f := &fakeFiles{entries: map[string]FileEntry{}, delays: map[string]time.Duration{}}
	for _, e := range entries {
		f.entries[e.Path] = e
	}
	return f
}

func (f *fakeFiles) ResolveMetadata(ctx context.Context, p string) (FileEntry, error) {
	f.mu.Lock()
	delay := f.delays[p]
	f.resolved = append(f.resolved, p)
	e, ok := f.entries[p]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return FileEntry{}, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
	}
	return e, nil
}

func (f *fakeFiles) OpenFilePicker(ctx context.Context, opts PickerOptions) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPick = opts
	return f.picked, f.pickErr
}

func (f *fakeFiles) resolvedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resolved...)
}

func file(p string, size int64) FileEntry {
	return FileEntry{Name: path.Base(p), Path: p, Size: size, Extension: path.Ext(p)}
}

func TestImportResolvesAndMerges(t *testing.T) {
	files := newFakeFiles(file("/d/a.txt", 1), file("/d/b.pdf", 2))
	s := NewSession(Options{})
	im := NewImporter(files, s, 1)

	ok := im.Import(context.Background(), []string{"/d/b.pdf", "/d/a.txt"})

	assert.True(t, ok)
	assert.Equal(t, []string{"/d/b.pdf", "/d/a.txt"}, paths(s.CurrentFiles()))
	assert.Equal(t, "pdf", s.CurrentFiles()[0].Extension)
}

func TestImportSkipsUnresolvablePath(t *testing.T) {
	files := newFakeFiles(file("/d/ok.txt", 1))
	s, rec := newRecordedSession(Options{})
	im := NewImporter(files, s, 1)

	ok := im.Import(context.Background(), []string{"/d/gone.txt", "/d/ok.txt"})

	assert.True(t, ok)
	assert.Equal(t, []string{"/d/ok.txt"}, paths(s.CurrentFiles()))
	require.NotNil(t, s.LastError())
	assert.True(t, errors.Is(s.LastError(), ErrMetadataUnavailable))
	assert.True(t, errors.Is(s.LastError(), os.ErrNotExist))
	assert.Equal(t, "/d/gone.txt", s.LastError().Path)
	assert.Len(t, rec.errors, 1)
	assert.Len(t, rec.changes, 1)
}

func TestImportAllUnresolvable(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	im := NewImporter(newFakeFiles(), s, 1)

	ok := im.Import(context.Background(), []string{"/nope/1", "/nope/2"})

	assert.True(t, ok)
	assert.Empty(t, s.CurrentFiles())
	assert.Len(t, rec.errors, 2)
	assert.Equal(t, "/nope/2", s.LastError().Path)
	assert.Empty(t, rec.changes)
}

func TestImportEmptyPaths(t *testing.T) {
	s := NewSession(Options{})
	im := NewImporter(newFakeFiles(), s, 1)

	assert.False(t, im.Import(context.Background(), nil))
	assert.Equal(t, EmptyInput, s.LastError().Kind)
}

func TestImportSkipsHeldPathsWithoutResolving(t *testing.T) {
	files := newFakeFiles(file("/x/f.txt", 1))
	s, rec := newRecordedSession(Options{})
	im := NewImporter(files, s, 1)

	im.Import(context.Background(), []string{"/x/f.txt"})
	ok := im.Import(context.Background(), []string{"/x/f.txt", ""})

	assert.True(t, ok)
	assert.Equal(t, []string{"/x/f.txt"}, paths(s.CurrentFiles()))
	assert.Equal(t, []string{"/x/f.txt"}, files.resolvedPaths())
	assert.Empty(t, rec.errors)
	assert.Nil(t, s.LastError())
}

func TestImportAppliesValidation(t *testing.T) {
	files := newFakeFiles(file("/d/a.pdf", 10), file("/d/b.txt", 10))
	s := NewSession(Options{AllowedExtensions: []string{"pdf"}})
	im := NewImporter(files, s, 1)

	im.Import(context.Background(), []string{"/d/a.pdf", "/d/b.txt"})

	assert.Equal(t, []string{"/d/a.pdf"}, paths(s.CurrentFiles()))
	assert.Equal(t, ExtensionRejected, s.LastError().Kind)
}

func TestImportConcurrentKeepsOrder(t *testing.T) {
	files := newFakeFiles(file("/c/1", 1), file("/c/2", 1), file("/c/3", 1), file("/c/4", 1))
	files.delays["/c/1"] = 30 * time.Millisecond
	files.delays["/c/2"] = 10 * time.Millisecond
	s := NewSession(Options{})
	im := NewImporter(files, s, 4)

	im.Import(context.Background(), []string{"/c/1", "/c/2", "/missing", "/c/3", "/c/4"})

	assert.Equal(t, []string{"/c/1", "/c/2", "/c/3", "/c/4"}, paths(s.CurrentFiles()))
	assert.Equal(t, "/missing", s.LastError().Path)
}

func TestImportFillsMissingPath(t *testing.T) {
	files := newFakeFiles()
	files.entries["/p"] = FileEntry{Name: "p", Size: 1}
	s := NewSession(Options{})

	NewImporter(files, s, 1).Import(context.Background(), []string{"/p"})

	require.Equal(t, 1, s.Len())
	assert.Equal(t, "/p", s.CurrentFiles()[0].Path)
}

func TestPick(t *testing.T) {
	files := newFakeFiles(file("/p/a.txt", 1))
	files.picked = []string{"/p/a.txt"}
	s := NewSession(Options{MultiFile: true})
	im := NewImporter(files, s, 1)

	ok, err := im.Pick(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, PickerOptions{Multiple: true}, files.lastPick)
	assert.Equal(t, []string{"/p/a.txt"}, paths(s.CurrentFiles()))
}

func TestPickCancelled(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	im := NewImporter(newFakeFiles(), s, 1)

	ok, err := im.Pick(context.Background(), true)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.errors)
	assert.Nil(t, s.LastError())
}

func TestPickError(t *testing.T) {
	files := newFakeFiles()
	files.pickErr = errors.New("dialog unavailable")
	im := NewImporter(files, NewSession(Options{}), 1)

	_, err := im.Pick(context.Background(), false)

	assert.EqualError(t, err, "dialog unavailable")
}

func TestPickerAndDropShareDeduplication(t *testing.T) {
	files := newFakeFiles(file("/s/a", 1))
	files.picked = []string{"/s/a"}
	s := NewSession(Options{})
	im := NewImporter(files, s, 1)

	_, err := im.Pick(context.Background(), false)
	require.NoError(t, err)
	im.Import(context.Background(), []string{"/s/a"})

	assert.Equal(t, 1, s.Len())
}
