package upload

import (
	"errors"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(p string, size int64) FileEntry {
	return FileEntry{Name: path.Base(p), Path: p, Size: size}
}

type recorder struct {
	changes  [][]FileEntry
	errors   []string
	contexts int
}

func newRecordedSession(opts Options) (*Session, *recorder) {
	rec := &recorder{}
	opts.OnFilesChange = func(files []FileEntry) { rec.changes = append(rec.changes, files) }
	opts.OnError = func(msg string) { rec.errors = append(rec.errors, msg) }
	opts.OnContextReady = func(Context) { rec.contexts++ }
	return NewSession(opts), rec
}

func paths(files []FileEntry) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestAddCandidatesKeepsInputOrder(t *testing.T) {
	s, rec := newRecordedSession(Options{})

	ok := s.AddCandidates([]FileEntry{entry("/x/c.txt", 3), entry("/x/a.txt", 1), entry("/x/b.txt", 2)})

	require.True(t, ok)
	assert.Equal(t, []string{"/x/c.txt", "/x/a.txt", "/x/b.txt"}, paths(s.CurrentFiles()))
	require.Len(t, rec.changes, 1, "one notification per batch")
	assert.Equal(t, 1, rec.contexts)
	assert.Nil(t, s.LastError())
}

func TestAddCandidatesEmptyInput(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	s.AddCandidates([]FileEntry{entry("/x/a.txt", 1)})

	ok := s.AddCandidates(nil)

	assert.False(t, ok)
	assert.Equal(t, []string{"/x/a.txt"}, paths(s.CurrentFiles()))
	require.NotNil(t, s.LastError())
	assert.True(t, errors.Is(s.LastError(), ErrEmptyInput))
	assert.Equal(t, []string{"Empty file input"}, rec.errors)
	assert.Len(t, rec.changes, 1, "refused batch does not notify")
}

func TestAddCandidatesTooManyFiles(t *testing.T) {
	s, rec := newRecordedSession(Options{MaxUploadFiles: 2})

	ok := s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 1), entry("/c", 1)})

	assert.False(t, ok)
	assert.Empty(t, s.CurrentFiles())
	require.NotNil(t, s.LastError())
	assert.Equal(t, TooManyFiles, s.LastError().Kind)
	assert.Contains(t, s.LastError().Message, "2")
	assert.Equal(t, []string{"You cannot attach more than 2 files"}, rec.errors)
	assert.Empty(t, rec.changes)
}

func TestAddCandidatesLimitEqualsBatch(t *testing.T) {
	s := NewSession(Options{MaxUploadFiles: 2})

	assert.False(t, s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 1)}))
	assert.True(t, s.AddCandidates([]FileEntry{entry("/a", 1)}))
	assert.Equal(t, 1, s.Len())
}

func TestAddCandidatesFileTooLarge(t *testing.T) {
	s, rec := newRecordedSession(Options{MaxFileSizeMB: 1})
	small := FileEntry{Name: "small.bin", Path: "/x/small.bin", Size: 500 * 1024}
	big := FileEntry{Name: "big.bin", Path: "/x/big.bin", Size: 2 * 1024 * 1024}

	ok := s.AddCandidates([]FileEntry{small, big})

	assert.True(t, ok)
	assert.Equal(t, []string{"/x/small.bin"}, paths(s.CurrentFiles()))
	require.NotNil(t, s.LastError())
	assert.Equal(t, FileTooLarge, s.LastError().Kind)
	assert.Equal(t, "/x/big.bin", s.LastError().Path)
	assert.Contains(t, s.LastError().Message, "big.bin")
	assert.Len(t, rec.errors, 1)
	assert.Len(t, rec.changes, 1)
}

func TestAddCandidatesCustomSizeMessage(t *testing.T) {
	s := NewSession(Options{MaxFileSizeMB: 1, ErrorSizeMessage: "too big"})

	s.AddCandidates([]FileEntry{{Name: "big", Path: "/big", Size: 1024*1024 + 1}})

	require.NotNil(t, s.LastError())
	assert.Equal(t, "too big", s.LastError().Message)
}

func TestAddCandidatesSizeAtLimitAccepted(t *testing.T) {
	s := NewSession(Options{MaxFileSizeMB: 1})

	s.AddCandidates([]FileEntry{{Name: "edge", Path: "/edge", Size: 1024 * 1024}})

	assert.Equal(t, 1, s.Len())
	assert.Nil(t, s.LastError())
}

func TestAddCandidatesExtensionAllowList(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		entry   FileEntry
		want    bool
	}{
		{"allowed", []string{"pdf"}, FileEntry{Name: "a.pdf", Path: "/a.pdf", Extension: "pdf"}, true},
		{"rejected", []string{"pdf"}, FileEntry{Name: "b.txt", Path: "/b.txt", Extension: "txt"}, false},
		{"case insensitive", []string{"PDF"}, FileEntry{Name: "c.Pdf", Path: "/c.Pdf", Extension: "Pdf"}, true},
		{"leading dot in list", []string{".pdf"}, FileEntry{Name: "d.pdf", Path: "/d.pdf", Extension: "pdf"}, true},
		{"derived from name", []string{"pdf"}, FileEntry{Name: "e.pdf", Path: "/e.pdf"}, true},
		{"empty list", nil, FileEntry{Name: "f.exe", Path: "/f.exe", Extension: "exe"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(Options{AllowedExtensions: tt.allowed})
			s.AddCandidates([]FileEntry{tt.entry})
			assert.Equal(t, tt.want, s.Contains(tt.entry.Path))
			if !tt.want {
				require.NotNil(t, s.LastError())
				assert.True(t, errors.Is(s.LastError(), ErrExtensionRejected))
			}
		})
	}
}

func TestAddCandidatesMixedExtensions(t *testing.T) {
	s, rec := newRecordedSession(Options{AllowedExtensions: []string{"pdf"}})

	s.AddCandidates([]FileEntry{
		{Name: "a.pdf", Path: "/a.pdf", Extension: "pdf"},
		{Name: "b.txt", Path: "/b.txt", Extension: "txt"},
	})

	assert.Equal(t, []string{"/a.pdf"}, paths(s.CurrentFiles()))
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "b.txt")
	assert.Equal(t, "/b.txt", s.LastError().Path)
}

func TestAddCandidatesDeduplicates(t *testing.T) {
	s, rec := newRecordedSession(Options{})

	s.AddCandidates([]FileEntry{entry("/x/f.txt", 1)})
	s.AddCandidates([]FileEntry{entry("/x/f.txt", 1)})
	s.AddCandidates([]FileEntry{entry("/x/g.txt", 1), entry("/x/g.txt", 1)})

	assert.Equal(t, []string{"/x/f.txt", "/x/g.txt"}, paths(s.CurrentFiles()))
	assert.Empty(t, rec.errors, "duplicates are dropped silently")
}

func TestAddCandidatesResetsProgressAndExtension(t *testing.T) {
	s := NewSession(Options{})

	s.AddCandidates([]FileEntry{{Name: "A.PNG", Path: "/A.PNG", Extension: ".PNG", Progress: 40}})

	got := s.CurrentFiles()[0]
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "png", got.Extension)
}

func TestAddCandidatesClearsPreviousError(t *testing.T) {
	s := NewSession(Options{})
	s.AddCandidates(nil)
	require.NotNil(t, s.LastError())

	s.AddCandidates([]FileEntry{entry("/ok", 1)})

	assert.Nil(t, s.LastError())
}

func TestLastErrorKeepsMostRecent(t *testing.T) {
	s, rec := newRecordedSession(Options{MaxFileSizeMB: 1, AllowedExtensions: []string{"bin"}})

	s.AddCandidates([]FileEntry{
		{Name: "big.bin", Path: "/big.bin", Size: 5 << 20},
		{Name: "doc.txt", Path: "/doc.txt", Size: 1},
	})

	assert.Len(t, rec.errors, 2)
	assert.Equal(t, ExtensionRejected, s.LastError().Kind)
	assert.Equal(t, rec.errors[len(rec.errors)-1], s.LastError().Message)
}

func TestRemoveEntryRoundTrip(t *testing.T) {
	s := NewSession(Options{})
	s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 2), entry("/c", 3)})
	before := s.CurrentFiles()

	for i := range before {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			s := NewSession(Options{})
			s.AddCandidates(before)

			removed, err := s.RemoveEntry(i)

			require.NoError(t, err)
			assert.Equal(t, before[i], removed)
			want := append(append([]FileEntry{}, before[:i]...), before[i+1:]...)
			assert.Equal(t, want, s.CurrentFiles())
		})
	}
}

func TestRemoveEntryOutOfRange(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 2)})
	before := s.CurrentFiles()

	for _, idx := range []int{-1, 2, 100} {
		removed, err := s.RemoveEntry(idx)

		assert.Equal(t, FileEntry{}, removed)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", idx)
		assert.Equal(t, before, s.CurrentFiles())
	}
	assert.Len(t, rec.errors, 3)
	assert.Len(t, rec.changes, 1)
	assert.Equal(t, IndexOutOfRange, s.LastError().Kind)
}

func TestRemoveEntryClearsError(t *testing.T) {
	s := NewSession(Options{AllowedExtensions: []string{"pdf"}})
	s.AddCandidates([]FileEntry{{Name: "a.pdf", Path: "/a.pdf"}, {Name: "b.txt", Path: "/b.txt"}})
	require.NotNil(t, s.LastError())

	_, err := s.RemoveEntry(0)

	require.NoError(t, err)
	assert.Nil(t, s.LastError())
}

func TestRemoveAll(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	s.RemoveAll()
	assert.Empty(t, s.CurrentFiles())

	s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 2)})
	s.AddCandidates(nil)
	s.RemoveAll()

	assert.Empty(t, s.CurrentFiles())
	assert.Nil(t, s.LastError())
	assert.Empty(t, rec.changes[len(rec.changes)-1])
}

func TestCurrentFilesIsSnapshot(t *testing.T) {
	s := NewSession(Options{})
	s.AddCandidates([]FileEntry{entry("/a", 1)})

	files := s.CurrentFiles()
	files[0].Path = "/mutated"

	assert.Equal(t, "/a", s.CurrentFiles()[0].Path)
}

func TestDismissError(t *testing.T) {
	s := NewSession(Options{})
	s.AddCandidates(nil)

	s.DismissError()

	assert.Nil(t, s.LastError())
}

func TestMountAppliesDefaultsOnce(t *testing.T) {
	defaults := []FileEntry{entry("/d1", 1), entry("/d2", 2)}
	s, rec := newRecordedSession(Options{DefaultFiles: defaults})

	s.Mount()
	s.RemoveAll()
	s.Mount()

	assert.Empty(t, s.CurrentFiles())
	require.GreaterOrEqual(t, len(rec.changes), 1)
	assert.Equal(t, defaults, rec.changes[0])
}

func TestMountSkipsDefaultsOfSameLength(t *testing.T) {
	s := NewSession(Options{DefaultFiles: []FileEntry{entry("/d1", 1)}})
	s.AddCandidates([]FileEntry{entry("/mine", 1)})

	s.Mount()

	assert.Equal(t, []string{"/mine"}, paths(s.CurrentFiles()))
}

func TestSetProgress(t *testing.T) {
	s, rec := newRecordedSession(Options{})
	s.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 1)})

	assert.True(t, s.SetProgress("/b", 55))
	assert.True(t, s.SetProgress("/a", 250))
	assert.False(t, s.SetProgress("/missing", 10))

	files := s.CurrentFiles()
	assert.Equal(t, 100, files[0].Progress)
	assert.Equal(t, 55, files[1].Progress)
	assert.Len(t, rec.changes, 3)

	s.ResetProgress()
	for _, f := range s.CurrentFiles() {
		assert.Zero(t, f.Progress)
	}
}

func TestContextReentry(t *testing.T) {
	s := NewSession(Options{})
	var handle Context
	s.SetOnContextReady(func(c Context) { handle = c })

	s.AddCandidates([]FileEntry{entry("/a", 1)})
	require.NotNil(t, handle)

	_, isSession := handle.(*Session)
	assert.False(t, isSession, "handle must not expose the session itself")

	s.SetOnContextReady(nil)
	handle.AddCandidates([]FileEntry{entry("/b", 1)})
	removed, err := handle.RemoveEntry(0)
	require.NoError(t, err)
	assert.Equal(t, "/a", removed.Path)
	assert.Equal(t, []string{"/b"}, paths(handle.CurrentFiles()))
}

func TestCallbackMayCallBackIntoSession(t *testing.T) {
	s := NewSession(Options{})
	var seen int
	s.SetOnFilesChange(func([]FileEntry) { seen = s.Len() })

	s.AddCandidates([]FileEntry{entry("/a", 1)})

	assert.Equal(t, 1, seen)
}

func TestSummary(t *testing.T) {
	s := NewSession(Options{})
	assert.Equal(t, "", s.Summary())

	s.AddCandidates([]FileEntry{entry("/a", 1)})
	assert.Equal(t, "1 file joined", s.Summary())

	limited := NewSession(Options{MaxUploadFiles: 5})
	limited.AddCandidates([]FileEntry{entry("/a", 1), entry("/b", 1)})
	assert.Equal(t, "2/5 files joined", limited.Summary())
}

func TestSetLimits(t *testing.T) {
	s := NewSession(Options{})
	s.AddCandidates([]FileEntry{{Name: "a.txt", Path: "/a.txt", Size: 10}})

	s.SetLimits(0, 0, []string{"pdf"}, "")
	s.AddCandidates([]FileEntry{{Name: "b.txt", Path: "/b.txt", Size: 10}})

	assert.Equal(t, []string{"/a.txt"}, paths(s.CurrentFiles()))
	assert.Equal(t, ExtensionRejected, s.LastError().Kind)
}

func TestConcurrentProgressAndRemoveAllDeliverInOrder(t *testing.T) {
	for round := 0; round < 50; round++ {
		s := NewSession(Options{})
		var mu sync.Mutex
		var last []FileEntry
		s.SetOnFilesChange(func(files []FileEntry) {
			time.Sleep(50 * time.Microsecond)
			mu.Lock()
			last = files
			mu.Unlock()
		})
		held := []string{"/p/1", "/p/2", "/p/3", "/p/4"}
		for _, p := range held {
			s.AddCandidates([]FileEntry{entry(p, 1)})
		}

		var wg sync.WaitGroup
		for _, p := range held {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				for pct := 1; pct <= 50; pct++ {
					s.SetProgress(p, pct)
				}
			}(p)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(200 * time.Microsecond)
			s.RemoveAll()
		}()
		wg.Wait()

		mu.Lock()
		got := last
		mu.Unlock()
		require.Equal(t, paths(s.CurrentFiles()), paths(got), "round %d", round)
	}
}

func TestMutationInsideCallbackIsDeliveredAfterIt(t *testing.T) {
	s := NewSession(Options{})
	var deliveries [][]string
	s.SetOnFilesChange(func(files []FileEntry) {
		deliveries = append(deliveries, paths(files))
		if len(files) == 1 {
			s.AddCandidates([]FileEntry{entry("/b", 1)})
			assert.Len(t, deliveries, 1, "nested change must wait for the current callback")
		}
	})

	s.AddCandidates([]FileEntry{entry("/a", 1)})

	assert.Equal(t, [][]string{{"/a"}, {"/a", "/b"}}, deliveries)
}
