package upload

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"

	"filedrop/pkg/logger"
)

// Context is the capability handle given to the embedding application. It
// exposes the session's mutators and nothing else.
type Context interface {
	AddCandidates(candidates []FileEntry) bool
	RemoveEntry(index int) (FileEntry, error)
	RemoveAll()
	CurrentFiles() []FileEntry
}

// Session owns the ordered file set of one upload widget.
type Session struct {
	id  string
	log *logger.Logger

	mu        sync.Mutex
	opts      Options
	files     []FileEntry
	lastError *Error
	mounted   bool

	// pending holds notifications in mutation order; delivering is set while
	// one goroutine drains it.
	pending    []notification
	delivering bool
}

// notification is one queued callback delivery. files is the file set as it
// was right after the mutation that queued it.
type notification struct {
	errs    []*Error
	changed bool
	files   []FileEntry
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	return &Session{
		id:    uuid.NewString(),
		log:   logger.GetInstance(),
		opts:  opts,
		files: make([]FileEntry, 0),
	}
}

// ID returns the session's unique identifier, used in logs.
func (s *Session) ID() string {
	return s.id
}

// Options returns a copy of the session's options.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetOnFilesChange sets the callback invoked with the file set after every mutation.
func (s *Session) SetOnFilesChange(fn func([]FileEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnFilesChange = fn
}

// SetOnError sets the callback invoked with each error message.
func (s *Session) SetOnError(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnError = fn
}

// SetOnContextReady sets the callback invoked with the capability handle after every mutation.
func (s *Session) SetOnContextReady(fn func(Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnContextReady = fn
}

// SetLimits replaces the validation rules. Entries already held are kept.
func (s *Session) SetLimits(maxFiles, maxFileSizeMB int, allowed []string, sizeMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.MaxUploadFiles = maxFiles
	s.opts.MaxFileSizeMB = maxFileSizeMB
	s.opts.AllowedExtensions = slices.Clone(allowed)
	s.opts.ErrorSizeMessage = sizeMessage
}

// Context returns the capability handle for this session.
func (s *Session) Context() Context {
	return sessionContext{s: s}
}

// Mount applies DefaultFiles the first time it is called, provided they
// differ in length from the current set, and publishes the initial state.
func (s *Session) Mount() {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = true

	defaults := s.opts.DefaultFiles
	if len(defaults) > 0 && len(s.files) != len(defaults) {
		seen := make(map[string]struct{}, len(defaults))
		s.files = make([]FileEntry, 0, len(defaults))
		for _, entry := range defaults {
			if _, dup := seen[entry.Path]; dup {
				continue
			}
			seen[entry.Path] = struct{}{}
			s.files = append(s.files, entry)
		}
	}
	s.queueLocked(nil, true)
	s.mu.Unlock()

	s.flush()
}

// AddCandidates validates candidates in order and appends the ones that pass.
// It returns false only when the whole batch was refused (empty input or too
// many files); per-entry rejections still return true.
func (s *Session) AddCandidates(candidates []FileEntry) bool {
	return s.addBatch("context", candidates, nil)
}

// addBatch merges candidates, reporting failures first. failures are errors
// already produced for this batch upstream (metadata resolution).
func (s *Session) addBatch(source string, candidates []FileEntry, failures []*Error) bool {
	s.mu.Lock()
	s.lastError = nil

	reported := slices.Clone(failures)

	if len(candidates) == 0 {
		if len(failures) == 0 {
			e := errEmptyInput()
			s.lastError = e
			s.queueLocked([]*Error{e}, false)
			s.mu.Unlock()
			s.flush()
			return false
		}
		s.lastError = failures[len(failures)-1]
		s.queueLocked(reported, false)
		s.mu.Unlock()
		s.logBatch(source, len(failures), 0, reported)
		s.flush()
		return true
	}

	if limit := s.opts.MaxUploadFiles; limit > 0 && limit-len(candidates) <= 0 {
		e := errTooManyFiles(limit)
		reported = append(reported, e)
		s.lastError = e
		s.queueLocked(reported, false)
		s.mu.Unlock()
		s.logBatch(source, len(candidates)+len(failures), 0, reported)
		s.flush()
		return false
	}

	sizeLimit := s.opts.sizeLimitBytes()
	accepted := 0
	for _, entry := range candidates {
		if sizeLimit > 0 && entry.Size > sizeLimit {
			reported = append(reported, errFileTooLarge(entry, s.opts.MaxFileSizeMB, s.opts.ErrorSizeMessage))
			continue
		}
		if !s.extensionAllowed(entry.NormalizedExtension()) {
			reported = append(reported, errExtensionRejected(entry))
			continue
		}
		if s.indexOf(entry.Path) >= 0 {
			continue
		}
		entry.Extension = entry.NormalizedExtension()
		entry.Progress = 0
		s.files = append(s.files, entry)
		accepted++
	}
	if len(reported) > 0 {
		s.lastError = reported[len(reported)-1]
	}
	s.queueLocked(reported, true)
	s.mu.Unlock()

	s.logBatch(source, len(candidates)+len(failures), accepted, reported)
	s.flush()
	return true
}

// RemoveEntry removes and returns the entry at index. An index outside the
// set is reported as IndexOutOfRange and leaves the set unchanged.
func (s *Session) RemoveEntry(index int) (FileEntry, error) {
	s.mu.Lock()
	s.lastError = nil

	if index < 0 || index >= len(s.files) {
		e := errIndexOutOfRange(index, len(s.files))
		s.lastError = e
		s.queueLocked([]*Error{e}, false)
		s.mu.Unlock()
		s.flush()
		return FileEntry{}, e
	}

	removed := s.files[index]
	s.files = slices.Delete(s.files, index, index+1)
	s.queueLocked(nil, true)
	s.mu.Unlock()

	s.flush()
	return removed, nil
}

// RemoveAll clears the file set.
func (s *Session) RemoveAll() {
	s.mu.Lock()
	s.lastError = nil
	s.files = make([]FileEntry, 0)
	s.queueLocked(nil, true)
	s.mu.Unlock()

	s.flush()
}

// CurrentFiles returns a snapshot of the file set in display order.
func (s *Session) CurrentFiles() []FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.files)
}

// Contains reports whether path is currently held.
func (s *Session) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(path) >= 0
}

// Len returns the number of entries held.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// LastError returns the most recent error, or nil.
func (s *Session) LastError() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == nil {
		return nil
	}
	e := *s.lastError
	return &e
}

// DismissError clears the displayed error without touching the file set.
func (s *Session) DismissError() {
	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

// SetProgress records send progress for path, clamped to 0..100. It returns
// false when path is not held.
func (s *Session) SetProgress(path string, percent int) bool {
	percent = min(max(percent, 0), 100)

	s.mu.Lock()
	i := s.indexOf(path)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if s.files[i].Progress == percent {
		s.mu.Unlock()
		return true
	}
	s.files[i].Progress = percent
	s.queueLocked(nil, true)
	s.mu.Unlock()

	s.flush()
	return true
}

// ResetProgress sets every entry's progress back to 0.
func (s *Session) ResetProgress() {
	s.mu.Lock()
	for i := range s.files {
		s.files[i].Progress = 0
	}
	s.queueLocked(nil, true)
	s.mu.Unlock()

	s.flush()
}

// Summary is the "N/M files joined" counter, empty when nothing is held.
func (s *Session) Summary() string {
	s.mu.Lock()
	n, limit := len(s.files), s.opts.MaxUploadFiles
	s.mu.Unlock()

	if n == 0 {
		return ""
	}
	count := fmt.Sprint(n)
	if limit > 0 {
		count = fmt.Sprintf("%d/%d", n, limit)
	}
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return fmt.Sprintf("%s file%s joined", count, plural)
}

// indexOf returns the position of path or -1. Caller holds s.mu.
func (s *Session) indexOf(path string) int {
	return slices.IndexFunc(s.files, func(e FileEntry) bool { return e.Path == path })
}

// extensionAllowed checks the allow-list. Caller holds s.mu.
func (s *Session) extensionAllowed(ext string) bool {
	if len(s.opts.AllowedExtensions) == 0 {
		return true
	}
	return lo.ContainsBy(s.opts.AllowedExtensions, func(allowed string) bool {
		return strings.EqualFold(strings.TrimPrefix(allowed, "."), ext)
	})
}

func (s *Session) logBatch(source string, offered, accepted int, reported []*Error) {
	var merr *multierror.Error
	for _, e := range reported {
		merr = multierror.Append(merr, e)
	}
	s.log.LogBatch(s.id, source, offered, accepted, merr.ErrorOrNil())
}

// queueLocked records a notification for the mutation just made. Caller
// holds s.mu, so the snapshot matches the mutation exactly.
func (s *Session) queueLocked(errs []*Error, changed bool) {
	n := notification{errs: errs, changed: changed}
	if changed {
		n.files = cloneEntries(s.files)
	}
	s.pending = append(s.pending, n)
}

// flush delivers queued notifications in order. Only one goroutine drains
// at a time; others return at once and their notifications are delivered by
// the drainer. A callback that mutates the session is therefore notified
// after it returns. It must be called without s.mu held.
func (s *Session) flush() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for {
		if len(s.pending) == 0 {
			s.delivering = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		onError := s.opts.OnError
		onFilesChange := s.opts.OnFilesChange
		onContextReady := s.opts.OnContextReady
		s.mu.Unlock()

		s.deliver(n, onError, onFilesChange, onContextReady)

		s.mu.Lock()
	}
}

func (s *Session) deliver(n notification, onError func(string), onFilesChange func([]FileEntry), onContextReady func(Context)) {
	if onError != nil {
		for _, e := range n.errs {
			onError(e.Message)
		}
	}
	if !n.changed {
		return
	}
	if onFilesChange != nil {
		onFilesChange(n.files)
	}
	if onContextReady != nil {
		onContextReady(s.Context())
	}
}

type sessionContext struct {
	s *Session
}

func (c sessionContext) AddCandidates(candidates []FileEntry) bool {
	return c.s.AddCandidates(candidates)
}

func (c sessionContext) RemoveEntry(index int) (FileEntry, error) {
	return c.s.RemoveEntry(index)
}

func (c sessionContext) RemoveAll() {
	c.s.RemoveAll()
}

func (c sessionContext) CurrentFiles() []FileEntry {
	return c.s.CurrentFiles()
}
