// Package upload implements the state behind the file-upload widget: the
// ordered set of pending files, its validation rules, and the pipeline that
// turns picked or dropped paths into entries.
package upload

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FileEntry is one candidate or accepted file. Path is the unique key.
type FileEntry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	IsDir     bool   `json:"is_dir"`
	Extension string `json:"extension,omitempty"`
	Type      string `json:"type,omitempty"`
	Progress  int    `json:"progress"`
}

// NormalizedExtension returns the entry's extension in lower case without a
// leading dot. When Extension is unset it is derived from Name.
func (e FileEntry) NormalizedExtension() string {
	ext := e.Extension
	if ext == "" {
		ext = filepath.Ext(e.Name)
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Kind is the display category of an entry.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindArchive
	KindImage
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	case KindImage:
		return "image"
	case KindMedia:
		return "media"
	default:
		return "file"
	}
}

// kindPatterns is evaluated in order; a later match overrides an earlier one.
var kindPatterns = []struct {
	kind    Kind
	pattern *regexp.Regexp
}{
	{KindArchive, regexp.MustCompile(`(?i)\.(g?zip|tar|gz|rar)$`)},
	{KindImage, regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|tiff)$`)},
	{KindMedia, regexp.MustCompile(`(?i)\.(mp.|midi|mkv|avi)$`)},
}

// Classify returns the display kind for a file name.
func Classify(name string, isDir bool) Kind {
	kind := KindFile
	if isDir {
		kind = KindDirectory
	}
	for _, p := range kindPatterns {
		if p.pattern.MatchString(name) {
			kind = p.kind
		}
	}
	return kind
}

// Kind is shorthand for Classify(e.Name, e.IsDir).
func (e FileEntry) Kind() Kind {
	return Classify(e.Name, e.IsDir)
}

// Caption is the secondary line shown under an attachment: its extension, or
// "directory" for extension-less directories.
func (e FileEntry) Caption() string {
	if ext := e.NormalizedExtension(); ext != "" {
		return ext
	}
	if e.IsDir {
		return "directory"
	}
	return ""
}

func cloneEntries(entries []FileEntry) []FileEntry {
	out := make([]FileEntry, len(entries))
	copy(out, entries)
	return out
}
