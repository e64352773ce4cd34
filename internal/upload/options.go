package upload

// Labels are the display strings of the widget.
type Labels struct {
	Header    string `json:"header"`
	Left      string `json:"left"`
	Right     string `json:"right"`
	Button    string `json:"button"`
	RemoveAll string `json:"remove_all"`
}

// DefaultLabels returns the stock widget labels.
func DefaultLabels() Labels {
	return Labels{
		Header:    ">[Drag to drop]<",
		Left:      "or",
		Right:     "to select files",
		Button:    "click here",
		RemoveAll: "Remove all",
	}
}

// Options configures a session. The zero value accepts anything.
type Options struct {
	// MaxUploadFiles limits the size of one batch; 0 means unlimited.
	MaxUploadFiles int
	// MaxFileSizeMB rejects entries larger than this many MiB; 0 means unlimited.
	MaxFileSizeMB int
	// AllowedExtensions, when non-empty, is a case-insensitive allow-list of
	// extensions without the leading dot.
	AllowedExtensions []string
	// ErrorSizeMessage replaces the default FileTooLarge message.
	ErrorSizeMessage string
	// GetBase64 selects the resolved snapshot for change notifications
	// instead of the raw arrival list. Both carry the same entries here.
	GetBase64 bool
	// DefaultFiles seeds the set on Mount.
	DefaultFiles []FileEntry
	// MultiFile lets the picker return several paths at once.
	MultiFile bool

	Labels Labels

	OnFilesChange  func(files []FileEntry)
	OnError        func(message string)
	OnContextReady func(ctx Context)
}

// DefaultOptions returns options with the widget's stock labels and
// multi-file picking enabled.
func DefaultOptions() Options {
	return Options{
		MultiFile: true,
		Labels:    DefaultLabels(),
	}
}

func (o Options) sizeLimitBytes() int64 {
	return int64(o.MaxFileSizeMB) * 1024 * 1024
}
