package host

import (
	"context"
	"errors"

	"filedrop/internal/upload"
)

// ErrNoPicker is returned when a Service has no dialog to show.
var ErrNoPicker = errors.New("no file picker available")

// Service joins a metadata resolver and a file picker into the single
// collaborator the importer expects.
type Service struct {
	upload.MetadataResolver
	picker upload.FilePicker
}

// NewService combines resolver and picker. picker may be nil for headless
// use, in which case OpenFilePicker fails with ErrNoPicker.
func NewService(resolver upload.MetadataResolver, picker upload.FilePicker) *Service {
	return &Service{MetadataResolver: resolver, picker: picker}
}

// OpenFilePicker forwards to the configured picker.
func (s *Service) OpenFilePicker(ctx context.Context, opts upload.PickerOptions) ([]string, error) {
	if s.picker == nil {
		return nil, ErrNoPicker
	}
	return s.picker.OpenFilePicker(ctx, opts)
}
