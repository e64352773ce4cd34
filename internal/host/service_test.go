package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filedrop/internal/upload"
)

type stubPicker struct {
	opts  upload.PickerOptions
	paths []string
}

func (p *stubPicker) OpenFilePicker(ctx context.Context, opts upload.PickerOptions) ([]string, error) {
	p.opts = opts
	return p.paths, nil
}

func TestServiceForwardsPicker(t *testing.T) {
	picker := &stubPicker{paths: []string{"/a"}}
	svc := NewService(NewFileSystem(nil), picker)

	got, err := svc.OpenFilePicker(context.Background(), upload.PickerOptions{Directory: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, got)
	assert.True(t, picker.opts.Directory)
}

func TestServiceWithoutPicker(t *testing.T) {
	svc := NewService(NewFileSystem(nil), nil)

	_, err := svc.OpenFilePicker(context.Background(), upload.PickerOptions{})

	assert.ErrorIs(t, err, ErrNoPicker)
}
