package ui

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"filedrop/internal/upload"
)

// FynePicker shows the fyne file dialogs and waits for the user. It must not
// be called from the UI event goroutine.
type FynePicker struct {
	window   fyne.Window
	startDir string
}

// NewFynePicker creates a picker parented to window. startDir may be empty.
func NewFynePicker(window fyne.Window, startDir string) *FynePicker {
	return &FynePicker{window: window, startDir: startDir}
}

// OpenFilePicker implements upload.FilePicker. The fyne dialog selects a
// single item, so opts.Multiple has no effect. Cancel yields no paths.
func (p *FynePicker) OpenFilePicker(ctx context.Context, opts upload.PickerOptions) ([]string, error) {
	result := make(chan []string, 1)
	var dlg dialog.Dialog

	if opts.Directory {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				result <- nil
				return
			}
			result <- []string{uri.Path()}
		}, p.window)
		p.setLocation(fd)
		dlg = fd
	} else {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				result <- nil
				return
			}
			defer rc.Close()
			result <- []string{rc.URI().Path()}
		}, p.window)
		p.setLocation(fd)
		dlg = fd
	}
	dlg.Show()

	select {
	case paths := <-result:
		return paths, nil
	case <-ctx.Done():
		dlg.Hide()
		return nil, ctx.Err()
	}
}

func (p *FynePicker) setLocation(fd *dialog.FileDialog) {
	if p.startDir == "" {
		return
	}
	uri := storage.NewFileURI(p.startDir)
	if lister, err := storage.ListerForURI(uri); err == nil {
		fd.SetLocation(lister)
	}
}
