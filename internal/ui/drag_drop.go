package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"filedrop/internal/host"
)

var (
	dropFill   = color.NRGBA{R: 0, G: 150, B: 255, A: 50}
	dropStroke = color.NRGBA{R: 0, G: 150, B: 255, A: 200}
)

// DropZone outlines its content while files hover over the window.
type DropZone struct {
	widget.BaseWidget

	mu          sync.Mutex
	highlighted bool
	frame       *canvas.Rectangle
	body        *fyne.Container
}

// NewDropZone creates a drop zone around content.
func NewDropZone(content fyne.CanvasObject) *DropZone {
	frame := canvas.NewRectangle(color.Transparent)
	frame.StrokeWidth = 2
	dz := &DropZone{
		frame: frame,
		body:  container.NewStack(frame, content),
	}
	dz.ExtendBaseWidget(dz)
	return dz
}

// SetHighlighted switches the hover outline on or off.
func (dz *DropZone) SetHighlighted(highlighted bool) {
	dz.mu.Lock()
	if dz.highlighted == highlighted {
		dz.mu.Unlock()
		return
	}
	dz.highlighted = highlighted
	dz.mu.Unlock()

	if highlighted {
		dz.frame.FillColor, dz.frame.StrokeColor = dropFill, dropStroke
	} else {
		dz.frame.FillColor, dz.frame.StrokeColor = color.Transparent, color.Transparent
	}
	dz.frame.Refresh()
}

// Highlighted reports whether the outline is on.
func (dz *DropZone) Highlighted() bool {
	dz.mu.Lock()
	defer dz.mu.Unlock()
	return dz.highlighted
}

// CreateRenderer implements fyne.Widget.
func (dz *DropZone) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(dz.body)
}

// InstallDropHandler forwards files dropped on the window into hub. The
// window reports only completed drops, so hover and cancel events reach the
// hub solely through its own API.
func InstallDropHandler(w fyne.Window, hub *host.DropHub) {
	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		hub.Dropped(urisToPaths(uris))
	})
}

func urisToPaths(uris []fyne.URI) []string {
	paths := make([]string, 0, len(uris))
	for _, uri := range uris {
		if uri == nil || uri.Scheme() != "file" {
			continue
		}
		paths = append(paths, uri.Path())
	}
	return paths
}
