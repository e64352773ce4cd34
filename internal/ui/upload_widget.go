package ui

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"filedrop/internal/upload"
	"filedrop/pkg/logger"
)

// UploadWidget is the drop target and attachment list bound to one session.
type UploadWidget struct {
	widget.BaseWidget

	window   fyne.Window
	session  *upload.Session
	importer *upload.Importer
	drops    *upload.DropController
	notifier *NotificationManager
	log      *logger.Logger

	mu    sync.RWMutex
	files []upload.FileEntry

	header      *widget.Label
	counter     *widget.Label
	errorLabel  *widget.Label
	errorBanner *fyne.Container
	dismissBtn  *widget.Button
	list        *widget.List
	pickButton  *widget.Button
	folderBtn   *widget.Button
	removeAll   *widget.Button
	zone        *DropZone

	ctx    context.Context
	cancel context.CancelFunc
}

// NewUploadWidget builds the widget, subscribes it to drops and mounts the
// session. Call Close to release the drop subscription.
func NewUploadWidget(window fyne.Window, session *upload.Session, importer *upload.Importer, drops upload.DropChannel, notifier *NotificationManager) *UploadWidget {
	ctx, cancel := context.WithCancel(context.Background())
	uw := &UploadWidget{
		window:   window,
		session:  session,
		importer: importer,
		notifier: notifier,
		log:      logger.GetInstance(),
		ctx:      ctx,
		cancel:   cancel,
	}
	uw.buildUI()
	uw.ExtendBaseWidget(uw)

	opts := session.Options()
	onFiles, onError := opts.OnFilesChange, opts.OnError
	session.SetOnFilesChange(func(files []upload.FileEntry) {
		uw.setFiles(files)
		if onFiles != nil {
			onFiles(files)
		}
	})
	session.SetOnError(func(msg string) {
		uw.refreshError()
		if uw.notifier != nil {
			uw.notifier.NotifyRejected(msg)
		}
		if onError != nil {
			onError(msg)
		}
	})

	if drops != nil {
		uw.drops = upload.NewDropController(drops, importer)
		uw.drops.SetOnHoverChange(uw.zone.SetHighlighted)
		go uw.drops.Run(ctx)
	}

	session.Mount()
	return uw
}

func (uw *UploadWidget) buildUI() {
	labels := uw.session.Options().Labels

	uw.header = widget.NewLabelWithStyle(labels.Header, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	uw.pickButton = widget.NewButtonWithIcon(labels.Button, theme.FileIcon(), func() { uw.pick(false) })
	uw.folderBtn = widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() { uw.pick(true) })
	selectRow := container.NewHBox(
		layout.NewSpacer(),
		widget.NewLabel(labels.Left),
		uw.pickButton,
		uw.folderBtn,
		widget.NewLabel(labels.Right),
		layout.NewSpacer(),
	)

	uw.counter = widget.NewLabel("")
	uw.removeAll = widget.NewButtonWithIcon(labels.RemoveAll, theme.DeleteIcon(), uw.session.RemoveAll)
	uw.removeAll.Disable()
	footer := container.NewBorder(nil, nil, uw.counter, uw.removeAll)

	uw.errorLabel = widget.NewLabel("")
	uw.errorLabel.Wrapping = fyne.TextWrapWord
	uw.dismissBtn = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		uw.session.DismissError()
		uw.refreshError()
	})
	uw.errorBanner = container.NewBorder(nil, nil, widget.NewIcon(theme.ErrorIcon()), uw.dismissBtn, uw.errorLabel)
	uw.errorBanner.Hide()

	uw.list = widget.NewList(
		func() int {
			uw.mu.RLock()
			defer uw.mu.RUnlock()
			return len(uw.files)
		},
		func() fyne.CanvasObject {
			return newAttachmentRow(uw)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			uw.mu.RLock()
			if id >= len(uw.files) {
				uw.mu.RUnlock()
				return
			}
			entry := uw.files[id]
			uw.mu.RUnlock()
			obj.(*attachmentRow).set(id, entry)
		},
	)

	top := container.NewVBox(uw.header, selectRow, uw.errorBanner)
	uw.zone = NewDropZone(container.NewBorder(top, footer, nil, nil, uw.list))
}

// CreateRenderer implements fyne.Widget.
func (uw *UploadWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(uw.zone)
}

// Files returns the entries currently displayed.
func (uw *UploadWidget) Files() []upload.FileEntry {
	uw.mu.RLock()
	defer uw.mu.RUnlock()
	return append([]upload.FileEntry(nil), uw.files...)
}

// Close stops listening for drops.
func (uw *UploadWidget) Close() {
	uw.cancel()
	if uw.drops != nil {
		uw.drops.Close()
	}
}

func (uw *UploadWidget) pick(directory bool) {
	go func() {
		if _, err := uw.importer.Pick(uw.ctx, directory); err != nil {
			uw.log.Warnf("file picker failed: %v", err)
			dialog.ShowError(err, uw.window)
		}
	}()
}

func (uw *UploadWidget) setFiles(files []upload.FileEntry) {
	uw.mu.Lock()
	uw.files = files
	uw.mu.Unlock()

	uw.counter.SetText(uw.session.Summary())
	if len(files) == 0 {
		uw.removeAll.Disable()
	} else {
		uw.removeAll.Enable()
	}
	uw.list.Refresh()
	uw.refreshError()
}

func (uw *UploadWidget) refreshError() {
	last := uw.session.LastError()
	if last == nil {
		uw.errorBanner.Hide()
		return
	}
	uw.errorLabel.SetText(last.Message)
	uw.errorBanner.Show()
}

func (uw *UploadWidget) showContextMenu(index int, entry upload.FileEntry, pos fyne.Position) {
	popUpMenu(uw.window.Canvas(), pos, attachmentActions(
		func() { uw.session.RemoveEntry(index) },
		func() { uw.window.Clipboard().SetContent(entry.Path) },
	))
}

// attachmentRow renders one entry of the list.
type attachmentRow struct {
	widget.BaseWidget
	owner *UploadWidget

	index int
	entry upload.FileEntry

	icon     *widget.Icon
	name     *widget.Label
	caption  *widget.Label
	size     *widget.Label
	progress *widget.ProgressBar
	remove   *widget.Button
	content  fyne.CanvasObject
}

func newAttachmentRow(owner *UploadWidget) *attachmentRow {
	r := &attachmentRow{
		owner:    owner,
		icon:     widget.NewIcon(theme.FileIcon()),
		name:     widget.NewLabel("filename"),
		caption:  widget.NewLabelWithStyle("ext", fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
		size:     widget.NewLabel("0 B"),
		progress: widget.NewProgressBar(),
	}
	r.name.Truncation = fyne.TextTruncateEllipsis
	r.progress.Hide()
	r.remove = widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		r.owner.session.RemoveEntry(r.index)
	})
	r.remove.Importance = widget.LowImportance

	r.content = container.NewBorder(nil, nil,
		r.icon,
		container.NewHBox(r.size, r.remove),
		container.NewVBox(r.name, r.caption, r.progress),
	)
	r.ExtendBaseWidget(r)
	return r
}

func (r *attachmentRow) set(index int, entry upload.FileEntry) {
	r.index = index
	r.entry = entry

	r.icon.SetResource(kindIcon(entry.Kind()))
	r.name.SetText(entry.Name)
	r.caption.SetText(entry.Caption())
	r.size.SetText(humanize.Bytes(uint64(entry.Size)))
	if entry.Progress > 0 {
		r.progress.SetValue(float64(entry.Progress) / 100)
		r.progress.Show()
	} else {
		r.progress.Hide()
	}
}

// TappedSecondary implements fyne.SecondaryTappable.
func (r *attachmentRow) TappedSecondary(e *fyne.PointEvent) {
	r.owner.showContextMenu(r.index, r.entry, e.AbsolutePosition)
}

// CreateRenderer implements fyne.Widget.
func (r *attachmentRow) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(r.content)
}

func kindIcon(k upload.Kind) fyne.Resource {
	switch k {
	case upload.KindDirectory:
		return theme.FolderIcon()
	case upload.KindArchive:
		return theme.FileApplicationIcon()
	case upload.KindImage:
		return theme.FileImageIcon()
	case upload.KindMedia:
		return theme.FileVideoIcon()
	default:
		return theme.FileIcon()
	}
}
