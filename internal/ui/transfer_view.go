package ui

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"filedrop/internal/send"
)

// SendView lists queued and finished sends.
type SendView struct {
	container *fyne.Container
	list      *widget.List
	jobs      []send.Job
	mu        sync.RWMutex
	onCancel  func(id string)
}

// NewSendView creates a send view. onCancel is called with a job ID when the
// user cancels it.
func NewSendView(onCancel func(id string)) *SendView {
	sv := &SendView{
		jobs:     make([]send.Job, 0),
		onCancel: onCancel,
	}
	sv.buildUI()
	return sv
}

func (sv *SendView) buildUI() {
	header := widget.NewLabelWithStyle("Sends", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	sv.list = widget.NewList(
		func() int {
			sv.mu.RLock()
			defer sv.mu.RUnlock()
			return len(sv.jobs)
		},
		func() fyne.CanvasObject {
			cancel := widget.NewButtonWithIcon("", theme.CancelIcon(), nil)
			cancel.Importance = widget.LowImportance
			return container.NewVBox(
				container.NewBorder(nil, nil,
					widget.NewIcon(theme.MailSendIcon()),
					container.NewHBox(widget.NewLabel("Pending"), cancel),
					widget.NewLabel("filename.txt"),
				),
				widget.NewProgressBar(),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			sv.mu.RLock()
			if id >= len(sv.jobs) {
				sv.mu.RUnlock()
				return
			}
			job := sv.jobs[id]
			sv.mu.RUnlock()

			box := obj.(*fyne.Container)
			row := box.Objects[0].(*fyne.Container)
			// Border objects: center, left, right.
			name := row.Objects[0].(*widget.Label)
			right := row.Objects[2].(*fyne.Container)
			status := right.Objects[0].(*widget.Label)
			cancel := right.Objects[1].(*widget.Button)
			bar := box.Objects[1].(*widget.ProgressBar)

			name.SetText(fmt.Sprintf("%s (%s)", job.Entry.Name, humanize.Bytes(uint64(job.Entry.Size))))
			status.SetText(statusText(job))
			bar.SetValue(float64(job.Progress) / 100)
			if job.Status.Done() {
				cancel.Hide()
			} else {
				cancel.Show()
				cancel.OnTapped = func() {
					if sv.onCancel != nil {
						sv.onCancel(job.ID)
					}
				}
			}
		},
	)

	clearBtn := widget.NewButtonWithIcon("Clear finished", theme.DeleteIcon(), sv.ClearFinished)

	sv.container = container.NewBorder(header, container.NewHBox(clearBtn), nil, nil, sv.list)
}

func statusText(job send.Job) string {
	switch job.Status {
	case send.StatusInProgress:
		return fmt.Sprintf("%d%%", job.Progress)
	case send.StatusFailed:
		if job.Err != nil {
			return "Failed: " + job.Err.Error()
		}
	case send.StatusCompleted:
		return "Sent in " + job.Duration().Round(time.Millisecond).String()
	}
	return job.Status.String()
}

// GetContainer returns the view's container.
func (sv *SendView) GetContainer() *fyne.Container {
	return sv.container
}

// Update inserts or replaces job.
func (sv *SendView) Update(job send.Job) {
	sv.mu.Lock()
	if i := slices.IndexFunc(sv.jobs, func(j send.Job) bool { return j.ID == job.ID }); i >= 0 {
		sv.jobs[i] = job
	} else {
		sv.jobs = append(sv.jobs, job)
	}
	sv.mu.Unlock()
	sv.list.Refresh()
}

// ClearFinished drops finished jobs from the view.
func (sv *SendView) ClearFinished() {
	sv.mu.Lock()
	sv.jobs = slices.DeleteFunc(sv.jobs, func(j send.Job) bool { return j.Status.Done() })
	sv.mu.Unlock()
	sv.list.Refresh()
}

// Jobs returns the jobs shown.
func (sv *SendView) Jobs() []send.Job {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	return slices.Clone(sv.jobs)
}

// ActiveCount returns the number of jobs not yet finished.
func (sv *SendView) ActiveCount() int {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	count := 0
	for _, j := range sv.jobs {
		if !j.Status.Done() {
			count++
		}
	}
	return count
}
