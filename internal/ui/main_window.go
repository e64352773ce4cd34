// Package ui provides the graphical user interface using Fyne.
package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"filedrop/internal/config"
	"filedrop/internal/host"
	"filedrop/internal/send"
	"filedrop/internal/upload"
	"filedrop/pkg/logger"
)

const appName = "filedrop"

// MainWindow represents the main application window.
type MainWindow struct {
	app       fyne.App
	window    fyne.Window
	configMgr *config.ConfigManager
	log       *logger.Logger

	hub        *host.DropHub
	cache      *host.MetadataCache
	session    *upload.Session
	importer   *upload.Importer
	sender     *send.FolderSender
	dispatcher *send.Dispatcher
	notifier   *NotificationManager

	uploadWidget *UploadWidget
	sendView     *SendView
	settings     *SettingsPanel
	tabs         *container.AppTabs
	statusBar    *widget.Label
	sendBtn      *widget.Button
}

// NewMainWindow creates the application and its main window.
func NewMainWindow(configMgr *config.ConfigManager) *MainWindow {
	return newMainWindow(app.NewWithID("io.filedrop"), configMgr)
}

func newMainWindow(a fyne.App, configMgr *config.ConfigManager) *MainWindow {
	cfg := configMgr.Get()

	mw := &MainWindow{
		app:       a,
		configMgr: configMgr,
		log:       logger.GetInstance(),
		hub:       host.NewDropHub(),
		cache:     host.NewMetadataCache(time.Duration(cfg.MetadataCacheTTL) * time.Second),
		notifier:  NewNotificationManager(appName, cfg.EnableNotifications),
	}

	mw.app.SetIcon(AppIcon)
	mw.applyTheme(cfg.Theme)
	mw.window = mw.app.NewWindow(appName)
	mw.window.Resize(fyne.NewSize(float32(cfg.WindowWidth), float32(cfg.WindowHeight)))

	mw.session = upload.NewSession(cfg.UploadOptions())
	files := host.NewService(host.NewFileSystem(mw.cache), NewFynePicker(mw.window, cfg.DefaultDir))
	mw.importer = upload.NewImporter(files, mw.session, cfg.Upload.ResolveConcurrency)

	mw.sender = send.NewFolderSender(cfg.OutboxDir, cfg.SendRateLimit)
	mw.dispatcher = send.NewDispatcher(mw.sender, mw.session, cfg.MaxParallelSends)

	mw.buildUI()
	mw.setupCallbacks()

	return mw
}

// buildUI constructs the user interface.
func (mw *MainWindow) buildUI() {
	mw.uploadWidget = NewUploadWidget(mw.window, mw.session, mw.importer, mw.hub, mw.notifier)
	mw.sendView = NewSendView(func(id string) {
		if err := mw.dispatcher.Cancel(id); err != nil {
			mw.log.Warnf("cancel %s: %v", id, err)
		}
	})

	mw.sendBtn = widget.NewButtonWithIcon("Send", theme.MailSendIcon(), mw.onSend)
	mw.sendBtn.Importance = widget.HighImportance
	cancelAll := widget.NewButtonWithIcon("Cancel all", theme.CancelIcon(), mw.dispatcher.CancelAll)

	sendSplit := container.NewVSplit(
		mw.uploadWidget,
		container.NewBorder(nil, container.NewHBox(mw.sendBtn, cancelAll), nil, nil, mw.sendView.GetContainer()),
	)
	sendSplit.SetOffset(0.65)

	mw.settings = NewSettingsPanel(mw.window, mw.configMgr, mw.applySettings)

	mw.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("send", theme.MailSendIcon(), sendSplit),
		container.NewTabItemWithIcon("receive", theme.DownloadIcon(),
			container.NewCenter(widget.NewLabel("Nothing received yet."))),
		container.NewTabItemWithIcon("settings", theme.SettingsIcon(), mw.settings.Content()),
		container.NewTabItemWithIcon("about", theme.InfoIcon(), mw.aboutContent()),
	)

	mw.statusBar = widget.NewLabel("Ready")

	mw.window.SetContent(container.NewBorder(nil, mw.statusBar, nil, nil, mw.tabs))
	mw.createMenu()
}

// createMenu creates the application menu.
func (mw *MainWindow) createMenu() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Add files...", func() { mw.uploadWidget.pick(false) }),
		fyne.NewMenuItem("Add folder...", func() { mw.uploadWidget.pick(true) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Remove all", mw.session.RemoveAll),
	)
	sendMenu := fyne.NewMenu("Send",
		fyne.NewMenuItem("Send all", mw.onSend),
		fyne.NewMenuItem("Cancel all", mw.dispatcher.CancelAll),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.window.SetMainMenu(fyne.NewMainMenu(fileMenu, sendMenu, helpMenu))
}

// setupCallbacks sets up event handlers.
func (mw *MainWindow) setupCallbacks() {
	mw.dispatcher.SetUpdateCallback(mw.sendView.Update)
	mw.dispatcher.SetCompleteCallback(mw.onSendComplete)
	InstallDropHandler(mw.window, mw.hub)
}

func (mw *MainWindow) aboutContent() fyne.CanvasObject {
	return container.NewCenter(container.NewVBox(
		widget.NewIcon(AppIcon),
		widget.NewLabelWithStyle(appName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("Drop files on the window or pick them from a dialog,\nthen send them to the outbox folder.",
			fyne.TextAlignCenter, fyne.TextStyle{}),
	))
}

// onSend queues every held entry.
func (mw *MainWindow) onSend() {
	files := mw.session.CurrentFiles()
	if len(files) == 0 {
		dialog.ShowInformation("Nothing to send", "Add files first.", mw.window)
		return
	}

	mw.session.ResetProgress()
	jobs := mw.dispatcher.Enqueue(files...)
	for _, j := range jobs {
		mw.sendView.Update(j)
	}
	mw.statusBar.SetText(fmt.Sprintf("Sending %d item(s) to %s", len(jobs), mw.sender.Dir()))
}

// onSendComplete handles a finished send.
func (mw *MainWindow) onSendComplete(job send.Job) {
	mw.sendView.Update(job)

	switch job.Status {
	case send.StatusCompleted:
		mw.statusBar.SetText("Sent: " + job.Entry.Name)
		mw.notifier.NotifySendComplete(job.Entry.Name)
	case send.StatusFailed:
		mw.statusBar.SetText(fmt.Sprintf("Send failed: %v", job.Err))
		mw.notifier.NotifySendFailed(job.Entry.Name, job.Err)
	case send.StatusCancelled:
		mw.statusBar.SetText("Cancelled: " + job.Entry.Name)
	}
}

// applySettings pushes saved settings into the running components.
func (mw *MainWindow) applySettings(cfg config.AppConfig) {
	opts := cfg.UploadOptions()
	mw.session.SetLimits(opts.MaxUploadFiles, opts.MaxFileSizeMB, opts.AllowedExtensions, opts.ErrorSizeMessage)
	mw.dispatcher.SetMaxParallel(cfg.MaxParallelSends)
	mw.sender.SetDir(cfg.OutboxDir)
	mw.sender.Limiter.SetRate(cfg.SendRateLimit)
	mw.notifier.SetEnabled(cfg.EnableNotifications)
	mw.log.SetLevel(cfg.LogLevel)
	mw.applyTheme(cfg.Theme)
	mw.uploadWidget.setFiles(mw.session.CurrentFiles())
	mw.log.Info("settings applied")
}

func (mw *MainWindow) applyTheme(name string) {
	switch name {
	case "dark":
		mw.app.Settings().SetTheme(theme.DarkTheme())
	case "light":
		mw.app.Settings().SetTheme(theme.LightTheme())
	default:
		mw.app.Settings().SetTheme(theme.DefaultTheme())
	}
}

// onAbout shows the about dialog.
func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appName,
		"filedrop\n\nCollects files by drag and drop or a file dialog and sends them to a folder.",
		mw.window)
}

// Run shows the window and blocks until it is closed.
func (mw *MainWindow) Run() {
	mw.window.SetMaster()
	mw.window.ShowAndRun()
}

// Cleanup performs cleanup before exit.
func (mw *MainWindow) Cleanup() {
	mw.uploadWidget.Close()
	mw.dispatcher.Stop()
	mw.cache.Close()
}
