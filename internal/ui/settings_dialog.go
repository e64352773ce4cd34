package ui

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"filedrop/internal/config"
)

// SettingsPanel edits the persisted configuration inside the settings tab.
type SettingsPanel struct {
	window    fyne.Window
	configMgr *config.ConfigManager
	onSave    func(config.AppConfig)

	maxFiles            *widget.Entry
	maxSizeMB           *widget.Entry
	allowedExtensions   *widget.Entry
	sizeMessage         *widget.Entry
	multiFile           *widget.Check
	parallelSends       *widget.Entry
	outboxDir           *widget.Entry
	sendRateKB          *widget.Entry
	themeSelect         *widget.Select
	logLevelSelect      *widget.Select
	enableNotifications *widget.Check

	content fyne.CanvasObject
}

// NewSettingsPanel builds the panel from the current config. onSave runs
// after a successful save with the stored values.
func NewSettingsPanel(parent fyne.Window, configMgr *config.ConfigManager, onSave func(config.AppConfig)) *SettingsPanel {
	sp := &SettingsPanel{
		window:    parent,
		configMgr: configMgr,
		onSave:    onSave,
	}
	sp.build()
	return sp
}

// Content returns the panel's canvas object.
func (sp *SettingsPanel) Content() fyne.CanvasObject {
	return sp.content
}

func (sp *SettingsPanel) build() {
	sp.maxFiles = widget.NewEntry()
	sp.maxSizeMB = widget.NewEntry()
	sp.allowedExtensions = widget.NewEntry()
	sp.allowedExtensions.SetPlaceHolder("pdf, png, zip (empty = any)")
	sp.sizeMessage = widget.NewEntry()
	sp.sizeMessage.SetPlaceHolder("Default message")
	sp.multiFile = widget.NewCheck("", nil)
	sp.parallelSends = widget.NewEntry()
	sp.outboxDir = widget.NewEntry()
	sp.sendRateKB = widget.NewEntry()
	sp.themeSelect = widget.NewSelect([]string{"system", "light", "dark"}, nil)
	sp.logLevelSelect = widget.NewSelect([]string{"debug", "info", "warn", "error"}, nil)
	sp.enableNotifications = widget.NewCheck("", nil)

	browseBtn := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		dlg := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			sp.outboxDir.SetText(uri.Path())
		}, sp.window)
		dlg.Show()
	})

	form := widget.NewForm(
		widget.NewFormItem("Max files per batch", sp.maxFiles),
		widget.NewFormItem("Max file size (MB)", sp.maxSizeMB),
		widget.NewFormItem("Allowed extensions", sp.allowedExtensions),
		widget.NewFormItem("Size error message", sp.sizeMessage),
		widget.NewFormItem("Pick several files", sp.multiFile),
		widget.NewFormItem("Parallel sends", sp.parallelSends),
		widget.NewFormItem("Outbox folder", container.NewBorder(nil, nil, nil, browseBtn, sp.outboxDir)),
		widget.NewFormItem("Send limit (KB/s)", sp.sendRateKB),
		widget.NewFormItem("Theme", sp.themeSelect),
		widget.NewFormItem("Log level", sp.logLevelSelect),
		widget.NewFormItem("Desktop notifications", sp.enableNotifications),
	)

	saveBtn := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), sp.Save)
	saveBtn.Importance = widget.HighImportance
	resetBtn := widget.NewButtonWithIcon("Revert", theme.ViewRefreshIcon(), sp.Load)

	sp.Load()
	sp.content = container.NewBorder(nil, container.NewHBox(resetBtn, saveBtn), nil, nil, container.NewVScroll(form))
}

// Load copies the stored config into the form.
func (sp *SettingsPanel) Load() {
	cfg := sp.configMgr.Get()
	sp.maxFiles.SetText(strconv.Itoa(cfg.Upload.MaxUploadFiles))
	sp.maxSizeMB.SetText(strconv.Itoa(cfg.Upload.MaxFileSizeMB))
	sp.allowedExtensions.SetText(strings.Join(cfg.Upload.AllowedExtensions, ", "))
	sp.sizeMessage.SetText(cfg.Upload.ErrorSizeMessage)
	sp.multiFile.SetChecked(cfg.Upload.MultiFile)
	sp.parallelSends.SetText(strconv.Itoa(cfg.MaxParallelSends))
	sp.outboxDir.SetText(cfg.OutboxDir)
	sp.sendRateKB.SetText(strconv.FormatInt(cfg.SendRateLimit/1024, 10))
	sp.themeSelect.SetSelected(cfg.Theme)
	sp.logLevelSelect.SetSelected(cfg.LogLevel)
	sp.enableNotifications.SetChecked(cfg.EnableNotifications)
}

// Save validates the form and stores it.
func (sp *SettingsPanel) Save() {
	cfg, err := sp.collect()
	if err != nil {
		dialog.ShowError(err, sp.window)
		return
	}
	if err := sp.configMgr.Set(&cfg); err != nil {
		dialog.ShowError(err, sp.window)
		return
	}
	if sp.onSave != nil {
		sp.onSave(cfg)
	}
	dialog.ShowInformation("Settings", "Settings saved.", sp.window)
}

func (sp *SettingsPanel) collect() (config.AppConfig, error) {
	cfg := sp.configMgr.Get()

	maxFiles, err := strconv.Atoi(strings.TrimSpace(sp.maxFiles.Text))
	if err != nil || maxFiles < 0 {
		return cfg, &settingsError{"Max files must be a whole number, 0 for no limit"}
	}
	maxSize, err := strconv.Atoi(strings.TrimSpace(sp.maxSizeMB.Text))
	if err != nil || maxSize < 0 {
		return cfg, &settingsError{"Max file size must be a whole number of MB, 0 for no limit"}
	}
	parallel, err := strconv.Atoi(strings.TrimSpace(sp.parallelSends.Text))
	if err != nil || parallel < 1 || parallel > 10 {
		return cfg, &settingsError{"Parallel sends must be between 1 and 10"}
	}
	rateKB, err := strconv.ParseInt(strings.TrimSpace(sp.sendRateKB.Text), 10, 64)
	if err != nil || rateKB < 0 {
		return cfg, &settingsError{"Send limit must be a whole number of KB/s, 0 for no limit"}
	}

	cfg.Upload.MaxUploadFiles = maxFiles
	cfg.Upload.MaxFileSizeMB = maxSize
	cfg.Upload.AllowedExtensions = config.ParseExtensions(sp.allowedExtensions.Text)
	cfg.Upload.ErrorSizeMessage = strings.TrimSpace(sp.sizeMessage.Text)
	cfg.Upload.MultiFile = sp.multiFile.Checked
	cfg.MaxParallelSends = parallel
	cfg.OutboxDir = strings.TrimSpace(sp.outboxDir.Text)
	cfg.SendRateLimit = rateKB * 1024
	cfg.Theme = sp.themeSelect.Selected
	cfg.LogLevel = sp.logLevelSelect.Selected
	cfg.EnableNotifications = sp.enableNotifications.Checked
	return cfg, nil
}

type settingsError struct {
	message string
}

func (e *settingsError) Error() string {
	return e.message
}
