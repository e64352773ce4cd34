package ui

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filedrop/internal/config"
	"filedrop/internal/send"
	"filedrop/internal/upload"
)

func TestURIsToPaths(t *testing.T) {
	web, err := storage.ParseURI("https://example.com/a.txt")
	require.NoError(t, err)

	got := urisToPaths([]fyne.URI{storage.NewFileURI("/tmp/a.txt"), web, nil, storage.NewFileURI("/tmp/b")})

	assert.Equal(t, []string{"/tmp/a.txt", "/tmp/b"}, got)
}

func TestDropZoneHighlight(t *testing.T) {
	dz := NewDropZone(widget.NewLabel("drop here"))
	assert.False(t, dz.Highlighted())

	dz.SetHighlighted(true)
	assert.True(t, dz.Highlighted())

	dz.SetHighlighted(false)
	assert.False(t, dz.Highlighted())
}

func TestAttachmentActions(t *testing.T) {
	removed, copied := false, false
	actions := attachmentActions(func() { removed = true }, func() { copied = true })

	require.Len(t, actions, 3)
	assert.Equal(t, "Remove", actions[0].Label)
	assert.Equal(t, menuSeparator, actions[1].Label)
	assert.Equal(t, "Copy path", actions[2].Label)

	actions[0].Action()
	actions[2].Action()
	assert.True(t, removed)
	assert.True(t, copied)

	menu := buildMenu(actions)
	require.Len(t, menu.Items, 3)
	assert.True(t, menu.Items[1].IsSeparator)

	assert.Len(t, attachmentActions(nil, func() {}), 1)
	assert.Empty(t, attachmentActions(nil, nil))
}

func TestNotificationManager(t *testing.T) {
	nm := NewNotificationManager("filedrop-test", true)
	got := make(chan string, 4)
	nm.notify = func(title, message string) error {
		got <- title + ": " + message
		return nil
	}

	nm.NotifyRejected("Extension .exe has been excluded (x.exe)")
	select {
	case msg := <-got:
		assert.Equal(t, "File not added: Extension .exe has been excluded (x.exe)", msg)
	case <-time.After(time.Second):
		t.Fatal("notification not sent")
	}

	nm.SetEnabled(false)
	assert.False(t, nm.Enabled())
	nm.NotifySendFailed("a", errors.New("boom"))
	select {
	case msg := <-got:
		t.Fatalf("unexpected notification %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendViewUpdateAndClear(t *testing.T) {
	test.NewApp()
	sv := NewSendView(nil)

	sv.Update(send.Job{ID: "1", Entry: upload.FileEntry{Name: "a"}, Status: send.StatusInProgress, Progress: 20})
	sv.Update(send.Job{ID: "2", Entry: upload.FileEntry{Name: "b"}, Status: send.StatusPending})
	sv.Update(send.Job{ID: "1", Entry: upload.FileEntry{Name: "a"}, Status: send.StatusCompleted, Progress: 100})

	require.Len(t, sv.Jobs(), 2)
	assert.Equal(t, send.StatusCompleted, sv.Jobs()[0].Status)
	assert.Equal(t, 1, sv.ActiveCount())

	sv.ClearFinished()
	require.Len(t, sv.Jobs(), 1)
	assert.Equal(t, "2", sv.Jobs()[0].ID)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "45%", statusText(send.Job{Status: send.StatusInProgress, Progress: 45}))
	assert.Equal(t, "Failed: disk full", statusText(send.Job{Status: send.StatusFailed, Err: errors.New("disk full")}))
	assert.Equal(t, "Cancelled", statusText(send.Job{Status: send.StatusCancelled}))
	assert.Equal(t, "Pending", statusText(send.Job{Status: send.StatusPending}))
}

func newTestSettings(t *testing.T) (*SettingsPanel, *config.ConfigManager) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	cm, err := config.NewConfigManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	return NewSettingsPanel(a.NewWindow("settings"), cm, nil), cm
}

func TestSettingsPanelLoadsConfig(t *testing.T) {
	sp, cm := newTestSettings(t)
	cfg := cm.Get()

	assert.Equal(t, "0", sp.maxFiles.Text)
	assert.Equal(t, cfg.LogLevel, sp.logLevelSelect.Selected)
	assert.Equal(t, cfg.OutboxDir, sp.outboxDir.Text)
	assert.True(t, sp.multiFile.Checked)
}

func TestSettingsPanelSave(t *testing.T) {
	a := test.NewApp()
	t.Cleanup(a.Quit)
	cm, err := config.NewConfigManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	var saved []config.AppConfig
	sp := NewSettingsPanel(a.NewWindow("settings"), cm, func(cfg config.AppConfig) { saved = append(saved, cfg) })

	sp.maxFiles.SetText("4")
	sp.maxSizeMB.SetText("25")
	sp.allowedExtensions.SetText("PDF, .png")
	sp.sendRateKB.SetText("512")
	sp.logLevelSelect.SetSelected("debug")
	sp.Save()

	require.Len(t, saved, 1)
	got := cm.Get()
	assert.Equal(t, 4, got.Upload.MaxUploadFiles)
	assert.Equal(t, 25, got.Upload.MaxFileSizeMB)
	assert.Equal(t, []string{"pdf", "png"}, got.Upload.AllowedExtensions)
	assert.Equal(t, int64(512*1024), got.SendRateLimit)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, got, saved[0])
}

func TestSettingsPanelRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sp *SettingsPanel)
		want  string
	}{
		{"max files", func(sp *SettingsPanel) { sp.maxFiles.SetText("-1") }, "Max files"},
		{"size", func(sp *SettingsPanel) { sp.maxSizeMB.SetText("big") }, "Max file size"},
		{"parallel", func(sp *SettingsPanel) { sp.parallelSends.SetText("11") }, "Parallel sends"},
		{"rate", func(sp *SettingsPanel) { sp.sendRateKB.SetText("-5") }, "Send limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, _ := newTestSettings(t)
			tt.setup(sp)

			_, err := sp.collect()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettingsPanelRevert(t *testing.T) {
	sp, _ := newTestSettings(t)
	sp.maxFiles.SetText("99")

	sp.Load()

	assert.Equal(t, "0", sp.maxFiles.Text)
}
