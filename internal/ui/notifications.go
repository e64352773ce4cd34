package ui

import (
	"sync"

	"github.com/gen2brain/beeep"

	"filedrop/pkg/logger"
)

// NotificationManager sends desktop notifications through beeep.
type NotificationManager struct {
	mu      sync.RWMutex
	enabled bool
	notify  func(title, message string) error
}

// NewNotificationManager creates a manager branded with appName.
func NewNotificationManager(appName string, enabled bool) *NotificationManager {
	beeep.AppName = appName
	return &NotificationManager{
		enabled: enabled,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// SetEnabled enables or disables notifications.
func (nm *NotificationManager) SetEnabled(enabled bool) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.enabled = enabled
}

// Enabled reports whether notifications are sent.
func (nm *NotificationManager) Enabled() bool {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.enabled
}

// Notify sends a notification in the background.
func (nm *NotificationManager) Notify(title, message string) {
	nm.mu.RLock()
	enabled, notify := nm.enabled, nm.notify
	nm.mu.RUnlock()
	if !enabled {
		return
	}

	go func() {
		if err := notify(title, message); err != nil {
			logger.GetInstance().Warnf("notification failed: %v", err)
		}
	}()
}

// NotifyRejected reports a file the session refused.
func (nm *NotificationManager) NotifyRejected(message string) {
	nm.Notify("File not added", message)
}

// NotifySendComplete reports a finished send.
func (nm *NotificationManager) NotifySendComplete(name string) {
	nm.Notify("Send complete", name+" was sent successfully")
}

// NotifySendFailed reports a failed send.
func (nm *NotificationManager) NotifySendFailed(name string, err error) {
	nm.Notify("Send failed", name+": "+err.Error())
}
