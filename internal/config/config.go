// Package config handles application configuration and upload limits.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"filedrop/internal/upload"
)

// UploadSettings are the persisted widget options.
type UploadSettings struct {
	MaxUploadFiles     int           `json:"max_upload_files"`
	MaxFileSizeMB      int           `json:"max_file_size_mb"`
	AllowedExtensions  []string      `json:"allowed_extensions"`
	ErrorSizeMessage   string        `json:"error_size_message,omitempty"`
	GetBase64          bool          `json:"get_base64"`
	MultiFile          bool          `json:"multi_file"`
	ResolveConcurrency int           `json:"resolve_concurrency"`
	Labels             upload.Labels `json:"labels"`
}

// AppConfig holds the application configuration.
type AppConfig struct {
	Upload              UploadSettings `json:"upload"`
	MaxParallelSends    int            `json:"max_parallel_sends"`
	OutboxDir           string         `json:"outbox_dir"`
	SendRateLimit       int64          `json:"send_rate_limit"` // bytes per second, 0 = unlimited
	MetadataCacheTTL    int            `json:"metadata_cache_ttl_seconds"`
	LogLevel            string         `json:"log_level"`
	LogPath             string         `json:"log_path"`
	Theme               string         `json:"theme"` // "light", "dark", "system"
	WindowWidth         int            `json:"window_width"`
	WindowHeight        int            `json:"window_height"`
	DefaultDir          string         `json:"default_dir"`
	EnableNotifications bool           `json:"enable_notifications"`
}

// ConfigManager handles loading and saving configuration.
type ConfigManager struct {
	config *AppConfig
	path   string
	mu     sync.RWMutex
}

// DefaultDir is the directory holding the config file and logs.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "filedrop")
}

// DefaultPath is the config file location used when no --config is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	homeDir, _ := os.UserHomeDir()

	return &AppConfig{
		Upload: UploadSettings{
			AllowedExtensions:  make([]string, 0),
			MultiFile:          true,
			ResolveConcurrency: 4,
			Labels:             upload.DefaultLabels(),
		},
		MaxParallelSends:    2,
		OutboxDir:           filepath.Join(homeDir, "filedrop-outbox"),
		SendRateLimit:       0,
		MetadataCacheTTL:    30,
		LogLevel:            "info",
		LogPath:             filepath.Join(DefaultDir(), "logs", "filedrop.log"),
		Theme:               "system",
		WindowWidth:         900,
		WindowHeight:        640,
		DefaultDir:          homeDir,
		EnableNotifications: true,
	}
}

// NewConfigManager creates a new config manager. A missing file yields the
// defaults.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	cm := &ConfigManager{
		path: configPath,
	}

	if err := cm.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cm.config = DefaultConfig()
			return cm, nil
		}
		return nil, err
	}

	return cm, nil
}

// Path returns the file the manager reads and writes.
func (cm *ConfigManager) Path() string {
	return cm.path
}

// Load reads the configuration from disk. Fields absent from the file keep
// their defaults.
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := os.ReadFile(cm.path)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse %s: %w", cm.path, err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cm.path, err)
	}

	cm.config = config
	return nil
}

// Save writes the configuration to disk.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(cm.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cm.path, data, 0600)
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() AppConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c := *cm.config
	c.Upload.AllowedExtensions = slices.Clone(cm.config.Upload.AllowedExtensions)
	return c
}

// Set validates and stores config, then saves it.
func (cm *ConfigManager) Set(config *AppConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return cm.Save()
}

// Validate reports every invalid field at once.
func (c *AppConfig) Validate() error {
	var result *multierror.Error

	if c.Upload.MaxUploadFiles < 0 {
		result = multierror.Append(result, fmt.Errorf("upload.max_upload_files must be >= 0, got %d", c.Upload.MaxUploadFiles))
	}
	if c.Upload.MaxFileSizeMB < 0 {
		result = multierror.Append(result, fmt.Errorf("upload.max_file_size_mb must be >= 0, got %d", c.Upload.MaxFileSizeMB))
	}
	if c.Upload.ResolveConcurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("upload.resolve_concurrency must be >= 1, got %d", c.Upload.ResolveConcurrency))
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			result = multierror.Append(result, errors.New("upload.allowed_extensions contains an empty entry"))
			break
		}
	}
	if c.MaxParallelSends < 1 {
		result = multierror.Append(result, fmt.Errorf("max_parallel_sends must be >= 1, got %d", c.MaxParallelSends))
	}
	if c.SendRateLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("send_rate_limit must be >= 0, got %d", c.SendRateLimit))
	}
	if c.MetadataCacheTTL < 0 {
		result = multierror.Append(result, fmt.Errorf("metadata_cache_ttl_seconds must be >= 0, got %d", c.MetadataCacheTTL))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch c.Theme {
	case "light", "dark", "system":
	default:
		result = multierror.Append(result, fmt.Errorf("theme %q is not one of light, dark, system", c.Theme))
	}

	return result.ErrorOrNil()
}

// UploadOptions converts the persisted settings into session options.
// Callbacks are left for the caller to attach.
func (c *AppConfig) UploadOptions() upload.Options {
	u := c.Upload
	extensions := make([]string, 0, len(u.AllowedExtensions))
	for _, ext := range u.AllowedExtensions {
		extensions = append(extensions, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	labels := u.Labels
	defaults := upload.DefaultLabels()
	if labels.Header == "" {
		labels.Header = defaults.Header
	}
	if labels.Left == "" {
		labels.Left = defaults.Left
	}
	if labels.Right == "" {
		labels.Right = defaults.Right
	}
	if labels.Button == "" {
		labels.Button = defaults.Button
	}
	if labels.RemoveAll == "" {
		labels.RemoveAll = defaults.RemoveAll
	}
	return upload.Options{
		MaxUploadFiles:    u.MaxUploadFiles,
		MaxFileSizeMB:     u.MaxFileSizeMB,
		AllowedExtensions: extensions,
		ErrorSizeMessage:  u.ErrorSizeMessage,
		GetBase64:         u.GetBase64,
		MultiFile:         u.MultiFile,
		Labels:            labels,
	}
}

// ParseExtensions splits a comma or space separated list as typed in the
// settings form.
func ParseExtensions(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimPrefix(f, "."))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
