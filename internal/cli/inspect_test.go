package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filedrop/internal/config"
)

func TestInspectPrintsAcceptedEntries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "report.pdf")
	b := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(a, make([]byte, 2048), 0644))
	require.NoError(t, os.WriteFile(b, make([]byte, 10), 0644))
	cfg := config.DefaultConfig()
	var out bytes.Buffer

	err := inspect(context.Background(), &out, cfg, []string{a, b})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "2 files joined")
	assert.Contains(t, out.String(), "report.pdf")
	assert.Contains(t, out.String(), "2.0 kB")
	assert.Contains(t, out.String(), "image")
	assert.NotContains(t, out.String(), "Rejected")
}

func TestInspectReportsRejections(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.pdf")
	drop := filepath.Join(dir, "drop.exe")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(drop, []byte("x"), 0644))
	cfg := config.DefaultConfig()
	cfg.Upload.AllowedExtensions = []string{"pdf"}
	var out bytes.Buffer

	err := inspect(context.Background(), &out, cfg, []string{keep, drop, filepath.Join(dir, "missing")})

	require.Error(t, err)
	assert.EqualError(t, err, "Extension .exe has been excluded (drop.exe)")
	assert.Contains(t, out.String(), "keep.pdf")
	assert.Contains(t, out.String(), "Rejected (2)")
	assert.Contains(t, out.String(), "Cannot read")
}

func TestInspectTooManyFiles(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 3)
	for i := range paths {
		paths[i] = filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(paths[i], []byte("x"), 0644))
	}
	cfg := config.DefaultConfig()
	cfg.Upload.MaxUploadFiles = 2
	var out bytes.Buffer

	err := inspect(context.Background(), &out, cfg, paths)

	assert.EqualError(t, err, "You cannot attach more than 2 files")
	assert.Contains(t, out.String(), "No files accepted.")
}
