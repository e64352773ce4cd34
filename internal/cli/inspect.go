package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filedrop/internal/config"
	"filedrop/internal/host"
	"filedrop/internal/upload"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect PATH...",
	Short: "Validate paths against the upload limits without opening the window",
	Long: `Resolve each path the way a drop onto the window would, apply the
configured limits, and print the entries that would be accepted.

Examples:
  filedrop inspect ~/Downloads/report.pdf
  filedrop inspect --max-files 3 --allow pdf,png ./docs/*`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

var (
	inspectMaxFiles int
	inspectMaxSize  int
	inspectAllow    string
	inspectTimeout  time.Duration
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntVar(&inspectMaxFiles, "max-files", -1, "Override max files per batch (0 = unlimited)")
	inspectCmd.Flags().IntVar(&inspectMaxSize, "max-size", -1, "Override max file size in MB (0 = unlimited)")
	inspectCmd.Flags().StringVar(&inspectAllow, "allow", "", "Override allowed extensions, comma separated")
	inspectCmd.Flags().DurationVar(&inspectTimeout, "timeout", time.Minute, "Give up resolving after this long")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := cm.Get()
	if inspectMaxFiles >= 0 {
		cfg.Upload.MaxUploadFiles = inspectMaxFiles
	}
	if inspectMaxSize >= 0 {
		cfg.Upload.MaxFileSizeMB = inspectMaxSize
	}
	if inspectAllow != "" {
		cfg.Upload.AllowedExtensions = config.ParseExtensions(inspectAllow)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), inspectTimeout)
	defer cancel()

	return inspect(ctx, cmd.OutOrStdout(), &cfg, args)
}

func inspect(ctx context.Context, out io.Writer, cfg *config.AppConfig, paths []string) error {
	opts := cfg.UploadOptions()
	var messages []string
	opts.OnError = func(msg string) { messages = append(messages, msg) }

	session := upload.NewSession(opts)
	resolver := host.NewFileSystem(nil)
	importer := upload.NewImporter(host.NewService(resolver, nil), session, cfg.Upload.ResolveConcurrency)
	importer.Import(ctx, paths)

	files := session.CurrentFiles()
	if len(files) == 0 {
		fmt.Fprintln(out, "No files accepted.")
	} else {
		fmt.Fprintf(out, "%s\n\n", session.Summary())
		var total uint64
		for i, f := range files {
			fmt.Fprintf(out, "%2d. %-40s %10s  %-9s %s\n", i+1, f.Name, humanize.Bytes(uint64(f.Size)), f.Kind(), f.Caption())
			total += uint64(f.Size)
		}
		fmt.Fprintf(out, "\nTotal: %s\n", humanize.Bytes(total))
	}

	if len(messages) > 0 {
		fmt.Fprintf(out, "\nRejected (%d):\n", len(messages))
		for _, m := range messages {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	}
	if last := session.LastError(); last != nil {
		return errors.New(last.Message)
	}
	return nil
}
