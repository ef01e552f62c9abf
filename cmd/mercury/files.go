package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/browser"
	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
	"github.com/Ning0612/mercury/internal/progress"
)

func newLsCmd(c *cli) *cobra.Command {
	var showDeleted bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}

			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			b := app.Browser()
			if _, err := b.Open(ctx, path); err != nil {
				return err
			}
			entries, err := b.Files(ctx, showDeleted)
			if err != nil {
				return err
			}

			h := b.Hierarchy(ctx)
			return c.render(entries, func(w io.Writer) error {
				rows := entryRows(entries, func(e *domain.FileEntry) bool { return fileutil.IsDirectory(e, h) })
				return table(w, []string{"TYPE", "NAME", "SIZE", "MODIFIED", "ENTITY TYPE"}, rows)
			})
		},
	}
	cmd.Flags().BoolVarP(&showDeleted, "deleted", "d", false, "include deleted entries")
	return cmd
}

func newStatCmd(c *cli) *cobra.Command {
	var showDeleted bool

	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the properties of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			entry, err := app.Browser().Stat(ctx, args[0], showDeleted)
			if err != nil {
				return err
			}
			return c.render(entry, nil)
		},
	}
	cmd.Flags().BoolVarP(&showDeleted, "deleted", "d", false, "include deleted entries")
	return cmd
}

func newInfoCmd(c *cli) *cobra.Command {
	var (
		selected    []string
		showDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "info [path]",
		Short: "Show the metadata of a directory and its ancestors",
		Long: `Show the information drawer for a directory: one card per level of
the path, the last one expanded. With a single --select the card of the
selected entry is added.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}

			drawer, err := app.Browser().Drawer(ctx, path, selected, showDeleted)
			if err != nil {
				return err
			}
			return c.render(drawer, func(w io.Writer) error {
				return writeDrawer(w, drawer)
			})
		},
	}
	cmd.Flags().StringSliceVar(&selected, "select", nil, "selected entries")
	cmd.Flags().BoolVarP(&showDeleted, "deleted", "d", false, "include deleted entries")
	return cmd
}

func writeDrawer(w io.Writer, d browser.DrawerView) error {
	if d.Message != "" {
		_, err := fmt.Fprintln(w, d.Message)
		return err
	}
	for _, card := range d.Cards {
		fmt.Fprintf(w, "%s (%s)\n", card.Title, card.Path)
		if card.Message != "" {
			fmt.Fprintf(w, "  %s\n", card.Message)
			continue
		}
		if card.LinkedEntityIRI != "" {
			fmt.Fprintf(w, "  entity: %s\n", card.LinkedEntityIRI)
		}
		if !card.Expanded {
			continue
		}
		for _, p := range card.Properties {
			for _, v := range p.Values {
				fmt.Fprintf(w, "  %s: %s\n", p.Label, v)
			}
		}
		if card.MetadataUploadPath != "" {
			fmt.Fprintf(w, "  metadata upload: mercury upload-metadata %s <file.csv>\n", card.MetadataUploadPath)
		}
	}
	return nil
}

func newMkdirCmd(c *cli) *cobra.Command {
	var typeIRI, entityIRI string

	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Long: `Create a directory. Without --type the first entity type allowed
below the parent directory is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			path := fileutil.Normalize(args[0])
			parent, err := app.Browser().Open(ctx, fileutil.ParentPath(path))
			if err != nil {
				return err
			}
			if err := app.Operations().CreateDirectory(ctx, parent, fileutil.Basename(path), typeIRI, entityIRI); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeIRI, "type", "t", "", "entity type IRI of the directory")
	cmd.Flags().StringVar(&entityIRI, "entity", "", "link the directory to an existing entity")
	return cmd
}

func newRenameCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			return app.Operations().Rename(ctx, args[0], args[1])
		},
	}
}

func newRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files or directories",
		Long: `Delete files or directories. On storages that keep deleted entries a
second delete removes them for good.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			return app.Operations().Delete(ctx, args...)
		},
	}
}

func newUndeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "undelete <path>...",
		Short: "Restore deleted files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			return app.Operations().Undelete(ctx, args...)
		},
	}
}

// newPasteCmd builds cp and mv: the sources go on the clipboard and are
// pasted into the destination directory
func newPasteCmd(c *cli, use string, method domain.ClipboardMethod) *cobra.Command {
	short := "Copy files or directories into a directory"
	if method == domain.MethodCut {
		short = "Move files or directories into a directory"
	}

	return &cobra.Command{
		Use:   use + " <path>... <directory>",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			b := app.Browser()
			sources, dest := args[:len(args)-1], args[len(args)-1]

			items := make([]domain.FileEntry, 0, len(sources))
			for _, p := range sources {
				entry, err := b.Stat(ctx, p, false)
				if err != nil {
					return err
				}
				items = append(items, entry)
			}

			dir, err := b.Open(ctx, dest)
			if err != nil {
				return err
			}
			ops := app.Operations()
			if method == domain.MethodCut {
				err = ops.Cut(ctx, items)
			} else {
				err = ops.Copy(ctx, items)
			}
			if err != nil {
				return err
			}
			return ops.Paste(ctx, dir)
		},
	}
}

func newUploadCmd(c *cli) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <local-file>... <directory>",
		Short: "Upload local files into a directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			sources, dest := args[:len(args)-1], args[len(args)-1]

			var reporter progress.Reporter = progress.NullReporter{}
			if !quiet {
				reporter = progress.NewTerminalReporter(c.errOut)
			}

			var total int64
			for _, src := range sources {
				info, err := os.Stat(src)
				if err != nil {
					return err
				}
				if info.IsDir() {
					return fmt.Errorf("%w: %s", domain.ErrNotDirectory, src)
				}
				total += info.Size()
			}
			reporter.SetTotal(len(sources), total)

			for _, src := range sources {
				if err := uploadFile(ctx, app.Browser(), src, dest, reporter); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show progress")
	return cmd
}

func uploadFile(ctx context.Context, b *browser.Browser, src, dest string, reporter progress.Reporter) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return b.Upload(ctx, dest, filepath.Base(src), f, info.Size(), reporter)
}

func newLinkCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "link <path>",
		Short: "Print the download link of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.session(cmd.Context())
			if err != nil {
				return err
			}
			link := app.Browser().DownloadLink(args[0])
			return c.render(map[string]string{"path": fileutil.Normalize(args[0]), "link": link}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, link)
				return err
			})
		},
	}
}
