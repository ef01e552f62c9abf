package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/domain"
)

func newTemplateCmd(c *cli) *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "template [type-iri]...",
		Short: "Generate a CSV template for bulk metadata upload",
		Long: `Generate a CSV template for bulk metadata upload. The template lists
the properties of the given entity types, or of the file tree types when
none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			csv, err := app.Browser().MetadataTemplate(ctx, args...)
			if err != nil {
				return err
			}

			if outFile == "" {
				_, err := io.WriteString(c.out, csv)
				return err
			}
			if err := os.WriteFile(outFile, []byte(csv), 0644); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "template written to %s\n", outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "write the template to a file")
	return cmd
}

func newUploadMetadataCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-metadata <directory> <file.csv>",
		Short: "Upload a CSV metadata file for a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			if err := app.Browser().UploadMetadata(ctx, args[0], f); err != nil {
				return err
			}
			fmt.Fprintln(c.errOut, "Metadata have been successfully uploaded")
			return nil
		},
	}
}

func newHierarchyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy",
		Short: "Show the directory type hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			h, err := app.Hierarchy(ctx)
			if err != nil {
				return err
			}
			return c.render(h, func(w io.Writer) error {
				return writeHierarchy(w, h)
			})
		},
	}
}

func writeHierarchy(w io.Writer, h domain.Hierarchy) error {
	if len(h) == 0 {
		_, err := fmt.Fprintln(w, "No hierarchy levels defined")
		return err
	}
	rows := make([][]string, 0, len(h))
	for _, l := range h {
		root := ""
		if l.IsRoot {
			root = "yes"
		}
		children := make([]string, 0, len(l.Children))
		for _, child := range l.Children {
			if cl, ok := h.Level(child); ok {
				children = append(children, cl.Label)
			}
		}
		rows = append(rows, []string{l.Label, l.PluralLabel, root, strings.Join(children, ", "), l.Type})
	}
	return table(w, []string{"LEVEL", "PLURAL", "ROOT", "CHILDREN", "TYPE"}, rows)
}
