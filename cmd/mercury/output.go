package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/progress"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validFormat(f string) bool {
	return f == formatText || f == formatJSON || f == formatYAML
}

// render writes v in the selected format. text draws the human readable
// form; when it is nil the text output falls back to YAML.
func (c *cli) render(v any, text func(w io.Writer) error) error {
	switch {
	case c.output == formatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case c.output == formatYAML || text == nil:
		enc := yaml.NewEncoder(c.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return text(c.out)
}

// table writes aligned columns
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, header)
	for _, r := range rows {
		writeRow(tw, r)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, cell)
	}
	fmt.Fprintln(w)
}

func entryRows(entries []domain.FileEntry, isDir func(*domain.FileEntry) bool) [][]string {
	rows := make([][]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		kind, size := "file", progress.FormatBytes(e.Size)
		if isDir(e) {
			kind, size = "dir", "-"
		}
		if e.IsDeleted() {
			kind += " (deleted)"
		}
		rows = append(rows, []string{kind, e.Basename, size, formatTime(e.DateModified), e.LinkedEntityType})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
