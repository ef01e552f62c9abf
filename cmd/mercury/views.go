package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/views"
)

func newViewCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Query metadata views",
	}
	cmd.AddCommand(newViewListCmd(c), newViewFacetsCmd(c), newViewRowsCmd(c))
	return cmd
}

func newViewListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			list, err := client.Views(ctx)
			if err != nil {
				return err
			}
			return c.render(list, func(w io.Writer) error {
				rows := make([][]string, 0, len(list))
				for _, v := range list {
					rows = append(rows, []string{v.Name, v.Title, strconv.Itoa(len(v.Columns))})
				}
				return table(w, []string{"NAME", "TITLE", "COLUMNS"}, rows)
			})
		},
	}
}

func newViewFacetsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the facets views can be filtered on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			facets, err := client.Facets(ctx)
			if err != nil {
				return err
			}
			return c.render(facets, func(w io.Writer) error {
				rows := make([][]string, 0, len(facets))
				for _, f := range facets {
					rows = append(rows, []string{f.Name, f.Title, string(f.Type), facetRange(f)})
				}
				return table(w, []string{"NAME", "TITLE", "TYPE", "VALUES"}, rows)
			})
		},
	}
}

func facetRange(f views.Facet) string {
	if f.Type.IsRange() {
		return fmt.Sprintf("%v .. %v", f.Min, f.Max)
	}
	labels := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		labels = append(labels, v.Label)
	}
	return strings.Join(labels, ", ")
}

func newViewRowsCmd(c *cli) *cobra.Command {
	var (
		filterFlags []string
		rangeFlags  []string
		prefixFlags []string
		location    string
		page        int
		size        int
	)

	cmd := &cobra.Command{
		Use:   "rows <view>",
		Short: "Show rows of a view",
		Long: `Show one page of a view. Filters are given per facet:

  --filter Study_species=Homo sapiens,Mus musculus
  --range  Sample_age=10..20
  --prefix Study_title=cancer

The total count is requested separately and may be omitted when the server
takes too long to compute it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := c.session(ctx)
			if err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			fetcher, err := app.Views()
			if err != nil {
				return err
			}

			selected, err := parseSelections(filterFlags, rangeFlags, prefixFlags)
			if err != nil {
				return err
			}
			var filters []views.Filter
			if len(selected) > 0 {
				facets, err := client.Facets(ctx)
				if err != nil {
					return err
				}
				if filters, err = views.FilterFromSelection(facets, selected); err != nil {
					return err
				}
			}

			if size <= 0 {
				size = app.Config().Views.PageSize
			}
			res, err := fetcher.Refresh(ctx, args[0], filters, location, size)
			if err != nil {
				return err
			}
			if page > 0 {
				if res.Page, err = fetcher.Page(ctx, page, size); err != nil {
					return err
				}
			}
			if res.Warning != "" {
				fmt.Fprintln(c.errOut, res.Warning)
			}

			return c.render(res, func(w io.Writer) error {
				return writeRows(w, res, page, size)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filterFlags, "filter", nil, "facet=value[,value...]")
	cmd.Flags().StringArrayVar(&rangeFlags, "range", nil, "facet=min..max, either bound may be empty")
	cmd.Flags().StringArrayVar(&prefixFlags, "prefix", nil, "facet=text for text facets")
	cmd.Flags().StringVar(&location, "location", "", "only rows within this directory")
	cmd.Flags().IntVar(&page, "page", 0, "page number, starting at 0")
	cmd.Flags().IntVar(&size, "size", 0, "rows per page (default: views.page_size)")
	return cmd
}

func parseSelections(filterFlags, rangeFlags, prefixFlags []string) (map[string]views.Selection, error) {
	selected := make(map[string]views.Selection)
	split := func(flag string) (string, string, error) {
		name, value, ok := strings.Cut(flag, "=")
		if !ok || name == "" {
			return "", "", fmt.Errorf("%w: expected facet=value, got %q", domain.ErrBadRequest, flag)
		}
		return name, value, nil
	}

	for _, f := range filterFlags {
		name, value, err := split(f)
		if err != nil {
			return nil, err
		}
		sel := selected[name]
		sel.Values = append(sel.Values, strings.Split(value, ",")...)
		selected[name] = sel
	}
	for _, f := range rangeFlags {
		name, value, err := split(f)
		if err != nil {
			return nil, err
		}
		lo, hi, ok := strings.Cut(value, "..")
		if !ok {
			return nil, fmt.Errorf("%w: expected min..max, got %q", domain.ErrBadRequest, value)
		}
		sel := selected[name]
		sel.Min, sel.Max = bound(lo), bound(hi)
		selected[name] = sel
	}
	for _, f := range prefixFlags {
		name, value, err := split(f)
		if err != nil {
			return nil, err
		}
		sel := selected[name]
		sel.Prefix = value
		selected[name] = sel
	}
	return selected, nil
}

// bound is nil for an empty bound and a number when the text is numeric
func bound(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func writeRows(w io.Writer, res views.Result, page, size int) error {
	var columns []string
	seen := make(map[string]bool)
	for _, row := range res.Page.Rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(res.Page.Rows))
	for _, row := range res.Page.Rows {
		cells := make([]string, len(columns))
		for i, name := range columns {
			values := make([]string, 0, len(row[name]))
			for _, v := range row[name] {
				values = append(values, v.String())
			}
			cells[i] = strings.Join(values, ", ")
		}
		rows = append(rows, cells)
	}
	if len(columns) > 0 {
		header := make([]string, len(columns))
		for i, name := range columns {
			header[i] = strings.ToUpper(name)
		}
		if err := table(w, header, rows); err != nil {
			return err
		}
	}

	first := page*size + 1
	last := page*size + len(res.Page.Rows)
	switch {
	case len(res.Page.Rows) == 0:
		fmt.Fprintln(w, "No results")
	case res.Count.Unknown():
		fmt.Fprintf(w, "%d-%d of more than %d\n", first, last, last)
	default:
		fmt.Fprintf(w, "%d-%d of %d\n", first, last, res.Count.Count)
	}
	if res.Page.Timeout {
		fmt.Fprintln(w, "The server stopped before the page was complete")
	}
	return nil
}
