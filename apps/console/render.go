package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/masomo-console/core/listing"
)

func (cli *commandLine) renderMembers(p *memberPage) {
	view := p.ctrl.View()
	state := p.ctrl.State

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\t\tNAME\tEMAIL\tPHONE\tDEPARTMENT\tACTIVE")
	for i, m := range view.Rows {
		check := "[ ]"
		if state.Selected.Has(m.ID) {
			check = "[x]"
		}
		active := "yes"
		if !m.IsActive {
			active = "no"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", i+1, check, m.Name, m.Email, m.Phone, m.Department, active)
	}
	_ = w.Flush()

	cli.renderFooter(view.Meta(), state.SearchTerm)
	if n := state.Selected.Len(); n > 0 {
		cli.printf("%d selected.\n", n)
	}
}

// renderFooter prints the range line and the page bar.
func (cli *commandLine) renderFooter(meta listing.Meta, search string) {
	if search != "" {
		cli.printf("Search: %q\n", search)
	}
	switch {
	case meta.TotalItems == 0:
		cli.printf("No results.\n")
		return
	case meta.StartIndex >= meta.TotalItems:
		cli.printf("Page %d is empty, there are %d page(s).\n", meta.Page, meta.TotalPages)
	default:
		cli.printf("Showing %d-%d of %d.\n", meta.StartIndex+1, meta.EndIndex, meta.TotalItems)
	}
	cli.printf("Pages: %s\n", pageBar(meta.Pages, meta.Page))
}

// pageBar renders a page window with the current page in brackets: `1 ... 4 [5] 6 ... 10`.
func pageBar(items []listing.PageItem, current int) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if !it.Ellipsis && it.Number == current {
			parts = append(parts, "["+it.String()+"]")
			continue
		}
		parts = append(parts, it.String())
	}
	return strings.Join(parts, " ")
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, sep)
}
