package main

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/services/apiclient"
)

const (
	membersPath = "/v1/members"

	// page size used to download a whole directory
	fetchPageSize = 100
)

// memberPage is one directory list page: the whole directory of a kind, held in memory and
// paged through locally.
type memberPage struct {
	client *apiclient.Client
	kind   string
	ctrl   *listing.Controller[directory.Member, string]
}

func (cli *commandLine) browse(ctx context.Context, kind string, perPage int) error {
	k, ok := directory.ParseKind(kind)
	if !ok {
		return errors.Errorf("unknown kind %q, expected teachers, staff, parents or students", kind)
	}
	if !listing.IsPageSize(perPage) {
		return errors.Errorf("invalid page size %d, expected one of %v", perPage, listing.PageSizes)
	}

	p := &memberPage{
		client: cli.client,
		kind:   k,
		ctrl:   listing.NewController(nil, directory.SearchFields, directory.MemberID, perPage),
	}
	if err := p.reload(ctx); err != nil {
		return err
	}

	cli.renderMembers(p)
	for {
		cli.printf("%s> ", k)
		line, ok := cli.readLine()
		if !ok {
			cli.printf("\n")
			return nil
		}
		quit, err := cli.browseCommand(ctx, p, line)
		if err != nil {
			if apiclient.IsSessionExpired(err) {
				return err
			}
			cli.printError(err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// reload downloads the whole directory of the page's kind.
func (p *memberPage) reload(ctx context.Context) error {
	var all []directory.Member
	for page := 1; ; page++ {
		q := url.Values{
			"kind":     {p.kind},
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(fetchPageSize)},
		}
		var res apiclient.Envelope[[]directory.Member]
		if err := p.client.GetJSON(ctx, membersPath, q, &res); err != nil {
			return errors.Wrapf(err, "fetching %s page %d", p.kind, page)
		}
		all = append(all, res.Data...)
		if res.Meta == nil || page >= res.Meta.TotalPages {
			break
		}
	}
	p.ctrl.SetRows(all)
	return nil
}

// browseCommand applies one line of input to the page; quit reports the end of browsing.
func (cli *commandLine) browseCommand(ctx context.Context, p *memberPage, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	state := p.ctrl.State

	switch cmd {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "?", "help":
		cli.printBrowseHelp()
		return false, nil
	case "search", "s", "/":
		state.SetSearchTerm(arg)
	case "page", "p":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return false, errors.Errorf("invalid page %q", arg)
		}
		state.OnPageChange(n)
	case "next", "n":
		if state.CurrentPage >= p.ctrl.View().TotalPages {
			cli.printf("Already on the last page.\n")
			return false, nil
		}
		state.OnPageChange(state.CurrentPage + 1)
	case "prev":
		if state.CurrentPage <= 1 {
			cli.printf("Already on the first page.\n")
			return false, nil
		}
		state.OnPageChange(state.CurrentPage - 1)
	case "size":
		n, err := strconv.Atoi(arg)
		if err != nil || !listing.IsPageSize(n) {
			return false, errors.Errorf("invalid page size %q, expected one of %v", arg, listing.PageSizes)
		}
		state.OnItemsPerPageChange(n)
	case "toggle", "t":
		rows := p.ctrl.View().Rows
		for _, f := range strings.Fields(arg) {
			n, err := strconv.Atoi(f)
			if err != nil || n < 1 || n > len(rows) {
				return false, errors.Errorf("no row %q on this page", f)
			}
			state.Toggle(p.ctrl.ID(rows[n-1]))
		}
	case "all":
		p.ctrl.SelectAll(true)
	case "none":
		p.ctrl.SelectAll(false)
	case "delete":
		if state.Selected.Len() == 0 {
			cli.printf("Nothing selected.\n")
			return false, nil
		}
		ids := listing.SortedIDs(state.Selected)
		if err := p.client.DeleteJSON(ctx, membersPath, url.Values{"id": ids}, nil); err != nil {
			return false, err
		}
		cli.printf("Deleted %d %s(s).\n", len(ids), p.kind)
		state.Selected = listing.NewSelection[string]()
		if err := p.reload(ctx); err != nil {
			return false, err
		}
	case "reload", "r":
		if err := p.reload(ctx); err != nil {
			return false, err
		}
	default:
		cli.printf("Unknown command %q.\n", cmd)
		cli.printBrowseHelp()
		return false, nil
	}

	cli.renderMembers(p)
	return false, nil
}

func (cli *commandLine) printBrowseHelp() {
	cli.printf("Commands:\n")
	cli.printf("  search TERM   filter the rows (empty TERM clears the search)\n")
	cli.printf("  page N        go to page N\n")
	cli.printf("  next, prev    go to the next or previous page\n")
	cli.printf("  size N        show N rows per page (%s)\n", joinInts(listing.PageSizes, ", "))
	cli.printf("  toggle N...   select or unselect rows by their number\n")
	cli.printf("  all, none     select every row of the page, or none\n")
	cli.printf("  delete        delete the selected rows\n")
	cli.printf("  reload        download the directory again\n")
	cli.printf("  quit          stop browsing\n")
}
