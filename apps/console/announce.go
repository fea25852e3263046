package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/services/apiclient"
)

const announcementsPath = "/v1/announcements"

func (cli *commandLine) announce(ctx context.Context, title, body, audience string) error {
	na := announcement.NewAnnouncement{Title: title, Body: body, Audience: audience}
	if err := na.Validate(); err != nil {
		return err
	}

	var res apiclient.Envelope[announcement.Announcement]
	if err := cli.client.PostJSON(ctx, announcementsPath, na, &res); err != nil {
		return err
	}
	cli.printf("Published %q to %d recipient(s).\n", res.Data.Title, res.Data.Recipients)
	return nil
}

// announcements prints one page of the announcements, paginated by the API.
func (cli *commandLine) announcements(ctx context.Context, search string, page, perPage int) error {
	q := listing.Query{Search: search, Page: page, PerPage: perPage}
	if err := q.Validate(); err != nil {
		return err
	}

	params := url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"per_page": {strconv.Itoa(q.PerPage)},
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	var res apiclient.Envelope[[]announcement.Announcement]
	if err := cli.client.GetJSON(ctx, announcementsPath, params, &res); err != nil {
		return err
	}
	if res.Meta == nil {
		return errors.New("announcements response carries no pagination")
	}
	view := listing.ViewOf(res.Data, *res.Meta)

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PUBLISHED\tAUDIENCE\tRECIPIENTS\tTITLE")
	for _, a := range view.Rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.PublishedAt.Local().Format(time.DateTime), a.Audience, a.Recipients, a.Title)
	}
	_ = w.Flush()
	cli.renderFooter(view.Meta(), q.Search)
	return nil
}
